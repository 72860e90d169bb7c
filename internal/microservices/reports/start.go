package reports

import (
	"venue-pos/internal/connections/database"
	"venue-pos/internal/microservices/reports/handler"
	"venue-pos/internal/microservices/reports/repository"
	"venue-pos/internal/microservices/reports/service"
)

func New(db database.DB) *handler.Handler {
	repo := repository.NewReportsRepo(db)
	return handler.New(service.NewReportsService(repo))
}
