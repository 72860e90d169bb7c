package order

import (
	"venue-pos/internal/common/logger"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/microservices/order/handlers"
	"venue-pos/internal/microservices/order/repository"
	"venue-pos/internal/microservices/order/service"
)

// New wires the order service to Postgres and returns its HTTP handlers.
func New(db database.DB, lg *logger.Logger) *handlers.Handler {
	repo := repository.New(db)
	svc := service.New(*repo, lg)
	return handlers.New(svc)
}
