package waiter

import (
	"venue-pos/internal/common/logger"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/microservices/waiter/repository"
	"venue-pos/internal/microservices/waiter/service"
	"venue-pos/internal/realtime"
)

func NewBoard(venueID string, db database.DB, alerts realtime.Alerter, lg *logger.Logger) *service.Board {
	return service.NewBoard(venueID, repository.NewWaiterRepository(db), alerts, lg)
}
