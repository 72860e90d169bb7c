package reservations

import (
	"time"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/microservices/reservations/repository"
	"venue-pos/internal/microservices/reservations/service"
	"venue-pos/internal/realtime"
)

func NewBook(venueID string, db database.DB, alerts realtime.Alerter, lg *logger.Logger) *service.Book {
	return service.NewBook(venueID, repository.NewReservationRepository(db), alerts, lg, time.Now)
}
