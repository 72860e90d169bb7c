package messaging

import (
	"venue-pos/internal/common/logger"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/microservices/messaging/repository"
	"venue-pos/internal/microservices/messaging/service"
	"venue-pos/internal/realtime"
)

func NewInbox(venueID string, db database.DB, alerts realtime.Alerter, lg *logger.Logger) *service.Inbox {
	return service.NewInbox(venueID, repository.NewMessagingRepository(db), alerts, lg)
}
