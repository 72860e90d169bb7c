package notificator

import (
	"context"
	"fmt"
	"time"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/connections/rabbitmq"
	"venue-pos/internal/microservices/notificator/repository"
	"venue-pos/internal/microservices/notificator/service"
)

// NewCenter builds a notification center whose venue names come from Postgres.
func NewCenter(venueID string, db database.DB, opts service.Options) *service.Center {
	if opts.Venues == nil {
		opts.Venues = repository.NewVenueDirectory(db, 10*time.Minute)
	}
	return service.NewCenter(venueID, opts)
}

// Start runs the notification subscriber until ctx ends.
func Start(ctx context.Context, rmqClient *rabbitmq.Client, lg *logger.Logger) error {
	ch, err := rmqClient.OpenChannel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	if err := ch.Qos(16, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	lg.Info("notificator_started", map[string]any{"queue": rabbitmq.NotificationsQueue})
	return service.NewNotificatorService(ch, nil, lg).Notify(ctx)
}
