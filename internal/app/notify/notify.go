package notify

import (
	"context"
	"fmt"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/config"
	"venue-pos/internal/connections/rabbitmq"
	"venue-pos/internal/microservices/notificator"
)

// Run consumes the notifications queue until ctx ends.
func Run(ctx context.Context, cfg *config.Config) error {
	lg := logger.New("notification-subscriber")
	broker, err := rabbitmq.DialContext(ctx, cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer broker.Close()
	return notificator.Start(ctx, broker, lg)
}
