package relay

import (
	"context"
	"fmt"

	"venue-pos/internal/changefeed"
	"venue-pos/internal/common/logger"
	"venue-pos/internal/config"
	"venue-pos/internal/connections/rabbitmq"
)

// Run forwards Postgres change notifications to the changes exchange until ctx ends.
func Run(ctx context.Context, cfg *config.Config) error {
	lg := logger.New("feed-relay")
	broker, err := rabbitmq.DialContext(ctx, cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer broker.Close()

	lg.Info("relay_started", map[string]any{"channel": cfg.Feed.Channel, "exchange": rabbitmq.ChangesExchange})
	src := changefeed.NewPGListener(cfg.Database, cfg.Feed.Channel, lg)
	return changefeed.NewRelay(src, broker, lg, cfg.Feed.ReconnectInitial, cfg.Feed.ReconnectMax).Run(ctx)
}
