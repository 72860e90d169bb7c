package changefeed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/connections/rabbitmq"
	"venue-pos/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, contentType string, persistent bool) error
}

// Relay republishes every change from src to the changes exchange.
type Relay struct {
	src     Source
	pub     Publisher
	log     *logger.Logger
	initial time.Duration
	max     time.Duration
}

func NewRelay(src Source, pub Publisher, lg *logger.Logger, initial, max time.Duration) *Relay {
	return &Relay{src: src, pub: pub, log: lg, initial: initial, max: max}
}

// Run restarts the source with backoff until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = r.max
	b.MaxElapsedTime = 0
	bo := backoff.WithContext(b, ctx)

	for {
		started := time.Now()
		err := r.src.Listen(ctx, func(ev domain.ChangeEvent) { r.forward(ctx, ev) })
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > r.max {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return ctx.Err()
		}
		r.log.Error("relay_source_failed", err, map[string]any{"retry_in": wait.String()})
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Relay) forward(ctx context.Context, ev domain.ChangeEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		r.log.Error("relay_encode_failed", err, map[string]any{"table": ev.Table})
		return
	}
	key := RoutingKey(ev.Table, ev.VenueID())
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.pub.Publish(pctx, rabbitmq.ChangesExchange, key, body,
		amqp.Table{"x-source": "feed-relay"}, "application/json", false); err != nil {
		r.log.Error("relay_publish_failed", err, map[string]any{"key": key})
		return
	}
	r.log.Debug("change_relayed", map[string]any{"key": key, "type": string(ev.Type)})
}
