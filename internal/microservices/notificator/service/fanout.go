package service

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/connections/rabbitmq"
)

// Publisher forwards notifications to platform sinks.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

type brokerPublisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, contentType string, persistent bool) error
}

// FanoutPublisher sends each notification to the notifications fanout exchange.
type FanoutPublisher struct {
	broker brokerPublisher
}

func NewFanoutPublisher(broker brokerPublisher) *FanoutPublisher {
	return &FanoutPublisher{broker: broker}
}

func (p *FanoutPublisher) Publish(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	headers := amqp.Table{"x-venue-id": n.VenueID, "x-type": string(n.Type)}
	return p.broker.Publish(ctx, rabbitmq.NotificationsExchange, "", body, headers, "application/json", false)
}

type consumer interface {
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// NotificatorService drains the notifications queue and hands every
// notification to sink. It stands in for the platform push integration.
type NotificatorService struct {
	ch   consumer
	sink func(Notification)
	log  *logger.Logger
}

func NewNotificatorService(ch consumer, sink func(Notification), lg *logger.Logger) *NotificatorService {
	if lg == nil {
		lg = logger.Nop()
	}
	if sink == nil {
		sink = func(n Notification) {
			lg.Info("notification_received", map[string]any{
				"notification_id": n.ID, "type": string(n.Type), "venue_id": n.VenueID, "title": n.Title,
			})
		}
	}
	return &NotificatorService{ch: ch, sink: sink, log: lg}
}

// Notify consumes until ctx ends or the broker closes the delivery channel.
func (ns *NotificatorService) Notify(ctx context.Context) error {
	msgs, err := ns.ch.ConsumeWithContext(ctx, rabbitmq.NotificationsQueue, "notificator", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", rabbitmq.NotificationsQueue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("consume %s: delivery channel closed", rabbitmq.NotificationsQueue)
			}
			var n Notification
			if err := json.Unmarshal(d.Body, &n); err != nil {
				ns.log.Warn("notification_malformed", map[string]any{"error": err.Error()})
				_ = d.Nack(false, false)
				continue
			}
			ns.sink(n)
			_ = d.Ack(false)
		}
	}
}
