package changefeed

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/connections/rabbitmq"
)

// ChannelOpener hands out broker channels; *rabbitmq.Client implements it.
type ChannelOpener interface {
	OpenChannel() (*amqp.Channel, error)
}

// AMQPFeed gives every channel its own exclusive queue bound to the changes exchange,
// so the broker applies the venue filter.
type AMQPFeed struct {
	conn ChannelOpener
	log  *logger.Logger
}

func NewAMQPFeed(conn ChannelOpener, lg *logger.Logger) *AMQPFeed {
	return &AMQPFeed{conn: conn, log: lg}
}

func (f *AMQPFeed) Subscribe(ctx context.Context, spec Spec, deliver Deliver) (Channel, error) {
	ch, err := f.conn.OpenChannel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscribe, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%w: queue declare: %v", ErrSubscribe, err)
	}
	key := BindingKey(spec)
	if err := ch.QueueBind(q.Name, key, rabbitmq.ChangesExchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%w: bind %s: %v", ErrSubscribe, key, err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%w: consume: %v", ErrSubscribe, err)
	}

	c := newChannel(func() { _ = ch.Close() })
	go func() {
		for d := range msgs {
			ev, err := DecodeNotification(d.Body)
			if err != nil {
				f.log.Warn("change_skipped", map[string]any{"channel": spec.Name, "error": err.Error()})
				continue
			}
			// The binding already narrowed by venue; non-venue filters are applied here.
			if !spec.Match(ev) {
				continue
			}
			deliver(ev)
		}
		c.fail(ErrChannelDropped)
	}()
	return c, nil
}
