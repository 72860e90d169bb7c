package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"venue-pos/internal/config"
)

const (
	// ChangesExchange carries row changes keyed "<table>.<venue_id>".
	ChangesExchange = "changes_topic"
	// NotificationsExchange fans synthesized notifications out to every subscriber.
	NotificationsExchange = "notifications_fanout"
	NotificationsQueue    = "notifications.q"
)

var ErrClosed = errors.New("rabbitmq connection is closed")

// Client owns one connection and a confirm-mode channel used for publishing.
// Consumers open their own channels.
type Client struct {
	conn *amqp.Connection
	pub  *amqp.Channel
}

func brokerURL(cfg config.RabbitMQConfig) string {
	u := url.URL{
		Scheme:  "amqp",
		User:    url.UserPassword(cfg.User, cfg.Password),
		Host:    cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:    "/" + cfg.VHost,
		RawPath: "/" + url.PathEscape(cfg.VHost),
	}
	if cfg.UseTLS {
		u.Scheme = "amqps"
	}
	if cfg.VHost == "" || cfg.VHost == "/" {
		u.Path, u.RawPath = "/", ""
	}
	return u.String()
}

func Dial(cfg config.RabbitMQConfig) (*Client, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.UseTLS {
		conn, err = amqp.DialTLS(brokerURL(cfg), &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(brokerURL(cfg))
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	pub, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := pub.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}

	c := &Client{conn: conn, pub: pub}
	if err := c.declareTopology(); err != nil {
		c.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}
	return c, nil
}

// DialContext retries Dial with exponential backoff while the broker comes up.
func DialContext(ctx context.Context, cfg config.RabbitMQConfig) (*Client, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	return backoff.RetryWithData(func() (*Client, error) { return Dial(cfg) }, backoff.WithContext(b, ctx))
}

func (c *Client) declareTopology() error {
	if err := c.pub.ExchangeDeclare(ChangesExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.pub.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.pub.QueueDeclare(NotificationsQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return c.pub.QueueBind(NotificationsQueue, "", NotificationsExchange, false, nil)
}

// OpenChannel returns a fresh channel for a consumer; the caller closes it.
func (c *Client) OpenChannel() (*amqp.Channel, error) {
	if c.conn == nil || c.conn.IsClosed() {
		return nil, ErrClosed
	}
	return c.conn.Channel()
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return ErrClosed
	}
	return nil
}

func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Publish sends one message and waits until the broker confirms it.
func (c *Client) Publish(ctx context.Context, exchange, key string,
	body []byte, headers amqp.Table, contentType string, persistent bool) error {

	msg := amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  contentType,
		Timestamp:    time.Now(),
		Headers:      headers,
		Body:         body,
	}
	if persistent {
		msg.DeliveryMode = amqp.Persistent
	}

	dc, err := c.pub.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", exchange, err)
	}
	ok, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("publish to %s: nacked by broker", exchange)
	}
	return nil
}
