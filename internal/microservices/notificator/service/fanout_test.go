package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/connections/rabbitmq"
)

type brokerCall struct {
	exchange string
	body     []byte
	headers  amqp.Table
}

type fakeBroker struct{ calls []brokerCall }

func (f *fakeBroker) Publish(_ context.Context, exchange, _ string, body []byte, headers amqp.Table, _ string, _ bool) error {
	f.calls = append(f.calls, brokerCall{exchange: exchange, body: body, headers: headers})
	return nil
}

func TestFanoutPublisher(t *testing.T) {
	b := &fakeBroker{}
	n := Notification{ID: "n1", Type: KindOrder, VenueID: "v1", Title: "New order"}
	require.NoError(t, NewFanoutPublisher(b).Publish(context.Background(), n))

	require.Len(t, b.calls, 1)
	assert.Equal(t, rabbitmq.NotificationsExchange, b.calls[0].exchange)
	assert.Equal(t, "v1", b.calls[0].headers["x-venue-id"])
	var back Notification
	require.NoError(t, json.Unmarshal(b.calls[0].body, &back))
	assert.Equal(t, n.ID, back.ID)
}

type fakeConsumer struct {
	msgs chan amqp.Delivery
	err  error
}

func (f *fakeConsumer) ConsumeWithContext(context.Context, string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.msgs, f.err
}

func TestNotifyDeliversToSink(t *testing.T) {
	fc := &fakeConsumer{msgs: make(chan amqp.Delivery, 3)}
	body, _ := json.Marshal(Notification{ID: "n1", Type: KindReservation})
	fc.msgs <- amqp.Delivery{Body: []byte("not json")}
	fc.msgs <- amqp.Delivery{Body: body}
	close(fc.msgs)

	var got []Notification
	err := NewNotificatorService(fc, func(n Notification) { got = append(got, n) }, nil).Notify(context.Background())
	assert.Error(t, err, "closed delivery channel is reported")
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].ID)
}

func TestNotifyStopsWithContext(t *testing.T) {
	fc := &fakeConsumer{msgs: make(chan amqp.Delivery)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewNotificatorService(fc, func(Notification) {}, nil).Notify(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Notify did not return")
	}
}

func TestNotifyConsumeError(t *testing.T) {
	fc := &fakeConsumer{err: errors.New("no queue")}
	assert.Error(t, NewNotificatorService(fc, nil, nil).Notify(context.Background()))
}
