package changefeed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
)

func fastSupervisor(feed Feed) *Supervisor {
	return NewSupervisor(feed, SupervisorOptions{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})
}

func TestSupervisorReconnectsAfterDrop(t *testing.T) {
	m := NewMemory()
	var delivered, reconnects atomic.Int32
	spec := Spec{Name: "orders:v1", Table: domain.TableOrders, Filter: VenueFilter("v1")}

	w := fastSupervisor(m).Watch(context.Background(), spec,
		func(domain.ChangeEvent) { delivered.Add(1) },
		func(Spec) { reconnects.Add(1) })
	defer w.Stop()

	require.Eventually(t, w.Open, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), reconnects.Load())

	m.Drop(domain.TableOrders)
	require.Eventually(t, func() bool { return reconnects.Load() == 1 && m.OpenFor(domain.TableOrders) == 1 },
		time.Second, time.Millisecond)

	m.Publish(orderChange(t, "o1", "v1"))
	assert.Equal(t, int32(1), delivered.Load())
}

func TestSupervisorRetriesFailedFirstOpen(t *testing.T) {
	m := NewMemory()
	m.FailSubscribes(3)
	var reconnects atomic.Int32

	w := fastSupervisor(m).Watch(context.Background(), Spec{Table: domain.TableTables},
		func(domain.ChangeEvent) {}, func(Spec) { reconnects.Add(1) })
	defer w.Stop()

	require.Eventually(t, w.Open, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), reconnects.Load(), "a late first open refreshes like a reconnect")
	assert.Equal(t, 1, m.Open())
}

func TestSupervisorStopClosesChannel(t *testing.T) {
	m := NewMemory()
	w := fastSupervisor(m).Watch(context.Background(), Spec{Table: domain.TableOrders}, func(domain.ChangeEvent) {}, nil)
	require.Eventually(t, w.Open, time.Second, time.Millisecond)

	w.Stop()
	assert.False(t, w.Open())
	assert.Equal(t, 0, m.Open())
}

type refusingSource struct{ calls atomic.Int32 }

func (s *refusingSource) Listen(context.Context, func(domain.ChangeEvent)) error {
	s.calls.Add(1)
	return errors.New("connection refused")
}

func TestSupervisorBacksOffWhenListenerKeepsFailing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &refusingSource{}
	feed := NewPGFeed(ctx, src, logger.Nop())
	sup := NewSupervisor(feed, SupervisorOptions{InitialInterval: 50 * time.Millisecond, MaxInterval: time.Second})

	var reconnects atomic.Int32
	w := sup.Watch(ctx, Spec{Name: "orders:v1", Table: domain.TableOrders, Filter: VenueFilter("v1")},
		func(domain.ChangeEvent) {}, func(Spec) { reconnects.Add(1) })
	time.Sleep(600 * time.Millisecond)
	w.Stop()

	assert.GreaterOrEqual(t, src.calls.Load(), int32(2))
	assert.LessOrEqual(t, src.calls.Load(), int32(10))
	assert.LessOrEqual(t, reconnects.Load(), int32(10))
}
