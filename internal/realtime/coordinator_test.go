package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/changefeed"
	"venue-pos/internal/domain"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handler(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Change.RowID())
	}
	return out
}

func newTestCoordinator(feed changefeed.Feed, scoper Scoper) *Coordinator {
	sup := changefeed.NewSupervisor(feed, changefeed.SupervisorOptions{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})
	return New(sup, Options{Scoper: scoper})
}

func change(t *testing.T, table string, row any) domain.ChangeEvent {
	t.Helper()
	ev, err := domain.NewChange(table, domain.ChangeInsert, row, nil)
	require.NoError(t, err)
	return ev
}

func TestInitializeOpensOneChannelPerTable(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)
	c.Initialize(context.Background(), "v1")
	defer c.Cleanup()

	assert.True(t, c.IsActive())
	assert.Equal(t, "v1", c.VenueID())
	assert.Equal(t, len(domain.Tracked), feed.Open())
	for _, table := range domain.Tracked {
		assert.Equal(t, 1, feed.OpenFor(table), table)
	}
}

func TestInitializeTwiceKeepsOneChannelPerTable(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)
	c.Initialize(context.Background(), "v1")
	c.Initialize(context.Background(), "v1")
	defer c.Cleanup()

	for _, table := range domain.Tracked {
		assert.Equal(t, 1, feed.OpenFor(table), table)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)

	assert.NotPanics(t, c.Cleanup)
	assert.False(t, c.IsActive())

	c.Initialize(context.Background(), "v1")
	c.Cleanup()
	c.Cleanup()
	assert.False(t, c.IsActive())
	assert.Equal(t, "", c.VenueID())
	assert.Equal(t, 0, feed.Open())
	assert.Error(t, c.Context().Err())
}

func TestVenueScopedDelivery(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)
	rec := &recorder{}
	c.On(domain.EventOrder, rec.handler)
	c.Initialize(context.Background(), "v1")
	defer c.Cleanup()

	feed.Publish(change(t, domain.TableOrders, domain.Order{ID: "other", VenueID: "v2"}))
	feed.Publish(change(t, domain.TableOrders, domain.Order{ID: "mine", VenueID: "v1"}))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"mine"}, rec.ids())
	assert.Equal(t, "v1", rec.events[0].VenueID)
}

type staticScoper map[string]string

func (s staticScoper) InVenue(_ context.Context, venueID string, ev domain.ChangeEvent) (bool, error) {
	owner, ok := s[ev.ParentID()]
	if !ok {
		return false, errors.New("unknown parent")
	}
	return owner == venueID, nil
}

func TestDeferredTablesAreNarrowedBeforeHandlers(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, staticScoper{"c1": "v1", "c2": "v2"})
	rec := &recorder{}
	c.On(domain.EventMessage, rec.handler)
	c.Initialize(context.Background(), "v1")
	defer c.Cleanup()

	feed.Publish(change(t, domain.TableMessages, domain.Message{ID: "m-other", ConversationID: "c2"}))
	feed.Publish(change(t, domain.TableMessages, domain.Message{ID: "m-unknown", ConversationID: "c3"}))
	feed.Publish(change(t, domain.TableMessages, domain.Message{ID: "m-mine", ConversationID: "c1"}))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, []string{"m-mine"}, rec.ids())
}

func TestAllVenuesReceivesEveryVenue(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)
	rec := &recorder{}
	c.On(domain.EventReservation, rec.handler)
	c.Initialize(context.Background(), domain.AllVenues)
	defer c.Cleanup()

	feed.Publish(change(t, domain.TableReservations, domain.Reservation{ID: "r1", VenueID: "v1"}))
	feed.Publish(change(t, domain.TableReservations, domain.Reservation{ID: "r2", VenueID: "v2"}))

	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, time.Millisecond)
}

func TestSpecificHandlersRunBeforeWildcard(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)

	var mu sync.Mutex
	var order []string
	note := func(tag string) Handler {
		return func(_ context.Context, ev Event) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, tag+":"+ev.Name)
			return nil
		}
	}
	c.On(domain.EventAll, note("all"))
	c.On(domain.EventTable, note("first"))
	c.On(domain.EventTable, note("second"))
	c.Initialize(context.Background(), "v1")
	defer c.Cleanup()

	feed.Publish(change(t, domain.TableTables, domain.Table{ID: "t1", VenueID: "v1"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"first:table", "second:table", "all:table"}, order)
}

func TestFailingHandlersDoNotStopOthers(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)
	rec := &recorder{}
	c.On(domain.EventWaiterCall, func(context.Context, Event) error { panic("boom") })
	c.On(domain.EventWaiterCall, func(context.Context, Event) error { return errors.New("nope") })
	c.On(domain.EventWaiterCall, rec.handler)
	c.Initialize(context.Background(), "v1")
	defer c.Cleanup()

	feed.Publish(change(t, domain.TableWaiterCalls, domain.WaiterCall{ID: "w1", VenueID: "v1"}))
	feed.Publish(change(t, domain.TableWaiterCalls, domain.WaiterCall{ID: "w2", VenueID: "v1"}))

	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"w1", "w2"}, rec.ids())
}

func TestUnsubscribeRemovesOnlyThatRegistration(t *testing.T) {
	c := newTestCoordinator(changefeed.NewMemory(), nil)
	h := func(context.Context, Event) error { return nil }

	off1 := c.On(domain.EventOrder, h)
	c.On(domain.EventOrder, h)
	assert.Equal(t, 2, c.HandlerCount(domain.EventOrder))

	off1()
	off1()
	assert.Equal(t, 1, c.HandlerCount(domain.EventOrder))
}

func TestPerChannelOrderIsPreserved(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)
	rec := &recorder{}
	c.On(domain.EventOrder, rec.handler)
	c.Initialize(context.Background(), "v1")
	defer c.Cleanup()

	want := []string{"a", "b", "c", "d", "e"}
	for _, id := range want {
		feed.Publish(change(t, domain.TableOrders, domain.Order{ID: id, VenueID: "v1"}))
	}
	require.Eventually(t, func() bool { return rec.len() == len(want) }, time.Second, time.Millisecond)
	assert.Equal(t, want, rec.ids())
}

func TestReconnectRunsHooks(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)

	var mu sync.Mutex
	var refetched []string
	c.OnReconnect(func(event string) {
		mu.Lock()
		refetched = append(refetched, event)
		mu.Unlock()
	})
	c.Initialize(context.Background(), "v1")
	defer c.Cleanup()

	feed.Drop(domain.TableWaiterCalls)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(refetched) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{domain.EventWaiterCall}, refetched)
	assert.True(t, c.IsActive())
}

func TestVenueSwitchStopsOldVenueEvents(t *testing.T) {
	feed := changefeed.NewMemory()
	c := newTestCoordinator(feed, nil)
	rec := &recorder{}
	c.On(domain.EventOrder, rec.handler)

	c.Initialize(context.Background(), "v1")
	c.Initialize(context.Background(), "v2")
	defer c.Cleanup()

	feed.Publish(change(t, domain.TableOrders, domain.Order{ID: "old", VenueID: "v1"}))
	feed.Publish(change(t, domain.TableOrders, domain.Order{ID: "new", VenueID: "v2"}))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"new"}, rec.ids())
}

func TestSlowVenueDoesNotStallSharedFeed(t *testing.T) {
	feed := changefeed.NewMemory()
	slow := newTestCoordinator(feed, nil)
	fast := newTestCoordinator(feed, nil)

	release := make(chan struct{})
	slowRec := &recorder{}
	slow.On(domain.EventOrder, func(ctx context.Context, ev Event) error {
		<-release
		return slowRec.handler(ctx, ev)
	})
	fastRec := &recorder{}
	fast.On(domain.EventOrder, fastRec.handler)

	slow.Initialize(context.Background(), "v1")
	defer slow.Cleanup()
	fast.Initialize(context.Background(), "v2")
	defer fast.Cleanup()

	const burst = 3 * backlogWarnAt
	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < burst; i++ {
			feed.Publish(change(t, domain.TableOrders, domain.Order{ID: fmt.Sprintf("o%d", i), VenueID: "v1"}))
		}
		feed.Publish(change(t, domain.TableOrders, domain.Order{ID: "elsewhere", VenueID: "v2"}))
	}()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked behind a slow venue")
	}
	require.Eventually(t, func() bool { return fastRec.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, slowRec.len())

	close(release)
	require.Eventually(t, func() bool { return slowRec.len() == burst }, 2*time.Second, time.Millisecond)
	ids := slowRec.ids()
	assert.Equal(t, "o0", ids[0])
	assert.Equal(t, fmt.Sprintf("o%d", burst-1), ids[burst-1])
}

func TestBacklogKeepsOrderAcrossDrains(t *testing.T) {
	b := newBacklog()
	b.push(queued{reconnect: "a"})
	assert.Equal(t, 2, b.push(queued{reconnect: "b"}))
	<-b.ready

	got := b.drain()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].reconnect)
	assert.Equal(t, "b", got[1].reconnect)
	assert.Equal(t, 0, b.len())

	b.push(queued{reconnect: "c"})
	select {
	case <-b.ready:
	default:
		t.Fatal("push after drain did not signal")
	}
}
