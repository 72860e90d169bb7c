// Package realtime owns the per-venue set of change channels and fans row changes
// out to registered handlers.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venue-pos/internal/changefeed"
	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/metrics"
)

// Event is what handlers receive. Handlers registered for domain.EventAll get the
// same value, so Name tells them which specific event it was.
type Event struct {
	Name    string             `json:"event"`
	VenueID string             `json:"venue_id"`
	Change  domain.ChangeEvent `json:"payload"`
}

type Handler func(ctx context.Context, ev Event) error

// Scoper decides whether a change on a table without a venue column belongs to venueID.
type Scoper interface {
	InVenue(ctx context.Context, venueID string, ev domain.ChangeEvent) (bool, error)
}

// backlogWarnAt is the dispatch backlog depth at which a venue is reported as lagging.
const backlogWarnAt = 256

type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Scoper  Scoper
}

type registration struct {
	id int
	h  Handler
}

type hook struct {
	id int
	fn func(event string)
}

type queued struct {
	change    domain.ChangeEvent
	reconnect string
}

type session struct {
	venueID string
	ctx     context.Context
	cancel  context.CancelFunc
	queue   *backlog
	watches []*changefeed.Watched
}

// Coordinator keeps one channel per tracked table for the current venue and
// dispatches events on a single goroutine, so handlers never run concurrently and
// events from one channel arrive in commit order.
type Coordinator struct {
	sup     *changefeed.Supervisor
	log     *logger.Logger
	metrics *metrics.Metrics
	scoper  Scoper

	// life serializes Initialize and Cleanup.
	life sync.Mutex

	mu       sync.Mutex
	current  *session
	handlers map[string][]registration
	hooks    []hook
	nextID   int
}

func New(sup *changefeed.Supervisor, opts Options) *Coordinator {
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	return &Coordinator{
		sup:      sup,
		log:      lg,
		metrics:  opts.Metrics,
		scoper:   opts.Scoper,
		handlers: make(map[string][]registration),
	}
}

// Initialize tears down any previous channels, then opens one channel per tracked
// table for venueID. Channel failures are logged and retried in the background.
// ctx bounds the lifetime of the channels.
func (c *Coordinator) Initialize(ctx context.Context, venueID string) {
	c.life.Lock()
	defer c.life.Unlock()
	c.cleanup()
	if venueID == "" {
		return
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &session{venueID: venueID, ctx: sctx, cancel: cancel, queue: newBacklog()}
	go c.dispatchLoop(s)

	deliver := func(ev domain.ChangeEvent) {
		if sctx.Err() != nil {
			return
		}
		if n := s.queue.push(queued{change: ev}); n == backlogWarnAt {
			c.log.Warn("dispatch_lagging", map[string]any{"venue_id": venueID, "backlog": n})
		}
	}
	for _, table := range domain.Tracked {
		event, _ := domain.EventForTable(table)
		filter := changefeed.Filter{}
		if domain.HasVenueColumn(table) {
			filter = changefeed.VenueFilter(venueID)
		}
		spec := changefeed.Spec{Name: table + ":" + venueID, Table: table, Filter: filter}
		s.watches = append(s.watches, c.sup.Watch(sctx, spec, deliver, func(changefeed.Spec) {
			if sctx.Err() == nil {
				s.queue.push(queued{reconnect: event})
			}
		}))
	}

	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
	c.log.Info("coordinator_initialized", map[string]any{"venue_id": venueID, "channels": len(s.watches)})
}

// Cleanup closes every channel and forgets the venue. Safe to call repeatedly or
// before Initialize. Handlers stay registered.
func (c *Coordinator) Cleanup() {
	c.life.Lock()
	defer c.life.Unlock()
	c.cleanup()
}

func (c *Coordinator) cleanup() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()
	if s == nil {
		return
	}
	s.cancel()
	for _, w := range s.watches {
		w.Stop()
	}
	c.log.Info("coordinator_cleaned_up", map[string]any{"venue_id": s.venueID})
}

func (c *Coordinator) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.current.venueID != "" && len(c.current.watches) > 0
}

func (c *Coordinator) VenueID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.venueID
}

// Context is cancelled when the current venue is cleaned up; snapshot fetches
// use it so a late result for a previous venue is discarded.
func (c *Coordinator) Context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return c.current.ctx
}

// On registers h for event and returns a function that removes exactly this registration.
func (c *Coordinator) On(event string, h Handler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[event] = append(c.handlers[event], registration{id: id, h: h})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			list := c.handlers[event]
			for i, r := range list {
				if r.id == id {
					c.handlers[event] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(c.handlers[event]) == 0 {
				delete(c.handlers, event)
			}
		})
	}
}

// OnReconnect registers fn to run on the dispatch goroutine after a channel for
// event is re-established, so owners can refetch their snapshot.
func (c *Coordinator) OnReconnect(fn func(event string)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.hooks = append(c.hooks, hook{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, h := range c.hooks {
				if h.id == id {
					c.hooks = append(c.hooks[:i:i], c.hooks[i+1:]...)
					break
				}
			}
		})
	}
}

// HandlerCount is the number of registrations for event.
func (c *Coordinator) HandlerCount(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[event])
}

func (c *Coordinator) dispatchLoop(s *session) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.queue.ready:
			for _, q := range s.queue.drain() {
				if s.ctx.Err() != nil {
					return
				}
				if q.reconnect != "" {
					c.runHooks(s, q.reconnect)
					continue
				}
				c.dispatch(s, q.change)
			}
		}
	}
}

func (c *Coordinator) dispatch(s *session, change domain.ChangeEvent) {
	c.metrics.ChangeEvent(change.Table)
	name, ok := domain.EventForTable(change.Table)
	if !ok {
		return
	}
	if !c.inVenue(s, change) {
		c.log.Debug("change_out_of_scope", map[string]any{"table": change.Table, "venue_id": s.venueID})
		return
	}
	if !change.CommitTime.IsZero() {
		c.metrics.ObserveDispatch(time.Since(change.CommitTime).Seconds())
	}

	ev := Event{Name: name, VenueID: s.venueID, Change: change}
	for _, r := range c.snapshot(name) {
		c.invoke(s, r, ev)
	}
	for _, r := range c.snapshot(domain.EventAll) {
		c.invoke(s, r, ev)
	}
}

func (c *Coordinator) inVenue(s *session, change domain.ChangeEvent) bool {
	if s.venueID == domain.AllVenues {
		return true
	}
	if domain.HasVenueColumn(change.Table) {
		v := change.VenueID()
		return v == "" || v == s.venueID
	}
	if c.scoper == nil {
		return true
	}
	ok, err := c.scoper.InVenue(s.ctx, s.venueID, change)
	if err != nil {
		c.log.Warn("scope_lookup_failed", map[string]any{"table": change.Table, "error": err.Error()})
		return false
	}
	return ok
}

func (c *Coordinator) snapshot(event string) []registration {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.handlers[event]
	out := make([]registration, len(list))
	copy(out, list)
	return out
}

func (c *Coordinator) invoke(s *session, r registration, ev Event) {
	if s.ctx.Err() != nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			c.metrics.HandlerFailure(ev.Name)
			c.log.Error("handler_panic", fmt.Errorf("%v", p), map[string]any{"event": ev.Name, "table": ev.Change.Table})
		}
	}()
	if err := r.h(s.ctx, ev); err != nil {
		c.metrics.HandlerFailure(ev.Name)
		c.log.Error("handler_failed", err, map[string]any{"event": ev.Name, "table": ev.Change.Table})
	}
}

func (c *Coordinator) runHooks(s *session, event string) {
	c.mu.Lock()
	hooks := make([]hook, len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.Unlock()
	for _, h := range hooks {
		if s.ctx.Err() != nil {
			return
		}
		func() {
			defer func() {
				if p := recover(); p != nil {
					c.log.Error("reconnect_hook_panic", fmt.Errorf("%v", p), map[string]any{"event": event})
				}
			}()
			h.fn(event)
		}()
	}
}
