// Package workspace bundles one coordinator with the feature stores of a venue
// and shares it between every viewer of that venue.
package workspace

import (
	"context"
	"errors"
	"sync"

	"venue-pos/internal/changefeed"
	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/metrics"
	floorsvc "venue-pos/internal/microservices/floor/service"
	kitchensvc "venue-pos/internal/microservices/kitchen/service"
	messagingsvc "venue-pos/internal/microservices/messaging/service"
	notifsvc "venue-pos/internal/microservices/notificator/service"
	reservationsvc "venue-pos/internal/microservices/reservations/service"
	waitersvc "venue-pos/internal/microservices/waiter/service"
	"venue-pos/internal/realtime"
)

// Features are the stores of one workspace. Nil fields are skipped; the
// all-venues workspace carries only Notifications.
type Features struct {
	Kitchen       *kitchensvc.Board
	Waiter        *waitersvc.Board
	Inbox         *messagingsvc.Inbox
	Reservations  *reservationsvc.Book
	Floor         *floorsvc.Floor
	Notifications *notifsvc.Center
}

type attacher interface {
	Attach(c *realtime.Coordinator) (detach func())
}

type refresher interface {
	Refresh(ctx context.Context) error
}

func (f Features) parts() []attacher {
	var out []attacher
	if f.Kitchen != nil {
		out = append(out, f.Kitchen)
	}
	if f.Waiter != nil {
		out = append(out, f.Waiter)
	}
	if f.Inbox != nil {
		out = append(out, f.Inbox)
	}
	if f.Reservations != nil {
		out = append(out, f.Reservations)
	}
	if f.Floor != nil {
		out = append(out, f.Floor)
	}
	if f.Notifications != nil {
		out = append(out, f.Notifications)
	}
	return out
}

// Builder creates the feature stores for venueID; alerts must be handed to
// every store that raises them.
type Builder func(venueID string, alerts realtime.Alerter) Features

type Workspace struct {
	Features
	VenueID     string
	Coordinator *realtime.Coordinator

	refs    int
	ready   chan struct{}
	detach  []func()
	cancel  context.CancelFunc
	snapErr error

	mu        sync.Mutex
	listeners map[int]func(realtime.Alert)
	nextID    int
}

// OnAlert registers fn for alerts raised by this workspace's stores.
func (w *Workspace) OnAlert(fn func(realtime.Alert)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	w.mu.Unlock()
	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

func (w *Workspace) alert(_ context.Context, a realtime.Alert) {
	w.mu.Lock()
	fns := make([]func(realtime.Alert), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(a)
	}
}

// SnapshotErr is the error of the initial snapshot fetch, if any.
func (w *Workspace) SnapshotErr() error { return w.snapErr }

type Options struct {
	Feed       changefeed.Feed
	Supervisor changefeed.SupervisorOptions
	Scoper     realtime.Scoper
	Build      Builder
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// Manager hands out ref-counted workspaces. The last Release of a venue tears
// its channels down and cancels snapshot fetches still in flight.
type Manager struct {
	base context.Context
	sup  *changefeed.Supervisor
	opts Options
	log  *logger.Logger

	mu     sync.Mutex
	spaces map[string]*Workspace
}

func NewManager(base context.Context, opts Options) *Manager {
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	sopts := opts.Supervisor
	if sopts.Logger == nil {
		sopts.Logger = lg
	}
	if sopts.Metrics == nil {
		sopts.Metrics = opts.Metrics
	}
	return &Manager{
		base:   base,
		sup:    changefeed.NewSupervisor(opts.Feed, sopts),
		opts:   opts,
		log:    lg,
		spaces: make(map[string]*Workspace),
	}
}

var ErrClosed = errors.New("workspace manager closed")

// Acquire returns the workspace of venueID, creating it on first use, once its
// initial snapshot is in. If ctx ends first the reference is dropped again.
func (m *Manager) Acquire(ctx context.Context, venueID string) (*Workspace, error) {
	if venueID == "" {
		return nil, domain.ErrValidation
	}
	if m.base.Err() != nil {
		return nil, ErrClosed
	}

	m.mu.Lock()
	w, ok := m.spaces[venueID]
	if ok {
		w.refs++
	} else {
		wctx, cancel := context.WithCancel(m.base)
		w = &Workspace{
			VenueID:   venueID,
			refs:      1,
			ready:     make(chan struct{}),
			cancel:    cancel,
			listeners: make(map[int]func(realtime.Alert)),
		}
		m.spaces[venueID] = w
		go m.open(wctx, w)
	}
	m.mu.Unlock()

	select {
	case <-w.ready:
		return w, nil
	case <-ctx.Done():
		m.Release(w)
		return nil, ctx.Err()
	}
}

func (m *Manager) open(wctx context.Context, w *Workspace) {
	defer close(w.ready)

	w.Coordinator = realtime.New(m.sup, realtime.Options{Logger: m.log, Metrics: m.opts.Metrics, Scoper: m.opts.Scoper})
	w.Features = m.opts.Build(w.VenueID, realtime.AlerterFunc(w.alert))
	for _, p := range w.parts() {
		w.detach = append(w.detach, p.Attach(w.Coordinator))
	}
	w.Coordinator.Initialize(wctx, w.VenueID)

	// Derived from wctx, so Release cancels a fetch still running.
	snap := w.Coordinator.Context()
	var errs []error
	for _, p := range w.parts() {
		if r, ok := p.(refresher); ok {
			if err := r.Refresh(snap); err != nil {
				errs = append(errs, err)
			}
		}
	}
	w.snapErr = errors.Join(errs...)
	if w.snapErr != nil && snap.Err() == nil {
		m.log.Error("snapshot_failed", w.snapErr, map[string]any{"venue_id": w.VenueID})
	}
	m.log.Info("workspace_opened", map[string]any{"venue_id": w.VenueID})
}

// Release drops one reference; the last one closes the workspace.
func (m *Manager) Release(w *Workspace) {
	if w == nil {
		return
	}
	m.mu.Lock()
	w.refs--
	last := w.refs <= 0
	if last && m.spaces[w.VenueID] == w {
		delete(m.spaces, w.VenueID)
	}
	m.mu.Unlock()
	if !last {
		return
	}

	w.cancel()
	<-w.ready
	for _, off := range w.detach {
		off()
	}
	w.Coordinator.Cleanup()
	m.log.Info("workspace_closed", map[string]any{"venue_id": w.VenueID})
}

// Switch releases from and acquires venueID, so the old venue's channels are
// closed before the new ones open.
func (m *Manager) Switch(ctx context.Context, from *Workspace, venueID string) (*Workspace, error) {
	if from != nil && from.VenueID == venueID {
		return from, nil
	}
	m.Release(from)
	return m.Acquire(ctx, venueID)
}

// Active lists the venues with an open workspace.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.spaces))
	for id := range m.spaces {
		out = append(out, id)
	}
	return out
}

// Close releases every workspace regardless of references.
func (m *Manager) Close() {
	m.mu.Lock()
	spaces := make([]*Workspace, 0, len(m.spaces))
	for _, w := range m.spaces {
		w.refs = 1
		spaces = append(spaces, w)
	}
	m.mu.Unlock()
	for _, w := range spaces {
		m.Release(w)
	}
}
