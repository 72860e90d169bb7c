package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/locale"
	"venue-pos/internal/metrics"
	"venue-pos/internal/microservices/notificator/repository"
	"venue-pos/internal/realtime"
)

const DefaultCap = 50

type Kind string

const (
	KindOrder       Kind = "order"
	KindReservation Kind = "reservation"
)

type Notification struct {
	ID        string    `json:"id"`
	Type      Kind      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	VenueID   string    `json:"venue_id"`
	VenueName string    `json:"venue_name,omitempty"`
	Ref       string    `json:"ref"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}

type Options struct {
	Cap       int
	Lang      string
	Venues    repository.VenueDirectoryInterface
	Publisher Publisher
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
	Now       func() time.Time
}

type NotificatorServiceInterface interface {
	Attach(c *realtime.Coordinator) (detach func())
	List() []Notification
	UnreadCount() int
	MarkAsRead(id string) bool
	MarkAllAsRead()
	ClearAll()
	Open()
	Close()
	IsOpen() bool
}

// Center aggregates new orders and reservations into a capped, newest-first feed.
// With venueID set to domain.AllVenues it takes every venue and tags each entry
// with the venue's name.
type Center struct {
	venueID string
	opts    Options
	log     *logger.Logger

	mu        sync.Mutex
	items     []Notification
	open      bool
	listeners map[int]func(Notification)
	nextID    int
}

func NewCenter(venueID string, opts Options) *Center {
	if opts.Cap <= 0 {
		opts.Cap = DefaultCap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Lang == "" {
		opts.Lang = "en"
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	return &Center{venueID: venueID, opts: opts, log: lg, listeners: make(map[int]func(Notification))}
}

func (c *Center) AllVenues() bool { return c.venueID == domain.AllVenues }

func (c *Center) Attach(co *realtime.Coordinator) (detach func()) {
	offOrder := co.On(domain.EventOrder, c.handle)
	offRes := co.On(domain.EventReservation, c.handle)
	return func() { offOrder(); offRes() }
}

func (c *Center) handle(ctx context.Context, ev realtime.Event) error {
	ch := ev.Change
	if ch.Type != domain.ChangeInsert || ch.Table == domain.TableOrderItems {
		return nil
	}
	if !c.AllVenues() && ch.VenueID() != c.venueID {
		return nil
	}
	n, err := c.synthesize(ctx, ch)
	if err != nil {
		return err
	}
	c.Add(ctx, n)
	return nil
}

func (c *Center) synthesize(ctx context.Context, ch domain.ChangeEvent) (Notification, error) {
	n := Notification{
		ID:        uuid.NewString(),
		VenueID:   ch.VenueID(),
		Ref:       ch.RowID(),
		CreatedAt: c.opts.Now().UTC(),
	}
	switch ch.Table {
	case domain.TableOrders:
		o, err := domain.DecodeNew[domain.Order](ch)
		if err != nil {
			return n, err
		}
		who := o.CustomerName
		if o.TableNumber != nil {
			who = locale.T(c.opts.Lang, locale.MsgTable, *o.TableNumber)
		}
		n.Type = KindOrder
		n.Title = locale.T(c.opts.Lang, locale.MsgOrderTitle)
		n.Message = locale.T(c.opts.Lang, locale.MsgOrderBody, o.OrderNumber, who)
	case domain.TableReservations:
		r, err := domain.DecodeNew[domain.Reservation](ch)
		if err != nil {
			return n, err
		}
		n.Type = KindReservation
		n.Title = locale.T(c.opts.Lang, locale.MsgReservationTitle)
		n.Message = locale.T(c.opts.Lang, locale.MsgReservationBody, r.CustomerName, r.PartySize)
	}
	if c.AllVenues() && c.opts.Venues != nil {
		name, err := c.opts.Venues.VenueName(ctx, n.VenueID)
		if err != nil {
			c.log.Warn("venue_name_unavailable", map[string]any{"venue_id": n.VenueID, "error": err.Error()})
		}
		n.VenueName = name
	}
	return n, nil
}

// Add puts n at the top of the feed, trims to the cap, then notifies listeners
// and the publisher.
func (c *Center) Add(ctx context.Context, n Notification) {
	c.mu.Lock()
	c.items = append([]Notification{n}, c.items...)
	if len(c.items) > c.opts.Cap {
		c.items = c.items[:c.opts.Cap]
	}
	listeners := make([]func(Notification), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	c.opts.Metrics.Notification(string(n.Type))
	for _, l := range listeners {
		l(n)
	}
	if c.opts.Publisher != nil {
		if err := c.opts.Publisher.Publish(ctx, n); err != nil {
			c.log.Error("notification_publish_failed", err, map[string]any{"notification_id": n.ID})
		}
	}
}

// OnNotify registers fn for every new notification.
func (c *Center) OnNotify(fn func(Notification)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

// MarkAsRead reports whether id was found.
func (c *Center) MarkAsRead(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].IsRead = true
			return true
		}
	}
	return false
}

func (c *Center) MarkAllAsRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		c.items[i].IsRead = true
	}
}

// ClearAll empties the feed and closes the panel.
func (c *Center) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.open = false
}

func (c *Center) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
}

func (c *Center) Close() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

func (c *Center) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
