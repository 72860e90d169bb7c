package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/livestore"
	"venue-pos/internal/microservices/kitchen/repository"
	"venue-pos/internal/realtime"
)

type Ticket struct {
	Order   domain.Order       `json:"order"`
	Items   []domain.OrderItem `json:"items"`
	Elapsed time.Duration      `json:"elapsed_ns"`
	Urgency Urgency            `json:"urgency"`
	// Bell marks orders that just turned ready, for the bell and bounce animation.
	Bell bool `json:"bell"`
}

type View struct {
	Pending     []Ticket         `json:"pending"`
	Preparing   []Ticket         `json:"preparing"`
	Ready       []Ticket         `json:"ready"`
	Stats       repository.Stats `json:"stats"`
	GeneratedAt time.Time        `json:"generated_at"`
}

type KitchenServiceInterface interface {
	Refresh(ctx context.Context) error
	Attach(c *realtime.Coordinator) (detach func())
	View(now time.Time) View
	Transition(ctx context.Context, orderID string, target domain.OrderStatus, changedBy string) (domain.Order, error)
}

type Options struct {
	BellWindow time.Duration
	Alerts     realtime.Alerter
	Logger     *logger.Logger
	Now        func() time.Time
}

// Board is the live kitchen view of one venue: active orders in three columns
// with their items, kept current by order and order item changes.
type Board struct {
	venueID string
	repo    repository.KitchenRepositoryInterface
	opts    Options
	log     *logger.Logger

	orders *livestore.Store[domain.Order]

	mu         sync.Mutex
	items      map[string]map[string]domain.OrderItem
	readySince map[string]time.Time
	stats      repository.Stats
}

func NewBoard(venueID string, repo repository.KitchenRepositoryInterface, opts Options) *Board {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Alerts == nil {
		opts.Alerts = realtime.NopAlerter
	}
	if opts.BellWindow <= 0 {
		opts.BellWindow = 30 * time.Second
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	return &Board{
		venueID: venueID,
		repo:    repo,
		opts:    opts,
		log:     lg,
		orders: livestore.New(livestore.Options[domain.Order]{
			Key:  func(o domain.Order) string { return o.ID },
			Keep: func(o domain.Order) bool { return !o.Status.IsTerminal() },
			Less: func(a, b domain.Order) bool { return a.CreatedAt.Before(b.CreatedAt) },
		}),
		items:      make(map[string]map[string]domain.OrderItem),
		readySince: make(map[string]time.Time),
	}
}

// Refresh replaces the board with a fresh snapshot.
func (b *Board) Refresh(ctx context.Context) error {
	orders, err := b.repo.ActiveOrders(ctx, b.venueID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := b.repo.ItemsForOrders(ctx, ids)
	if err != nil {
		return err
	}
	stats, err := b.repo.Stats(ctx, b.venueID)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	b.orders.Replace(orders)
	b.mu.Lock()
	b.items = make(map[string]map[string]domain.OrderItem, len(orders))
	for _, it := range items {
		b.putItemLocked(it)
	}
	b.stats = stats
	b.mu.Unlock()
	return nil
}

func (b *Board) Attach(c *realtime.Coordinator) (detach func()) {
	offEvents := c.On(domain.EventOrder, b.handle)
	offReconnect := c.OnReconnect(func(event string) {
		if event != domain.EventOrder {
			return
		}
		if err := b.Refresh(c.Context()); err != nil {
			b.log.Error("kitchen_refresh_failed", err, map[string]any{"venue_id": b.venueID})
		}
	})
	return func() {
		offEvents()
		offReconnect()
	}
}

func (b *Board) handle(ctx context.Context, ev realtime.Event) error {
	switch ev.Change.Table {
	case domain.TableOrders:
		return b.handleOrder(ctx, ev.Change)
	case domain.TableOrderItems:
		return b.handleItem(ev.Change)
	}
	return nil
}

func (b *Board) handleOrder(ctx context.Context, ch domain.ChangeEvent) error {
	if ch.Type == domain.ChangeDelete {
		b.forget(ch.RowID())
		b.orders.Remove(ch.RowID())
		return b.refreshStats(ctx)
	}
	o, err := domain.DecodeNew[domain.Order](ch)
	if err != nil {
		return err
	}
	prev, existed := b.orders.Get(o.ID)
	if !b.orders.Upsert(o) {
		b.forget(o.ID)
	}

	if ch.Type == domain.ChangeInsert {
		b.opts.Alerts.Alert(ctx, realtime.Alert{VenueID: o.VenueID, Sound: realtime.SoundNewOrder, Ref: o.ID})
	}
	if o.Status == domain.OrderReady && (!existed || prev.Status != domain.OrderReady) {
		b.mu.Lock()
		b.readySince[o.ID] = b.opts.Now()
		b.mu.Unlock()
		b.opts.Alerts.Alert(ctx, realtime.Alert{VenueID: o.VenueID, Sound: realtime.SoundOrderReady, Ref: o.ID})
	}
	return b.refreshStats(ctx)
}

func (b *Board) handleItem(ch domain.ChangeEvent) error {
	if ch.Type == domain.ChangeDelete {
		old, err := domain.DecodeOld[domain.OrderItem](ch)
		if err != nil {
			return err
		}
		b.mu.Lock()
		delete(b.items[old.OrderID], old.ID)
		b.mu.Unlock()
		return nil
	}
	it, err := domain.DecodeNew[domain.OrderItem](ch)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.putItemLocked(it)
	b.mu.Unlock()
	return nil
}

func (b *Board) putItemLocked(it domain.OrderItem) {
	m, ok := b.items[it.OrderID]
	if !ok {
		m = make(map[string]domain.OrderItem)
		b.items[it.OrderID] = m
	}
	m[it.ID] = it
}

func (b *Board) forget(orderID string) {
	b.mu.Lock()
	delete(b.items, orderID)
	delete(b.readySince, orderID)
	b.mu.Unlock()
}

func (b *Board) refreshStats(ctx context.Context) error {
	stats, err := b.repo.Stats(ctx, b.venueID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.stats = stats
	b.mu.Unlock()
	return nil
}

// View lays the board out in columns as of now.
func (b *Board) View(now time.Time) View {
	v := View{GeneratedAt: now, Pending: []Ticket{}, Preparing: []Ticket{}, Ready: []Ticket{}}
	orders := b.orders.List()

	b.mu.Lock()
	defer b.mu.Unlock()
	v.Stats = b.stats
	for _, o := range orders {
		t := Ticket{
			Order:   o,
			Items:   sortedItems(b.items[o.ID]),
			Elapsed: now.Sub(o.CreatedAt),
			Urgency: Classify(o.CreatedAt, o.Status, now),
		}
		if since, ok := b.readySince[o.ID]; ok && now.Sub(since) < b.opts.BellWindow {
			t.Bell = true
		}
		switch o.Status {
		case domain.OrderPending, domain.OrderConfirmed:
			v.Pending = append(v.Pending, t)
		case domain.OrderPreparing:
			v.Preparing = append(v.Preparing, t)
		case domain.OrderReady:
			v.Ready = append(v.Ready, t)
		}
	}
	return v
}

// Transition writes a status change; the board itself updates when the change comes back on the feed.
func (b *Board) Transition(ctx context.Context, orderID string, target domain.OrderStatus, changedBy string) (domain.Order, error) {
	o, err := b.repo.TransitionTx(ctx, b.venueID, orderID, target, changedBy)
	if err != nil {
		return domain.Order{}, err
	}
	b.log.Info("order_status_changed", map[string]any{"order_id": orderID, "status": string(target), "changed_by": changedBy})
	return o, nil
}

func (b *Board) Confirm(ctx context.Context, orderID, by string) (domain.Order, error) {
	return b.Transition(ctx, orderID, domain.OrderConfirmed, by)
}

func (b *Board) StartPreparing(ctx context.Context, orderID, by string) (domain.Order, error) {
	return b.Transition(ctx, orderID, domain.OrderPreparing, by)
}

func (b *Board) MarkReady(ctx context.Context, orderID, by string) (domain.Order, error) {
	return b.Transition(ctx, orderID, domain.OrderReady, by)
}

func (b *Board) MarkServed(ctx context.Context, orderID, by string) (domain.Order, error) {
	return b.Transition(ctx, orderID, domain.OrderServed, by)
}

func (b *Board) Complete(ctx context.Context, orderID, by string) (domain.Order, error) {
	return b.Transition(ctx, orderID, domain.OrderCompleted, by)
}

func (b *Board) Cancel(ctx context.Context, orderID, by string) (domain.Order, error) {
	return b.Transition(ctx, orderID, domain.OrderCancelled, by)
}

func sortedItems(m map[string]domain.OrderItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(m))
	for _, it := range m {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return itemBefore(out[i], out[j]) })
	return out
}

func itemBefore(a, b domain.OrderItem) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
