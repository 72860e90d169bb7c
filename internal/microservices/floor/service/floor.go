package service

import (
	"context"
	"errors"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/livestore"
	"venue-pos/internal/microservices/floor/repository"
	"venue-pos/internal/realtime"
)

type FloorServiceInterface interface {
	Refresh(ctx context.Context) error
	Attach(c *realtime.Coordinator) (detach func())
	Tables() []domain.Table
	SetStatus(ctx context.Context, tableID string, status domain.TableStatus) (domain.Table, error)
	AssignOrder(ctx context.Context, tableID, orderID string) (domain.Table, error)
	Clear(ctx context.Context, tableID string) (domain.Table, error)
	CheckIns() []domain.CheckIn
	Visible() []domain.CheckIn
	Alerts() []domain.StockAlert
}

// Floor is the live floor plan of a venue: tables, guests checked in and stock levels.
type Floor struct {
	venueID string
	repo    repository.FloorRepositoryInterface
	log     *logger.Logger

	tables   *livestore.Store[domain.Table]
	checkIns *livestore.Store[domain.CheckIn]
	stock    *livestore.Store[domain.StockItem]
}

func NewFloor(venueID string, repo repository.FloorRepositoryInterface, lg *logger.Logger) *Floor {
	if lg == nil {
		lg = logger.Nop()
	}
	return &Floor{
		venueID: venueID,
		repo:    repo,
		log:     lg,
		tables: livestore.New(livestore.Options[domain.Table]{
			Key:  func(t domain.Table) string { return t.ID },
			Less: func(a, b domain.Table) bool { return a.Number < b.Number },
		}),
		checkIns: livestore.New(livestore.Options[domain.CheckIn]{
			Key:  func(c domain.CheckIn) string { return c.ID },
			Keep: func(c domain.CheckIn) bool { return c.IsActive },
			Less: func(a, b domain.CheckIn) bool { return a.CreatedAt.After(b.CreatedAt) },
		}),
		stock: livestore.New(livestore.Options[domain.StockItem]{
			Key:  func(s domain.StockItem) string { return s.ID },
			Less: func(a, b domain.StockItem) bool { return a.Name < b.Name },
		}),
	}
}

func (f *Floor) Refresh(ctx context.Context) error {
	return errors.Join(f.refreshTables(ctx), f.refreshCheckIns(ctx), f.refreshStock(ctx))
}

func (f *Floor) refreshTables(ctx context.Context) error {
	rows, err := f.repo.Tables(ctx, f.venueID)
	if err == nil && ctx.Err() == nil {
		f.tables.Replace(rows)
	}
	return err
}

func (f *Floor) refreshCheckIns(ctx context.Context) error {
	rows, err := f.repo.ActiveCheckIns(ctx, f.venueID)
	if err == nil && ctx.Err() == nil {
		f.checkIns.Replace(rows)
	}
	return err
}

func (f *Floor) refreshStock(ctx context.Context) error {
	rows, err := f.repo.StockItems(ctx, f.venueID)
	if err == nil && ctx.Err() == nil {
		f.stock.Replace(rows)
	}
	return err
}

func (f *Floor) Attach(c *realtime.Coordinator) (detach func()) {
	offs := []func(){
		c.On(domain.EventTable, func(_ context.Context, ev realtime.Event) error { return f.tables.Apply(ev.Change) }),
		c.On(domain.EventCheckIn, func(_ context.Context, ev realtime.Event) error { return f.checkIns.Apply(ev.Change) }),
		c.On(domain.EventStock, func(_ context.Context, ev realtime.Event) error { return f.stock.Apply(ev.Change) }),
		c.OnReconnect(func(event string) {
			var err error
			switch event {
			case domain.EventTable:
				err = f.refreshTables(c.Context())
			case domain.EventCheckIn:
				err = f.refreshCheckIns(c.Context())
			case domain.EventStock:
				err = f.refreshStock(c.Context())
			}
			if err != nil {
				f.log.Error("floor_refresh_failed", err, map[string]any{"venue_id": f.venueID, "event": event})
			}
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (f *Floor) Tables() []domain.Table { return f.tables.List() }

func (f *Floor) Table(id string) (domain.Table, bool) { return f.tables.Get(id) }

func (f *Floor) SetStatus(ctx context.Context, tableID string, status domain.TableStatus) (domain.Table, error) {
	return f.write(f.repo.SetTableStatus(ctx, f.venueID, tableID, status))
}

func (f *Floor) AssignOrder(ctx context.Context, tableID, orderID string) (domain.Table, error) {
	return f.write(f.repo.AssignOrder(ctx, f.venueID, tableID, orderID))
}

func (f *Floor) Clear(ctx context.Context, tableID string) (domain.Table, error) {
	return f.write(f.repo.ClearTable(ctx, f.venueID, tableID))
}

func (f *Floor) write(t domain.Table, err error) (domain.Table, error) {
	if err != nil {
		return domain.Table{}, err
	}
	f.tables.Upsert(t)
	f.log.Debug("table_updated", map[string]any{"table_id": t.ID, "status": string(t.Status)})
	return t, nil
}

// CheckIns lists active check-ins, newest first.
func (f *Floor) CheckIns() []domain.CheckIn { return f.checkIns.List() }

// Visible lists active check-ins whose guests chose to be shown.
func (f *Floor) Visible() []domain.CheckIn {
	return f.checkIns.Filter(func(c domain.CheckIn) bool { return c.IsVisible })
}

func (f *Floor) Stock() []domain.StockItem { return f.stock.List() }

// Alerts derives stock alerts; out-of-stock items come first.
func (f *Floor) Alerts() []domain.StockAlert {
	var out, low []domain.StockAlert
	for _, s := range f.stock.List() {
		if level, ok := StockLevelOf(s); ok {
			a := domain.StockAlert{Item: s, Level: level}
			if level == domain.StockOut {
				out = append(out, a)
			} else {
				low = append(low, a)
			}
		}
	}
	return append(out, low...)
}

// StockLevelOf classifies an item; ok is false when stock is above its minimum.
func StockLevelOf(s domain.StockItem) (domain.StockLevel, bool) {
	switch {
	case !s.Current.IsPositive():
		return domain.StockOut, true
	case s.Current.LessThanOrEqual(s.Minimum):
		return domain.StockLow, true
	}
	return "", false
}
