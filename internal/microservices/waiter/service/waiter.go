package service

import (
	"context"
	"sync"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/livestore"
	"venue-pos/internal/microservices/waiter/repository"
	"venue-pos/internal/realtime"
)

type WaiterServiceInterface interface {
	Refresh(ctx context.Context) error
	Attach(c *realtime.Coordinator) (detach func())
	Pending() []domain.WaiterCall
	InProgress() []domain.WaiterCall
	Stats() repository.Stats
	Acknowledge(ctx context.Context, callID, staffID string) (domain.WaiterCall, error)
	Complete(ctx context.Context, callID, staffID string) (domain.WaiterCall, error)
	Dismiss(ctx context.Context, callID, staffID string) (domain.WaiterCall, error)
}

// Board holds the open waiter calls of one venue. Completed and dismissed calls
// leave the board.
type Board struct {
	venueID string
	repo    repository.WaiterRepositoryInterface
	alerts  realtime.Alerter
	log     *logger.Logger
	calls   *livestore.Store[domain.WaiterCall]

	mu    sync.Mutex
	stats repository.Stats
}

func NewBoard(venueID string, repo repository.WaiterRepositoryInterface, alerts realtime.Alerter, lg *logger.Logger) *Board {
	if alerts == nil {
		alerts = realtime.NopAlerter
	}
	if lg == nil {
		lg = logger.Nop()
	}
	return &Board{
		venueID: venueID,
		repo:    repo,
		alerts:  alerts,
		log:     lg,
		calls: livestore.New(livestore.Options[domain.WaiterCall]{
			Key:  func(c domain.WaiterCall) string { return c.ID },
			Keep: func(c domain.WaiterCall) bool { return !c.Status.IsTerminal() },
			Less: func(a, b domain.WaiterCall) bool { return a.CreatedAt.Before(b.CreatedAt) },
		}),
	}
}

func (b *Board) Refresh(ctx context.Context) error {
	calls, err := b.repo.ActiveCalls(ctx, b.venueID)
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
	b.calls.Replace(calls)
	b.setStats(stats)
	return nil
}

func (b *Board) Attach(c *realtime.Coordinator) (detach func()) {
	off := c.On(domain.EventWaiterCall, b.handle)
	offReconnect := c.OnReconnect(func(event string) {
		if event == domain.EventWaiterCall {
			if err := b.Refresh(c.Context()); err != nil {
				b.log.Error("waiter_refresh_failed", err, map[string]any{"venue_id": b.venueID})
			}
		}
	})
	return func() { off(); offReconnect() }
}

func (b *Board) handle(ctx context.Context, ev realtime.Event) error {
	if err := b.calls.Apply(ev.Change); err != nil {
		return err
	}
	if ev.Change.Type == domain.ChangeInsert {
		b.alerts.Alert(ctx, realtime.Alert{VenueID: ev.VenueID, Sound: realtime.SoundWaiterCall, Ref: ev.Change.RowID()})
	}
	stats, err := b.repo.Stats(ctx, b.venueID)
	if err != nil {
		return err
	}
	b.setStats(stats)
	return nil
}

func (b *Board) setStats(s repository.Stats) {
	b.mu.Lock()
	b.stats = s
	b.mu.Unlock()
}

func (b *Board) Stats() repository.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Board) Pending() []domain.WaiterCall {
	return b.calls.Filter(func(c domain.WaiterCall) bool { return c.Status == domain.CallPending })
}

// InProgress lists calls a staff member has acknowledged but not finished.
func (b *Board) InProgress() []domain.WaiterCall {
	return b.calls.Filter(func(c domain.WaiterCall) bool { return c.Status == domain.CallAcknowledged })
}

func (b *Board) Acknowledge(ctx context.Context, callID, staffID string) (domain.WaiterCall, error) {
	return b.update(ctx, callID, domain.CallAcknowledged, staffID)
}

func (b *Board) Complete(ctx context.Context, callID, staffID string) (domain.WaiterCall, error) {
	return b.update(ctx, callID, domain.CallCompleted, staffID)
}

func (b *Board) Dismiss(ctx context.Context, callID, staffID string) (domain.WaiterCall, error) {
	return b.update(ctx, callID, domain.CallDismissed, staffID)
}

func (b *Board) update(ctx context.Context, callID string, target domain.WaiterCallStatus, staffID string) (domain.WaiterCall, error) {
	c, err := b.repo.UpdateStatusTx(ctx, b.venueID, callID, target, staffID)
	if err != nil {
		return domain.WaiterCall{}, err
	}
	// Apply locally too so the caller's next read reflects its own write.
	b.calls.Upsert(c)
	b.log.Info("waiter_call_updated", map[string]any{"call_id": callID, "status": string(target), "staff_id": staffID})
	return c, nil
}
