package service

import (
	"context"
	"sync"
	"time"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/livestore"
	"venue-pos/internal/microservices/reservations/repository"
	"venue-pos/internal/realtime"
)

type ReservationServiceInterface interface {
	Refresh(ctx context.Context) error
	Attach(c *realtime.Coordinator) (detach func())
	List() []domain.Reservation
	Stats() repository.Stats
	Transition(ctx context.Context, reservationID string, target domain.ReservationStatus) (domain.Reservation, error)
	Seat(ctx context.Context, reservationID, tableID string) (domain.Reservation, error)
}

// Book holds the venue's reservations from the start of today onward.
type Book struct {
	venueID string
	repo    repository.ReservationRepositoryInterface
	alerts  realtime.Alerter
	log     *logger.Logger
	now     func() time.Time
	store   *livestore.Store[domain.Reservation]

	mu    sync.Mutex
	stats repository.Stats
}

func NewBook(venueID string, repo repository.ReservationRepositoryInterface, alerts realtime.Alerter, lg *logger.Logger, now func() time.Time) *Book {
	if alerts == nil {
		alerts = realtime.NopAlerter
	}
	if lg == nil {
		lg = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	b := &Book{venueID: venueID, repo: repo, alerts: alerts, log: lg, now: now}
	b.store = livestore.New(livestore.Options[domain.Reservation]{
		Key: func(r domain.Reservation) string { return r.ID },
		Keep: func(r domain.Reservation) bool {
			y, m, d := b.now().Date()
			return !r.ReservedAt.Before(time.Date(y, m, d, 0, 0, 0, 0, b.now().Location()))
		},
		Less: func(a, c domain.Reservation) bool { return a.ReservedAt.Before(c.ReservedAt) },
	})
	return b
}

func (b *Book) Refresh(ctx context.Context) error {
	list, err := b.repo.Upcoming(ctx, b.venueID)
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
	b.store.Replace(list)
	b.setStats(stats)
	return nil
}

func (b *Book) Attach(c *realtime.Coordinator) (detach func()) {
	off := c.On(domain.EventReservation, b.handle)
	offReconnect := c.OnReconnect(func(event string) {
		if event == domain.EventReservation {
			if err := b.Refresh(c.Context()); err != nil {
				b.log.Error("reservations_refresh_failed", err, map[string]any{"venue_id": b.venueID})
			}
		}
	})
	return func() { off(); offReconnect() }
}

func (b *Book) handle(ctx context.Context, ev realtime.Event) error {
	if err := b.store.Apply(ev.Change); err != nil {
		return err
	}
	if _, kept := b.store.Get(ev.Change.RowID()); kept && ev.Change.Type == domain.ChangeInsert {
		b.alerts.Alert(ctx, realtime.Alert{VenueID: b.venueID, Sound: realtime.SoundReservation, Ref: ev.Change.RowID()})
	}
	stats, err := b.repo.Stats(ctx, b.venueID)
	if err != nil {
		return err
	}
	b.setStats(stats)
	return nil
}

func (b *Book) setStats(s repository.Stats) {
	b.mu.Lock()
	b.stats = s
	b.mu.Unlock()
}

func (b *Book) Stats() repository.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Book) List() []domain.Reservation { return b.store.List() }

// Active lists reservations that still expect the party.
func (b *Book) Active() []domain.Reservation {
	return b.store.Filter(func(r domain.Reservation) bool { return !r.Status.IsTerminal() })
}

func (b *Book) Transition(ctx context.Context, reservationID string, target domain.ReservationStatus) (domain.Reservation, error) {
	r, err := b.repo.TransitionTx(ctx, b.venueID, reservationID, target)
	if err != nil {
		return domain.Reservation{}, err
	}
	b.store.Upsert(r)
	b.log.Info("reservation_status_changed", map[string]any{"reservation_id": reservationID, "status": string(target)})
	return r, nil
}

func (b *Book) Seat(ctx context.Context, reservationID, tableID string) (domain.Reservation, error) {
	r, err := b.repo.SeatTx(ctx, b.venueID, reservationID, tableID)
	if err != nil {
		return domain.Reservation{}, err
	}
	b.store.Upsert(r)
	b.log.Info("reservation_seated", map[string]any{"reservation_id": reservationID, "table_id": tableID})
	return r, nil
}
