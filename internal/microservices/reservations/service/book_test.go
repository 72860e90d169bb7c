package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/changefeed"
	"venue-pos/internal/domain"
	"venue-pos/internal/microservices/reservations/repository"
	"venue-pos/internal/realtime"
)

type fakeRepo struct {
	mu         sync.Mutex
	list       []domain.Reservation
	statsCalls int
}

func (f *fakeRepo) Upcoming(context.Context, string) ([]domain.Reservation, error) { return f.list, nil }

func (f *fakeRepo) TransitionTx(_ context.Context, venueID, id string, target domain.ReservationStatus) (domain.Reservation, error) {
	return domain.Reservation{ID: id, VenueID: venueID, Status: target, ReservedAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeRepo) SeatTx(_ context.Context, venueID, id, tableID string) (domain.Reservation, error) {
	return domain.Reservation{ID: id, VenueID: venueID, Status: domain.ReservationSeated, TableID: &tableID, ReservedAt: time.Now()}, nil
}

func (f *fakeRepo) Stats(context.Context, string) (repository.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	return repository.Stats{Total: f.statsCalls}, nil
}

func TestLiveReservationsAndStats(t *testing.T) {
	now := time.Now()
	feed := changefeed.NewMemory()
	coord := realtime.New(changefeed.NewSupervisor(feed, changefeed.SupervisorOptions{}), realtime.Options{})
	var sounds []string
	var mu sync.Mutex
	al := realtime.AlerterFunc(func(_ context.Context, a realtime.Alert) {
		mu.Lock()
		sounds = append(sounds, a.Sound)
		mu.Unlock()
	})
	b := NewBook("v1", &fakeRepo{}, al, nil, func() time.Time { return now })
	require.NoError(t, b.Refresh(context.Background()))
	defer b.Attach(coord)()
	coord.Initialize(context.Background(), "v1")
	defer coord.Cleanup()

	later, err := domain.NewChange(domain.TableReservations, domain.ChangeInsert,
		domain.Reservation{ID: "r1", VenueID: "v1", Status: domain.ReservationPending, ReservedAt: now.Add(2 * time.Hour)}, nil)
	require.NoError(t, err)
	yesterday, err := domain.NewChange(domain.TableReservations, domain.ChangeInsert,
		domain.Reservation{ID: "r0", VenueID: "v1", Status: domain.ReservationPending, ReservedAt: now.Add(-48 * time.Hour)}, nil)
	require.NoError(t, err)
	feed.Publish(later)
	feed.Publish(yesterday)

	require.Eventually(t, func() bool { return b.Stats().Total == 3 }, time.Second, time.Millisecond)
	list := b.List()
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
	mu.Lock()
	assert.Equal(t, []string{realtime.SoundReservation}, sounds, "past reservations stay quiet")
	mu.Unlock()
}

func TestSeatRecordsTable(t *testing.T) {
	b := NewBook("v1", &fakeRepo{list: []domain.Reservation{
		{ID: "r1", VenueID: "v1", Status: domain.ReservationConfirmed, ReservedAt: time.Now().Add(time.Hour)},
	}}, nil, nil, nil)
	require.NoError(t, b.Refresh(context.Background()))

	r, err := b.Seat(context.Background(), "r1", "t2")
	require.NoError(t, err)
	assert.Equal(t, "t2", *r.TableID)
	assert.Empty(t, b.Active())
	require.Len(t, b.List(), 1)
	assert.Equal(t, domain.ReservationSeated, b.List()[0].Status)
}
