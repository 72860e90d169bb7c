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
	"venue-pos/internal/microservices/waiter/repository"
	"venue-pos/internal/realtime"
)

type fakeRepo struct {
	calls []domain.WaiterCall
}

func (f *fakeRepo) ActiveCalls(context.Context, string) ([]domain.WaiterCall, error) {
	return f.calls, nil
}

func (f *fakeRepo) UpdateStatusTx(_ context.Context, venueID, callID string, target domain.WaiterCallStatus, staffID string) (domain.WaiterCall, error) {
	c := domain.WaiterCall{ID: callID, VenueID: venueID, Status: target}
	if target == domain.CallAcknowledged {
		now := time.Now()
		c.AnsweredBy, c.AnsweredAt = &staffID, &now
	}
	return c, nil
}

func (f *fakeRepo) Stats(context.Context, string) (repository.Stats, error) {
	return repository.Stats{}, nil
}

type sounds struct {
	mu  sync.Mutex
	got []string
}

func (s *sounds) Alert(_ context.Context, a realtime.Alert) {
	s.mu.Lock()
	s.got = append(s.got, a.Sound)
	s.mu.Unlock()
}

func (s *sounds) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

func TestNewCallAppearsAndAlerts(t *testing.T) {
	feed := changefeed.NewMemory()
	coord := realtime.New(changefeed.NewSupervisor(feed, changefeed.SupervisorOptions{}), realtime.Options{})
	al := &sounds{}
	b := NewBoard("v1", &fakeRepo{}, al, nil)
	require.NoError(t, b.Refresh(context.Background()))
	defer b.Attach(coord)()
	coord.Initialize(context.Background(), "v1")
	defer coord.Cleanup()

	ev, err := domain.NewChange(domain.TableWaiterCalls, domain.ChangeInsert,
		domain.WaiterCall{ID: "c1", VenueID: "v1", Status: domain.CallPending, CreatedAt: time.Now()}, nil)
	require.NoError(t, err)
	feed.Publish(ev)

	require.Eventually(t, func() bool { return len(b.Pending()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{realtime.SoundWaiterCall}, al.list())
}

func TestAcknowledgeMovesToInProgress(t *testing.T) {
	b := NewBoard("v1", &fakeRepo{calls: []domain.WaiterCall{
		{ID: "c1", VenueID: "v1", Status: domain.CallPending},
		{ID: "c2", VenueID: "v1", Status: domain.CallPending},
	}}, nil, nil)
	require.NoError(t, b.Refresh(context.Background()))

	c, err := b.Acknowledge(context.Background(), "c1", "s1")
	require.NoError(t, err)
	require.NotNil(t, c.AnsweredAt)
	assert.Len(t, b.Pending(), 1)
	require.Len(t, b.InProgress(), 1)
	assert.Equal(t, "c1", b.InProgress()[0].ID)
}

func TestCompleteAndDismissLeaveBoard(t *testing.T) {
	b := NewBoard("v1", &fakeRepo{calls: []domain.WaiterCall{
		{ID: "c1", VenueID: "v1", Status: domain.CallAcknowledged},
		{ID: "c2", VenueID: "v1", Status: domain.CallPending},
	}}, nil, nil)
	require.NoError(t, b.Refresh(context.Background()))

	_, err := b.Complete(context.Background(), "c1", "s1")
	require.NoError(t, err)
	_, err = b.Dismiss(context.Background(), "c2", "s1")
	require.NoError(t, err)

	assert.Empty(t, b.Pending())
	assert.Empty(t, b.InProgress())
}
