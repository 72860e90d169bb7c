package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/domain"
)

var cols = []string{"id", "venue_id", "customer_name", "phone", "party_size", "reserved_at", "table_id", "status", "notes", "created_at"}

func TestSeatOccupiesTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2026, 6, 1, 19, 30, 0, 0, time.UTC)
	table := "t4"
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, venue_id FROM reservations WHERE id=\$1 FOR UPDATE`).
		WithArgs("r1").
		WillReturnRows(mock.NewRows([]string{"status", "venue_id"}).AddRow("confirmed", "v1"))
	mock.ExpectQuery(`UPDATE reservations SET status=\$2`).
		WithArgs("r1", "seated", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows(cols).AddRow("r1", "v1", "Deniz", "", 4, at, &table, "seated", "", at))
	mock.ExpectExec(`UPDATE tables SET status='occupied', current_reservation_id=\$1`).
		WithArgs("r1", "t4", "v1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	r, err := NewReservationRepository(mock).SeatTx(context.Background(), "v1", "r1", "t4")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationSeated, r.Status)
	require.NotNil(t, r.TableID)
	assert.Equal(t, "t4", *r.TableID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatUnknownTableRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, venue_id FROM reservations`).
		WithArgs("r1").
		WillReturnRows(mock.NewRows([]string{"status", "venue_id"}).AddRow("pending", "v1"))
	mock.ExpectQuery(`UPDATE reservations`).
		WithArgs("r1", "seated", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows(cols).AddRow("r1", "v1", "Deniz", "", 4, at, nil, "seated", "", at))
	mock.ExpectExec(`UPDATE tables`).
		WithArgs("r1", "t9", "v1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err = NewReservationRepository(mock).SeatTx(context.Background(), "v1", "r1", "t9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoShowOnlyBeforeSeating(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, venue_id FROM reservations`).
		WithArgs("r1").
		WillReturnRows(mock.NewRows([]string{"status", "venue_id"}).AddRow("seated", "v1"))
	mock.ExpectRollback()

	_, err = NewReservationRepository(mock).TransitionTx(context.Background(), "v1", "r1", domain.ReservationNoShow)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReservationStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM reservations WHERE venue_id=\$1 AND reserved_at >=`).
		WithArgs("v1").
		WillReturnRows(mock.NewRows([]string{"t", "p", "c", "s", "g"}).AddRow(5, 1, 2, 1, 17))

	s, err := NewReservationRepository(mock).Stats(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 5, Pending: 1, Confirmed: 2, Seated: 1, Guests: 17}, s)
}
