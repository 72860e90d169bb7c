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

var tableCols = []string{"id", "venue_id", "number", "name", "capacity", "status", "current_order_id", "current_reservation_id", "updated_at"}

func TestAssignOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	order := "o1"
	mock.ExpectQuery(`UPDATE tables SET status='occupied', current_order_id=\$3`).
		WithArgs("t1", "v1", "o1").
		WillReturnRows(mock.NewRows(tableCols).AddRow("t1", "v1", 3, "Window", 4, "occupied", &order, nil, time.Now()))

	tb, err := NewFloorRepository(mock).AssignOrder(context.Background(), "v1", "t1", "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.TableOccupied, tb.Status)
	require.NotNil(t, tb.CurrentOrderID)
	assert.Equal(t, "o1", *tb.CurrentOrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatusUnknownTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`UPDATE tables SET status=\$3`).
		WithArgs("t1", "v2", "cleaning").
		WillReturnRows(mock.NewRows(tableCols))

	_, err = NewFloorRepository(mock).SetTableStatus(context.Background(), "v2", "t1", domain.TableCleaning)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewFloorRepository(mock).SetTableStatus(context.Background(), "v1", "t1", "broken")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
