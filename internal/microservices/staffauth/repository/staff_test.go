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

func TestVenueByCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM venues WHERE upper\(code\)=upper\(\$1\)`).
		WithArgs("moda").
		WillReturnRows(mock.NewRows([]string{"id", "name", "code", "currency", "locale", "created_at"}).
			AddRow("v1", "Moda", "MODA", "TRY", "tr", time.Now()))

	v, err := NewStaffRepository(mock).VenueByCode(context.Background(), "moda")
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)
}

func TestVenueByCodeMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM venues`).WithArgs("x").
		WillReturnRows(mock.NewRows([]string{"id", "name", "code", "currency", "locale", "created_at"}))
	_, err = NewStaffRepository(mock).VenueByCode(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActiveStaff(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM staff WHERE venue_id=\$1 AND is_active`).
		WithArgs("v1").
		WillReturnRows(mock.NewRows([]string{"id", "venue_id", "name", "role", "is_active", "pin_hash"}).
			AddRow("s1", "v1", "Ayşe", "waiter", true, "$2a$hash"))

	staff, err := NewStaffRepository(mock).ActiveStaff(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, domain.RoleWaiter, staff[0].Role)
	assert.Equal(t, "$2a$hash", staff[0].PINHash)
}
