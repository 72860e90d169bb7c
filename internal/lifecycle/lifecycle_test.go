package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/domain"
)

func TestOrderLifecycle(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{"pending", "preparing", true},
		{"confirmed", "preparing", true},
		{"preparing", "ready", true},
		{"ready", "served", true},
		{"served", "completed", true},
		{"pending", "ready", false},
		{"ready", "cancelled", true},
		{"served", "cancelled", false},
		{"completed", "preparing", false},
		{"pending", "bogus", false},
	}
	for _, tc := range cases {
		got, err := Orders.Next(tc.from, tc.to)
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
			assert.Equal(t, tc.to, got)
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestOrderCancelFromEveryOpenStatus(t *testing.T) {
	all := []domain.OrderStatus{domain.OrderPending, domain.OrderConfirmed, domain.OrderPreparing,
		domain.OrderReady, domain.OrderServed, domain.OrderCompleted, domain.OrderCancelled}
	for _, st := range all {
		_, err := Orders.Next(string(st), string(domain.OrderCancelled))
		if st.IsTerminal() {
			assert.ErrorIs(t, err, domain.ErrInvalidTransition, string(st))
		} else {
			assert.NoError(t, err, string(st))
		}
	}
}

func TestReservationAllowed(t *testing.T) {
	assert.Equal(t, []string{"cancelled", "no_show", "seated"}, Reservations.Allowed("confirmed"))
	assert.Empty(t, Reservations.Allowed("completed"))
}

func TestWaiterCallLifecycle(t *testing.T) {
	_, err := WaiterCalls.Next("completed", "acknowledged")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	got, err := WaiterCalls.Next("acknowledged", "dismissed")
	require.NoError(t, err)
	assert.Equal(t, "dismissed", got)
}
