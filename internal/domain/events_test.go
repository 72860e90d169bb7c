package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeEventKeys(t *testing.T) {
	ev, err := NewChange(TableOrders, ChangeUpdate,
		Order{ID: "o1", VenueID: "v1", Status: OrderReady, Total: decimal.RequireFromString("12.50")},
		Order{ID: "o1", VenueID: "v1", Status: OrderPreparing})
	require.NoError(t, err)

	assert.Equal(t, "o1", ev.RowID())
	assert.Equal(t, "v1", ev.VenueID())

	o, err := DecodeNew[Order](ev)
	require.NoError(t, err)
	assert.Equal(t, OrderReady, o.Status)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("12.5")))

	old, err := DecodeOld[Order](ev)
	require.NoError(t, err)
	assert.Equal(t, OrderPreparing, old.Status)
}

func TestDeleteUsesOldImage(t *testing.T) {
	ev, err := NewChange(TableMessages, ChangeDelete, nil, Message{ID: "m1", ConversationID: "c9"})
	require.NoError(t, err)

	assert.Equal(t, "m1", ev.RowID())
	assert.Equal(t, "c9", ev.ParentID())
	assert.Empty(t, ev.VenueID())

	_, err = DecodeNew[Message](ev)
	assert.Error(t, err)
}

func TestEventForTable(t *testing.T) {
	for _, table := range Tracked {
		name, ok := EventForTable(table)
		assert.True(t, ok, table)
		assert.NotEmpty(t, name)
	}
	name, _ := EventForTable(TableOrderItems)
	assert.Equal(t, EventOrder, name)
	assert.False(t, HasVenueColumn(TableMessages))
	assert.True(t, HasVenueColumn(TableReservations))
}

func TestLandingPages(t *testing.T) {
	assert.Equal(t, "/kitchen", RoleKitchen.LandingPage())
	assert.Equal(t, "/dashboard", RoleManager.LandingPage())
	assert.Equal(t, "/", Role("guest").LandingPage())
}
