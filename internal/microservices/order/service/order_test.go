package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/domain"
	dto "venue-pos/internal/microservices/order/domain/dto"
)

type fakeRepo struct {
	venue     domain.Venue
	saved     domain.Order
	items     []domain.OrderItem
	changedBy string
}

func (f *fakeRepo) AddOrderTx(_ context.Context, o domain.Order, items []domain.OrderItem, by string) (domain.Order, error) {
	o.OrderNumber = "ORD_20260301_001"
	f.saved, f.items, f.changedBy = o, items, by
	return o, nil
}

func (f *fakeRepo) GetOrder(_ context.Context, venueID, orderID string) (domain.Order, []domain.OrderItem, error) {
	if orderID != f.saved.ID {
		return domain.Order{}, nil, domain.ErrNotFound
	}
	return f.saved, f.items, nil
}

func (f *fakeRepo) TransitionTx(_ context.Context, _, orderID string, target domain.OrderStatus, _ string) (domain.Order, error) {
	return domain.Order{ID: orderID, Status: target}, nil
}

func (f *fakeRepo) Venue(_ context.Context, venueID string) (domain.Venue, error) {
	if venueID != f.venue.ID {
		return domain.Venue{}, domain.ErrNotFound
	}
	return f.venue, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(rate string) (*fakeRepo, OrderServiceInterface) {
	repo := &fakeRepo{venue: domain.Venue{ID: "v1", Name: "Lokanta", Locale: "tr", TaxRate: dec(rate)}}
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return repo, NewOrderService(repo, nil, now)
}

func TestTotals(t *testing.T) {
	items := []dto.OrderItemInput{
		{Name: "Soup", Quantity: 3, UnitPrice: dec("4.99")},
		{Name: "Tea", Quantity: 2, UnitPrice: dec("1.25")},
	}
	sub, tax, total := Totals(items, dec("2"), dec("0.08"))
	assert.Equal(t, "17.47", sub.StringFixed(2))
	assert.Equal(t, "1.24", tax.StringFixed(2))
	assert.Equal(t, "16.71", total.StringFixed(2))
}

func TestCreateOrder(t *testing.T) {
	repo, svc := newService("0.10")
	table := "t1"
	resp, err := svc.CreateOrder(context.Background(), "v1", "staff-1", dto.CreateOrderRequest{
		CustomerName: " Ana ",
		OrderType:    "dine_in",
		TableID:      &table,
		Discount:     dec("5"),
		Items:        []dto.OrderItemInput{{Name: "Kebab", Quantity: 2, UnitPrice: dec("12.50")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "ORD_20260301_001", resp.OrderNumber)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "25.00", resp.Subtotal.StringFixed(2))
	assert.Equal(t, "2.00", resp.Tax.StringFixed(2))
	assert.Equal(t, "22.00", resp.Total.StringFixed(2))

	assert.Equal(t, "Ana", repo.saved.CustomerName)
	assert.Equal(t, "staff-1", repo.changedBy)
	require.Len(t, repo.items, 1)
	assert.Equal(t, repo.saved.ID, repo.items[0].OrderID)
	assert.NotEmpty(t, repo.items[0].ID)
}

func TestCreateOrderValidation(t *testing.T) {
	_, svc := newService("0")
	item := []dto.OrderItemInput{{Name: "Tea", Quantity: 1, UnitPrice: dec("2")}}
	table := "t1"

	cases := map[string]dto.CreateOrderRequest{
		"no customer":        {OrderType: "dine_in", Items: item},
		"bad type":           {CustomerName: "A", OrderType: "drive_through", Items: item},
		"no items":           {CustomerName: "A", OrderType: "takeout"},
		"zero quantity":      {CustomerName: "A", OrderType: "takeout", Items: []dto.OrderItemInput{{Name: "Tea", UnitPrice: dec("2")}}},
		"negative price":     {CustomerName: "A", OrderType: "takeout", Items: []dto.OrderItemInput{{Name: "Tea", Quantity: 1, UnitPrice: dec("-1")}}},
		"discount too large": {CustomerName: "A", OrderType: "takeout", Items: item, Discount: dec("3")},
		"table on takeout":   {CustomerName: "A", OrderType: "takeout", Items: item, TableID: &table},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), "v1", "s", req)
			assert.True(t, errors.Is(err, domain.ErrValidation), err)
		})
	}
}

func TestCreateOrderUnknownVenue(t *testing.T) {
	_, svc := newService("0")
	_, err := svc.CreateOrder(context.Background(), "v2", "s", dto.CreateOrderRequest{
		CustomerName: "A", OrderType: "takeout",
		Items: []dto.OrderItemInput{{Name: "Tea", Quantity: 1, UnitPrice: dec("2")}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReceiptUsesVenueLocale(t *testing.T) {
	repo, svc := newService("0")
	repo.saved = domain.Order{ID: "o1", VenueID: "v1"}
	r, err := svc.Receipt(context.Background(), "v1", "o1")
	require.NoError(t, err)
	assert.Equal(t, "tr", r.Locale.Code)
	assert.Equal(t, "Lokanta", r.Venue.Name)

	_, err = svc.Receipt(context.Background(), "v1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
