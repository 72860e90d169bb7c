package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/locale"
	dto "venue-pos/internal/microservices/order/domain/dto"
	"venue-pos/internal/microservices/order/receipt"
	"venue-pos/internal/microservices/order/repository"
)

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, venueID, staffID string, req dto.CreateOrderRequest) (dto.CreateOrderResponse, error)
	UpdateStatus(ctx context.Context, venueID, orderID string, target domain.OrderStatus, staffID string) (domain.Order, error)
	Receipt(ctx context.Context, venueID, orderID string) (receipt.Receipt, error)
}

type OrderService struct {
	db  repository.OrderRepositoryInterface
	log *logger.Logger
	now func() time.Time
}

func NewOrderService(db repository.OrderRepositoryInterface, lg *logger.Logger, now func() time.Time) OrderServiceInterface {
	if lg == nil {
		lg = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &OrderService{db: db, log: lg, now: now}
}

// Totals computes the order amounts: tax applies after the discount and
// every amount is rounded to cents.
func Totals(items []dto.OrderItemInput, discount, taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)
	taxable := subtotal.Sub(discount)
	tax = taxable.Mul(taxRate).Round(2)
	total = taxable.Add(tax)
	return subtotal, tax, total
}

func validate(req dto.CreateOrderRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", domain.ErrValidation)
	}
	if !domain.OrderType(req.OrderType).Valid() {
		return fmt.Errorf("%w: invalid order type", domain.ErrValidation)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", domain.ErrValidation)
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item name is required", domain.ErrValidation)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: invalid quantity for item %s", domain.ErrValidation, item.Name)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: invalid price for item %s", domain.ErrValidation, item.Name)
		}
	}
	if req.Discount.IsNegative() {
		return fmt.Errorf("%w: discount cannot be negative", domain.ErrValidation)
	}
	if req.TableID != nil && domain.OrderType(req.OrderType) != domain.OrderDineIn {
		return fmt.Errorf("%w: only dine-in orders take a table", domain.ErrValidation)
	}
	return nil
}

func (or *OrderService) CreateOrder(ctx context.Context, venueID, staffID string, req dto.CreateOrderRequest) (dto.CreateOrderResponse, error) {
	if err := validate(req); err != nil {
		return dto.CreateOrderResponse{}, err
	}

	// 1. Totals at the venue tax rate
	venue, err := or.db.Venue(ctx, venueID)
	if err != nil {
		return dto.CreateOrderResponse{}, err
	}
	subtotal, tax, total := Totals(req.Items, req.Discount, venue.TaxRate)
	if req.Discount.GreaterThan(subtotal) {
		return dto.CreateOrderResponse{}, fmt.Errorf("%w: discount exceeds subtotal", domain.ErrValidation)
	}

	// 2. Save order, items and status log in one transaction
	now := or.now()
	order := domain.Order{
		ID:           uuid.NewString(),
		VenueID:      venueID,
		TableID:      req.TableID,
		TableNumber:  req.TableNumber,
		CustomerName: strings.TrimSpace(req.CustomerName),
		OrderType:    domain.OrderType(req.OrderType),
		Status:       domain.OrderPending,
		Subtotal:     subtotal,
		Tax:          tax,
		Discount:     req.Discount,
		Total:        total,
		Notes:        req.Notes,
		CreatedAt:    now,
	}
	saved, err := or.db.AddOrderTx(ctx, order, dto.ConvertItems(order.ID, req.Items, now), staffID)
	if err != nil {
		return dto.CreateOrderResponse{}, fmt.Errorf("failed to save order: %w", err)
	}
	or.log.Info("order_created", map[string]any{
		"venue_id":     venueID,
		"order_id":     saved.ID,
		"order_number": saved.OrderNumber,
		"total":        saved.Total.StringFixed(2),
	})

	// 3. Build response
	return dto.CreateOrderResponse{
		OrderID:     saved.ID,
		OrderNumber: saved.OrderNumber,
		Status:      string(saved.Status),
		Subtotal:    saved.Subtotal,
		Tax:         saved.Tax,
		Discount:    saved.Discount,
		Total:       saved.Total,
	}, nil
}

func (or *OrderService) UpdateStatus(ctx context.Context, venueID, orderID string, target domain.OrderStatus, staffID string) (domain.Order, error) {
	o, err := or.db.TransitionTx(ctx, venueID, orderID, target, staffID)
	if err != nil {
		return domain.Order{}, err
	}
	or.log.Info("order_status_changed", map[string]any{"order_id": orderID, "status": string(target), "changed_by": staffID})
	return o, nil
}

func (or *OrderService) Receipt(ctx context.Context, venueID, orderID string) (receipt.Receipt, error) {
	venue, err := or.db.Venue(ctx, venueID)
	if err != nil {
		return receipt.Receipt{}, err
	}
	o, items, err := or.db.GetOrder(ctx, venueID, orderID)
	if err != nil {
		return receipt.Receipt{}, err
	}
	return receipt.Receipt{
		Venue:     venue,
		Order:     o,
		Items:     items,
		Locale:    locale.MustLookup(venue.Locale),
		PrintedAt: or.now(),
	}, nil
}
