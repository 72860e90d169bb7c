package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venue-pos/internal/domain"
)

type CreateOrderRequest struct {
	CustomerName string           `json:"customer_name" binding:"required"`
	OrderType    string           `json:"order_type" binding:"required,oneof=dine_in takeout delivery"`
	TableID      *string          `json:"table_id"`
	TableNumber  *int             `json:"table_number"`
	Discount     decimal.Decimal  `json:"discount"`
	Notes        string           `json:"notes"`
	Items        []OrderItemInput `json:"items" binding:"required,min=1,dive"`
}

type OrderItemInput struct {
	Name      string          `json:"name" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     string          `json:"notes"`
}

type CreateOrderResponse struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ConvertItems maps input items to order items of orderID with fresh ids.
func ConvertItems(orderID string, inputs []OrderItemInput, now time.Time) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			Name:      in.Name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Notes:     in.Notes,
			CreatedAt: now,
		})
	}
	return items
}
