package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesRow is one order in a sales export.
type SalesRow struct {
	OrderNumber  string          `json:"order_number"`
	CreatedAt    time.Time       `json:"created_at"`
	OrderType    string          `json:"order_type"`
	TableNumber  *int            `json:"table_number,omitempty"`
	CustomerName string          `json:"customer_name"`
	Status       string          `json:"status"`
	ItemCount    int             `json:"item_count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

// TimelineEvent is one row of order_status_log.
type TimelineEvent struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	Notes     string    `json:"notes,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}
