package repository

import (
	"context"
	"fmt"
	"time"

	"venue-pos/internal/connections/database"
	"venue-pos/internal/microservices/reports/models"
)

type ReportsRepoInterface interface {
	// SalesRows lists orders created in [from, to) oldest first.
	SalesRows(ctx context.Context, venueID string, from, to time.Time) ([]models.SalesRow, error)
	OrderTimeline(ctx context.Context, venueID, orderID string, limit, offset int) ([]models.TimelineEvent, error)
}

type ReportsRepo struct {
	db database.DB
}

func NewReportsRepo(db database.DB) *ReportsRepo { return &ReportsRepo{db: db} }

func (r *ReportsRepo) SalesRows(ctx context.Context, venueID string, from, to time.Time) ([]models.SalesRow, error) {
	rows, err := r.db.Query(ctx, `
SELECT o.order_number, o.created_at, o.order_type, o.table_number, o.customer_name, o.status,
       COALESCE((SELECT sum(quantity) FROM order_items i WHERE i.order_id = o.id), 0)::int,
       o.subtotal, o.tax, o.discount, o.total
FROM orders o
WHERE o.venue_id=$1 AND o.created_at >= $2 AND o.created_at < $3
ORDER BY o.created_at ASC
`, venueID, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales rows: %w", err)
	}
	defer rows.Close()

	var out []models.SalesRow
	for rows.Next() {
		var s models.SalesRow
		if err := rows.Scan(&s.OrderNumber, &s.CreatedAt, &s.OrderType, &s.TableNumber, &s.CustomerName, &s.Status,
			&s.ItemCount, &s.Subtotal, &s.Tax, &s.Discount, &s.Total); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ReportsRepo) OrderTimeline(ctx context.Context, venueID, orderID string, limit, offset int) ([]models.TimelineEvent, error) {
	rows, err := r.db.Query(ctx, `
SELECT l.status, l.changed_by, COALESCE(l.notes, ''), l.changed_at
FROM order_status_log l JOIN orders o ON o.id = l.order_id
WHERE l.order_id=$1 AND o.venue_id=$2
ORDER BY l.changed_at ASC
LIMIT $3 OFFSET $4
`, orderID, venueID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("order timeline: %w", err)
	}
	defer rows.Close()

	var out []models.TimelineEvent
	for rows.Next() {
		e := models.TimelineEvent{OrderID: orderID}
		if err := rows.Scan(&e.Status, &e.ChangedBy, &e.Notes, &e.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
