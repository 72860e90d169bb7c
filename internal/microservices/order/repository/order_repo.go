package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"venue-pos/internal/connections/database"
	"venue-pos/internal/domain"
	shared "venue-pos/internal/repository"
)

type OrderRepositoryInterface interface {
	// AddOrderTx numbers and inserts the order with its items and first status log row.
	// A dine-in order with a table also occupies that table.
	AddOrderTx(ctx context.Context, order domain.Order, items []domain.OrderItem, changedBy string) (domain.Order, error)
	GetOrder(ctx context.Context, venueID, orderID string) (domain.Order, []domain.OrderItem, error)
	TransitionTx(ctx context.Context, venueID, orderID string, target domain.OrderStatus, changedBy string) (domain.Order, error)
	Venue(ctx context.Context, venueID string) (domain.Venue, error)
}

type OrderRepository struct {
	*shared.OrdersPG
	db database.DB
}

func NewOrderRepository(db database.DB) OrderRepositoryInterface {
	return &OrderRepository{OrdersPG: shared.NewOrdersPG(db), db: db}
}

func (or *OrderRepository) Venue(ctx context.Context, venueID string) (domain.Venue, error) {
	var v domain.Venue
	err := or.db.QueryRow(ctx, `SELECT id, name, code, address, phone, currency, locale, tax_rate, created_at
FROM venues WHERE id=$1`, venueID).
		Scan(&v.ID, &v.Name, &v.Code, &v.Address, &v.Phone, &v.Currency, &v.Locale, &v.TaxRate, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Venue{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Venue{}, fmt.Errorf("failed to get venue: %w", err)
	}
	return v, nil
}

// OrderNumber formats the daily sequence as ORD_YYYYMMDD_NNN.
func OrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("ORD_%s_%03d", day.Format("20060102"), seq)
}

func (or *OrderRepository) AddOrderTx(ctx context.Context, order domain.Order, items []domain.OrderItem, changedBy string) (domain.Order, error) {
	var out domain.Order
	err := database.WithTx(ctx, or.db, func(tx pgx.Tx) error {
		// Serializes numbering per venue until commit.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, order.VenueID); err != nil {
			return fmt.Errorf("failed to lock order sequence: %w", err)
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM orders
WHERE venue_id=$1 AND created_at >= date_trunc('day', now())`, order.VenueID).Scan(&count); err != nil {
			return fmt.Errorf("failed to get order count: %w", err)
		}
		order.OrderNumber = OrderNumber(order.CreatedAt, count+1)

		if order.TableID != nil {
			var number int
			err := tx.QueryRow(ctx, `SELECT number FROM tables WHERE id=$1 AND venue_id=$2 FOR UPDATE`,
				*order.TableID, order.VenueID).Scan(&number)
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to lock table: %w", err)
			}
			order.TableNumber = &number
		}

		row := tx.QueryRow(ctx, `INSERT INTO orders
    (id, venue_id, order_number, table_id, table_number, customer_name, order_type, status,
     subtotal, tax, discount, total, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
RETURNING `+shared.OrderColumns(),
			order.ID, order.VenueID, order.OrderNumber, order.TableID, order.TableNumber, order.CustomerName,
			string(order.OrderType), string(order.Status), order.Subtotal, order.Tax, order.Discount, order.Total, order.Notes)
		var err error
		if out, err = shared.ScanOrder(row); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for _, item := range items {
			if _, err := tx.Exec(ctx, `INSERT INTO order_items (id, order_id, name, quantity, unit_price, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())`, item.ID, out.ID, item.Name, item.Quantity, item.UnitPrice, item.Notes); err != nil {
				return fmt.Errorf("failed to insert order item %s: %w", item.Name, err)
			}
		}

		if _, err := tx.Exec(ctx, `INSERT INTO order_status_log (order_id, status, changed_by, changed_at, notes)
VALUES ($1, $2, $3, now(), '')`, out.ID, string(out.Status), changedBy); err != nil {
			return fmt.Errorf("failed to insert order status log: %w", err)
		}

		if order.TableID != nil && order.OrderType == domain.OrderDineIn {
			if _, err := tx.Exec(ctx, `UPDATE tables SET status='occupied', current_order_id=$1, updated_at=now()
WHERE id=$2`, out.ID, *order.TableID); err != nil {
				return fmt.Errorf("failed to occupy table: %w", err)
			}
		}
		return nil
	})
	return out, err
}
