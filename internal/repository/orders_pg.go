// Package repository holds the order queries shared by the kitchen, POS and report services.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"venue-pos/internal/connections/database"
	"venue-pos/internal/domain"
	"venue-pos/internal/lifecycle"
)

const orderColumns = `id, venue_id, order_number, table_id, table_number, customer_name, order_type, status,
subtotal, tax, discount, total, notes, created_at, updated_at, ready_at, served_at`

const itemColumns = `id, order_id, name, quantity, unit_price, notes, created_at`

type OrdersInterface interface {
	ActiveOrders(ctx context.Context, venueID string) ([]domain.Order, error)
	ItemsForOrders(ctx context.Context, orderIDs []string) ([]domain.OrderItem, error)
	GetOrder(ctx context.Context, venueID, orderID string) (domain.Order, []domain.OrderItem, error)
	// TransitionTx moves an order to target under a row lock and appends the status log.
	TransitionTx(ctx context.Context, venueID, orderID string, target domain.OrderStatus, changedBy string) (domain.Order, error)
}

type OrdersPG struct {
	db database.DB
}

func NewOrdersPG(db database.DB) *OrdersPG { return &OrdersPG{db: db} }

func (r *OrdersPG) ActiveOrders(ctx context.Context, venueID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders
WHERE venue_id=$1 AND status IN ('pending','confirmed','preparing','ready')
ORDER BY created_at ASC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("active orders: %w", err)
	}
	return collectOrders(rows)
}

func (r *OrdersPG) ItemsForOrders(ctx context.Context, orderIDs []string) ([]domain.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM order_items
WHERE order_id = ANY($1) ORDER BY created_at ASC`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	return collectItems(rows)
}

func (r *OrdersPG) GetOrder(ctx context.Context, venueID, orderID string) (domain.Order, []domain.OrderItem, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 AND venue_id=$2`, orderID, venueID)
	o, err := ScanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, nil, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, nil, fmt.Errorf("get order: %w", err)
	}
	items, err := r.ItemsForOrders(ctx, []string{orderID})
	if err != nil {
		return domain.Order{}, nil, err
	}
	return o, items, nil
}

func (r *OrdersPG) TransitionTx(ctx context.Context, venueID, orderID string, target domain.OrderStatus, changedBy string) (domain.Order, error) {
	var out domain.Order
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var current, owner string
		err := tx.QueryRow(ctx, `SELECT status, venue_id FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current, &owner)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if owner != venueID {
			return domain.ErrVenueMismatch
		}
		if _, err := lifecycle.Orders.Next(current, string(target)); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `UPDATE orders SET status=$2, updated_at=now(),
  ready_at = CASE WHEN $2='ready' THEN now() ELSE ready_at END,
  served_at = CASE WHEN $2='served' THEN now() ELSE served_at END
WHERE id=$1
RETURNING `+orderColumns, orderID, string(target))
		if out, err = ScanOrder(row); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO order_status_log(order_id, status, changed_by, changed_at, notes)
VALUES ($1, $2, $3, now(), '')`, orderID, string(target), changedBy); err != nil {
			return fmt.Errorf("status log: %w", err)
		}
		return nil
	})
	return out, err
}

// ScanOrder reads one row selected with the order column list.
func ScanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var orderType, status string
	err := row.Scan(&o.ID, &o.VenueID, &o.OrderNumber, &o.TableID, &o.TableNumber, &o.CustomerName,
		&orderType, &status, &o.Subtotal, &o.Tax, &o.Discount, &o.Total, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.ReadyAt, &o.ServedAt)
	o.OrderType = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		o, err := ScanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func collectItems(rows pgx.Rows) ([]domain.OrderItem, error) {
	defer rows.Close()
	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Notes, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// OrderColumns is exported for services that select whole orders themselves.
func OrderColumns() string { return orderColumns }
