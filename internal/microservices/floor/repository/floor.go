package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"venue-pos/internal/connections/database"
	"venue-pos/internal/domain"
)

const tableColumns = `id, venue_id, number, name, capacity, status, current_order_id, current_reservation_id, updated_at`

type FloorRepositoryInterface interface {
	Tables(ctx context.Context, venueID string) ([]domain.Table, error)
	SetTableStatus(ctx context.Context, venueID, tableID string, status domain.TableStatus) (domain.Table, error)
	AssignOrder(ctx context.Context, venueID, tableID, orderID string) (domain.Table, error)
	ClearTable(ctx context.Context, venueID, tableID string) (domain.Table, error)
	ActiveCheckIns(ctx context.Context, venueID string) ([]domain.CheckIn, error)
	StockItems(ctx context.Context, venueID string) ([]domain.StockItem, error)
}

type FloorRepository struct {
	db database.DB
}

func NewFloorRepository(db database.DB) FloorRepositoryInterface {
	return &FloorRepository{db: db}
}

func (r *FloorRepository) Tables(ctx context.Context, venueID string) ([]domain.Table, error) {
	rows, err := r.db.Query(ctx, `SELECT `+tableColumns+` FROM tables WHERE venue_id=$1 ORDER BY number ASC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}
	defer rows.Close()
	var out []domain.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *FloorRepository) SetTableStatus(ctx context.Context, venueID, tableID string, status domain.TableStatus) (domain.Table, error) {
	if !status.Valid() {
		return domain.Table{}, fmt.Errorf("%w: table status %q", domain.ErrValidation, status)
	}
	return r.updateTable(ctx, `UPDATE tables SET status=$3, updated_at=now()
WHERE id=$1 AND venue_id=$2 RETURNING `+tableColumns, tableID, venueID, string(status))
}

func (r *FloorRepository) AssignOrder(ctx context.Context, venueID, tableID, orderID string) (domain.Table, error) {
	return r.updateTable(ctx, `UPDATE tables SET status='occupied', current_order_id=$3, updated_at=now()
WHERE id=$1 AND venue_id=$2 RETURNING `+tableColumns, tableID, venueID, orderID)
}

// ClearTable frees the table and drops its order and reservation references.
func (r *FloorRepository) ClearTable(ctx context.Context, venueID, tableID string) (domain.Table, error) {
	return r.updateTable(ctx, `UPDATE tables SET status='available', current_order_id=NULL, current_reservation_id=NULL, updated_at=now()
WHERE id=$1 AND venue_id=$2 RETURNING `+tableColumns, tableID, venueID)
}

func (r *FloorRepository) updateTable(ctx context.Context, sql string, args ...any) (domain.Table, error) {
	t, err := scanTable(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Table{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("update table: %w", err)
	}
	return t, nil
}

func (r *FloorRepository) ActiveCheckIns(ctx context.Context, venueID string) ([]domain.CheckIn, error) {
	rows, err := r.db.Query(ctx, `SELECT id, venue_id, customer_name, table_id, is_active, is_visible, created_at
FROM checkins WHERE venue_id=$1 AND is_active ORDER BY created_at DESC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("checkins: %w", err)
	}
	defer rows.Close()
	var out []domain.CheckIn
	for rows.Next() {
		var c domain.CheckIn
		if err := rows.Scan(&c.ID, &c.VenueID, &c.CustomerName, &c.TableID, &c.IsActive, &c.IsVisible, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *FloorRepository) StockItems(ctx context.Context, venueID string) ([]domain.StockItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, venue_id, name, unit, current_quantity, minimum_quantity, updated_at
FROM stock_items WHERE venue_id=$1 ORDER BY name ASC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("stock items: %w", err)
	}
	defer rows.Close()
	var out []domain.StockItem
	for rows.Next() {
		var s domain.StockItem
		if err := rows.Scan(&s.ID, &s.VenueID, &s.Name, &s.Unit, &s.Current, &s.Minimum, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanTable(row pgx.Row) (domain.Table, error) {
	var t domain.Table
	var status string
	err := row.Scan(&t.ID, &t.VenueID, &t.Number, &t.Name, &t.Capacity, &status,
		&t.CurrentOrderID, &t.CurrentReservationID, &t.UpdatedAt)
	t.Status = domain.TableStatus(status)
	return t, err
}
