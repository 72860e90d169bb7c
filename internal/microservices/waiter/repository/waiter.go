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

const callColumns = `id, venue_id, table_id, table_number, reason, status, answered_by, answered_at, created_at`

type Stats struct {
	Pending            int     `json:"pending"`
	InProgress         int     `json:"in_progress"`
	AnsweredToday      int     `json:"answered_today"`
	AvgResponseSeconds float64 `json:"avg_response_seconds"`
}

type WaiterRepositoryInterface interface {
	ActiveCalls(ctx context.Context, venueID string) ([]domain.WaiterCall, error)
	UpdateStatusTx(ctx context.Context, venueID, callID string, target domain.WaiterCallStatus, staffID string) (domain.WaiterCall, error)
	Stats(ctx context.Context, venueID string) (Stats, error)
}

type WaiterRepository struct {
	db database.DB
}

func NewWaiterRepository(db database.DB) WaiterRepositoryInterface {
	return &WaiterRepository{db: db}
}

func (r *WaiterRepository) ActiveCalls(ctx context.Context, venueID string) ([]domain.WaiterCall, error) {
	rows, err := r.db.Query(ctx, `SELECT `+callColumns+` FROM waiter_calls
WHERE venue_id=$1 AND status IN ('pending','acknowledged') ORDER BY created_at ASC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("active calls: %w", err)
	}
	defer rows.Close()
	var out []domain.WaiterCall
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *WaiterRepository) UpdateStatusTx(ctx context.Context, venueID, callID string, target domain.WaiterCallStatus, staffID string) (domain.WaiterCall, error) {
	var out domain.WaiterCall
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var current, owner string
		err := tx.QueryRow(ctx, `SELECT status, venue_id FROM waiter_calls WHERE id=$1 FOR UPDATE`, callID).Scan(&current, &owner)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock call: %w", err)
		}
		if owner != venueID {
			return domain.ErrVenueMismatch
		}
		if _, err := lifecycle.WaiterCalls.Next(current, string(target)); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `UPDATE waiter_calls SET status=$2,
  answered_by = CASE WHEN $2='acknowledged' THEN $3 ELSE answered_by END,
  answered_at = CASE WHEN $2='acknowledged' THEN now() ELSE answered_at END
WHERE id=$1
RETURNING `+callColumns, callID, string(target), staffID)
		out, err = scanCall(row)
		if err != nil {
			return fmt.Errorf("update call: %w", err)
		}
		return nil
	})
	return out, err
}

func (r *WaiterRepository) Stats(ctx context.Context, venueID string) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
SELECT
  count(*) FILTER (WHERE status = 'pending'),
  count(*) FILTER (WHERE status = 'acknowledged'),
  count(*) FILTER (WHERE answered_at >= date_trunc('day', now())),
  COALESCE(EXTRACT(EPOCH FROM avg(answered_at - created_at)
    FILTER (WHERE answered_at >= date_trunc('day', now())))::float8, 0)
FROM waiter_calls WHERE venue_id=$1`, venueID).
		Scan(&s.Pending, &s.InProgress, &s.AnsweredToday, &s.AvgResponseSeconds)
	if err != nil {
		return Stats{}, fmt.Errorf("waiter stats: %w", err)
	}
	return s, nil
}

func scanCall(row pgx.Row) (domain.WaiterCall, error) {
	var c domain.WaiterCall
	var status string
	err := row.Scan(&c.ID, &c.VenueID, &c.TableID, &c.TableNumber, &c.Reason, &status, &c.AnsweredBy, &c.AnsweredAt, &c.CreatedAt)
	c.Status = domain.WaiterCallStatus(status)
	return c, err
}
