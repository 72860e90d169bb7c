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

const reservationColumns = `id, venue_id, customer_name, phone, party_size, reserved_at, table_id, status, notes, created_at`

// Stats covers today's reservations.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Seated    int `json:"seated"`
	Guests    int `json:"guests"`
}

type ReservationRepositoryInterface interface {
	Upcoming(ctx context.Context, venueID string) ([]domain.Reservation, error)
	TransitionTx(ctx context.Context, venueID, reservationID string, target domain.ReservationStatus) (domain.Reservation, error)
	SeatTx(ctx context.Context, venueID, reservationID, tableID string) (domain.Reservation, error)
	Stats(ctx context.Context, venueID string) (Stats, error)
}

type ReservationRepository struct {
	db database.DB
}

func NewReservationRepository(db database.DB) ReservationRepositoryInterface {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Upcoming(ctx context.Context, venueID string) ([]domain.Reservation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reservationColumns+` FROM reservations
WHERE venue_id=$1 AND reserved_at >= date_trunc('day', now()) ORDER BY reserved_at ASC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("upcoming reservations: %w", err)
	}
	defer rows.Close()
	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ReservationRepository) TransitionTx(ctx context.Context, venueID, reservationID string, target domain.ReservationStatus) (domain.Reservation, error) {
	var out domain.Reservation
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		out, err = transition(ctx, tx, venueID, reservationID, target, nil)
		return err
	})
	return out, err
}

// SeatTx seats the party and marks the table occupied by this reservation.
func (r *ReservationRepository) SeatTx(ctx context.Context, venueID, reservationID, tableID string) (domain.Reservation, error) {
	var out domain.Reservation
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		if out, err = transition(ctx, tx, venueID, reservationID, domain.ReservationSeated, &tableID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE tables SET status='occupied', current_reservation_id=$1, updated_at=now()
WHERE id=$2 AND venue_id=$3`, reservationID, tableID, venueID)
		if err != nil {
			return fmt.Errorf("occupy table: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("table %s: %w", tableID, domain.ErrNotFound)
		}
		return nil
	})
	return out, err
}

func transition(ctx context.Context, tx pgx.Tx, venueID, id string, target domain.ReservationStatus, tableID *string) (domain.Reservation, error) {
	var current, owner string
	err := tx.QueryRow(ctx, `SELECT status, venue_id FROM reservations WHERE id=$1 FOR UPDATE`, id).Scan(&current, &owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("lock reservation: %w", err)
	}
	if owner != venueID {
		return domain.Reservation{}, domain.ErrVenueMismatch
	}
	if _, err := lifecycle.Reservations.Next(current, string(target)); err != nil {
		return domain.Reservation{}, err
	}
	row := tx.QueryRow(ctx, `UPDATE reservations SET status=$2, table_id=COALESCE($3, table_id)
WHERE id=$1 RETURNING `+reservationColumns, id, string(target), tableID)
	res, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("update reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) Stats(ctx context.Context, venueID string) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
SELECT
  count(*),
  count(*) FILTER (WHERE status = 'pending'),
  count(*) FILTER (WHERE status = 'confirmed'),
  count(*) FILTER (WHERE status = 'seated'),
  COALESCE(sum(party_size) FILTER (WHERE status NOT IN ('cancelled','no_show')), 0)
FROM reservations
WHERE venue_id=$1 AND reserved_at >= date_trunc('day', now()) AND reserved_at < date_trunc('day', now()) + interval '1 day'`,
		venueID).Scan(&s.Total, &s.Pending, &s.Confirmed, &s.Seated, &s.Guests)
	if err != nil {
		return Stats{}, fmt.Errorf("reservation stats: %w", err)
	}
	return s, nil
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var res domain.Reservation
	var status string
	err := row.Scan(&res.ID, &res.VenueID, &res.CustomerName, &res.Phone, &res.PartySize, &res.ReservedAt,
		&res.TableID, &status, &res.Notes, &res.CreatedAt)
	res.Status = domain.ReservationStatus(status)
	return res, err
}
