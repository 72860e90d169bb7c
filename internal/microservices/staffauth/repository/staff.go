package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"venue-pos/internal/connections/database"
	"venue-pos/internal/domain"
)

type StaffRepositoryInterface interface {
	VenueByCode(ctx context.Context, code string) (domain.Venue, error)
	Venue(ctx context.Context, venueID string) (domain.Venue, error)
	ActiveStaff(ctx context.Context, venueID string) ([]domain.Staff, error)
}

type StaffRepository struct {
	db database.DB
}

func NewStaffRepository(db database.DB) StaffRepositoryInterface {
	return &StaffRepository{db: db}
}

const venueColumns = `id, name, code, currency, locale, created_at`

func (r *StaffRepository) VenueByCode(ctx context.Context, code string) (domain.Venue, error) {
	return r.venue(ctx, `SELECT `+venueColumns+` FROM venues WHERE upper(code)=upper($1)`, code)
}

func (r *StaffRepository) Venue(ctx context.Context, venueID string) (domain.Venue, error) {
	return r.venue(ctx, `SELECT `+venueColumns+` FROM venues WHERE id=$1`, venueID)
}

func (r *StaffRepository) venue(ctx context.Context, sql, arg string) (domain.Venue, error) {
	var v domain.Venue
	err := r.db.QueryRow(ctx, sql, arg).Scan(&v.ID, &v.Name, &v.Code, &v.Currency, &v.Locale, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Venue{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Venue{}, fmt.Errorf("venue: %w", err)
	}
	return v, nil
}

// ActiveStaff includes PIN hashes; they never leave the service layer.
func (r *StaffRepository) ActiveStaff(ctx context.Context, venueID string) ([]domain.Staff, error) {
	rows, err := r.db.Query(ctx, `SELECT id, venue_id, name, role, is_active, pin_hash FROM staff
WHERE venue_id=$1 AND is_active ORDER BY name ASC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("active staff: %w", err)
	}
	defer rows.Close()
	var out []domain.Staff
	for rows.Next() {
		var s domain.Staff
		var role string
		if err := rows.Scan(&s.ID, &s.VenueID, &s.Name, &role, &s.IsActive, &s.PINHash); err != nil {
			return nil, err
		}
		s.Role = domain.Role(role)
		out = append(out, s)
	}
	return out, rows.Err()
}
