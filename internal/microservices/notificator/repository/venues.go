package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	gocache "github.com/patrickmn/go-cache"

	"venue-pos/internal/connections/database"
	"venue-pos/internal/domain"
)

// VenueDirectoryInterface resolves venue display names for notifications.
type VenueDirectoryInterface interface {
	VenueName(ctx context.Context, venueID string) (string, error)
}

type VenueDirectory struct {
	db    database.DB
	cache *gocache.Cache
}

func NewVenueDirectory(db database.DB, ttl time.Duration) *VenueDirectory {
	return &VenueDirectory{db: db, cache: gocache.New(ttl, 2*ttl)}
}

func (d *VenueDirectory) VenueName(ctx context.Context, venueID string) (string, error) {
	if v, ok := d.cache.Get(venueID); ok {
		return v.(string), nil
	}
	var name string
	err := d.db.QueryRow(ctx, `SELECT name FROM venues WHERE id=$1`, venueID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("venue name: %w", err)
	}
	d.cache.SetDefault(venueID, name)
	return name, nil
}
