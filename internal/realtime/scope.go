package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/patrickmn/go-cache"

	"venue-pos/internal/connections/database"
	"venue-pos/internal/domain"
)

// ParentLookup returns the venue owning the parent row of a child-table change.
type ParentLookup func(ctx context.Context, table, parentID string) (string, error)

// MembershipScoper narrows messages and order items to the venue of their
// conversation or order, caching parent ownership.
type MembershipScoper struct {
	lookup ParentLookup
	cache  *cache.Cache
}

func NewMembershipScoper(lookup ParentLookup, ttl time.Duration) *MembershipScoper {
	return &MembershipScoper{lookup: lookup, cache: cache.New(ttl, 2*ttl)}
}

func (m *MembershipScoper) InVenue(ctx context.Context, venueID string, ev domain.ChangeEvent) (bool, error) {
	parent := ev.ParentID()
	if parent == "" {
		return false, nil
	}
	key := ev.Table + ":" + parent
	if v, ok := m.cache.Get(key); ok {
		return v.(string) == venueID, nil
	}
	owner, err := m.lookup(ctx, ev.Table, parent)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	m.cache.SetDefault(key, owner)
	return owner == venueID, nil
}

// PGParentLookup resolves parents with one indexed query per miss.
func PGParentLookup(db database.DB) ParentLookup {
	return func(ctx context.Context, table, parentID string) (string, error) {
		var q string
		switch table {
		case domain.TableMessages:
			q = `SELECT venue_id FROM conversations WHERE id=$1`
		case domain.TableOrderItems:
			q = `SELECT venue_id FROM orders WHERE id=$1`
		default:
			return "", fmt.Errorf("no parent for table %s", table)
		}
		var venueID string
		err := db.QueryRow(ctx, q, parentID).Scan(&venueID)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return venueID, err
	}
}
