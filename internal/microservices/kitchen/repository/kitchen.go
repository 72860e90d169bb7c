package repository

import (
	"context"
	"fmt"

	"venue-pos/internal/connections/database"
	shared "venue-pos/internal/repository"
)

// Stats are the kitchen counters shown above the board.
type Stats struct {
	Pending        int     `json:"pending"`
	Preparing      int     `json:"preparing"`
	Ready          int     `json:"ready"`
	ServedToday    int     `json:"served_today"`
	AvgPrepSeconds float64 `json:"avg_prep_seconds"`
}

type KitchenRepositoryInterface interface {
	shared.OrdersInterface
	Stats(ctx context.Context, venueID string) (Stats, error)
}

type KitchenRepository struct {
	*shared.OrdersPG
	db database.DB
}

func NewKitchenRepository(db database.DB) KitchenRepositoryInterface {
	return &KitchenRepository{OrdersPG: shared.NewOrdersPG(db), db: db}
}

func (r *KitchenRepository) Stats(ctx context.Context, venueID string) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
SELECT
  count(*) FILTER (WHERE status IN ('pending','confirmed')),
  count(*) FILTER (WHERE status = 'preparing'),
  count(*) FILTER (WHERE status = 'ready'),
  count(*) FILTER (WHERE status IN ('served','completed') AND created_at >= date_trunc('day', now())),
  COALESCE(EXTRACT(EPOCH FROM avg(ready_at - created_at)
    FILTER (WHERE ready_at IS NOT NULL AND created_at >= date_trunc('day', now())))::float8, 0)
FROM orders WHERE venue_id=$1`, venueID).
		Scan(&s.Pending, &s.Preparing, &s.Ready, &s.ServedToday, &s.AvgPrepSeconds)
	if err != nil {
		return Stats{}, fmt.Errorf("kitchen stats: %w", err)
	}
	return s, nil
}
