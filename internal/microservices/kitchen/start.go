package kitchen

import (
	"venue-pos/internal/connections/database"
	"venue-pos/internal/microservices/kitchen/repository"
	"venue-pos/internal/microservices/kitchen/service"
)

// NewBoard wires the kitchen board of one venue to Postgres.
func NewBoard(venueID string, db database.DB, opts service.Options) *service.Board {
	return service.NewBoard(venueID, repository.NewKitchenRepository(db), opts)
}
