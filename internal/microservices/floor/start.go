package floor

import (
	"venue-pos/internal/common/logger"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/microservices/floor/repository"
	"venue-pos/internal/microservices/floor/service"
)

func NewFloor(venueID string, db database.DB, lg *logger.Logger) *service.Floor {
	return service.NewFloor(venueID, repository.NewFloorRepository(db), lg)
}
