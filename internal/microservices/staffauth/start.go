package staffauth

import (
	"venue-pos/internal/common/logger"
	"venue-pos/internal/config"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/microservices/staffauth/repository"
	"venue-pos/internal/microservices/staffauth/service"
)

func NewKiosks(db database.DB, cfg config.AuthConfig, lg *logger.Logger) *service.Kiosks {
	return service.NewKiosks(repository.NewStaffRepository(db), service.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		service.KiosksOptions{PINLength: cfg.PINLength, DefaultVenueID: cfg.DefaultVenueID, Logger: lg})
}
