package workspace

import (
	"venue-pos/internal/common/logger"
	"venue-pos/internal/config"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/domain"
	"venue-pos/internal/metrics"
	"venue-pos/internal/microservices/floor"
	"venue-pos/internal/microservices/kitchen"
	kitchensvc "venue-pos/internal/microservices/kitchen/service"
	"venue-pos/internal/microservices/messaging"
	"venue-pos/internal/microservices/notificator"
	notifsvc "venue-pos/internal/microservices/notificator/service"
	"venue-pos/internal/microservices/reservations"
	"venue-pos/internal/microservices/waiter"
	"venue-pos/internal/realtime"
)

type Deps struct {
	DB            database.DB
	Kitchen       config.KitchenConfig
	Notifications config.NotificationsConfig
	Lang          string
	Publisher     notifsvc.Publisher
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
}

// PGBuilder builds Postgres-backed feature stores.
func PGBuilder(d Deps) Builder {
	return func(venueID string, alerts realtime.Alerter) Features {
		center := notificator.NewCenter(venueID, d.DB, notifsvc.Options{
			Cap:       d.Notifications.Cap,
			Lang:      d.Lang,
			Publisher: d.Publisher,
			Metrics:   d.Metrics,
			Logger:    d.Logger,
		})
		if venueID == domain.AllVenues {
			return Features{Notifications: center}
		}
		return Features{
			Kitchen: kitchen.NewBoard(venueID, d.DB, kitchensvc.Options{
				BellWindow: d.Kitchen.BellWindow,
				Alerts:     alerts,
				Logger:     d.Logger,
			}),
			Waiter:        waiter.NewBoard(venueID, d.DB, alerts, d.Logger),
			Inbox:         messaging.NewInbox(venueID, d.DB, alerts, d.Logger),
			Reservations:  reservations.NewBook(venueID, d.DB, alerts, d.Logger),
			Floor:         floor.NewFloor(venueID, d.DB, d.Logger),
			Notifications: center,
		}
	}
}
