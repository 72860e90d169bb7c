// Package api is the HTTP surface of the api-server mode.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/config"
	"venue-pos/internal/locale"
	"venue-pos/internal/metrics"
	orderhandlers "venue-pos/internal/microservices/order/handlers"
	reporthandlers "venue-pos/internal/microservices/reports/handler"
	authsvc "venue-pos/internal/microservices/staffauth/service"
	"venue-pos/internal/session"
	"venue-pos/internal/transport/ws"
)

// Pinger is anything readiness can ping: the pgx pool, the broker client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Deps struct {
	Config     *config.Config
	Database   Pinger
	Broker     Pinger
	Redis      *redis.Client
	Workspaces ws.Workspaces
	Hub        *ws.Hub
	Kiosks     *authsvc.Kiosks
	Orders     *orderhandlers.Handler
	Reports    *reporthandlers.Handler
	Resolver   *locale.Resolver
	Sessions   session.Store
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
	// PinTTL is how long an idle venue workspace stays warm after its last request.
	PinTTL time.Duration
}

type API struct {
	deps Deps
	log  *logger.Logger
	pins *pins
}

// NewRouter builds the gin engine and returns it with a close func that
// releases pinned workspaces.
func NewRouter(d Deps) (*gin.Engine, func(), error) {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.PinTTL <= 0 {
		d.PinTTL = 5 * time.Minute
	}
	a := &API{deps: d, log: d.Logger, pins: newPins(d.Workspaces, d.PinTTL)}

	r := gin.New()
	r.Use(a.recovery(), a.accessLog())

	a.mountHealth(r)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	limit, err := a.rateLimit()
	if err != nil {
		return nil, nil, err
	}
	if limit != nil {
		v1.Use(limit)
	}

	kiosk := v1.Group("/kiosk")
	kiosk.POST("", a.startKiosk)
	kiosk.GET("/:id", a.getKiosk)
	kiosk.POST("/:id/code", a.submitCode)
	kiosk.POST("/:id/staff", a.selectStaff)
	kiosk.POST("/:id/digit", a.enterDigit)
	kiosk.POST("/:id/back", a.kioskBack)

	v1.GET("/locale", a.resolveLocale)
	device := v1.Group("/device/:id")
	device.GET("", a.deviceState)
	device.PUT("/venue", a.setDeviceVenue)
	device.PUT("/locale", a.setDeviceLocale)
	device.PUT("/flags/:flag", a.setDeviceFlag)

	authed := v1.Group("", a.authenticate)
	authed.GET("/notifications", requireRole(managers...), a.allNotifications)

	venue := authed.Group("/venues/:venue", a.venueScope)
	if d.Orders != nil {
		d.Orders.Register(venue)
	}
	if d.Reports != nil {
		d.Reports.Register(venue.Group("", requireRole(managers...)))
	}

	live := venue.Group("", a.withWorkspace)
	live.GET("/kitchen", a.kitchenView)
	live.POST("/kitchen/orders/:id/:step", a.kitchenStep)

	live.GET("/waiter-calls", a.waiterCalls)
	live.POST("/waiter-calls/:id/ack", a.waiterCallAction(actionAck))
	live.POST("/waiter-calls/:id/complete", a.waiterCallAction(actionComplete))
	live.POST("/waiter-calls/:id/dismiss", a.waiterCallAction(actionDismiss))

	live.GET("/conversations", a.conversations)
	live.GET("/conversations/:id/messages", a.thread)
	live.POST("/conversations/:id/messages", a.sendMessage)
	live.POST("/conversations/:id/read", a.markConversationRead)

	live.GET("/reservations", a.reservations)
	live.POST("/reservations/:id/status", a.reservationStatus)

	live.GET("/tables", a.tables)
	live.POST("/tables/:id/status", a.tableStatus)
	live.POST("/tables/:id/clear", a.clearTable)
	live.GET("/tables/:id/link", a.tableLink)
	live.GET("/checkins", a.checkIns)
	live.GET("/stock", a.stock)
	live.GET("/stock/alerts", a.stockAlerts)

	live.GET("/notifications", a.notifications)
	live.POST("/notifications/read-all", a.markAllNotificationsRead)
	live.POST("/notifications/:id/read", a.markNotificationRead)
	live.PUT("/notifications/panel", a.notificationPanel)
	live.DELETE("/notifications", a.clearNotifications)

	// Browsers cannot set headers on a websocket upgrade, so the token may come as ?token=.
	r.GET("/ws", a.authenticate, a.serveWS)

	return r, a.pins.close, nil
}
