package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	httpapi "venue-pos/internal/api"
	"venue-pos/internal/changefeed"
	"venue-pos/internal/common/httpx"
	"venue-pos/internal/common/logger"
	"venue-pos/internal/config"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/connections/rabbitmq"
	"venue-pos/internal/connections/redisconn"
	"venue-pos/internal/locale"
	"venue-pos/internal/metrics"
	notifsvc "venue-pos/internal/microservices/notificator/service"
	"venue-pos/internal/microservices/order"
	"venue-pos/internal/microservices/reports"
	"venue-pos/internal/microservices/staffauth"
	"venue-pos/internal/realtime"
	"venue-pos/internal/session"
	"venue-pos/internal/transport/ws"
	"venue-pos/internal/workspace"
)

const (
	deviceTTL     = 30 * 24 * time.Hour
	membershipTTL = time.Minute
)

// Run serves the staff API and websocket hub until ctx ends.
func Run(ctx context.Context, cfg *config.Config, port int) error {
	lg := logger.New("api-server")
	m := metrics.New()

	pool, err := database.ConnectDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	var broker *rabbitmq.Client
	if cfg.Feed.Driver == config.FeedAMQP || cfg.Notifications.Publish {
		broker, err = rabbitmq.DialContext(ctx, cfg.RabbitMQ)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer broker.Close()
	}

	rdb := redisconn.Connect(ctx, cfg.Redis)
	var sessions session.Store = session.NewMemoryStore()
	if rdb != nil {
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, deviceTTL)
	} else {
		lg.Warn("redis_unavailable", map[string]any{"addr": cfg.Redis.Addr, "fallback": "memory"})
	}

	var feed changefeed.Feed
	switch cfg.Feed.Driver {
	case config.FeedAMQP:
		feed = changefeed.NewAMQPFeed(broker, lg)
	default:
		feed = changefeed.NewPGFeed(ctx, changefeed.NewPGListener(cfg.Database, cfg.Feed.Channel, lg), lg)
	}

	var publisher notifsvc.Publisher
	if cfg.Notifications.Publish {
		publisher = notifsvc.NewFanoutPublisher(broker)
	}

	manager := workspace.NewManager(ctx, workspace.Options{
		Feed: feed,
		Supervisor: changefeed.SupervisorOptions{
			InitialInterval: cfg.Feed.ReconnectInitial,
			MaxInterval:     cfg.Feed.ReconnectMax,
		},
		Scoper: realtime.NewMembershipScoper(realtime.PGParentLookup(pool), membershipTTL),
		Build: workspace.PGBuilder(workspace.Deps{
			DB:            pool,
			Kitchen:       cfg.Kitchen,
			Notifications: cfg.Notifications,
			Lang:          cfg.Locale.Default,
			Publisher:     publisher,
			Metrics:       m,
			Logger:        lg,
		}),
		Metrics: m,
		Logger:  lg,
	})
	defer manager.Close()

	hub := ws.NewHub(manager, ws.Options{Metrics: m, Logger: lg})
	defer hub.Close()

	var geo locale.Geolocator
	if cfg.Locale.GeoURL != "" {
		geo = locale.HTTPGeolocator{Base: cfg.Locale.GeoURL, Client: &http.Client{Timeout: cfg.Locale.GeoTimeout}}
	}

	deps := httpapi.Deps{
		Config:     cfg,
		Database:   pool,
		Redis:      rdb,
		Workspaces: manager,
		Hub:        hub,
		Kiosks:     staffauth.NewKiosks(pool, cfg.Auth, lg),
		Orders:     order.New(pool, lg),
		Reports:    reports.New(pool),
		Resolver: locale.NewResolver(sessions, geo, locale.ResolverOptions{
			Default:    cfg.Locale.Default,
			GeoTimeout: cfg.Locale.GeoTimeout,
			GeoTTL:     cfg.Locale.GeoCacheTTL,
			Logger:     lg,
		}),
		Sessions: sessions,
		Metrics:  m,
		Logger:   lg,
	}
	if broker != nil {
		deps.Broker = httpapi.PingFunc(func(context.Context) error { return broker.Ping() })
	}

	gin.SetMode(gin.ReleaseMode)
	router, closePins, err := httpapi.NewRouter(deps)
	if err != nil {
		return err
	}
	defer closePins()

	lg.Info("api_listening", map[string]any{"port": port, "feed": cfg.Feed.Driver})
	return httpx.New(":"+strconv.Itoa(port), router).Run(ctx)
}
