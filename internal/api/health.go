package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
)

const pingTimeout = 2 * time.Second

func pingCheck(p Pinger) healthcheck.Check {
	return healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		return p.Ping(ctx)
	}, pingTimeout+time.Second)
}

func (a *API) mountHealth(r *gin.Engine) {
	var h healthcheck.Handler
	if reg := a.deps.Metrics.Registry(); reg != nil {
		h = healthcheck.NewMetricsHandler(reg, "venue_pos")
	} else {
		h = healthcheck.NewHandler()
	}
	h.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(20000))
	if a.deps.Database != nil {
		h.AddReadinessCheck("database", pingCheck(a.deps.Database))
	}
	if a.deps.Broker != nil {
		h.AddReadinessCheck("rabbitmq", pingCheck(a.deps.Broker))
	}
	if rdb := a.deps.Redis; rdb != nil {
		h.AddReadinessCheck("redis", pingCheck(PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})))
	}
	r.GET("/health/live", gin.WrapF(h.LiveEndpoint))
	r.GET("/health/ready", gin.WrapF(h.ReadyEndpoint))
}
