package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"venue-pos/internal/common/httpx"
	"venue-pos/internal/domain"
	authsvc "venue-pos/internal/microservices/staffauth/service"
)

const claimsKey = "claims"

var managers = []domain.Role{domain.RoleOwner, domain.RoleManager}

func (a *API) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := map[string]any{
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if staff := httpx.StaffID(c); staff != "" {
			fields["staff_id"] = staff
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.Last().Error()
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			a.log.Warn("http_request", fields)
			return
		}
		a.log.Debug("http_request", fields)
	}
}

func (a *API) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		a.log.Error("http_panic", fmt.Errorf("%v", rec), map[string]any{"route": c.FullPath()})
		httpx.Problem(c, http.StatusInternalServerError, "internal", "internal error")
	})
}

// rateLimit keys on client IP. Counters live in Redis when it is available so
// every api-server instance shares them.
func (a *API) rateLimit() (gin.HandlerFunc, error) {
	formatted := a.deps.Config.HTTP.RateLimit
	if formatted == "" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w", formatted, err)
	}
	store := memory.NewStore()
	if a.deps.Redis != nil {
		store, err = sredis.NewStoreWithOptions(a.deps.Redis, limiter.StoreOptions{Prefix: "venue_pos_limiter"})
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
	}
	return mgin.NewMiddleware(limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			httpx.Problem(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			a.log.Error("rate_limit_store_failed", err, nil)
			httpx.Problem(c, http.StatusServiceUnavailable, "unavailable", "rate limiter unavailable")
		}),
	), nil
}

func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return c.Query("token")
}

func (a *API) authenticate(c *gin.Context) {
	raw := bearer(c)
	if raw == "" {
		httpx.Problem(c, http.StatusUnauthorized, "unauthorized", "missing token")
		return
	}
	claims, err := a.deps.Kiosks.Tokens().Parse(raw)
	if err != nil {
		authError(c, err)
		return
	}
	c.Set(claimsKey, claims)
	c.Set(httpx.StaffKey, claims.Subject)
	c.Set(httpx.RoleKey, string(claims.Role))
	c.Set(httpx.VenueKey, claims.VenueID)
	c.Next()
}

// venueScope keeps staff inside the venue their token was issued for.
func (a *API) venueScope(c *gin.Context) {
	if c.Param("venue") != c.GetString(httpx.VenueKey) {
		httpx.Error(c, domain.ErrVenueMismatch)
		return
	}
	c.Next()
}

func requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, domain.Role(c.GetString(httpx.RoleKey))) {
			httpx.Problem(c, http.StatusForbidden, "forbidden", "role not allowed")
			return
		}
		c.Next()
	}
}

// authError maps kiosk and token failures; anything else goes through httpx.Error.
func authError(c *gin.Context, err error) {
	detail := err.Error()
	var le *authsvc.LocalizedError
	if errors.As(err, &le) {
		detail = le.Message
	}
	switch {
	case errors.Is(err, authsvc.ErrInvalidPIN):
		httpx.Problem(c, http.StatusUnauthorized, "invalid_pin", detail)
	case errors.Is(err, authsvc.ErrInvalidToken):
		httpx.Problem(c, http.StatusUnauthorized, "invalid_token", detail)
	case errors.Is(err, authsvc.ErrUnknownVenueCode):
		httpx.Problem(c, http.StatusNotFound, "unknown_venue_code", detail)
	case errors.Is(err, authsvc.ErrUnknownStaff):
		httpx.Problem(c, http.StatusNotFound, "unknown_staff", detail)
	case errors.Is(err, authsvc.ErrKioskNotFound):
		httpx.Problem(c, http.StatusNotFound, "kiosk_not_found", detail)
	case errors.Is(err, authsvc.ErrWrongState):
		httpx.Problem(c, http.StatusConflict, "wrong_state", detail)
	case errors.Is(err, authsvc.ErrInvalidDigit):
		httpx.Problem(c, http.StatusBadRequest, "invalid_digit", detail)
	default:
		httpx.Error(c, err)
	}
}
