package api

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"venue-pos/internal/common/httpx"
	"venue-pos/internal/domain"
	"venue-pos/internal/locale"
	"venue-pos/internal/session"
)

var knownFlags = []string{session.FlagSidebarCollapsed, session.FlagNotificationsPanel, session.FlagSoundMuted}

type deviceVenueRequest struct {
	VenueID string `json:"venue_id" binding:"required"`
}

type deviceLocaleRequest struct {
	Locale string `json:"locale" binding:"required"`
}

type deviceFlagRequest struct {
	On bool `json:"on"`
}

// allNotifications serves the owner's cross-venue notification feed.
func (a *API) allNotifications(c *gin.Context) {
	w, release, err := a.pins.acquire(c.Request.Context(), domain.AllVenues)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	defer release()
	if w.Notifications == nil {
		unavailable(c, "notifications")
		return
	}
	c.JSON(http.StatusOK, notificationBody(w))
}

func (a *API) resolveLocale(c *gin.Context) {
	c.JSON(http.StatusOK, a.requestLocale(c))
}

func (a *API) deviceState(c *gin.Context) {
	st, err := a.deps.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a *API) setDeviceVenue(c *gin.Context) {
	var req deviceVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := a.deps.Sessions.SetVenue(c.Request.Context(), c.Param("id"), req.VenueID); err != nil {
		httpx.Error(c, err)
		return
	}
	a.deviceState(c)
}

func (a *API) setDeviceLocale(c *gin.Context) {
	var req deviceLocaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if _, ok := locale.Lookup(req.Locale); !ok {
		httpx.Error(c, fmt.Errorf("%w: unsupported locale %q", domain.ErrValidation, req.Locale))
		return
	}
	if err := a.deps.Sessions.SetLocale(c.Request.Context(), c.Param("id"), req.Locale); err != nil {
		httpx.Error(c, err)
		return
	}
	a.deviceState(c)
}

func (a *API) setDeviceFlag(c *gin.Context) {
	var req deviceFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	flag := c.Param("flag")
	if !slices.Contains(knownFlags, flag) {
		httpx.Error(c, fmt.Errorf("%w: unknown flag %q", domain.ErrValidation, flag))
		return
	}
	if err := a.deps.Sessions.SetFlag(c.Request.Context(), c.Param("id"), flag, req.On); err != nil {
		httpx.Error(c, err)
		return
	}
	a.deviceState(c)
}

// serveWS handles GET /ws?venue=<id>. Staff get their own venue; owners and
// managers may also ask for venue=* to follow every venue's notifications.
func (a *API) serveWS(c *gin.Context) {
	venueID := c.DefaultQuery("venue", c.GetString(httpx.VenueKey))
	switch {
	case venueID == domain.AllVenues:
		if !slices.Contains(managers, domain.Role(c.GetString(httpx.RoleKey))) {
			httpx.Problem(c, http.StatusForbidden, "forbidden", "role not allowed")
			return
		}
	case venueID != c.GetString(httpx.VenueKey):
		httpx.Error(c, domain.ErrVenueMismatch)
		return
	}
	a.deps.Hub.ServeWS(c.Writer, c.Request, venueID)
}
