package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"venue-pos/internal/domain"
)

// Context keys set by the auth middleware.
const (
	StaffKey = "staff_id"
	RoleKey  = "staff_role"
	VenueKey = "venue_id"
)

// Problem writes a simplified RFC 7807 body and aborts the chain.
func Problem(c *gin.Context, code int, typ, detail string) {
	c.AbortWithStatusJSON(code, gin.H{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

// Error maps domain sentinels to a status and writes the problem body.
func Error(c *gin.Context, err error) {
	code, typ := StatusOf(err)
	detail := err.Error()
	if code == http.StatusInternalServerError {
		detail = "internal error"
	}
	_ = c.Error(err)
	Problem(c, code, typ, detail)
}

func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrVenueMismatch):
		return http.StatusForbidden, "venue_mismatch"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return 499, "canceled"
	}
	return http.StatusInternalServerError, "internal"
}

func StaffID(c *gin.Context) string { return c.GetString(StaffKey) }

// AtoiDefault parses s, returning d when s is empty or malformed.
func AtoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
