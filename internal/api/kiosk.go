package api

import (
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"venue-pos/internal/common/httpx"
	"venue-pos/internal/locale"
	authsvc "venue-pos/internal/microservices/staffauth/service"
)

type codeRequest struct {
	Code string `json:"code" binding:"required"`
}

type staffRequest struct {
	StaffID string `json:"staff_id" binding:"required"`
}

type digitRequest struct {
	Digit string `json:"digit" binding:"required"`
}

type digitResponse struct {
	Kiosk  authsvc.KioskView `json:"kiosk"`
	Result *authsvc.Result   `json:"result,omitempty"`
}

func (a *API) requestLocale(c *gin.Context) locale.Resolution {
	return a.deps.Resolver.Resolve(c.Request.Context(), locale.Request{
		DeviceID:       c.GetHeader("X-Device-ID"),
		AcceptLanguage: c.GetHeader("Accept-Language"),
		IP:             c.ClientIP(),
	})
}

func (a *API) kiosk(c *gin.Context) (*authsvc.Kiosk, bool) {
	k, err := a.deps.Kiosks.Get(c.Param("id"))
	if err != nil {
		authError(c, err)
		return nil, false
	}
	return k, true
}

// startKiosk handles POST /api/v1/kiosk.
func (a *API) startKiosk(c *gin.Context) {
	k, err := a.deps.Kiosks.Start(c.Request.Context(), a.requestLocale(c).Locale.Code)
	if err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusCreated, k.View())
}

func (a *API) getKiosk(c *gin.Context) {
	if k, ok := a.kiosk(c); ok {
		c.JSON(http.StatusOK, k.View())
	}
}

func (a *API) submitCode(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	k, ok := a.kiosk(c)
	if !ok {
		return
	}
	if err := k.SubmitCode(c.Request.Context(), req.Code); err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, k.View())
}

func (a *API) selectStaff(c *gin.Context) {
	var req staffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	k, ok := a.kiosk(c)
	if !ok {
		return
	}
	if err := k.SelectStaff(c.Request.Context(), req.StaffID); err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, k.View())
}

// enterDigit takes one keypad press. The response carries the token once the
// last digit verifies.
func (a *API) enterDigit(c *gin.Context) {
	var req digitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if utf8.RuneCountInString(req.Digit) != 1 {
		httpx.Problem(c, http.StatusBadRequest, "invalid_digit", "send one digit per request")
		return
	}
	k, ok := a.kiosk(c)
	if !ok {
		return
	}
	d, _ := utf8.DecodeRuneInString(req.Digit)
	res, err := k.EnterDigit(c.Request.Context(), d)
	if err != nil {
		authError(c, err)
		return
	}
	if res != nil {
		a.log.Info("staff_logged_in", map[string]any{"staff_id": res.Staff.ID, "venue_id": res.Staff.VenueID, "kiosk_id": k.ID()})
	}
	c.JSON(http.StatusOK, digitResponse{Kiosk: k.View(), Result: res})
}

func (a *API) kioskBack(c *gin.Context) {
	k, ok := a.kiosk(c)
	if !ok {
		return
	}
	if err := k.Back(c.Request.Context()); err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, k.View())
}
