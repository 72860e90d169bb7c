package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"venue-pos/internal/common/httpx"
	"venue-pos/internal/domain"
	floorsvc "venue-pos/internal/microservices/floor/service"
	kitchensvc "venue-pos/internal/microservices/kitchen/service"
	"venue-pos/internal/workspace"
)

type waiterAction int

const (
	actionAck waiterAction = iota
	actionComplete
	actionDismiss
)

type messageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type reservationStatusRequest struct {
	Status  domain.ReservationStatus `json:"status" binding:"required"`
	TableID string                   `json:"table_id"`
}

type tableStatusRequest struct {
	Status  domain.TableStatus `json:"status" binding:"required"`
	OrderID string             `json:"order_id"`
}

type panelRequest struct {
	Open bool `json:"open"`
}

func unavailable(c *gin.Context, feature string) {
	httpx.Problem(c, http.StatusNotFound, "feature_unavailable", feature+" is not available for this venue")
}

// features returns the workspace of the request, aborting when the store is missing.
func features(c *gin.Context, name string, present func(workspace.Features) bool) (*workspace.Workspace, bool) {
	w := space(c)
	if !present(w.Features) {
		unavailable(c, name)
		return nil, false
	}
	return w, true
}

func hasKitchen(f workspace.Features) bool       { return f.Kitchen != nil }
func hasWaiter(f workspace.Features) bool        { return f.Waiter != nil }
func hasInbox(f workspace.Features) bool         { return f.Inbox != nil }
func hasReservations(f workspace.Features) bool  { return f.Reservations != nil }
func hasFloor(f workspace.Features) bool         { return f.Floor != nil }
func hasNotifications(f workspace.Features) bool { return f.Notifications != nil }

func (a *API) kitchenView(c *gin.Context) {
	if w, ok := features(c, "kitchen", hasKitchen); ok {
		c.JSON(http.StatusOK, w.Kitchen.View(time.Now()))
	}
}

// kitchenSteps maps the ticket buttons of the kitchen display to board transitions.
var kitchenSteps = map[string]func(*kitchensvc.Board, context.Context, string, string) (domain.Order, error){
	"confirm":  (*kitchensvc.Board).Confirm,
	"start":    (*kitchensvc.Board).StartPreparing,
	"ready":    (*kitchensvc.Board).MarkReady,
	"served":   (*kitchensvc.Board).MarkServed,
	"complete": (*kitchensvc.Board).Complete,
	"cancel":   (*kitchensvc.Board).Cancel,
}

func (a *API) kitchenStep(c *gin.Context) {
	step, known := kitchenSteps[c.Param("step")]
	if !known {
		httpx.Problem(c, http.StatusBadRequest, "unknown_step", "no kitchen step "+c.Param("step"))
		return
	}
	w, ok := features(c, "kitchen", hasKitchen)
	if !ok {
		return
	}
	o, err := step(w.Kitchen, c.Request.Context(), c.Param("id"), httpx.StaffID(c))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (a *API) waiterCalls(c *gin.Context) {
	w, ok := features(c, "waiter", hasWaiter)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pending":     w.Waiter.Pending(),
		"in_progress": w.Waiter.InProgress(),
		"stats":       w.Waiter.Stats(),
	})
}

func (a *API) waiterCallAction(action waiterAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, ok := features(c, "waiter", hasWaiter)
		if !ok {
			return
		}
		ctx, id, staff := c.Request.Context(), c.Param("id"), httpx.StaffID(c)
		var (
			call domain.WaiterCall
			err  error
		)
		switch action {
		case actionAck:
			call, err = w.Waiter.Acknowledge(ctx, id, staff)
		case actionComplete:
			call, err = w.Waiter.Complete(ctx, id, staff)
		case actionDismiss:
			call, err = w.Waiter.Dismiss(ctx, id, staff)
		}
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, call)
	}
}

func (a *API) conversations(c *gin.Context) {
	w, ok := features(c, "messaging", hasInbox)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": w.Inbox.Conversations(),
		"unread_total":  w.Inbox.UnreadTotal(),
	})
}

func (a *API) thread(c *gin.Context) {
	w, ok := features(c, "messaging", hasInbox)
	if !ok {
		return
	}
	msgs, err := w.Inbox.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (a *API) sendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	w, ok := features(c, "messaging", hasInbox)
	if !ok {
		return
	}
	msg, err := w.Inbox.Send(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (a *API) markConversationRead(c *gin.Context) {
	w, ok := features(c, "messaging", hasInbox)
	if !ok {
		return
	}
	if err := w.Inbox.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// reservations lists today onward; ?active=true keeps only open reservations.
func (a *API) reservations(c *gin.Context) {
	w, ok := features(c, "reservations", hasReservations)
	if !ok {
		return
	}
	list := w.Reservations.List()
	if c.Query("active") == "true" {
		list = w.Reservations.Active()
	}
	c.JSON(http.StatusOK, gin.H{"reservations": list, "stats": w.Reservations.Stats()})
}

// reservationStatus moves a reservation; seating with a table_id also occupies the table.
func (a *API) reservationStatus(c *gin.Context) {
	var req reservationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	w, ok := features(c, "reservations", hasReservations)
	if !ok {
		return
	}
	ctx, id := c.Request.Context(), c.Param("id")
	var (
		res domain.Reservation
		err error
	)
	if req.Status == domain.ReservationSeated && req.TableID != "" {
		res, err = w.Reservations.Seat(ctx, id, req.TableID)
	} else {
		res, err = w.Reservations.Transition(ctx, id, req.Status)
	}
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) tables(c *gin.Context) {
	if w, ok := features(c, "floor", hasFloor); ok {
		c.JSON(http.StatusOK, w.Floor.Tables())
	}
}

func (a *API) tableStatus(c *gin.Context) {
	var req tableStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if !req.Status.Valid() {
		httpx.Error(c, fmt.Errorf("%w: unknown table status %q", domain.ErrValidation, req.Status))
		return
	}
	w, ok := features(c, "floor", hasFloor)
	if !ok {
		return
	}
	ctx, id := c.Request.Context(), c.Param("id")
	var (
		t   domain.Table
		err error
	)
	switch {
	case req.Status == domain.TableOccupied && req.OrderID != "":
		t, err = w.Floor.AssignOrder(ctx, id, req.OrderID)
	case req.Status == domain.TableAvailable:
		t, err = w.Floor.Clear(ctx, id)
	default:
		t, err = w.Floor.SetStatus(ctx, id, req.Status)
	}
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (a *API) clearTable(c *gin.Context) {
	w, ok := features(c, "floor", hasFloor)
	if !ok {
		return
	}
	t, err := w.Floor.Clear(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// tableLink returns the QR deep link of a table's customer menu.
func (a *API) tableLink(c *gin.Context) {
	w, ok := features(c, "floor", hasFloor)
	if !ok {
		return
	}
	t, found := w.Floor.Table(c.Param("id"))
	if !found {
		httpx.Error(c, domain.ErrNotFound)
		return
	}
	link, err := floorsvc.MenuLink(a.deps.Config.HTTP.MenuBaseURL, t.Number)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table_id": t.ID, "number": t.Number, "url": link})
}

func (a *API) checkIns(c *gin.Context) {
	if w, ok := features(c, "floor", hasFloor); ok {
		c.JSON(http.StatusOK, w.Floor.Visible())
	}
}

func (a *API) stock(c *gin.Context) {
	if w, ok := features(c, "floor", hasFloor); ok {
		c.JSON(http.StatusOK, w.Floor.Stock())
	}
}

func (a *API) stockAlerts(c *gin.Context) {
	if w, ok := features(c, "floor", hasFloor); ok {
		c.JSON(http.StatusOK, w.Floor.Alerts())
	}
}

func notificationBody(w *workspace.Workspace) gin.H {
	n := w.Notifications
	return gin.H{"notifications": n.List(), "unread": n.UnreadCount(), "open": n.IsOpen()}
}

func (a *API) notifications(c *gin.Context) {
	if w, ok := features(c, "notifications", hasNotifications); ok {
		c.JSON(http.StatusOK, notificationBody(w))
	}
}

func (a *API) markAllNotificationsRead(c *gin.Context) {
	if w, ok := features(c, "notifications", hasNotifications); ok {
		w.Notifications.MarkAllAsRead()
		c.JSON(http.StatusOK, notificationBody(w))
	}
}

func (a *API) markNotificationRead(c *gin.Context) {
	w, ok := features(c, "notifications", hasNotifications)
	if !ok {
		return
	}
	if !w.Notifications.MarkAsRead(c.Param("id")) {
		httpx.Error(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, notificationBody(w))
}

func (a *API) notificationPanel(c *gin.Context) {
	var req panelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	w, ok := features(c, "notifications", hasNotifications)
	if !ok {
		return
	}
	if req.Open {
		w.Notifications.Open()
	} else {
		w.Notifications.Close()
	}
	c.JSON(http.StatusOK, notificationBody(w))
}

func (a *API) clearNotifications(c *gin.Context) {
	if w, ok := features(c, "notifications", hasNotifications); ok {
		w.Notifications.ClearAll()
		c.Status(http.StatusNoContent)
	}
}
