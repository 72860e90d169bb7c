package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"venue-pos/internal/common/httpx"
	"venue-pos/internal/domain"
	dto "venue-pos/internal/microservices/order/domain/dto"
	"venue-pos/internal/microservices/order/receipt"
	"venue-pos/internal/microservices/order/service"
)

type OrderHandler struct {
	service service.OrderServiceInterface
}

func NewOrderHandler(s service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

// AddOrder handles POST /venues/:venue/orders.
func (oh *OrderHandler) AddOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	resp, err := oh.service.CreateOrder(c.Request.Context(), c.Param("venue"), httpx.StaffID(c), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateStatus handles POST /venues/:venue/orders/:id/status.
func (oh *OrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	o, err := oh.service.UpdateStatus(c.Request.Context(), c.Param("venue"), c.Param("id"),
		domain.OrderStatus(req.Status), httpx.StaffID(c))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Receipt handles GET /venues/:venue/orders/:id/receipt?variant=customer|kitchen.
func (oh *OrderHandler) Receipt(c *gin.Context) {
	variant, err := receipt.ParseVariant(c.Query("variant"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	r, err := oh.service.Receipt(c.Request.Context(), c.Param("venue"), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := receipt.Render(c.Writer, r, variant); err != nil {
		_ = c.Error(err)
	}
}
