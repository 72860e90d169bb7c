package handlers

import (
	"github.com/gin-gonic/gin"

	"venue-pos/internal/microservices/order/service"
)

type Handler struct {
	OrderHandler *OrderHandler
}

func New(s *service.Service) *Handler {
	return &Handler{
		OrderHandler: NewOrderHandler(s.OrderService),
	}
}

// Register mounts the order routes on a venue-scoped group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/orders", h.OrderHandler.AddOrder)
	g.POST("/orders/:id/status", h.OrderHandler.UpdateStatus)
	g.GET("/orders/:id/receipt", h.OrderHandler.Receipt)
}
