package handler

import (
	"github.com/gin-gonic/gin"

	"venue-pos/internal/microservices/reports/service"
)

type Handler struct {
	ReportsHandler *ReportsHandler
}

func New(svc service.ReportsServiceInterface) *Handler {
	return &Handler{
		ReportsHandler: NewReportsHandler(svc),
	}
}

// Register mounts the report routes on a venue-scoped group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/reports/sales.csv", h.ReportsHandler.SalesCSV)
	g.GET("/orders/:id/timeline", h.ReportsHandler.GetTimeline)
}
