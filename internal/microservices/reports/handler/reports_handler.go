package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"venue-pos/internal/common/httpx"
	"venue-pos/internal/domain"
	"venue-pos/internal/microservices/reports/service"
)

const dateLayout = "2006-01-02"

type ReportsHandler struct {
	service service.ReportsServiceInterface
	now     func() time.Time
}

func NewReportsHandler(svc service.ReportsServiceInterface) *ReportsHandler {
	return &ReportsHandler{service: svc, now: time.Now}
}

// SalesCSV handles GET reports/sales.csv?from=YYYY-MM-DD&to=YYYY-MM-DD; both
// days are inclusive and default to today.
func (h *ReportsHandler) SalesCSV(c *gin.Context) {
	today := h.now().UTC().Format(dateLayout)
	from, err := time.Parse(dateLayout, c.DefaultQuery("from", today))
	if err != nil {
		httpx.Error(c, fmt.Errorf("%w: from: %v", domain.ErrValidation, err))
		return
	}
	to, err := time.Parse(dateLayout, c.DefaultQuery("to", today))
	if err != nil {
		httpx.Error(c, fmt.Errorf("%w: to: %v", domain.ErrValidation, err))
		return
	}

	venueID := c.Param("venue")
	rows, err := h.service.SalesRows(c.Request.Context(), venueID, from, to.AddDate(0, 0, 1))
	if err != nil {
		httpx.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="sales-%s-%s.csv"`,
		from.Format(dateLayout), to.Format(dateLayout)))
	c.Status(http.StatusOK)
	if err := service.WriteCSV(c.Writer, service.SalesColumns, service.SalesRecords(rows, time.UTC)); err != nil {
		_ = c.Error(err)
	}
}

func (h *ReportsHandler) GetTimeline(c *gin.Context) {
	id := c.Param("id")
	limit := httpx.AtoiDefault(c.Query("limit"), 50)
	offset := httpx.AtoiDefault(c.Query("offset"), 0)
	events, err := h.service.OrderTimeline(c.Request.Context(), c.Param("venue"), id, limit, offset)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "events": events})
}
