package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"venue-pos/internal/microservices/reports/models"
	"venue-pos/internal/microservices/reports/service"
)

type fakeService struct{ from, to time.Time }

func (f *fakeService) SalesRows(_ context.Context, _ string, from, to time.Time) ([]models.SalesRow, error) {
	f.from, f.to = from, to
	return []models.SalesRow{{OrderNumber: "ORD_1", CustomerName: "Doe, Jane", Status: "completed"}}, nil
}

func (f *fakeService) OrderTimeline(context.Context, string, string, int, int) ([]models.TimelineEvent, error) {
	return []models.TimelineEvent{{Status: "pending"}}, nil
}

var _ service.ReportsServiceInterface = (*fakeService)(nil)

func serve(svc service.ReportsServiceInterface, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(svc).Register(r.Group("/venues/:venue"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestSalesCSV(t *testing.T) {
	svc := &fakeService{}
	w := serve(svc, "/venues/v1/reports/sales.csv?from=2026-03-01&to=2026-03-07")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sales-2026-03-01-2026-03-07.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"Doe, Jane"`)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), svc.to)
}

func TestSalesCSVBadDate(t *testing.T) {
	w := serve(&fakeService{}, "/venues/v1/reports/sales.csv?from=03/01/2026")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimeline(t *testing.T) {
	w := serve(&fakeService{}, "/venues/v1/orders/o1/timeline")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"order_id":"o1"`)
}
