package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/common/httpx"
	"venue-pos/internal/domain"
	dto "venue-pos/internal/microservices/order/domain/dto"
	"venue-pos/internal/microservices/order/receipt"
	"venue-pos/internal/microservices/order/service"
)

type fakeService struct {
	got   dto.CreateOrderRequest
	staff string
}

func (f *fakeService) CreateOrder(_ context.Context, venueID, staffID string, req dto.CreateOrderRequest) (dto.CreateOrderResponse, error) {
	f.got, f.staff = req, staffID
	return dto.CreateOrderResponse{OrderID: "o1", OrderNumber: "ORD_20260301_001", Status: "pending", Total: decimal.NewFromInt(10)}, nil
}

func (f *fakeService) UpdateStatus(_ context.Context, _, orderID string, target domain.OrderStatus, _ string) (domain.Order, error) {
	if target == domain.OrderServed {
		return domain.Order{}, domain.ErrInvalidTransition
	}
	return domain.Order{ID: orderID, Status: target}, nil
}

func (f *fakeService) Receipt(_ context.Context, _, orderID string) (receipt.Receipt, error) {
	if orderID != "o1" {
		return receipt.Receipt{}, domain.ErrNotFound
	}
	return receipt.Receipt{Order: domain.Order{OrderNumber: "ORD_20260301_001"}}, nil
}

func router(svc service.OrderServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/venues/:venue", func(c *gin.Context) { c.Set(httpx.StaffKey, "staff-1") })
	h := &Handler{OrderHandler: NewOrderHandler(svc)}
	h.Register(g)
	return r
}

func TestAddOrder(t *testing.T) {
	svc := &fakeService{}
	body := `{"customer_name":"Ana","order_type":"takeout","items":[{"name":"Tea","quantity":2,"unit_price":"1.50"}]}`
	w := httptest.NewRecorder()
	router(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/venues/v1/orders", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ORD_20260301_001", resp.OrderNumber)
	assert.Equal(t, "staff-1", svc.staff)
	assert.True(t, svc.got.Items[0].UnitPrice.Equal(decimal.RequireFromString("1.5")))
}

func TestAddOrderRejectsBadBody(t *testing.T) {
	w := httptest.NewRecorder()
	router(&fakeService{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/venues/v1/orders",
		strings.NewReader(`{"customer_name":"Ana","order_type":"boat","items":[]}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"invalid_body"`)
}

func TestUpdateStatusConflict(t *testing.T) {
	w := httptest.NewRecorder()
	router(&fakeService{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/venues/v1/orders/o1/status",
		strings.NewReader(`{"status":"served"}`)))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_transition")
}

func TestReceipt(t *testing.T) {
	w := httptest.NewRecorder()
	router(&fakeService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/venues/v1/orders/o1/receipt?variant=kitchen", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "ORD_20260301_001")

	w = httptest.NewRecorder()
	router(&fakeService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/venues/v1/orders/o2/receipt", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router(&fakeService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/venues/v1/orders/o1/receipt?variant=poster", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
