package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rahulmehra/shopkart-backend/api/middleware"
	internalorders "github.com/rahulmehra/shopkart-backend/internal/orders"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	"github.com/rahulmehra/shopkart-backend/pkg/enums"
	"github.com/rahulmehra/shopkart-backend/pkg/pagination"
)

type stubOrdersService struct {
	order *models.Order
	err   error

	cancelledID uuid.UUID
	cancelledBy uuid.UUID
	transitions []enums.OrderStatus
}

func (s *stubOrdersService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrdersService) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrdersService) List(ctx context.Context, filter internalorders.ListFilter, params pagination.Params) (*internalorders.Page, error) {
	return &internalorders.Page{}, s.err
}

func (s *stubOrdersService) Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*models.Order, error) {
	s.transitions = append(s.transitions, to)
	return s.order, s.err
}

func (s *stubOrdersService) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	s.cancelledID = id
	s.cancelledBy = userID
	return s.order, s.err
}

func routeWithOrderParam(handler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.UserContext(nil))
	r.Post("/orders/{orderId}/cancel", handler)
	r.Patch("/orders/{orderId}/status", handler)
	r.Get("/orders/{orderId}", handler)
	return r
}

func TestOrderCancelRequiresUser(t *testing.T) {
	svc := &stubOrdersService{}
	router := routeWithOrderParam(OrderCancel(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, uuid.Nil, svc.cancelledID)
}

func TestOrderCancelPassesCallerIdentity(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{order: &models.Order{
		ID:          orderID,
		OrderNumber: 1042,
		Status:      enums.OrderStatusCancelled,
		TotalPaise:  49900,
	}}
	router := routeWithOrderParam(OrderCancel(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil)
	req.Header.Set("X-User-Id", userID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, orderID, svc.cancelledID)
	require.Equal(t, userID, svc.cancelledBy)
	require.Contains(t, rec.Body.String(), `"status":"CANCELLED"`)
	require.Contains(t, rec.Body.String(), `"display_total":"499.00"`)
}

func TestOrderCancelRejectsMalformedID(t *testing.T) {
	svc := &stubOrdersService{}
	router := routeWithOrderParam(OrderCancel(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/orders/not-a-uuid/cancel", nil)
	req.Header.Set("X-User-Id", uuid.NewString())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminOrderTransitionForwardsStatus(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{order: &models.Order{ID: orderID, Status: enums.OrderStatusShipped}}
	router := routeWithOrderParam(AdminOrderTransition(svc, nil))

	req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"SHIPPED"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []enums.OrderStatus{enums.OrderStatusShipped}, svc.transitions)
}

func TestAdminOrderListRejectsUnknownStatusFilter(t *testing.T) {
	svc := &stubOrdersService{}
	handler := AdminOrderList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=SHIPPING", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unknown status filter")
}
