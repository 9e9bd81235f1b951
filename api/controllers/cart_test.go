package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rahulmehra/shopkart-backend/api/middleware"
	"github.com/rahulmehra/shopkart-backend/internal/cart"
)

type stubCartService struct {
	quote *cart.Quote
	err   error
	got   cart.QuoteInput
	calls int
}

func (s *stubCartService) Quote(ctx context.Context, input cart.QuoteInput) (*cart.Quote, error) {
	s.calls++
	s.got = input
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

func TestCartQuoteRejectsMalformedBody(t *testing.T) {
	svc := &stubCartService{}
	handler := CartQuote(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/quote", strings.NewReader(`{"pincode":"560001"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	require.Zero(t, svc.calls)
}

func TestCartQuotePassesUserFromHeader(t *testing.T) {
	userID := uuid.New()
	variantID := uuid.New()
	svc := &stubCartService{quote: &cart.Quote{TotalPaise: 19900, DisplayTotal: "199.00"}}

	handler := middleware.UserContext(nil)(CartQuote(svc, nil))

	body := `{"pincode":"560001","coupon_code":"diwali10","items":[{"variant_id":"` + variantID.String() + `","quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/quote", strings.NewReader(body))
	req.Header.Set("X-User-Id", userID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.calls)
	require.NotNil(t, svc.got.UserID)
	require.Equal(t, userID, *svc.got.UserID)
	require.Equal(t, "560001", svc.got.Pincode)
	require.Len(t, svc.got.Items, 1)
	require.Equal(t, 2, svc.got.Items[0].Quantity)
	require.Contains(t, rec.Body.String(), `"display_total":"199.00"`)
}

func TestCartQuoteGuestHasNoUser(t *testing.T) {
	variantID := uuid.New()
	svc := &stubCartService{quote: &cart.Quote{}}
	handler := middleware.UserContext(nil)(CartQuote(svc, nil))

	body := `{"pincode":"560001","items":[{"variant_id":"` + variantID.String() + `","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, svc.got.UserID)
}
