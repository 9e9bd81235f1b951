package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	paymentwebhook "github.com/rahulmehra/shopkart-backend/internal/webhooks/payment"
)

type stubWebhookService struct {
	outcome paymentwebhook.Outcome
	err     error
	calls   int
	last    paymentwebhook.Event
}

func (s *stubWebhookService) Process(ctx context.Context, event paymentwebhook.Event) (paymentwebhook.Outcome, error) {
	s.calls++
	s.last = event
	if s.err != nil {
		return "", s.err
	}
	return s.outcome, nil
}

type stubGuard struct {
	seen    map[string]bool
	deleted []string
}

func (g *stubGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	already := g.seen[eventID]
	g.seen[eventID] = true
	return already, nil
}

func (g *stubGuard) Delete(ctx context.Context, eventID string) error {
	g.deleted = append(g.deleted, eventID)
	delete(g.seen, eventID)
	return nil
}

type stubSecrets struct{ secret string }

func (s stubSecrets) SigningSecret() string { return s.secret }

func signPayload(t *testing.T, secret string, payload []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func paidEventBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": "order.paid",
		"payment": map[string]any{
			"id":      "pay_9001",
			"notes":   map[string]string{"id": "2f5d0a36-1f0c-44d5-9c71-67a1f31cf7cf"},
			"contact": "+919999999999",
			"method":  "upi",
		},
	})
	require.NoError(t, err)
	return body
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubWebhookService{outcome: paymentwebhook.OutcomePaid}
	handler := PaymentWebhook(svc, stubSecrets{secret: "whsec"}, &stubGuard{}, nil)

	body := paidEventBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(string(body)))
	req.Header.Set(signatureHeader, "deadbeef")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, svc.calls, "unverified payload must not be processed")
	require.Contains(t, rec.Body.String(), "SIGNATURE_MISMATCH")
}

func TestPaymentWebhookProcessesSignedEvent(t *testing.T) {
	svc := &stubWebhookService{outcome: paymentwebhook.OutcomePaid}
	handler := PaymentWebhook(svc, stubSecrets{secret: "whsec"}, &stubGuard{}, nil)

	body := paidEventBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(string(body)))
	req.Header.Set(signatureHeader, signPayload(t, "whsec", body))
	req.Header.Set(eventIDHeader, "evt_1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.calls)
	require.Equal(t, "order.paid", svc.last.Event)
	require.Equal(t, "pay_9001", svc.last.Payment.ID)
	require.Contains(t, rec.Body.String(), `"outcome":"paid"`)
}

func TestPaymentWebhookDeduplicatesDeliveries(t *testing.T) {
	svc := &stubWebhookService{outcome: paymentwebhook.OutcomePaid}
	guard := &stubGuard{}
	handler := PaymentWebhook(svc, stubSecrets{secret: "whsec"}, guard, nil)

	body := paidEventBody(t)
	signature := signPayload(t, "whsec", body)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(string(body)))
		req.Header.Set(signatureHeader, signature)
		req.Header.Set(eventIDHeader, "evt_dup")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	require.Equal(t, 1, svc.calls, "redelivery must be acknowledged without re-processing")
}

func TestPaymentWebhookReleasesClaimOnFailure(t *testing.T) {
	svc := &stubWebhookService{err: context.DeadlineExceeded}
	guard := &stubGuard{}
	handler := PaymentWebhook(svc, stubSecrets{secret: "whsec"}, guard, nil)

	body := paidEventBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(string(body)))
	req.Header.Set(signatureHeader, signPayload(t, "whsec", body))
	req.Header.Set(eventIDHeader, "evt_fail")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"evt_fail"}, guard.deleted, "failed processing must release the claim for retry")
}
