package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rahulmehra/shopkart-backend/api/responses"
	paymentwebhook "github.com/rahulmehra/shopkart-backend/internal/webhooks/payment"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
	"github.com/rahulmehra/shopkart-backend/pkg/payments"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
)

type paymentWebhookService interface {
	Process(ctx context.Context, event paymentwebhook.Event) (paymentwebhook.Outcome, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signingSecretSource interface {
	SigningSecret() string
}

// PaymentWebhook verifies and applies gateway payment events. The raw body
// is authenticated before a single byte of it is parsed.
func PaymentWebhook(svc paymentWebhookService, secrets signingSecretSource, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if secrets == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment client unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(signatureHeader))
		if !payments.VerifyWebhookSignature(payload, secrets.SigningSecret(), signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignatureMismatch, "webhook signature mismatch"))
			return
		}

		var event paymentwebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
			return
		}

		// The gateway stamps an event id header; older deliveries fall back
		// to the payment id.
		eventID := strings.TrimSpace(r.Header.Get(eventIDHeader))
		if eventID == "" {
			eventID = event.Payment.ID
		}

		if guard != nil && eventID != "" {
			alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if alreadyProcessed {
				responses.WriteSuccess(w, map[string]string{"outcome": "duplicate"})
				return
			}
		}

		outcome, err := svc.Process(ctx, event)
		if err != nil {
			if guard != nil && eventID != "" {
				_ = guard.Delete(ctx, eventID)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}
