package controllers

import (
	"net/http"

	"github.com/rahulmehra/shopkart-backend/api/middleware"
	"github.com/rahulmehra/shopkart-backend/api/responses"
	"github.com/rahulmehra/shopkart-backend/api/validators"
	checkoutsvc "github.com/rahulmehra/shopkart-backend/internal/checkout"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
)

// Checkout re-quotes the submitted cart and opens the order with the
// payment provider in one transaction.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutsvc.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
			payload.UserID = &userID
		}

		result, err := svc.Execute(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:           newOrderResponse(result.Order),
			ProviderOrderID: result.ProviderOrderID,
			AmountPaise:     result.AmountPaise,
			Currency:        result.Currency,
			DisplayAmount:   result.DisplayAmount,
		})
	}
}

type checkoutResponse struct {
	Order           orderResponse `json:"order"`
	ProviderOrderID string        `json:"provider_order_id"`
	AmountPaise     int           `json:"amount_paise"`
	Currency        string        `json:"currency"`
	DisplayAmount   string        `json:"display_amount"`
}
