package controllers

import (
	"net/http"

	"github.com/rahulmehra/shopkart-backend/api/middleware"
	"github.com/rahulmehra/shopkart-backend/api/responses"
	"github.com/rahulmehra/shopkart-backend/api/validators"
	"github.com/rahulmehra/shopkart-backend/internal/cart"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
)

// CartQuote prices a proposed cart for a pincode without persisting
// anything. Guests may quote; coupons only apply to signed-in callers.
func CartQuote(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cart.QuoteInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
			payload.UserID = &userID
		}

		quote, err := svc.Quote(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}
