package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rahulmehra/shopkart-backend/api/responses"
	"github.com/rahulmehra/shopkart-backend/api/validators"
	"github.com/rahulmehra/shopkart-backend/internal/pricing"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
	"github.com/rahulmehra/shopkart-backend/pkg/types"
)

func PriceList(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := parseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prices, err := svc.ListPrices(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]priceResponse, 0, len(prices))
		for i := range prices {
			out = append(out, newPriceResponse(&prices[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func PriceUpsert(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload pricing.PriceInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := svc.UpsertPrice(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPriceResponse(price))
	}
}

func PriceDelete(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := parseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		groupID, err := parseUUIDParam(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePrice(r.Context(), variantID, groupID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type priceResponse struct {
	VariantID       uuid.UUID `json:"variant_id"`
	LocationGroupID uuid.UUID `json:"location_group_id"`
	PricePaise      int       `json:"price_paise"`
	MRPPaise        int       `json:"mrp_paise"`
	DisplayPrice    string    `json:"display_price"`
	DisplayMRP      string    `json:"display_mrp"`
}

func newPriceResponse(price *models.VariantPrice) priceResponse {
	if price == nil {
		return priceResponse{}
	}
	return priceResponse{
		VariantID:       price.VariantID,
		LocationGroupID: price.LocationGroupID,
		PricePaise:      price.PricePaise,
		MRPPaise:        price.MRPPaise,
		DisplayPrice:    types.DisplayAmount(price.PricePaise),
		DisplayMRP:      types.DisplayAmount(price.MRPPaise),
	}
}
