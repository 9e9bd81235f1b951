package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rahulmehra/shopkart-backend/api/responses"
	"github.com/rahulmehra/shopkart-backend/api/validators"
	"github.com/rahulmehra/shopkart-backend/internal/coupons"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
)

func CouponList(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]couponResponse, 0, len(list))
		for i := range list {
			out = append(out, newCouponResponse(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func CouponGet(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := parseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Get(r.Context(), couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCouponResponse(coupon))
	}
}

func CouponCreate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload coupons.CouponInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(coupon))
	}
}

func CouponUpdate(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := parseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload coupons.CouponInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Update(r.Context(), couponID, payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func CouponDelete(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := parseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type couponResponse struct {
	ID           uuid.UUID   `json:"id"`
	Code         string      `json:"code"`
	ValuePaise   int         `json:"value_paise"`
	IsActive     bool        `json:"is_active"`
	StartDate    time.Time   `json:"start_date"`
	ExpiryDate   time.Time   `json:"expiry_date"`
	UsagePerUser int         `json:"usage_per_user"`
	UsedCount    int         `json:"used_count"`
	ProductIDs   []uuid.UUID `json:"product_ids"`
}

func newCouponResponse(coupon *models.Coupon) couponResponse {
	if coupon == nil {
		return couponResponse{}
	}
	productIDs := make([]uuid.UUID, 0, len(coupon.Products))
	for _, link := range coupon.Products {
		productIDs = append(productIDs, link.ProductID)
	}
	return couponResponse{
		ID:           coupon.ID,
		Code:         coupon.Code,
		ValuePaise:   coupon.ValuePaise,
		IsActive:     coupon.IsActive,
		StartDate:    coupon.StartDate,
		ExpiryDate:   coupon.ExpiryDate,
		UsagePerUser: coupon.UsagePerUser,
		UsedCount:    coupon.UsedCount,
		ProductIDs:   productIDs,
	}
}
