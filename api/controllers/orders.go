package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rahulmehra/shopkart-backend/api/middleware"
	"github.com/rahulmehra/shopkart-backend/api/responses"
	"github.com/rahulmehra/shopkart-backend/api/validators"
	internalorders "github.com/rahulmehra/shopkart-backend/internal/orders"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	"github.com/rahulmehra/shopkart-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
	"github.com/rahulmehra/shopkart-backend/pkg/pagination"
	"github.com/rahulmehra/shopkart-backend/pkg/types"
)

// OrderGet returns one of the caller's own orders.
func OrderGet(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetForUser(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderCancel cancels the caller's own order while it is still pending.
func OrderCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminOrderList pages through orders newest-first with optional status and
// user filters.
func AdminOrderList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filter internalorders.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown status filter"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			userID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed user_id filter"))
				return
			}
			filter.UserID = &userID
		}

		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders := make([]orderResponse, 0, len(page.Orders))
		for i := range page.Orders {
			orders = append(orders, newOrderResponse(&page.Orders[i]))
		}

		responses.WriteSuccess(w, orderPageResponse{
			Orders:     orders,
			NextCursor: page.NextCursor,
		})
	}
}

// AdminOrderTransition moves an order to the requested lifecycle status.
func AdminOrderTransition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Transition(r.Context(), orderID, enums.OrderStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderId")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed order id")
	}
	return orderID, nil
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderPageResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type orderResponse struct {
	OrderID       uuid.UUID  `json:"order_id"`
	OrderNumber   int64      `json:"order_number"`
	InvoiceNumber string     `json:"invoice_number"`
	Status        string     `json:"status"`
	IsPaid        bool       `json:"is_paid"`
	IsCompleted   bool       `json:"is_completed"`
	SubtotalPaise int        `json:"subtotal_paise"`
	DiscountPaise int        `json:"discount_paise"`
	TotalPaise    int        `json:"total_paise"`
	DisplayTotal  string     `json:"display_total"`
	CouponID      *uuid.UUID `json:"coupon_id,omitempty"`

	Shipping shippingResponse    `json:"shipping"`
	Items    []orderItemResponse `json:"items"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type shippingResponse struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type orderItemResponse struct {
	VariantID    uuid.UUID `json:"variant_id"`
	Name         string    `json:"name"`
	Qty          int       `json:"qty"`
	PricePaise   int       `json:"price_paise"`
	MRPPaise     int       `json:"mrp_paise"`
	DisplayPrice string    `json:"display_price"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}

	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			VariantID:    item.VariantID,
			Name:         item.Name,
			Qty:          item.Qty,
			PricePaise:   item.PricePaise,
			MRPPaise:     item.MRPPaise,
			DisplayPrice: types.DisplayAmount(item.PricePaise),
		})
	}

	return orderResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		InvoiceNumber: order.InvoiceNumber,
		Status:        order.Status.String(),
		IsPaid:        order.IsPaid,
		IsCompleted:   order.IsCompleted,
		SubtotalPaise: order.SubtotalPaise,
		DiscountPaise: order.DiscountPaise,
		TotalPaise:    order.TotalPaise,
		DisplayTotal:  types.DisplayAmount(order.TotalPaise),
		CouponID:      order.CouponID,
		Shipping: shippingResponse{
			Name:    order.ShippingName,
			Phone:   order.ShippingPhone,
			Line1:   order.ShippingLine1,
			Line2:   order.ShippingLine2,
			City:    order.ShippingCity,
			State:   order.ShippingState,
			Pincode: order.ShippingPincode,
		},
		Items:     items,
		PaidAt:    order.PaidAt,
		CreatedAt: order.CreatedAt,
	}
}
