package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/internal/cart"
	"github.com/rahulmehra/shopkart-backend/internal/orders"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	"github.com/rahulmehra/shopkart-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
	"github.com/rahulmehra/shopkart-backend/pkg/metrics"
	"github.com/rahulmehra/shopkart-backend/pkg/payments"
	"github.com/rahulmehra/shopkart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// quoter is the slice of the cart service checkout depends on.
type quoter interface {
	Quote(ctx context.Context, input cart.QuoteInput) (*cart.Quote, error)
}

// couponRedeemer records a redemption inside the checkout transaction.
type couponRedeemer interface {
	Redeem(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error
}

// ShippingInput is the delivery address captured at checkout.
type ShippingInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"required,min=8,max=16"`
	Line1   string `json:"line1" validate:"required,max=200"`
	Line2   string `json:"line2" validate:"max=200"`
	City    string `json:"city" validate:"required,max=80"`
	State   string `json:"state" validate:"required,max=80"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
}

// Input is one checkout request: the cart plus where to ship it.
type Input struct {
	Items      []cart.LineInput `json:"items" validate:"required,min=1,dive"`
	CouponCode string           `json:"coupon_code"`
	Shipping   ShippingInput    `json:"shipping" validate:"required"`
	UserID     *uuid.UUID       `json:"-"`
}

// Result is a created order together with the provider-side payment handle
// the storefront completes payment against.
type Result struct {
	Order           *models.Order `json:"order"`
	ProviderOrderID string        `json:"provider_order_id"`
	AmountPaise     int           `json:"amount_paise"`
	Currency        string        `json:"currency"`
	DisplayAmount   string        `json:"display_amount"`
}

type Service interface {
	// Execute runs the whole checkout in one transaction: re-quote,
	// snapshot the order in PENDING and open the provider order. Stock is
	// not decremented here; that happens when payment confirms.
	Execute(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	tx       txRunner
	quoter   quoter
	orders   orders.Repository
	coupons  couponRedeemer
	gateway  payments.Gateway
	currency string
	metrics  *metrics.CheckoutMetrics
	log      *logger.Logger
}

func NewService(
	tx txRunner,
	q quoter,
	ordersRepo orders.Repository,
	coupons couponRedeemer,
	gateway payments.Gateway,
	currency string,
	m *metrics.CheckoutMetrics,
	log *logger.Logger,
) (Service, error) {
	if tx == nil || q == nil || ordersRepo == nil || coupons == nil || gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: all collaborators are required")
	}
	if currency == "" {
		currency = "INR"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		tx:       tx,
		quoter:   q,
		orders:   ordersRepo,
		coupons:  coupons,
		gateway:  gateway,
		currency: currency,
		metrics:  m,
		log:      log,
	}, nil
}

func (s *service) Execute(ctx context.Context, input Input) (*Result, error) {
	started := time.Now()
	result, err := s.execute(ctx, input)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	s.metrics.ObserveCheckout(outcome, time.Since(started))
	return result, err
}

func (s *service) execute(ctx context.Context, input Input) (*Result, error) {
	quote, err := s.quoter.Quote(ctx, cart.QuoteInput{
		Pincode:    input.Shipping.Pincode,
		Items:      input.Items,
		CouponCode: input.CouponCode,
		UserID:     input.UserID,
	})
	if err != nil {
		return nil, err
	}
	if quote.TotalPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		number, err := repo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}

		order := buildOrder(number, quote, input)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if quote.CouponID != nil && input.UserID != nil {
			if err := s.coupons.Redeem(ctx, tx, *quote.CouponID, *input.UserID, order.ID); err != nil {
				return err
			}
		}

		// The provider call sits inside the transaction on purpose: if the
		// provider refuses the order, nothing is persisted.
		provider, err := s.gateway.CreateOrder(ctx, payments.CreateOrderInput{
			AmountPaise: order.TotalPaise,
			Currency:    s.currency,
			Receipt:     order.InvoiceNumber,
			Notes:       map[string]string{"id": order.ID.String()},
		})
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, order.ID, map[string]any{"provider_order_id": provider.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach provider order")
		}
		order.ProviderOrderID = &provider.ID

		result = &Result{
			Order:           order,
			ProviderOrderID: provider.ID,
			AmountPaise:     order.TotalPaise,
			Currency:        s.currency,
			DisplayAmount:   types.DisplayAmount(order.TotalPaise),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithOrderID(ctx, result.Order.ID.String()), "checkout completed")
	return result, nil
}

// buildOrder snapshots the quote into an order aggregate. Line prices are
// captured here and never recomputed from live VariantPrice rows.
func buildOrder(number int64, quote *cart.Quote, input Input) *models.Order {
	order := &models.Order{
		UserID:        input.UserID,
		OrderNumber:   number,
		InvoiceNumber: fmt.Sprintf("INV-%d", number),
		Status:        enums.OrderStatusPending,
		SubtotalPaise: quote.SubtotalPaise,
		DiscountPaise: quote.DiscountPaise,
		TotalPaise:    quote.TotalPaise,
		CouponID:      quote.CouponID,

		ShippingName:    input.Shipping.Name,
		ShippingPhone:   input.Shipping.Phone,
		ShippingLine1:   input.Shipping.Line1,
		ShippingLine2:   input.Shipping.Line2,
		ShippingCity:    input.Shipping.City,
		ShippingState:   input.Shipping.State,
		ShippingPincode: input.Shipping.Pincode,
	}
	for _, line := range quote.Lines {
		order.Items = append(order.Items, models.OrderProduct{
			VariantID:  line.VariantID,
			Name:       line.Name,
			PricePaise: line.PricePaise,
			MRPPaise:   line.MRPPaise,
			Qty:        line.Quantity,
		})
	}
	return order
}
