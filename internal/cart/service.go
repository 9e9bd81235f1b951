package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rahulmehra/shopkart-backend/internal/coupons"
	"github.com/rahulmehra/shopkart-backend/internal/pricing"
	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/types"
)

const maxQuoteLines = 50

// pincodeResolver is the slice of the locations service a quote needs.
type pincodeResolver interface {
	ResolvePincode(ctx context.Context, pincode string) (*models.LocationGroup, error)
}

// priceResolver is the slice of the pricing service a quote needs.
type priceResolver interface {
	Resolve(ctx context.Context, variantID uuid.UUID, groupID *uuid.UUID) (*pricing.Resolution, error)
}

// couponValidator is the slice of the coupons service a quote needs.
type couponValidator interface {
	Validate(ctx context.Context, code string, productIDs []uuid.UUID, userID *uuid.UUID) (*coupons.Validation, error)
}

// LineInput is one requested cart line.
type LineInput struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// QuoteInput is a full cart to price for a delivery pincode.
type QuoteInput struct {
	Pincode    string      `json:"pincode" validate:"required"`
	Items      []LineInput `json:"items" validate:"required,min=1,dive"`
	CouponCode string      `json:"coupon_code"`
	UserID     *uuid.UUID  `json:"-"`
}

// QuoteLine is one priced cart line.
type QuoteLine struct {
	VariantID        uuid.UUID `json:"variant_id"`
	ProductID        uuid.UUID `json:"product_id"`
	Name             string    `json:"name"`
	SKU              string    `json:"sku"`
	Quantity         int       `json:"quantity"`
	PricePaise       int       `json:"price_paise"`
	MRPPaise         int       `json:"mrp_paise"`
	DeliveryDays     int       `json:"delivery_days"`
	IsCODAvailable   bool      `json:"is_cod_available"`
	LineTotalPaise   int       `json:"line_total_paise"`
	DisplayPrice     string    `json:"display_price"`
	DisplayLineTotal string    `json:"display_line_total"`
}

// Quote is the priced cart: lines, subtotal, coupon discount and grand total.
type Quote struct {
	LocationGroupID *uuid.UUID  `json:"location_group_id,omitempty"`
	Lines           []QuoteLine `json:"lines"`
	SubtotalPaise   int         `json:"subtotal_paise"`
	DiscountPaise   int         `json:"discount_paise"`
	TotalPaise      int         `json:"total_paise"`
	CouponID        *uuid.UUID  `json:"coupon_id,omitempty"`
	CouponCode      string      `json:"coupon_code,omitempty"`
	DisplaySubtotal string      `json:"display_subtotal"`
	DisplayDiscount string      `json:"display_discount"`
	DisplayTotal    string      `json:"display_total"`
}

type Service interface {
	// Quote prices a cart for a pincode, re-validating stock per line and
	// applying at most one coupon. Any unavailable line or shortfall fails
	// the whole quote.
	Quote(ctx context.Context, input QuoteInput) (*Quote, error)
}

type service struct {
	repo      Repository
	locations pincodeResolver
	prices    priceResolver
	coupons   couponValidator
}

func NewService(repo Repository, locations pincodeResolver, prices priceResolver, coupons couponValidator) (Service, error) {
	if repo == nil || locations == nil || prices == nil || coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart: all collaborators are required")
	}
	return &service{repo: repo, locations: locations, prices: prices, coupons: coupons}, nil
}

func (s *service) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	items, err := mergeLines(input.Items)
	if err != nil {
		return nil, err
	}

	group, err := s.locations.ResolvePincode(ctx, input.Pincode)
	if err != nil {
		return nil, err
	}
	var groupID *uuid.UUID
	if group != nil {
		groupID = &group.ID
	}

	quote := &Quote{LocationGroupID: groupID, Lines: make([]QuoteLine, 0, len(items))}
	productIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		line, err := s.priceLine(ctx, item, groupID)
		if err != nil {
			return nil, err
		}
		quote.Lines = append(quote.Lines, *line)
		quote.SubtotalPaise += line.LineTotalPaise
		productIDs = append(productIDs, line.ProductID)
	}

	quote.TotalPaise = quote.SubtotalPaise
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		validation, err := s.coupons.Validate(ctx, code, productIDs, input.UserID)
		if err != nil {
			return nil, err
		}
		discount := validation.DiscountPaise
		if discount > quote.SubtotalPaise {
			discount = quote.SubtotalPaise
		}
		quote.DiscountPaise = discount
		quote.TotalPaise = quote.SubtotalPaise - discount
		quote.CouponID = &validation.Coupon.ID
		quote.CouponCode = validation.Coupon.Code
	}

	quote.DisplaySubtotal = types.DisplayAmount(quote.SubtotalPaise)
	quote.DisplayDiscount = types.DisplayAmount(quote.DiscountPaise)
	quote.DisplayTotal = types.DisplayAmount(quote.TotalPaise)
	return quote, nil
}

func (s *service) priceLine(ctx context.Context, item LineInput, groupID *uuid.UUID) (*QuoteLine, error) {
	variant, err := s.repo.FindVariant(ctx, item.VariantID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").
				WithDetails(map[string]any{"variant_id": item.VariantID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart: load variant")
	}
	product, err := s.repo.FindProduct(ctx, variant.ProductID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": variant.ProductID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart: load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("%q is no longer available", product.Title)).
			WithDetails(map[string]any{"variant_id": variant.ID})
	}

	resolution, err := s.prices.Resolve(ctx, variant.ID, groupID)
	if err != nil {
		return nil, err
	}
	if !resolution.Available() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("%q is not deliverable here", product.Title)).
			WithDetails(map[string]any{"variant_id": variant.ID})
	}

	if item.Quantity > variant.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("only %d of %q left", variant.Stock, product.Title)).
			WithDetails(map[string]any{
				"variant_id": variant.ID,
				"requested":  item.Quantity,
				"available":  variant.Stock,
			})
	}

	lineTotal := resolution.PricePaise * item.Quantity
	return &QuoteLine{
		VariantID:        variant.ID,
		ProductID:        product.ID,
		Name:             lineName(product, variant),
		SKU:              variant.SKU,
		Quantity:         item.Quantity,
		PricePaise:       resolution.PricePaise,
		MRPPaise:         resolution.MRPPaise,
		DeliveryDays:     resolution.DeliveryDays,
		IsCODAvailable:   resolution.IsCODAvailable,
		LineTotalPaise:   lineTotal,
		DisplayPrice:     types.DisplayAmount(resolution.PricePaise),
		DisplayLineTotal: types.DisplayAmount(lineTotal),
	}, nil
}

// mergeLines folds duplicate variant ids into one line and bounds the cart.
func mergeLines(items []LineInput) ([]LineInput, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	merged := make([]LineInput, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.VariantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"variant_id": item.VariantID})
		}
		if at, ok := index[item.VariantID]; ok {
			merged[at].Quantity += item.Quantity
			continue
		}
		index[item.VariantID] = len(merged)
		merged = append(merged, item)
	}
	if len(merged) > maxQuoteLines {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cart cannot exceed %d distinct items", maxQuoteLines))
	}
	return merged, nil
}

func lineName(product *models.Product, variant *models.Variant) string {
	parts := []string{product.Title}
	if variant.Size != nil && *variant.Size != "" {
		parts = append(parts, *variant.Size)
	}
	if variant.Color != nil && *variant.Color != "" {
		parts = append(parts, *variant.Color)
	}
	return strings.Join(parts, " / ")
}
