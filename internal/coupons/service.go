package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/cache"
	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
)

// Rejection reasons carried in error details so the storefront can tell the
// shopper why a code was refused without exposing anyone else's usage.
const (
	ReasonInactive      = "inactive"
	ReasonNotStarted    = "not_started"
	ReasonExpired       = "expired"
	ReasonNotApplicable = "not_applicable"
	ReasonUsageCap      = "usage_cap_reached"
	ReasonGuest         = "login_required"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Validation is a successful coupon check: the coupon and the flat discount
// it grants.
type Validation struct {
	Coupon        *models.Coupon
	DiscountPaise int
}

// CouponInput is the admin create/update payload.
type CouponInput struct {
	Code         string      `json:"code" validate:"required,min=3,max=40"`
	ValuePaise   int         `json:"value_paise" validate:"gt=0"`
	IsActive     bool        `json:"is_active"`
	StartDate    time.Time   `json:"start_date" validate:"required"`
	ExpiryDate   time.Time   `json:"expiry_date" validate:"required,gtfield=StartDate"`
	UsagePerUser int         `json:"usage_per_user" validate:"gte=1"`
	ProductIDs   []uuid.UUID `json:"product_ids"`
}

type Service interface {
	// Validate runs the redemption checks in order, short-circuiting on the
	// first failure. productIDs are the product ids of the proposed line
	// items; userID is nil for guests, who cannot redeem.
	Validate(ctx context.Context, code string, productIDs []uuid.UUID, userID *uuid.UUID) (*Validation, error)

	// Redeem records a successful redemption inside the caller's transaction:
	// one ledger row for the user plus the store-wide used_count bump.
	Redeem(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error

	Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Create(ctx context.Context, input CouponInput) (*models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, input CouponInput) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo  Repository
	tx    txRunner
	cache cache.Cache
	log   *logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, tx txRunner, c cache.Cache, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupons: repository is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupons: tx runner is required")
	}
	if c == nil {
		c = cache.NewNoop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &service{repo: repo, tx: tx, cache: c, log: log, now: time.Now}, nil
}

func (s *service) Validate(ctx context.Context, code string, productIDs []uuid.UUID, userID *uuid.UUID) (*Validation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
				WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: lookup")
	}

	if !coupon.IsActive {
		return nil, rejection(code, ReasonInactive, "coupon is not active")
	}

	now := s.now()
	if now.Before(coupon.StartDate) {
		return nil, rejection(code, ReasonNotStarted, "coupon is not active yet")
	}
	if now.After(coupon.ExpiryDate) {
		return nil, rejection(code, ReasonExpired, "coupon has expired")
	}

	// A coupon with linked products needs at least one matching line item;
	// zero links means store-wide.
	if len(coupon.Products) > 0 && !anyProductLinked(coupon.Products, productIDs) {
		return nil, rejection(code, ReasonNotApplicable, "coupon does not apply to these products")
	}

	if userID == nil {
		return nil, rejection(code, ReasonGuest, "sign in to use coupons")
	}
	used, err := s.repo.CountRedemptions(ctx, coupon.ID, *userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: usage lookup")
	}
	if used >= int64(coupon.UsagePerUser) {
		return nil, rejection(code, ReasonUsageCap, "coupon usage limit reached")
	}

	return &Validation{Coupon: coupon, DiscountPaise: coupon.ValuePaise}, nil
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	redemption := &models.CouponRedemption{
		CouponID: couponID,
		UserID:   userID,
		OrderID:  orderID,
	}
	if err := repo.CreateRedemption(ctx, redemption); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: record redemption")
	}
	if err := repo.IncrementUsedCount(ctx, couponID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: bump used count")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: lookup")
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: list")
	}
	return coupons, nil
}

func (s *service) Create(ctx context.Context, input CouponInput) (*models.Coupon, error) {
	coupon := &models.Coupon{
		Code:         strings.ToUpper(strings.TrimSpace(input.Code)),
		ValuePaise:   input.ValuePaise,
		IsActive:     input.IsActive,
		StartDate:    input.StartDate,
		ExpiryDate:   input.ExpiryDate,
		UsagePerUser: input.UsagePerUser,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, coupon); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: create")
		}
		if len(input.ProductIDs) > 0 {
			if err := repo.ReplaceProductLinks(ctx, coupon.ID, input.ProductIDs); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: link products")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return coupon, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input CouponInput) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"code":           strings.ToUpper(strings.TrimSpace(input.Code)),
			"value_paise":    input.ValuePaise,
			"is_active":      input.IsActive,
			"start_date":     input.StartDate,
			"expiry_date":    input.ExpiryDate,
			"usage_per_user": input.UsagePerUser,
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: update")
		}
		return repo.ReplaceProductLinks(ctx, id, input.ProductIDs)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "coupons: delete")
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.TagCoupons); err != nil {
		s.log.Warn(ctx, "coupons: cache invalidation failed")
	}
}

func rejection(code, reason, msg string) error {
	return pkgerrors.New(pkgerrors.CodeCouponInvalid, fmt.Sprintf("coupon %q: %s", code, msg)).
		WithDetails(map[string]any{"code": code, "reason": reason})
}

func anyProductLinked(links []models.CouponProduct, productIDs []uuid.UUID) bool {
	linked := make(map[uuid.UUID]struct{}, len(links))
	for _, link := range links {
		linked[link.ProductID] = struct{}{}
	}
	for _, productID := range productIDs {
		if _, ok := linked[productID]; ok {
			return true
		}
	}
	return false
}
