package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
)

type redemptionKey struct {
	coupon uuid.UUID
	user   uuid.UUID
}

type stubCouponsRepo struct {
	byCode      map[string]*models.Coupon
	redemptions map[redemptionKey]int64
	ledger      []*models.CouponRedemption
	usedBumps   []uuid.UUID
}

func newStubCouponsRepo() *stubCouponsRepo {
	return &stubCouponsRepo{
		byCode:      map[string]*models.Coupon{},
		redemptions: map[redemptionKey]int64{},
	}
}

func (s *stubCouponsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCouponsRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if coupon, ok := s.byCode[code]; ok {
		return coupon, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCouponsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	for _, coupon := range s.byCode {
		if coupon.ID == id {
			return coupon, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCouponsRepo) List(ctx context.Context) ([]models.Coupon, error) { return nil, nil }

func (s *stubCouponsRepo) Create(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	s.byCode[coupon.Code] = coupon
	return nil
}

func (s *stubCouponsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubCouponsRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubCouponsRepo) ReplaceProductLinks(ctx context.Context, couponID uuid.UUID, productIDs []uuid.UUID) error {
	return nil
}

func (s *stubCouponsRepo) CountRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	return s.redemptions[redemptionKey{couponID, userID}], nil
}

func (s *stubCouponsRepo) CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	s.ledger = append(s.ledger, redemption)
	s.redemptions[redemptionKey{redemption.CouponID, redemption.UserID}]++
	return nil
}

func (s *stubCouponsRepo) IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error {
	s.usedBumps = append(s.usedBumps, couponID)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func liveCoupon(code string, value int, productIDs ...uuid.UUID) *models.Coupon {
	coupon := &models.Coupon{
		ID:           uuid.New(),
		Code:         code,
		ValuePaise:   value,
		IsActive:     true,
		StartDate:    time.Now().Add(-24 * time.Hour),
		ExpiryDate:   time.Now().Add(24 * time.Hour),
		UsagePerUser: 1,
	}
	for _, productID := range productIDs {
		coupon.Products = append(coupon.Products, models.CouponProduct{
			CouponID:  coupon.ID,
			ProductID: productID,
		})
	}
	return coupon
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, nil, nil)
	require.NoError(t, err)
	return svc
}

func requireRejection(t *testing.T, err error, reason string) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeCouponInvalid, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, reason, details["reason"])
}

func TestValidateStoreWideCoupon(t *testing.T) {
	t.Parallel()

	repo := newStubCouponsRepo()
	repo.byCode["WELCOME100"] = liveCoupon("WELCOME100", 10000)
	svc := newTestService(t, repo)

	userID := uuid.New()
	validation, err := svc.Validate(context.Background(), "WELCOME100", []uuid.UUID{uuid.New()}, &userID)
	require.NoError(t, err)
	require.Equal(t, 10000, validation.DiscountPaise)
}

func TestValidateUnknownCode(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newStubCouponsRepo())

	userID := uuid.New()
	_, err := svc.Validate(context.Background(), "NOPE", nil, &userID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestValidateInactive(t *testing.T) {
	t.Parallel()

	repo := newStubCouponsRepo()
	coupon := liveCoupon("PAUSED", 5000)
	coupon.IsActive = false
	repo.byCode[coupon.Code] = coupon
	svc := newTestService(t, repo)

	userID := uuid.New()
	_, err := svc.Validate(context.Background(), "PAUSED", nil, &userID)
	requireRejection(t, err, ReasonInactive)
}

func TestValidateOutsideWindow(t *testing.T) {
	t.Parallel()

	repo := newStubCouponsRepo()
	early := liveCoupon("SOON", 5000)
	early.StartDate = time.Now().Add(time.Hour)
	repo.byCode[early.Code] = early
	stale := liveCoupon("GONE", 5000)
	stale.ExpiryDate = time.Now().Add(-time.Hour)
	repo.byCode[stale.Code] = stale
	svc := newTestService(t, repo)

	userID := uuid.New()
	_, err := svc.Validate(context.Background(), "SOON", nil, &userID)
	requireRejection(t, err, ReasonNotStarted)

	_, err = svc.Validate(context.Background(), "GONE", nil, &userID)
	requireRejection(t, err, ReasonExpired)
}

func TestValidateProductScope(t *testing.T) {
	t.Parallel()

	linkedProduct := uuid.New()
	repo := newStubCouponsRepo()
	repo.byCode["TSHIRT50"] = liveCoupon("TSHIRT50", 5000, linkedProduct)
	svc := newTestService(t, repo)

	userID := uuid.New()

	// One matching line item is enough.
	validation, err := svc.Validate(context.Background(), "TSHIRT50",
		[]uuid.UUID{uuid.New(), linkedProduct}, &userID)
	require.NoError(t, err)
	require.Equal(t, 5000, validation.DiscountPaise)

	_, err = svc.Validate(context.Background(), "TSHIRT50", []uuid.UUID{uuid.New()}, &userID)
	requireRejection(t, err, ReasonNotApplicable)
}

func TestValidateUsageCap(t *testing.T) {
	t.Parallel()

	repo := newStubCouponsRepo()
	coupon := liveCoupon("ONCE", 2500)
	repo.byCode[coupon.Code] = coupon
	svc := newTestService(t, repo)

	userID := uuid.New()
	repo.redemptions[redemptionKey{coupon.ID, userID}] = 1

	_, err := svc.Validate(context.Background(), "ONCE", nil, &userID)
	requireRejection(t, err, ReasonUsageCap)

	// A different user still passes.
	otherID := uuid.New()
	_, err = svc.Validate(context.Background(), "ONCE", nil, &otherID)
	require.NoError(t, err)
}

func TestValidateGuestRejected(t *testing.T) {
	t.Parallel()

	repo := newStubCouponsRepo()
	repo.byCode["WELCOME100"] = liveCoupon("WELCOME100", 10000)
	svc := newTestService(t, repo)

	_, err := svc.Validate(context.Background(), "WELCOME100", nil, nil)
	requireRejection(t, err, ReasonGuest)
}

func TestRedeemWritesLedgerAndCounter(t *testing.T) {
	t.Parallel()

	repo := newStubCouponsRepo()
	coupon := liveCoupon("ONCE", 2500)
	repo.byCode[coupon.Code] = coupon
	svc := newTestService(t, repo)

	userID, orderID := uuid.New(), uuid.New()
	require.NoError(t, svc.Redeem(context.Background(), nil, coupon.ID, userID, orderID))
	require.Len(t, repo.ledger, 1)
	require.Equal(t, orderID, repo.ledger[0].OrderID)
	require.Equal(t, []uuid.UUID{coupon.ID}, repo.usedBumps)

	// The ledger row now blocks a second validation for the same user.
	_, err := svc.Validate(context.Background(), "ONCE", nil, &userID)
	requireRejection(t, err, ReasonUsageCap)
}
