package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/cache"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
)

type priceKey struct {
	variant uuid.UUID
	group   uuid.UUID
}

type stubPricingRepo struct {
	variants map[uuid.UUID]*models.Variant
	prices   map[priceKey]*models.VariantPrice
	upserted []*models.VariantPrice
}

func newStubPricingRepo() *stubPricingRepo {
	return &stubPricingRepo{
		variants: map[uuid.UUID]*models.Variant{},
		prices:   map[priceKey]*models.VariantPrice{},
	}
}

func (s *stubPricingRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPricingRepo) FindVariant(ctx context.Context, variantID uuid.UUID) (*models.Variant, error) {
	if variant, ok := s.variants[variantID]; ok {
		return variant, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPricingRepo) FindPrice(ctx context.Context, variantID, groupID uuid.UUID) (*models.VariantPrice, error) {
	if price, ok := s.prices[priceKey{variantID, groupID}]; ok {
		return price, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPricingRepo) FindLowestPrice(ctx context.Context, variantID uuid.UUID) (*models.VariantPrice, error) {
	var lowest *models.VariantPrice
	for key, price := range s.prices {
		if key.variant != variantID || price.PricePaise <= 0 {
			continue
		}
		if lowest == nil || price.PricePaise < lowest.PricePaise {
			lowest = price
		}
	}
	if lowest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return lowest, nil
}

func (s *stubPricingRepo) ListPrices(ctx context.Context, variantID uuid.UUID) ([]models.VariantPrice, error) {
	var prices []models.VariantPrice
	for key, price := range s.prices {
		if key.variant == variantID {
			prices = append(prices, *price)
		}
	}
	return prices, nil
}

func (s *stubPricingRepo) UpsertPrice(ctx context.Context, price *models.VariantPrice) error {
	s.prices[priceKey{price.VariantID, price.LocationGroupID}] = price
	s.upserted = append(s.upserted, price)
	return nil
}

func (s *stubPricingRepo) DeletePrice(ctx context.Context, variantID, groupID uuid.UUID) error {
	delete(s.prices, priceKey{variantID, groupID})
	return nil
}

type stubGroupFinder struct {
	groups map[uuid.UUID]*models.LocationGroup
}

func (s *stubGroupFinder) FindGroupByID(ctx context.Context, id uuid.UUID) (*models.LocationGroup, error) {
	if group, ok := s.groups[id]; ok {
		return group, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func seedVariant(repo *stubPricingRepo) uuid.UUID {
	id := uuid.New()
	repo.variants[id] = &models.Variant{ID: id, SKU: "SK-" + id.String()[:8], Stock: 10}
	return id
}

func seedStubPrice(repo *stubPricingRepo, variantID, groupID uuid.UUID, price, mrp int) {
	repo.prices[priceKey{variantID, groupID}] = &models.VariantPrice{
		ID:              uuid.New(),
		VariantID:       variantID,
		LocationGroupID: groupID,
		PricePaise:      price,
		MRPPaise:        mrp,
	}
}

func TestResolveGroupMatch(t *testing.T) {
	t.Parallel()

	repo := newStubPricingRepo()
	variantID := seedVariant(repo)
	groupA, groupB := uuid.New(), uuid.New()
	seedStubPrice(repo, variantID, groupA, 10000, 12000)
	seedStubPrice(repo, variantID, groupB, 9000, 11000)
	groups := &stubGroupFinder{groups: map[uuid.UUID]*models.LocationGroup{
		groupA: {ID: groupA, DeliveryDays: 4},
		groupB: {ID: groupB, DeliveryDays: 2, IsCODAvailable: true},
	}}

	svc, err := NewService(repo, groups, cache.NewNoop(), time.Minute, nil, nil)
	require.NoError(t, err)

	resolution, err := svc.Resolve(context.Background(), variantID, &groupB)
	require.NoError(t, err)
	require.Equal(t, 9000, resolution.PricePaise)
	require.Equal(t, 11000, resolution.MRPPaise)
	require.Equal(t, 2, resolution.DeliveryDays)
	require.True(t, resolution.IsCODAvailable)
	require.True(t, resolution.Available())
}

func TestResolveFallsBackToDefaultGroup(t *testing.T) {
	t.Parallel()

	repo := newStubPricingRepo()
	variantID := seedVariant(repo)
	defaultGroup := uuid.New()
	seedStubPrice(repo, variantID, defaultGroup, 8500, 9900)
	groups := &stubGroupFinder{groups: map[uuid.UUID]*models.LocationGroup{
		defaultGroup: {ID: defaultGroup, DeliveryDays: 5},
	}}

	svc, err := NewService(repo, groups, cache.NewNoop(), time.Minute, &defaultGroup, nil)
	require.NoError(t, err)

	unmappedGroup := uuid.New()
	resolution, err := svc.Resolve(context.Background(), variantID, &unmappedGroup)
	require.NoError(t, err)
	require.Equal(t, 8500, resolution.PricePaise)
	require.Equal(t, defaultGroup, *resolution.LocationGroupID)
}

func TestResolveFallsBackToLowestPrice(t *testing.T) {
	t.Parallel()

	repo := newStubPricingRepo()
	variantID := seedVariant(repo)
	groupA, groupB := uuid.New(), uuid.New()
	seedStubPrice(repo, variantID, groupA, 7200, 9000)
	seedStubPrice(repo, variantID, groupB, 6100, 9000)
	groups := &stubGroupFinder{groups: map[uuid.UUID]*models.LocationGroup{
		groupA: {ID: groupA},
		groupB: {ID: groupB},
	}}

	svc, err := NewService(repo, groups, cache.NewNoop(), time.Minute, nil, nil)
	require.NoError(t, err)

	resolution, err := svc.Resolve(context.Background(), variantID, nil)
	require.NoError(t, err)
	require.Equal(t, 6100, resolution.PricePaise)
	require.Equal(t, groupB, *resolution.LocationGroupID)
}

func TestResolveUnavailableIsZeroNotFree(t *testing.T) {
	t.Parallel()

	repo := newStubPricingRepo()
	variantID := seedVariant(repo)
	svc, err := NewService(repo, &stubGroupFinder{}, cache.NewNoop(), time.Minute, nil, nil)
	require.NoError(t, err)

	resolution, err := svc.Resolve(context.Background(), variantID, nil)
	require.NoError(t, err)
	require.Equal(t, 0, resolution.PricePaise)
	require.False(t, resolution.Available())
}

func TestResolveUnknownVariant(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newStubPricingRepo(), &stubGroupFinder{}, cache.NewNoop(), time.Minute, nil, nil)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), uuid.New(), nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpsertPriceRejectsPriceAboveMRP(t *testing.T) {
	t.Parallel()

	repo := newStubPricingRepo()
	variantID := seedVariant(repo)
	svc, err := NewService(repo, &stubGroupFinder{}, cache.NewNoop(), time.Minute, nil, nil)
	require.NoError(t, err)

	_, err = svc.UpsertPrice(context.Background(), PriceInput{
		VariantID:       variantID,
		LocationGroupID: uuid.New(),
		PricePaise:      12000,
		MRPPaise:        10000,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Empty(t, repo.upserted)
}

func TestUpsertPriceInvalidatesCachedResolution(t *testing.T) {
	t.Parallel()

	repo := newStubPricingRepo()
	variantID := seedVariant(repo)
	groupID := uuid.New()
	seedStubPrice(repo, variantID, groupID, 5000, 6000)
	groups := &stubGroupFinder{groups: map[uuid.UUID]*models.LocationGroup{
		groupID: {ID: groupID, DeliveryDays: 3},
	}}

	svc, err := NewService(repo, groups, cache.NewMemory(), time.Minute, nil, nil)
	require.NoError(t, err)

	first, err := svc.Resolve(context.Background(), variantID, &groupID)
	require.NoError(t, err)
	require.Equal(t, 5000, first.PricePaise)

	_, err = svc.UpsertPrice(context.Background(), PriceInput{
		VariantID:       variantID,
		LocationGroupID: groupID,
		PricePaise:      4500,
		MRPPaise:        6000,
	})
	require.NoError(t, err)

	second, err := svc.Resolve(context.Background(), variantID, &groupID)
	require.NoError(t, err)
	require.Equal(t, 4500, second.PricePaise)
}
