package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rahulmehra/shopkart-backend/pkg/cache"
	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
)

// groupFinder is the slice of the locations repository the resolver needs to
// attach delivery terms to a price row.
type groupFinder interface {
	FindGroupByID(ctx context.Context, id uuid.UUID) (*models.LocationGroup, error)
}

// Resolution is the resolved price for a variant in a delivery context.
// A zero PricePaise means the variant is not purchasable there, not free.
type Resolution struct {
	VariantID       uuid.UUID  `json:"variant_id"`
	LocationGroupID *uuid.UUID `json:"location_group_id,omitempty"`
	PricePaise      int        `json:"price_paise"`
	MRPPaise        int        `json:"mrp_paise"`
	DeliveryDays    int        `json:"delivery_days"`
	IsCODAvailable  bool       `json:"is_cod_available"`
}

// Available reports whether the resolution carries a purchasable price.
func (r Resolution) Available() bool {
	return r.PricePaise > 0
}

// PriceInput is the admin upsert payload for one (variant, group) price row.
type PriceInput struct {
	VariantID       uuid.UUID `json:"variant_id" validate:"required"`
	LocationGroupID uuid.UUID `json:"location_group_id" validate:"required"`
	PricePaise      int       `json:"price_paise" validate:"gt=0"`
	MRPPaise        int       `json:"mrp_paise" validate:"gt=0"`
}

type Service interface {
	// Resolve picks the price for a variant given an optionally resolved
	// location group, falling back to the store default group and then to
	// the lowest configured price.
	Resolve(ctx context.Context, variantID uuid.UUID, groupID *uuid.UUID) (*Resolution, error)

	ListPrices(ctx context.Context, variantID uuid.UUID) ([]models.VariantPrice, error)
	UpsertPrice(ctx context.Context, input PriceInput) (*models.VariantPrice, error)
	DeletePrice(ctx context.Context, variantID, groupID uuid.UUID) error
}

type service struct {
	repo           Repository
	groups         groupFinder
	cache          cache.Cache
	cacheTTL       time.Duration
	defaultGroupID *uuid.UUID
	log            *logger.Logger
}

func NewService(repo Repository, groups groupFinder, c cache.Cache, cacheTTL time.Duration, defaultGroupID *uuid.UUID, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing: repository is required")
	}
	if groups == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing: group finder is required")
	}
	if c == nil {
		c = cache.NewNoop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		repo:           repo,
		groups:         groups,
		cache:          c,
		cacheTTL:       cacheTTL,
		defaultGroupID: defaultGroupID,
		log:            log,
	}, nil
}

func (s *service) Resolve(ctx context.Context, variantID uuid.UUID, groupID *uuid.UUID) (*Resolution, error) {
	key := resolutionCacheKey(variantID, groupID)
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached Resolution
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
	}

	resolution, err := s.resolve(ctx, variantID, groupID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(resolution); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded), s.cacheTTL, cache.TagPricing); err != nil {
			s.log.Warn(ctx, "pricing: cache set failed")
		}
	}
	return resolution, nil
}

func (s *service) resolve(ctx context.Context, variantID uuid.UUID, groupID *uuid.UUID) (*Resolution, error) {
	if _, err := s.repo.FindVariant(ctx, variantID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").
				WithDetails(map[string]any{"variant_id": variantID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: load variant")
	}

	// 1. Exact match for the resolved group.
	if groupID != nil {
		price, err := s.repo.FindPrice(ctx, variantID, *groupID)
		switch {
		case err == nil:
			return s.withDeliveryTerms(ctx, price)
		case !db.IsNotFound(err):
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: group price lookup")
		}
	}

	// 2. Store default group, if configured with a real price.
	if s.defaultGroupID != nil && (groupID == nil || *groupID != *s.defaultGroupID) {
		price, err := s.repo.FindPrice(ctx, variantID, *s.defaultGroupID)
		switch {
		case err == nil && price.PricePaise > 0:
			return s.withDeliveryTerms(ctx, price)
		case err != nil && !db.IsNotFound(err):
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: default group price lookup")
		}
	}

	// 3. Cheapest configured price anywhere.
	price, err := s.repo.FindLowestPrice(ctx, variantID)
	switch {
	case err == nil:
		return s.withDeliveryTerms(ctx, price)
	case !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: lowest price lookup")
	}

	// 4. No price anywhere: unavailable, not free.
	return &Resolution{VariantID: variantID}, nil
}

func (s *service) withDeliveryTerms(ctx context.Context, price *models.VariantPrice) (*Resolution, error) {
	resolution := &Resolution{
		VariantID:       price.VariantID,
		LocationGroupID: &price.LocationGroupID,
		PricePaise:      price.PricePaise,
		MRPPaise:        price.MRPPaise,
	}
	group, err := s.groups.FindGroupByID(ctx, price.LocationGroupID)
	if err != nil {
		if db.IsNotFound(err) {
			// Orphaned price row; the price still stands, terms default off.
			return resolution, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: load location group")
	}
	resolution.DeliveryDays = group.DeliveryDays
	resolution.IsCODAvailable = group.IsCODAvailable
	return resolution, nil
}

func (s *service) ListPrices(ctx context.Context, variantID uuid.UUID) ([]models.VariantPrice, error) {
	prices, err := s.repo.ListPrices(ctx, variantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: list prices")
	}
	return prices, nil
}

func (s *service) UpsertPrice(ctx context.Context, input PriceInput) (*models.VariantPrice, error) {
	if input.PricePaise > input.MRPPaise {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not exceed mrp").
			WithDetails(map[string]any{
				"price_paise": input.PricePaise,
				"mrp_paise":   input.MRPPaise,
			})
	}
	if _, err := s.repo.FindVariant(ctx, input.VariantID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").
				WithDetails(map[string]any{"variant_id": input.VariantID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: load variant")
	}
	if _, err := s.groups.FindGroupByID(ctx, input.LocationGroupID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location group not found").
				WithDetails(map[string]any{"location_group_id": input.LocationGroupID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: load location group")
	}

	price := &models.VariantPrice{
		VariantID:       input.VariantID,
		LocationGroupID: input.LocationGroupID,
		PricePaise:      input.PricePaise,
		MRPPaise:        input.MRPPaise,
	}
	if err := s.repo.UpsertPrice(ctx, price); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: upsert price")
	}
	if err := s.cache.Invalidate(ctx, cache.TagPricing); err != nil {
		s.log.Warn(ctx, "pricing: cache invalidation failed")
	}
	return price, nil
}

func (s *service) DeletePrice(ctx context.Context, variantID, groupID uuid.UUID) error {
	if err := s.repo.DeletePrice(ctx, variantID, groupID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing: delete price")
	}
	if err := s.cache.Invalidate(ctx, cache.TagPricing); err != nil {
		s.log.Warn(ctx, "pricing: cache invalidation failed")
	}
	return nil
}

func resolutionCacheKey(variantID uuid.UUID, groupID *uuid.UUID) string {
	if groupID == nil {
		return fmt.Sprintf("price:%s:default", variantID)
	}
	return fmt.Sprintf("price:%s:%s", variantID, groupID)
}
