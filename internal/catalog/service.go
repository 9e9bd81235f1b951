package catalog

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/cache"
	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
)

// maxCategoryDepth bounds the ancestor walk so a corrupted parent chain
// cannot loop forever.
const maxCategoryDepth = 32

var slugScrub = regexp.MustCompile(`[^a-z0-9]+`)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductInput is the admin create/update payload for a product.
type ProductInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description"`
	BrandID     *uuid.UUID `json:"brand_id"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Tags        []string   `json:"tags"`
	IsActive    bool       `json:"is_active"`
}

// VariantInput is the admin payload for one purchasable configuration.
// InitialStock only applies at creation; later stock changes go through the
// stock ledger, never through catalog updates.
type VariantInput struct {
	ProductID    uuid.UUID `json:"product_id" validate:"required"`
	SKU          string    `json:"sku" validate:"required,max=64"`
	Size         *string   `json:"size"`
	Color        *string   `json:"color"`
	InitialStock int       `json:"initial_stock" validate:"gte=0"`
}

// CategoryInput is the admin payload for a category.
type CategoryInput struct {
	Name     string     `json:"name" validate:"required,max=120"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) error

	CreateVariant(ctx context.Context, input VariantInput) (*models.Variant, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, input VariantInput) error
	DeleteVariant(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error)
	// ReparentCategory moves a category under a new parent after walking the
	// ancestor chain to reject cycles.
	ReparentCategory(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error

	CreateBrand(ctx context.Context, name string) (*models.Brand, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	cache cache.Cache
	log   *logger.Logger
}

func NewService(repo Repository, tx txRunner, c cache.Cache, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog: repository is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog: tx runner is required")
	}
	if c == nil {
		c = cache.NewNoop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &service{repo: repo, tx: tx, cache: c, log: log}, nil
}

// PrimaryVariant is the variant the storefront shows by default: earliest
// created, smallest id on ties. Selection is explicit rather than relying on
// row order.
func PrimaryVariant(product *models.Product) *models.Variant {
	if product == nil || len(product.Variants) == 0 {
		return nil
	}
	primary := &product.Variants[0]
	for i := 1; i < len(product.Variants); i++ {
		candidate := &product.Variants[i]
		switch {
		case candidate.CreatedAt.Before(primary.CreatedAt):
			primary = candidate
		case candidate.CreatedAt.Equal(primary.CreatedAt) &&
			strings.Compare(candidate.ID.String(), primary.ID.String()) < 0:
			primary = candidate
		}
	}
	return primary
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	product := &models.Product{
		Title:       input.Title,
		Slug:        Slugify(input.Title),
		Description: input.Description,
		BrandID:     input.BrandID,
		CategoryID:  input.CategoryID,
		Tags:        pq.StringArray(input.Tags),
		IsActive:    input.IsActive,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	s.invalidate(ctx)
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) error {
	updates := map[string]any{
		"title":       input.Title,
		"description": input.Description,
		"brand_id":    input.BrandID,
		"category_id": input.CategoryID,
		"tags":        pq.StringArray(input.Tags),
		"is_active":   input.IsActive,
	}
	if err := s.repo.UpdateProduct(ctx, id, updates); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) CreateVariant(ctx context.Context, input VariantInput) (*models.Variant, error) {
	if _, err := s.GetProduct(ctx, input.ProductID); err != nil {
		return nil, err
	}
	variant := &models.Variant{
		ProductID: input.ProductID,
		SKU:       strings.ToUpper(strings.TrimSpace(input.SKU)),
		Size:      input.Size,
		Color:     input.Color,
		Stock:     input.InitialStock,
	}
	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
	}
	s.invalidate(ctx)
	return variant, nil
}

func (s *service) UpdateVariant(ctx context.Context, id uuid.UUID, input VariantInput) error {
	// Stock is deliberately absent: only the ledger mutates it.
	updates := map[string]any{
		"sku":   strings.ToUpper(strings.TrimSpace(input.SKU)),
		"size":  input.Size,
		"color": input.Color,
	}
	if err := s.repo.UpdateVariant(ctx, id, updates); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindVariant(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if err := s.repo.DeleteVariant(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete variant")
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	if input.ParentID != nil {
		if _, err := s.repo.FindCategory(ctx, *input.ParentID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent category")
		}
	}
	category := &models.Category{
		Name:     input.Name,
		Slug:     Slugify(input.Name),
		ParentID: input.ParentID,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	s.invalidate(ctx)
	return category, nil
}

func (s *service) ReparentCategory(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindCategory(ctx, id); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		if parentID != nil {
			if err := s.checkNoCycle(ctx, repo, id, *parentID); err != nil {
				return err
			}
		}
		return repo.UpdateCategory(ctx, id, map[string]any{"parent_id": parentID})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// checkNoCycle walks up from the proposed parent; finding the category being
// moved anywhere on that chain would create a loop.
func (s *service) checkNoCycle(ctx context.Context, repo Repository, id, parentID uuid.UUID) error {
	if parentID == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
	}
	current := parentID
	for depth := 0; depth < maxCategoryDepth; depth++ {
		ancestor, err := repo.FindCategory(ctx, current)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "parent category not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "walk category ancestors")
		}
		if ancestor.ParentID == nil {
			return nil
		}
		if *ancestor.ParentID == id {
			return pkgerrors.New(pkgerrors.CodeValidation, "reassignment would create a category cycle").
				WithDetails(map[string]any{"category_id": id, "parent_id": parentID})
		}
		current = *ancestor.ParentID
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "category ancestry exceeds the supported depth")
}

func (s *service) CreateBrand(ctx context.Context, name string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand name is required")
	}
	brand := &models.Brand{Name: name, Slug: Slugify(name)}
	if err := s.repo.CreateBrand(ctx, brand); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create brand")
	}
	s.invalidate(ctx)
	return brand, nil
}

func (s *service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.TagCatalog, cache.TagPricing); err != nil {
		s.log.Warn(ctx, "catalog: cache invalidation failed")
	}
}

// Slugify lowercases a title into a url-safe slug.
func Slugify(value string) string {
	slug := slugScrub.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}
