package catalog

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

type stubCatalogRepo struct {
	products        map[uuid.UUID]*models.Product
	variants        map[uuid.UUID]*models.Variant
	categories      map[uuid.UUID]*models.Category
	variantUpdates  map[uuid.UUID]map[string]any
	categoryUpdates map[uuid.UUID]map[string]any
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		products:        map[uuid.UUID]*models.Product{},
		variants:        map[uuid.UUID]*models.Variant{},
		categories:      map[uuid.UUID]*models.Category{},
		variantUpdates:  map[uuid.UUID]map[string]any{},
		categoryUpdates: map[uuid.UUID]map[string]any{},
	}
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCatalogRepo) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := s.products[id]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	for _, product := range s.products {
		if product.Slug == slug {
			return product, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	s.products[product.ID] = product
	return nil
}

func (s *stubCatalogRepo) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if _, ok := s.products[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *stubCatalogRepo) FindVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	if variant, ok := s.variants[id]; ok {
		return variant, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) CreateVariant(ctx context.Context, variant *models.Variant) error {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	s.variants[variant.ID] = variant
	return nil
}

func (s *stubCatalogRepo) UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if _, ok := s.variants[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.variantUpdates[id] = updates
	return nil
}

func (s *stubCatalogRepo) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	delete(s.variants, id)
	return nil
}

func (s *stubCatalogRepo) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if category, ok := s.categories[id]; ok {
		return category, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	s.categories[category.ID] = category
	return nil
}

func (s *stubCatalogRepo) UpdateCategory(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	category, ok := s.categories[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.categoryUpdates[id] = updates
	if parent, ok := updates["parent_id"]; ok {
		category.ParentID, _ = parent.(*uuid.UUID)
	}
	return nil
}

func (s *stubCatalogRepo) FindBrand(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) CreateBrand(ctx context.Context, brand *models.Brand) error {
	if brand.ID == uuid.Nil {
		brand.ID = uuid.New()
	}
	return nil
}

func (s *stubCatalogRepo) addCategory(name string, parentID *uuid.UUID) *models.Category {
	category := &models.Category{ID: uuid.New(), Name: name, Slug: Slugify(name), ParentID: parentID}
	s.categories[category.ID] = category
	return category
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	require.Equal(t, "crew-neck-tee", Slugify("Crew Neck Tee"))
	require.Equal(t, "kids-2-pack", Slugify("  Kids' 2-Pack!  "))
	require.Equal(t, "saree", Slugify("SAREE"))
}

func TestPrimaryVariantSelection(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	oldest := models.Variant{ID: uuid.New(), CreatedAt: base}
	newer := models.Variant{ID: uuid.New(), CreatedAt: base.Add(time.Hour)}
	product := &models.Product{Variants: []models.Variant{newer, oldest}}

	primary := PrimaryVariant(product)
	require.Equal(t, oldest.ID, primary.ID)

	// Creation-time ties break on the smaller id.
	lowID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	highID := uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")
	tied := &models.Product{Variants: []models.Variant{
		{ID: highID, CreatedAt: base},
		{ID: lowID, CreatedAt: base},
	}}
	require.Equal(t, lowID, PrimaryVariant(tied).ID)

	require.Nil(t, PrimaryVariant(&models.Product{}))
	require.Nil(t, PrimaryVariant(nil))
}

func TestCreateProductGeneratesSlug(t *testing.T) {
	t.Parallel()

	repo := newStubCatalogRepo()
	svc := newTestService(t, repo)

	product, err := svc.CreateProduct(context.Background(), ProductInput{
		Title:    "Monsoon Windcheater",
		IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, "monsoon-windcheater", product.Slug)
}

func TestCreateVariantNormalizesSKU(t *testing.T) {
	t.Parallel()

	repo := newStubCatalogRepo()
	productID := uuid.New()
	repo.products[productID] = &models.Product{ID: productID, Title: "Crew Tee"}
	svc := newTestService(t, repo)

	variant, err := svc.CreateVariant(context.Background(), VariantInput{
		ProductID:    productID,
		SKU:          " tee-m-blue ",
		InitialStock: 12,
	})
	require.NoError(t, err)
	require.Equal(t, "TEE-M-BLUE", variant.SKU)
	require.Equal(t, 12, variant.Stock)
}

func TestUpdateVariantNeverTouchesStock(t *testing.T) {
	t.Parallel()

	repo := newStubCatalogRepo()
	variantID := uuid.New()
	repo.variants[variantID] = &models.Variant{ID: variantID, SKU: "OLD", Stock: 9}
	svc := newTestService(t, repo)

	err := svc.UpdateVariant(context.Background(), variantID, VariantInput{
		SKU:          "NEW",
		InitialStock: 500,
	})
	require.NoError(t, err)
	_, touched := repo.variantUpdates[variantID]["stock"]
	require.False(t, touched)
}

func TestReparentCategory(t *testing.T) {
	t.Parallel()

	repo := newStubCatalogRepo()
	clothing := repo.addCategory("Clothing", nil)
	menswear := repo.addCategory("Menswear", &clothing.ID)
	svc := newTestService(t, repo)

	shoes := repo.addCategory("Shoes", nil)
	require.NoError(t, svc.ReparentCategory(context.Background(), shoes.ID, &menswear.ID))
	require.Equal(t, menswear.ID, *repo.categories[shoes.ID].ParentID)
}

func TestReparentCategoryRejectsCycle(t *testing.T) {
	t.Parallel()

	repo := newStubCatalogRepo()
	clothing := repo.addCategory("Clothing", nil)
	menswear := repo.addCategory("Menswear", &clothing.ID)
	shirts := repo.addCategory("Shirts", &menswear.ID)
	svc := newTestService(t, repo)

	// Clothing under Shirts would loop Clothing -> Menswear -> Shirts.
	err := svc.ReparentCategory(context.Background(), clothing.ID, &shirts.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Nil(t, repo.categories[clothing.ID].ParentID)
}

func TestReparentCategoryRejectsSelf(t *testing.T) {
	t.Parallel()

	repo := newStubCatalogRepo()
	clothing := repo.addCategory("Clothing", nil)
	svc := newTestService(t, repo)

	err := svc.ReparentCategory(context.Background(), clothing.ID, &clothing.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestReparentCategoryDepthGuard(t *testing.T) {
	t.Parallel()

	repo := newStubCatalogRepo()
	root := repo.addCategory("Root", nil)
	parent := root
	for i := 0; i < maxCategoryDepth+1; i++ {
		parent = repo.addCategory(uuid.NewString(), &parent.ID)
	}
	outsider := repo.addCategory("Outsider", nil)
	svc := newTestService(t, repo)

	err := svc.ReparentCategory(context.Background(), outsider.ID, &parent.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
