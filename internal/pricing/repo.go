package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
)

// Repository is the persistence surface for variant price rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindVariant(ctx context.Context, variantID uuid.UUID) (*models.Variant, error)
	FindPrice(ctx context.Context, variantID, groupID uuid.UUID) (*models.VariantPrice, error)
	// FindLowestPrice returns the cheapest non-zero price row for a variant,
	// ordered by price then id so repeated calls pick the same row.
	FindLowestPrice(ctx context.Context, variantID uuid.UUID) (*models.VariantPrice, error)
	ListPrices(ctx context.Context, variantID uuid.UUID) ([]models.VariantPrice, error)
	UpsertPrice(ctx context.Context, price *models.VariantPrice) error
	DeletePrice(ctx context.Context, variantID, groupID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(client *db.Client) Repository {
	return &repository{db: client.DB()}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindVariant(ctx context.Context, variantID uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", variantID).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) FindPrice(ctx context.Context, variantID, groupID uuid.UUID) (*models.VariantPrice, error) {
	var price models.VariantPrice
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND location_group_id = ?", variantID, groupID).
		First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repository) FindLowestPrice(ctx context.Context, variantID uuid.UUID) (*models.VariantPrice, error) {
	var price models.VariantPrice
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND price_paise > 0", variantID).
		Order("price_paise ASC, id ASC").
		First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repository) ListPrices(ctx context.Context, variantID uuid.UUID) ([]models.VariantPrice, error) {
	var prices []models.VariantPrice
	err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("created_at ASC, id ASC").
		Find(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}

func (r *repository) UpsertPrice(ctx context.Context, price *models.VariantPrice) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}, {Name: "location_group_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price_paise", "mrp_paise", "updated_at"}),
		}).
		Create(price).Error
}

func (r *repository) DeletePrice(ctx context.Context, variantID, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("variant_id = ? AND location_group_id = ?", variantID, groupID).
		Delete(&models.VariantPrice{}).Error
}
