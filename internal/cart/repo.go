package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
)

// Repository loads the variant and product rows a quote needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
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

func (r *repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
