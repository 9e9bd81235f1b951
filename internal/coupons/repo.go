package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
)

// Repository is the persistence surface for coupons, their product links and
// the per-user redemption ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceProductLinks(ctx context.Context, couponID uuid.UUID, productIDs []uuid.UUID) error

	CountRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int64, error)
	CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error
	IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error
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

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Products").
		First(&coupon, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) List(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Products").
		Order("created_at DESC").
		Find(&coupons).Error
	if err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Select("Products").
		Delete(&models.Coupon{ID: id}).Error
}

func (r *repository) ReplaceProductLinks(ctx context.Context, couponID uuid.UUID, productIDs []uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("coupon_id = ?", couponID).
		Delete(&models.CouponProduct{}).Error; err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return nil
	}
	links := make([]models.CouponProduct, 0, len(productIDs))
	for _, productID := range productIDs {
		links = append(links, models.CouponProduct{CouponID: couponID, ProductID: productID})
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

func (r *repository) CountRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
