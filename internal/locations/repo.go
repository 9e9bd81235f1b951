package locations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
)

// Repository is the persistence surface for location groups and pincodes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindGroupByPincode(ctx context.Context, pincode string) (*models.LocationGroup, error)
	FindGroupByID(ctx context.Context, id uuid.UUID) (*models.LocationGroup, error)
	ListGroups(ctx context.Context) ([]models.LocationGroup, error)
	CreateGroup(ctx context.Context, group *models.LocationGroup) error
	UpdateGroup(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	CountLocationsInGroup(ctx context.Context, groupID uuid.UUID) (int64, error)

	FindLocationByPincode(ctx context.Context, pincode string) (*models.Location, error)
	CreateLocation(ctx context.Context, location *models.Location) error
	UpdateLocation(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteLocation(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a locations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindGroupByPincode(ctx context.Context, pincode string) (*models.LocationGroup, error) {
	var group models.LocationGroup
	err := r.db.WithContext(ctx).
		Joins("JOIN locations ON locations.location_group_id = location_groups.id").
		Where("locations.pincode = ?", pincode).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) FindGroupByID(ctx context.Context, id uuid.UUID) (*models.LocationGroup, error) {
	var group models.LocationGroup
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) ListGroups(ctx context.Context) ([]models.LocationGroup, error) {
	var groups []models.LocationGroup
	err := r.db.WithContext(ctx).Order("name ASC").Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) CreateGroup(ctx context.Context, group *models.LocationGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *repository) UpdateGroup(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.LocationGroup{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.LocationGroup{}).Error
}

func (r *repository) CountLocationsInGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Location{}).
		Where("location_group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

func (r *repository) FindLocationByPincode(ctx context.Context, pincode string) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).Where("pincode = ?", pincode).First(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *repository) CreateLocation(ctx context.Context, location *models.Location) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *repository) UpdateLocation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Location{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Location{}).Error
}
