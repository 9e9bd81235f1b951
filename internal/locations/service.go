package locations

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
)

var pincodeRe = regexp.MustCompile(`^[0-9]{6}$`)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service resolves pincodes to location groups and manages the admin
// lifecycle of groups and locations.
type Service interface {
	// ResolvePincode returns the location group serving the pincode, or nil
	// when the pincode is valid but unmapped. Callers fall back to the price
	// resolver's default chain for unmapped pincodes.
	ResolvePincode(ctx context.Context, pincode string) (*models.LocationGroup, error)

	GetGroup(ctx context.Context, id uuid.UUID) (*models.LocationGroup, error)
	ListGroups(ctx context.Context) ([]models.LocationGroup, error)
	CreateGroup(ctx context.Context, input GroupInput) (*models.LocationGroup, error)
	UpdateGroup(ctx context.Context, id uuid.UUID, input GroupInput) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	AddLocation(ctx context.Context, input LocationInput) (*models.Location, error)
	MoveLocation(ctx context.Context, locationID uuid.UUID, groupID *uuid.UUID) error
	RemoveLocation(ctx context.Context, locationID uuid.UUID) error
}

// GroupInput carries the admin-editable delivery terms of a group.
type GroupInput struct {
	Name              string
	IsCODAvailable    bool
	DeliveryDays      int
	IsExpressDelivery bool
}

// LocationInput carries a pincode row.
type LocationInput struct {
	Pincode         string
	City            string
	State           string
	Country         string
	LocationGroupID *uuid.UUID
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the locations service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("locations repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) ResolvePincode(ctx context.Context, pincode string) (*models.LocationGroup, error) {
	if !pincodeRe.MatchString(pincode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode must be a 6-digit number")
	}

	group, err := s.repo.FindGroupByPincode(ctx, pincode)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve pincode")
	}
	return group, nil
}

func (s *service) GetGroup(ctx context.Context, id uuid.UUID) (*models.LocationGroup, error) {
	group, err := s.repo.FindGroupByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load location group")
	}
	return group, nil
}

func (s *service) ListGroups(ctx context.Context) ([]models.LocationGroup, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list location groups")
	}
	return groups, nil
}

func (s *service) CreateGroup(ctx context.Context, input GroupInput) (*models.LocationGroup, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group name required")
	}
	if input.DeliveryDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery days must be positive")
	}

	group := &models.LocationGroup{
		Name:              input.Name,
		IsCODAvailable:    input.IsCODAvailable,
		DeliveryDays:      input.DeliveryDays,
		IsExpressDelivery: input.IsExpressDelivery,
	}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create location group")
	}
	return group, nil
}

func (s *service) UpdateGroup(ctx context.Context, id uuid.UUID, input GroupInput) error {
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "group name required")
	}
	if input.DeliveryDays <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery days must be positive")
	}
	if _, err := s.GetGroup(ctx, id); err != nil {
		return err
	}

	updates := map[string]any{
		"name":                input.Name,
		"is_cod_available":    input.IsCODAvailable,
		"delivery_days":       input.DeliveryDays,
		"is_express_delivery": input.IsExpressDelivery,
	}
	if err := s.repo.UpdateGroup(ctx, id, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update location group")
	}
	return nil
}

// DeleteGroup refuses to delete a group that still has pincodes attached;
// the schema does not cascade and silent detachment would strand prices.
func (s *service) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindGroupByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "location group not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load location group")
		}

		count, err := repo.CountLocationsInGroup(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count group locations")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "location group has attached locations").
				WithDetails(map[string]any{"attached_locations": count})
		}

		if err := repo.DeleteGroup(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete location group")
		}
		return nil
	})
}

func (s *service) AddLocation(ctx context.Context, input LocationInput) (*models.Location, error) {
	if !pincodeRe.MatchString(input.Pincode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode must be a 6-digit number")
	}
	if input.City == "" || input.State == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city and state required")
	}
	if input.LocationGroupID != nil {
		if _, err := s.GetGroup(ctx, *input.LocationGroupID); err != nil {
			return nil, err
		}
	}

	country := input.Country
	if country == "" {
		country = "India"
	}
	location := &models.Location{
		Pincode:         input.Pincode,
		City:            input.City,
		State:           input.State,
		Country:         country,
		LocationGroupID: input.LocationGroupID,
	}
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create location")
	}
	return location, nil
}

// MoveLocation reassigns a pincode to another group (or detaches it when
// groupID is nil) in a single update.
func (s *service) MoveLocation(ctx context.Context, locationID uuid.UUID, groupID *uuid.UUID) error {
	if groupID != nil {
		if _, err := s.GetGroup(ctx, *groupID); err != nil {
			return err
		}
	}
	if err := s.repo.UpdateLocation(ctx, locationID, map[string]any{"location_group_id": groupID}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move location")
	}
	return nil
}

func (s *service) RemoveLocation(ctx context.Context, locationID uuid.UUID) error {
	if err := s.repo.DeleteLocation(ctx, locationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete location")
	}
	return nil
}
