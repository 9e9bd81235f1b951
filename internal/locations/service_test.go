package locations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
)

type stubLocationsRepo struct {
	groupsByPincode map[string]*models.LocationGroup
	groupsByID      map[uuid.UUID]*models.LocationGroup
	locationCount   int64
	deletedGroup    *uuid.UUID
}

func (s *stubLocationsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubLocationsRepo) FindGroupByPincode(ctx context.Context, pincode string) (*models.LocationGroup, error) {
	if group, ok := s.groupsByPincode[pincode]; ok {
		return group, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLocationsRepo) FindGroupByID(ctx context.Context, id uuid.UUID) (*models.LocationGroup, error) {
	if group, ok := s.groupsByID[id]; ok {
		return group, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLocationsRepo) ListGroups(ctx context.Context) ([]models.LocationGroup, error) {
	groups := make([]models.LocationGroup, 0, len(s.groupsByID))
	for _, group := range s.groupsByID {
		groups = append(groups, *group)
	}
	return groups, nil
}

func (s *stubLocationsRepo) CreateGroup(ctx context.Context, group *models.LocationGroup) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	if s.groupsByID == nil {
		s.groupsByID = map[uuid.UUID]*models.LocationGroup{}
	}
	s.groupsByID[group.ID] = group
	return nil
}

func (s *stubLocationsRepo) UpdateGroup(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubLocationsRepo) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	s.deletedGroup = &id
	return nil
}

func (s *stubLocationsRepo) CountLocationsInGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	return s.locationCount, nil
}

func (s *stubLocationsRepo) FindLocationByPincode(ctx context.Context, pincode string) (*models.Location, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLocationsRepo) CreateLocation(ctx context.Context, location *models.Location) error {
	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}
	return nil
}

func (s *stubLocationsRepo) UpdateLocation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubLocationsRepo) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestResolvePincode(t *testing.T) {
	t.Parallel()

	group := &models.LocationGroup{ID: uuid.New(), Name: "metro-south", DeliveryDays: 2}
	repo := &stubLocationsRepo{
		groupsByPincode: map[string]*models.LocationGroup{"560001": group},
	}
	svc, err := NewService(repo, stubTxRunner{})
	require.NoError(t, err)

	resolved, err := svc.ResolvePincode(context.Background(), "560001")
	require.NoError(t, err)
	require.Equal(t, group.ID, resolved.ID)
}

func TestResolvePincodeUnmapped(t *testing.T) {
	t.Parallel()

	svc, err := NewService(&stubLocationsRepo{}, stubTxRunner{})
	require.NoError(t, err)

	resolved, err := svc.ResolvePincode(context.Background(), "110001")
	require.NoError(t, err)
	require.Nil(t, resolved)
}

func TestResolvePincodeRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	svc, err := NewService(&stubLocationsRepo{}, stubTxRunner{})
	require.NoError(t, err)

	for _, pincode := range []string{"", "12345", "1234567", "56OO01", "abc123"} {
		_, err := svc.ResolvePincode(context.Background(), pincode)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "pincode %q", pincode)
		require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestDeleteGroupRejectedWhenLocationsAttached(t *testing.T) {
	t.Parallel()

	groupID := uuid.New()
	repo := &stubLocationsRepo{
		groupsByID:    map[uuid.UUID]*models.LocationGroup{groupID: {ID: groupID, Name: "tier-2"}},
		locationCount: 3,
	}
	svc, err := NewService(repo, stubTxRunner{})
	require.NoError(t, err)

	err = svc.DeleteGroup(context.Background(), groupID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
	require.Nil(t, repo.deletedGroup)
}

func TestDeleteGroupEmpty(t *testing.T) {
	t.Parallel()

	groupID := uuid.New()
	repo := &stubLocationsRepo{
		groupsByID: map[uuid.UUID]*models.LocationGroup{groupID: {ID: groupID, Name: "tier-3"}},
	}
	svc, err := NewService(repo, stubTxRunner{})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteGroup(context.Background(), groupID))
	require.NotNil(t, repo.deletedGroup)
	require.Equal(t, groupID, *repo.deletedGroup)
}
