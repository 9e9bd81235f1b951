package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
)

func openPriceDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`
		CREATE TABLE variant_prices (
			id TEXT PRIMARY KEY,
			variant_id TEXT NOT NULL,
			location_group_id TEXT NOT NULL,
			price_paise INTEGER NOT NULL,
			mrp_paise INTEGER NOT NULL,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (variant_id, location_group_id)
		)
	`).Error)
	return conn
}

func seedPrice(t *testing.T, repo Repository, variantID, groupID uuid.UUID, price, mrp int) {
	t.Helper()
	require.NoError(t, repo.UpsertPrice(context.Background(), &models.VariantPrice{
		ID:              uuid.New(),
		VariantID:       variantID,
		LocationGroupID: groupID,
		PricePaise:      price,
		MRPPaise:        mrp,
	}))
}

func TestUpsertPriceUpdatesExistingRow(t *testing.T) {
	conn := openPriceDB(t)
	repo := &repository{db: conn}
	variantID := uuid.New()
	groupID := uuid.New()

	seedPrice(t, repo, variantID, groupID, 9000, 11000)
	seedPrice(t, repo, variantID, groupID, 8500, 11000)

	prices, err := repo.ListPrices(context.Background(), variantID)
	require.NoError(t, err)
	require.Len(t, prices, 1, "conflicting upsert must update in place")
	require.Equal(t, 8500, prices[0].PricePaise)
}

func TestFindLowestPriceSkipsZeroRows(t *testing.T) {
	conn := openPriceDB(t)
	repo := &repository{db: conn}
	variantID := uuid.New()

	seedPrice(t, repo, variantID, uuid.New(), 0, 11000)
	seedPrice(t, repo, variantID, uuid.New(), 9900, 11000)
	seedPrice(t, repo, variantID, uuid.New(), 7500, 11000)

	lowest, err := repo.FindLowestPrice(context.Background(), variantID)
	require.NoError(t, err)
	require.Equal(t, 7500, lowest.PricePaise, "zero rows mean unavailable, not free")
}

func TestFindLowestPriceMissesWhenOnlyZeroRows(t *testing.T) {
	conn := openPriceDB(t)
	repo := &repository{db: conn}
	variantID := uuid.New()

	seedPrice(t, repo, variantID, uuid.New(), 0, 11000)

	_, err := repo.FindLowestPrice(context.Background(), variantID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeletePriceRemovesOnlyTargetGroup(t *testing.T) {
	conn := openPriceDB(t)
	repo := &repository{db: conn}
	variantID := uuid.New()
	groupA := uuid.New()
	groupB := uuid.New()

	seedPrice(t, repo, variantID, groupA, 9000, 11000)
	seedPrice(t, repo, variantID, groupB, 9500, 11000)

	require.NoError(t, repo.DeletePrice(context.Background(), variantID, groupA))

	prices, err := repo.ListPrices(context.Background(), variantID)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	require.Equal(t, groupB, prices[0].LocationGroupID)
}
