package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
)

// Movement is one variant quantity change within an order-scoped mutation.
type Movement struct {
	VariantID uuid.UUID
	Qty       int
}

// Decrement atomically subtracts qty from a variant's stock, refusing to go
// below zero. The conditional WHERE clause is the underflow guard: two
// concurrent orders for the same variant cannot both pass a read-then-write
// check.
func Decrement(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for stock decrement")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock decrement quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE variants
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, variantID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return classifyDecrementFailure(ctx, tx, variantID)
	}
	return nil
}

// Restore adds qty back to a variant's stock after a cancellation.
func Restore(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for stock restore")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock restore quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE variants
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, variantID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return nil
}

// DecrementAll applies every movement or none: the first failure aborts and
// the caller's transaction rolls back the earlier updates.
func DecrementAll(ctx context.Context, tx *gorm.DB, movements []Movement) error {
	for _, m := range movements {
		if err := Decrement(ctx, tx, m.VariantID, m.Qty); err != nil {
			return err
		}
	}
	return nil
}

// RestoreAll restores every movement inside the caller's transaction.
func RestoreAll(ctx context.Context, tx *gorm.DB, movements []Movement) error {
	for _, m := range movements {
		if err := Restore(ctx, tx, m.VariantID, m.Qty); err != nil {
			return err
		}
	}
	return nil
}

func classifyDecrementFailure(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) error {
	var count int64
	if err := tx.WithContext(ctx).
		Table("variants").
		Where("id = ?", variantID).
		Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect variant")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for variant").
		WithDetails(map[string]any{"variant_id": variantID})
}
