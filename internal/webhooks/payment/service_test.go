package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/internal/orders"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	"github.com/rahulmehra/shopkart-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/pagination"
)

func openStockDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`
		CREATE TABLE variants (
			id TEXT PRIMARY KEY,
			product_id TEXT,
			sku TEXT,
			stock INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error)
	return conn
}

func seedStock(t *testing.T, conn *gorm.DB, variantID uuid.UUID, stock int) {
	t.Helper()
	require.NoError(t, conn.Exec(
		"INSERT INTO variants (id, product_id, sku, stock) VALUES (?, ?, ?, ?)",
		variantID, uuid.New(), "SK-"+variantID.String()[:8], stock,
	).Error)
}

func currentStock(t *testing.T, conn *gorm.DB, variantID uuid.UUID) int {
	t.Helper()
	var stock int
	require.NoError(t, conn.Raw("SELECT stock FROM variants WHERE id = ?", variantID).Scan(&stock).Error)
	return stock
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type stubOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := s.orders[id]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, id)
}

func (s *stubOrdersRepo) List(ctx context.Context, filter orders.ListFilter, params pagination.Params) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	order, ok := s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if paid, ok := updates["is_paid"]; ok {
		order.IsPaid = paid.(bool)
	}
	if at, ok := updates["paid_at"]; ok {
		stamped := at.(time.Time)
		order.PaidAt = &stamped
	}
	if phone, ok := updates["shipping_phone"]; ok {
		order.ShippingPhone = phone.(string)
	}
	return nil
}

func (s *stubOrdersRepo) MarkStockRestored(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return false, nil
}

func (s *stubOrdersRepo) NextOrderNumber(ctx context.Context) (int64, error) {
	return 1001, nil
}

func paidEvent(orderID uuid.UUID) Event {
	return Event{
		Event: EventOrderPaid,
		Payment: Payment{
			ID:      "pay_stub123",
			Notes:   map[string]string{"id": orderID.String()},
			Contact: "9876543210",
		},
	}
}

func newTestService(t *testing.T, repo orders.Repository, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(repo, gormTxRunner{db: conn}, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestProcessOrderPaid(t *testing.T) {
	t.Parallel()

	conn := openStockDB(t)
	repo := newStubOrdersRepo()
	variantID := uuid.New()
	seedStock(t, conn, variantID, 5)

	order := &models.Order{
		ID:     uuid.New(),
		Status: enums.OrderStatusPending,
		Items:  []models.OrderProduct{{VariantID: variantID, Qty: 2}},
	}
	repo.orders[order.ID] = order
	svc := newTestService(t, repo, conn)

	outcome, err := svc.Process(context.Background(), paidEvent(order.ID))
	require.NoError(t, err)
	require.Equal(t, OutcomePaid, outcome)
	require.True(t, repo.orders[order.ID].IsPaid)
	require.NotNil(t, repo.orders[order.ID].PaidAt)
	require.Equal(t, "9876543210", repo.orders[order.ID].ShippingPhone)
	require.Equal(t, 3, currentStock(t, conn, variantID))
}

func TestProcessDuplicateDeliveryIsNoOp(t *testing.T) {
	t.Parallel()

	conn := openStockDB(t)
	repo := newStubOrdersRepo()
	variantID := uuid.New()
	seedStock(t, conn, variantID, 5)

	order := &models.Order{
		ID:     uuid.New(),
		Status: enums.OrderStatusPending,
		Items:  []models.OrderProduct{{VariantID: variantID, Qty: 2}},
	}
	repo.orders[order.ID] = order
	svc := newTestService(t, repo, conn)

	outcome, err := svc.Process(context.Background(), paidEvent(order.ID))
	require.NoError(t, err)
	require.Equal(t, OutcomePaid, outcome)

	outcome, err = svc.Process(context.Background(), paidEvent(order.ID))
	require.NoError(t, err)
	require.Equal(t, OutcomeAlready, outcome)
	require.True(t, repo.orders[order.ID].IsPaid)
	require.Equal(t, 3, currentStock(t, conn, variantID))
}

func TestProcessIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newStubOrdersRepo(), openStockDB(t))

	outcome, err := svc.Process(context.Background(), Event{Event: "payment.failed"})
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, outcome)
}

func TestProcessMissingOrderNote(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newStubOrdersRepo(), openStockDB(t))

	_, err := svc.Process(context.Background(), Event{
		Event:   EventOrderPaid,
		Payment: Payment{ID: "pay_stub123"},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestProcessUnknownOrder(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newStubOrdersRepo(), openStockDB(t))

	_, err := svc.Process(context.Background(), paidEvent(uuid.New()))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestProcessShortfallRollsBack(t *testing.T) {
	t.Parallel()

	conn := openStockDB(t)
	repo := newStubOrdersRepo()
	plenty, scarce := uuid.New(), uuid.New()
	seedStock(t, conn, plenty, 10)
	seedStock(t, conn, scarce, 1)

	order := &models.Order{
		ID:     uuid.New(),
		Status: enums.OrderStatusPending,
		Items: []models.OrderProduct{
			{VariantID: plenty, Qty: 2},
			{VariantID: scarce, Qty: 2},
		},
	}
	repo.orders[order.ID] = order
	svc := newTestService(t, repo, conn)

	_, err := svc.Process(context.Background(), paidEvent(order.ID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	require.False(t, repo.orders[order.ID].IsPaid)

	// The first decrement rolled back with the transaction.
	require.Equal(t, 10, currentStock(t, conn, plenty))
	require.Equal(t, 1, currentStock(t, conn, scarce))
}
