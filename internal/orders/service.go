package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/internal/stock"
	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	"github.com/rahulmehra/shopkart-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
	"github.com/rahulmehra/shopkart-backend/pkg/metrics"
	"github.com/rahulmehra/shopkart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Page is one page of the admin order listing.
type Page struct {
	Orders     []models.Order
	NextCursor string
}

type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetForUser is Get with an ownership check; a miss is reported as
	// not found rather than forbidden so order ids are not probeable.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error)

	// Transition moves an order along the lifecycle graph. Entering
	// CANCELLED restores stock exactly once; entering DELIVERED or REFUNDED
	// marks the order completed.
	Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*models.Order, error)

	// Cancel is the user-facing cancellation, permitted only while the
	// order is still PENDING.
	Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.CheckoutMetrics
	log     *logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, tx txRunner, m *metrics.CheckoutMetrics, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: repository is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: tx runner is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &service{repo: repo, tx: tx, metrics: m, log: log, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error) {
	orders, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := &Page{Orders: orders}
	limit := pagination.NormalizeLimit(params.Limit)
	if len(orders) > limit {
		page.Orders = orders[:limit]
		last := page.Orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (s *service) Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"requested": to.String()})
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		updated, err = s.apply(ctx, tx, order, to)
		return err
	})
	s.recordTransition(to, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.UserID == nil || *order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusPending {
			return invalidTransition(order.Status, enums.OrderStatusCancelled)
		}
		updated, err = s.apply(ctx, tx, order, enums.OrderStatusCancelled)
		return err
	})
	s.recordTransition(enums.OrderStatusCancelled, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}

// apply performs one validated transition inside tx, including the CANCELLED
// stock restoration and completion flags.
func (s *service) apply(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus) (*models.Order, error) {
	if !CanTransition(order.Status, to) {
		return nil, invalidTransition(order.Status, to)
	}

	repo := s.repo.WithTx(tx)
	updates := map[string]any{"status": to}
	if to == enums.OrderStatusDelivered || to == enums.OrderStatusRefunded {
		updates["is_completed"] = true
		order.IsCompleted = true
	}

	if to == enums.OrderStatusCancelled {
		if err := s.restoreStockOnce(ctx, tx, repo, order); err != nil {
			return nil, err
		}
	}

	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = to
	return order, nil
}

func (s *service) restoreStockOnce(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
	won, err := repo.MarkStockRestored(ctx, order.ID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp stock restoration")
	}
	if !won {
		// Already restored by an earlier cancellation attempt.
		s.log.Warn(ctx, "orders: stock already restored, skipping")
		return nil
	}

	movements := make([]stock.Movement, 0, len(order.Items))
	for _, item := range order.Items {
		movements = append(movements, stock.Movement{VariantID: item.VariantID, Qty: item.Qty})
	}
	return stock.RestoreAll(ctx, tx, movements)
}

func (s *service) recordTransition(to enums.OrderStatus, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	s.metrics.IncTransition(to.String(), result)
}
