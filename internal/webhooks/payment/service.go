package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulmehra/shopkart-backend/internal/orders"
	"github.com/rahulmehra/shopkart-backend/internal/stock"
	"github.com/rahulmehra/shopkart-backend/pkg/db"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
	"github.com/rahulmehra/shopkart-backend/pkg/metrics"
)

// EventOrderPaid is the only event kind that mutates state; everything else
// is acknowledged and dropped.
const EventOrderPaid = "order.paid"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Payment is the provider payment object inside a webhook delivery. Notes
// carry our order id, stamped at checkout.
type Payment struct {
	ID      string            `json:"id"`
	Notes   map[string]string `json:"notes"`
	Contact string            `json:"contact"`
	Method  string            `json:"method"`
}

// Event is one verified webhook delivery.
type Event struct {
	Event   string  `json:"event"`
	Payment Payment `json:"payment"`
}

// Outcome reports what processing did with a delivery.
type Outcome string

const (
	OutcomePaid    Outcome = "paid"
	OutcomeAlready Outcome = "already_paid"
	OutcomeIgnored Outcome = "ignored"
)

type Service interface {
	// Process applies one verified event. order.paid marks the order paid
	// and decrements stock; a redelivery for an already-paid order is a
	// successful no-op.
	Process(ctx context.Context, event Event) (Outcome, error)
}

type service struct {
	repo    orders.Repository
	tx      txRunner
	metrics *metrics.CheckoutMetrics
	log     *logger.Logger
	now     func() time.Time
}

func NewService(repo orders.Repository, tx txRunner, m *metrics.CheckoutMetrics, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhooks: orders repository is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhooks: tx runner is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &service{repo: repo, tx: tx, metrics: m, log: log, now: time.Now}, nil
}

func (s *service) Process(ctx context.Context, event Event) (Outcome, error) {
	if event.Event != EventOrderPaid {
		s.metrics.IncWebhook("ignored")
		return OutcomeIgnored, nil
	}

	orderID, err := uuid.Parse(event.Payment.Notes["id"])
	if err != nil {
		s.metrics.IncWebhook("bad_payload")
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment notes missing order id")
	}

	outcome := OutcomePaid
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// Providers replay deliveries; an already-paid order is done.
		if order.IsPaid {
			outcome = OutcomeAlready
			return nil
		}

		movements := make([]stock.Movement, 0, len(order.Items))
		for _, item := range order.Items {
			movements = append(movements, stock.Movement{VariantID: item.VariantID, Qty: item.Qty})
		}
		if err := stock.DecrementAll(ctx, tx, movements); err != nil {
			return err
		}

		updates := map[string]any{
			"is_paid": true,
			"paid_at": s.now(),
		}
		if order.ShippingPhone == "" && event.Payment.Contact != "" {
			updates["shipping_phone"] = event.Payment.Contact
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncWebhook("failed")
		return "", err
	}

	s.metrics.IncWebhook(string(outcome))
	s.log.Info(s.log.WithOrderID(ctx, orderID.String()), "payment webhook processed")
	return outcome, nil
}
