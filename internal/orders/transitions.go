package orders

import (
	"fmt"

	"github.com/rahulmehra/shopkart-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
)

// allowedTransitions is the order lifecycle graph. Anything not listed is
// rejected without mutating the order.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:       {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:    {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:       {enums.OrderStatusOutOfDelivery, enums.OrderStatusReturned},
	enums.OrderStatusOutOfDelivery: {enums.OrderStatusDelivered, enums.OrderStatusReturned},
	enums.OrderStatusDelivered:     {enums.OrderStatusReturned},
	enums.OrderStatusReturned:      {enums.OrderStatusRefunded},
	enums.OrderStatusCancelled:     {},
	enums.OrderStatusRefunded:      {},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{
			"current":   from.String(),
			"requested": to.String(),
		})
}
