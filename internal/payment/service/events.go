package service

import (
	"time"

	"github.com/zoobzio/hookz"

	"paygate/internal/payment/model"
)

// =====================================================
// LIFECYCLE EVENT HOOKS
// =====================================================
// Every observable transition is published on a hook so the host
// application can attach order updates, notifications or fraud review
// without the core knowing about them. Hooks run async with a bounded
// worker pool; a full queue drops the event rather than blocking the
// payment path.

// Events is the hook bus carrying payment lifecycle events.
type Events = hookz.Hooks[model.PaymentEvent]

// NewEvents creates the event bus used by the payment services.
func NewEvents() *Events {
	return hookz.New[model.PaymentEvent](
		hookz.WithWorkers(4),
		hookz.WithTimeout(5*time.Second),
	)
}

// newPaymentEvent builds the hook payload for a transaction snapshot.
func newPaymentEvent(t *model.Transaction, raw map[string]interface{}) model.PaymentEvent {
	return model.PaymentEvent{
		TransactionID: t.TransactionID,
		OrderID:       t.OrderID,
		GatewayName:   t.GatewayName,
		Status:        t.Status,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Raw:           raw,
		OccurredAt:    time.Now(),
	}
}

// eventKeyForStatus maps a terminal status to its hook key.
func eventKeyForStatus(status string) string {
	switch status {
	case model.StatusCompleted:
		return model.EventPaymentCompleted
	case model.StatusFailed:
		return model.EventPaymentFailed
	case model.StatusCancelled:
		return model.EventPaymentCancelled
	}
	return ""
}
