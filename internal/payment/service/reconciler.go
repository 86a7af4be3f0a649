package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/zoobzio/hookz"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/model"
	"paygate/internal/payment/repository"
	"paygate/pkg/logger"
)

// =====================================================
// CALLBACK RECONCILER
// =====================================================
// Consumes inbound gateway notifications and drives the transaction
// state machine: pending -> completed|failed|cancelled, terminal states
// absorbing. Authenticity is checked by the driver before anything is
// trusted; the ledger's terminal-state guard makes redeliveries safe
// even when the dedup fast path misses.

type reconciler struct {
	manager *gateway.Manager
	ledger  repository.Ledger
	dedup   Deduper
	events  *Events
}

func NewReconciler(
	manager *gateway.Manager,
	ledger repository.Ledger,
	dedup Deduper,
	events *Events,
) Reconciler {
	return &reconciler{
		manager: manager,
		ledger:  ledger,
		dedup:   dedup,
		events:  events,
	}
}

func (r *reconciler) HandleCallback(ctx context.Context, gatewayName string, data gateway.CallbackData) (*ReconcileResult, error) {
	driver, err := r.manager.Gateway(ctx, gatewayName)
	if err != nil {
		return nil, err
	}

	// Signature verification happens inside the driver before any
	// field is trusted. A mismatch stops everything here.
	event, err := driver.IPN(data)
	if err != nil {
		if errors.Is(err, model.ErrInvalidSignature) {
			logger.Error("callback rejected: signature mismatch", err)
		}
		return nil, err
	}

	// A browser redirect whose reported outcome contradicts the channel
	// it arrived on is a rewritten redirect URL, not a gateway quirk.
	if !kindMatchesStatus(data.Kind, event.Status) {
		logger.Info("callback kind contradicts reported status", map[string]interface{}{
			"gateway":        driver.GatewayName(),
			"transaction_id": event.TransactionID,
			"kind":           data.Kind,
			"status":         event.Status,
		})
		return nil, model.NewPaymentError(model.ErrCodeInvalidPayload,
			fmt.Sprintf("%s callback reported status %s", data.Kind, event.Status),
			model.ErrInvalidPayload)
	}

	dedupKey := fmt.Sprintf("%s:%s:%s", driver.GatewayName(), event.TransactionID, event.Status)

	if seen, err := r.seen(ctx, dedupKey); err == nil && seen {
		txn, err := r.ledger.FindByTransactionID(ctx, event.TransactionID)
		if err == nil {
			return &ReconcileResult{
				TransactionID: txn.TransactionID,
				OrderID:       txn.OrderID,
				Gateway:       txn.GatewayName,
				Status:        txn.Status,
				Duplicate:     true,
			}, nil
		}
		// Dedup hit without a ledger row: fall through and let the
		// ledger decide.
	}

	before, err := r.ledger.FindByTransactionID(ctx, event.TransactionID)
	if err != nil {
		// Gateways retry for stale or unknown ids; report, don't fail hard.
		logger.Info("callback for unknown transaction", map[string]interface{}{
			"gateway":        driver.GatewayName(),
			"transaction_id": event.TransactionID,
		})
		return nil, err
	}
	alreadyTerminal := before.IsTerminal()

	updated, err := r.ledger.UpdateStatus(ctx, event.TransactionID, event.Status, event.Raw)
	if err != nil {
		if errors.Is(err, model.ErrConflictingStatus) {
			// Two different terminal outcomes for one transaction is a
			// correctness anomaly, never resolved silently.
			logger.Error("conflicting terminal status reported by gateway", err)
		}
		return nil, err
	}

	r.mark(ctx, dedupKey)

	// Emit only on the transition that actually happened
	if !alreadyTerminal && updated.IsTerminal() {
		if key := eventKeyForStatus(updated.Status); key != "" {
			r.emit(key, newPaymentEvent(updated, event.Raw))
		}
		logger.Info("transaction reconciled", map[string]interface{}{
			"gateway":        updated.GatewayName,
			"transaction_id": updated.TransactionID,
			"status":         updated.Status,
		})
	}

	return &ReconcileResult{
		TransactionID: updated.TransactionID,
		OrderID:       updated.OrderID,
		Gateway:       updated.GatewayName,
		Status:        updated.Status,
		Duplicate:     alreadyTerminal,
	}, nil
}

// kindMatchesStatus pins each redirect channel to its one legitimate
// outcome. The server-to-server IPN carries any outcome.
func kindMatchesStatus(kind, status string) bool {
	switch kind {
	case model.CallbackSuccess:
		return status == model.StatusCompleted
	case model.CallbackFail:
		return status == model.StatusFailed
	case model.CallbackCancel:
		return status == model.StatusCancelled
	}
	return true
}

func (r *reconciler) seen(ctx context.Context, key string) (bool, error) {
	if r.dedup == nil {
		return false, nil
	}
	return r.dedup.Seen(ctx, key)
}

// mark is best effort; a miss only costs one extra pass through the
// ledger's idempotency check.
func (r *reconciler) mark(ctx context.Context, key string) {
	if r.dedup == nil {
		return
	}
	if err := r.dedup.Mark(ctx, key); err != nil {
		logger.Error("failed to mark callback delivery", err)
	}
}

func (r *reconciler) emit(key string, event model.PaymentEvent) {
	if r.events == nil {
		return
	}
	if err := r.events.Emit(context.Background(), hookz.Key(key), event); err != nil {
		logger.Error("failed to emit payment event", err)
	}
}
