package service

import (
	"context"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/model"
)

// =====================================================
// SERVICE INTERFACES
// =====================================================

// PaymentService orchestrates payment initiation, refunds and
// verification across the gateway manager and the ledger.
type PaymentService interface {
	// Pay initiates a payment and records a pending ledger entry
	Pay(ctx context.Context, req model.PayRequest) (*model.PayResponse, error)

	// Refund initiates a refund against a completed transaction
	Refund(ctx context.Context, req model.RefundRequest) (*model.RefundResponse, error)

	// Verify asks the gateway for the authoritative transaction state.
	// Unknown ids are fatal here, unlike callbacks.
	Verify(ctx context.Context, transactionID string) (*gateway.VerifyResult, error)

	// GetStatus returns the ledger view of a transaction
	GetStatus(ctx context.Context, transactionID string) (*model.TransactionStatusResponse, error)

	// ExpireStalePayments fails pending transactions past the payment
	// window, returning how many rows were touched
	ExpireStalePayments(ctx context.Context) (int, error)
}

// Reconciler consumes inbound gateway notifications and applies state
// transitions against the ledger.
type Reconciler interface {
	HandleCallback(ctx context.Context, gatewayName string, data gateway.CallbackData) (*ReconcileResult, error)
}

// ReconcileResult is returned to the caller (typically to update the
// order domain, which is outside this core).
type ReconcileResult struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Gateway       string `json:"gateway"`
	Status        string `json:"status"`

	// Duplicate marks a redelivered notification that changed nothing
	Duplicate bool `json:"duplicate"`
}

// Deduper is the fast-path duplicate-delivery filter backed by Redis in
// production. The ledger's terminal-state check remains the authority;
// the deduper only short-circuits obvious redeliveries.
type Deduper interface {
	// Seen reports whether a delivery key was already processed
	Seen(ctx context.Context, key string) (bool, error)

	// Mark records a delivery key after the transition committed
	Mark(ctx context.Context, key string) error
}
