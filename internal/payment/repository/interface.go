package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/payment/model"
)

// =====================================================
// LEDGER INTERFACE
// =====================================================

// Ledger is the sole owner and mutator of transaction records.
// UpdateStatus enforces the terminal-state invariant: a repeat of the
// same terminal status is a no-op that keeps the latest payload, a
// conflicting terminal status fails with ErrConflictingStatus.
type Ledger interface {
	// Create inserts a new pending transaction
	Create(ctx context.Context, t *model.Transaction) error

	// FindByTransactionID loads one record or ErrTransactionNotFound
	FindByTransactionID(ctx context.Context, transactionID string) (*model.Transaction, error)

	// FindByOrderID lists every attempt recorded for an order
	FindByOrderID(ctx context.Context, orderID string) ([]*model.Transaction, error)

	// UpdateStatus applies a state transition under a per-transaction
	// serialization guarantee and stores the raw callback payload
	UpdateStatus(ctx context.Context, transactionID, newStatus string, rawPayload map[string]interface{}) (*model.Transaction, error)

	// RecordRefund accumulates a refund against a completed transaction
	RecordRefund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string, raw map[string]interface{}) (*model.Transaction, error)

	// CountRecentByCustomer counts payment attempts for the velocity screen
	CountRecentByCustomer(ctx context.Context, customerID string, since time.Time) (int, error)

	// ExpireStale fails pending transactions created before the cutoff
	// and returns the rows it touched
	ExpireStale(ctx context.Context, cutoff time.Time) ([]*model.Transaction, error)
}

// =====================================================
// GATEWAY SPEC STORE
// =====================================================

// SpecStore reads the persisted gateway configuration. Write side is
// administrative tooling, outside this core.
type SpecStore interface {
	// ActiveSpec returns the active spec for a name, or nil when no
	// active row exists
	ActiveSpec(ctx context.Context, name string) (*model.GatewaySpec, error)
}
