package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// =====================================================
// TRANSACTION ENTITY (LEDGER RECORD)
// =====================================================
// Transaction is the ledger row for one payment attempt. The ledger is
// the single source of truth reconciled against gateway callbacks; only
// the ledger mutates it, drivers just return outcomes.
type Transaction struct {
	ID            int64  `json:"id" db:"id"`
	TransactionID string `json:"transaction_id" db:"transaction_id"`
	GatewayName   string `json:"gateway_name" db:"gateway_name"`
	OrderID       string `json:"order_id" db:"order_id"`

	Amount   decimal.Decimal `json:"amount" db:"amount"`
	Currency string          `json:"currency" db:"currency"`

	// pending -> completed|failed|cancelled, terminal states absorbing
	Status string `json:"status" db:"status"`

	// Driver-specific response snapshot from payment initiation
	PaymentDetails map[string]interface{} `json:"payment_details,omitempty" db:"payment_details"`

	// Last raw callback payload applied to this row
	IPNResponse map[string]interface{} `json:"ipn_response,omitempty" db:"ipn_response"`

	CustomerID *string `json:"customer_id,omitempty" db:"customer_id"`

	// Refund tracking
	RefundAmount decimal.Decimal `json:"refund_amount" db:"refund_amount"`
	RefundReason *string         `json:"refund_reason,omitempty" db:"refund_reason"`
	RefundedAt   *time.Time      `json:"refunded_at,omitempty" db:"refunded_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the transaction reached an absorbing status.
func (t *Transaction) IsTerminal() bool {
	return IsTerminalStatus(t.Status)
}

// IsExpired reports whether a pending transaction outlived the payment window.
func (t *Transaction) IsExpired() bool {
	if t.Status != StatusPending {
		return false
	}
	timeout := time.Duration(PaymentTimeoutMinutes) * time.Minute
	return time.Since(t.CreatedAt) > timeout
}

// CanBeRefunded reports whether a refund may be initiated against this row.
// Only completed transactions with remaining captured amount qualify.
func (t *Transaction) CanBeRefunded() bool {
	if t.Status != StatusCompleted {
		return false
	}
	return t.RefundAmount.LessThan(t.Amount)
}

// GatewayReference returns the gateway-side transaction number captured
// during reconciliation. Key names differ per gateway, so the lookup is
// kept here instead of scattering raw map access through the codebase.
func (t *Transaction) GatewayReference() string {
	for _, key := range []string{"bank_tran_id", "trxID", "issuer_payment_ref"} {
		if v, ok := t.IPNResponse[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// RefundableAmount returns the captured amount not yet refunded.
func (t *Transaction) RefundableAmount() decimal.Decimal {
	if t.Status != StatusCompleted {
		return decimal.Zero
	}
	return t.Amount.Sub(t.RefundAmount)
}

// =====================================================
// GATEWAY SPEC ENTITY
// =====================================================
// GatewaySpec is the persisted, administratively managed configuration
// for one named gateway. Read-only to this core; an inactive spec never
// resolves to a usable driver.
type GatewaySpec struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	IsActive bool   `json:"is_active" db:"is_active"`

	// Opaque key -> value secret mapping, wins over static config
	Credentials map[string]string `json:"credentials,omitempty" db:"credentials"`

	TestMode bool `json:"test_mode" db:"test_mode"`

	AdditionalParameters map[string]string `json:"additional_parameters,omitempty" db:"additional_parameters"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// =====================================================
// PAYMENT EVENT
// =====================================================
// PaymentEvent is the payload published on the lifecycle hook for every
// observable transition. Raw carries the gateway payload that caused it.
type PaymentEvent struct {
	TransactionID string                 `json:"transaction_id"`
	OrderID       string                 `json:"order_id"`
	GatewayName   string                 `json:"gateway_name"`
	Status        string                 `json:"status"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency"`
	Raw           map[string]interface{} `json:"raw,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}
