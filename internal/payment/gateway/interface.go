package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"paygate/internal/payment/model"
)

// =====================================================
// DRIVER CONTRACT
// =====================================================

// Driver is the common operation contract every gateway implements.
// A driver is stateless beyond its resolved credentials and is safe for
// concurrent use once constructed. Drivers never touch the ledger; they
// return outcomes the reconciler applies.
type Driver interface {
	// GatewayName returns the constant gateway identifier (e.g. "sslcommerz")
	GatewayName() string

	// Pay initiates a payment with the external gateway and returns the
	// transaction identifier plus a redirect URL (hosted checkout) or an
	// in-band token (wallet style)
	Pay(ctx context.Context, req model.PayRequest) (*PayResult, error)

	// Validate checks structural completeness of inbound callback data
	// before any field is trusted. No side effects.
	Validate(data CallbackData) error

	// IPN verifies the authenticity of an asynchronous notification and
	// normalises it into a CallbackEvent. It does not mutate anything;
	// applying the transition is the reconciler's job.
	IPN(data CallbackData) (*CallbackEvent, error)

	// Refund initiates a (possibly partial) refund for a captured payment
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)

	// Verify queries the gateway for the authoritative state of a
	// transaction. Safe to retry.
	Verify(ctx context.Context, transactionID string) (*VerifyResult, error)
}

// =====================================================
// COMMON REQUEST/RESPONSE TYPES
// =====================================================

// PayResult is the outcome of payment initiation
type PayResult struct {
	TransactionID string                 // gateway-assigned or locally generated
	RedirectURL   string                 // hosted-checkout target, empty for direct flows
	Raw           map[string]interface{} // full gateway response for audit
}

// CallbackData is the raw material of an inbound gateway notification.
// Body is the unmodified request payload the signature was computed over.
type CallbackData struct {
	Kind      string            // model.CallbackSuccess|Fail|Cancel|IPN
	Body      []byte            // raw request body
	Signature string            // from X-Signature header or body field
	Fields    map[string]string // parsed form/query parameters
}

// Field returns a parsed parameter, empty when absent.
func (d CallbackData) Field(key string) string {
	return d.Fields[key]
}

// CallbackEvent is a driver-normalised notification, ready for the
// reconciler to apply against the ledger.
type CallbackEvent struct {
	TransactionID string                 // our tran_id echoed by the gateway
	Status        string                 // mapped to model.Status* values
	GatewayRef    string                 // gateway-side transaction number, if any
	Amount        decimal.Decimal        // reported amount, zero when absent
	Raw           map[string]interface{} // payload snapshot stored as ipn_response
}

// RefundRequest is the driver-level refund input
type RefundRequest struct {
	TransactionID string
	GatewayRef    string // gateway-side reference from the capture, if required
	Amount        decimal.Decimal
	Reason        string
}

// RefundResult is the outcome of a refund initiation
type RefundResult struct {
	RefundID string
	Amount   decimal.Decimal
	Status   string
	Raw      map[string]interface{}
}

// VerifyResult is the gateway's authoritative view of a transaction
type VerifyResult struct {
	TransactionID string
	Status        string // mapped to model.Status* values
	Amount        decimal.Decimal
	Currency      string
	Raw           map[string]interface{}
}
