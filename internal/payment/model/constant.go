package model

// =====================================================
// GATEWAY NAMES
// =====================================================
const (
	GatewaySSLCommerz = "sslcommerz"
	GatewayBkash      = "bkash"
	GatewayNagad      = "nagad"
)

var ValidGateways = []string{
	GatewaySSLCommerz,
	GatewayBkash,
	GatewayNagad,
}

// IsValidGateway reports whether a driver name is one of the supported
// gateways.
func IsValidGateway(name string) bool {
	for _, g := range ValidGateways {
		if g == name {
			return true
		}
	}
	return false
}

// =====================================================
// TRANSACTION STATUS
// =====================================================
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

var ValidStatuses = []string{
	StatusPending,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// IsValidStatus reports whether a status string is part of the state
// machine. The ledger rejects anything else before touching a row.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status is absorbing.
// Once a transaction reaches a terminal status it must never change.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// =====================================================
// CALLBACK KINDS
// =====================================================
// Gateways report outcomes through four channels: the three browser
// redirects and the server-to-server IPN.
const (
	CallbackSuccess = "success"
	CallbackFail    = "fail"
	CallbackCancel  = "cancel"
	CallbackIPN     = "ipn"
)

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	// Gateway resolution errors
	ErrCodeGatewayNotConfigured = "PAY001"
	ErrCodeDriverNotFound       = "PAY002"
	ErrCodeGatewayInactive      = "PAY003"

	// Credential errors
	ErrCodeCredentialMissing  = "PAY004"
	ErrCodeInvalidCredentials = "PAY005"

	// Payment errors
	ErrCodePaymentFailed      = "PAY006"
	ErrCodeInvalidAmount      = "PAY007"
	ErrCodeInvalidCurrency    = "PAY008"
	ErrCodePaymentFlagged     = "PAY009"

	// Callback / reconciliation errors
	ErrCodeInvalidSignature  = "PAY010"
	ErrCodeInvalidPayload    = "PAY011"
	ErrCodeConflictingStatus = "PAY012"
	ErrCodeTransactionExists = "PAY013"

	// Refund errors
	ErrCodeRefundNotAllowed = "PAY014"
	ErrCodeRefundTooLarge   = "PAY015"

	// Lookup errors
	ErrCodeTransactionNotFound = "PAY016"

	// System errors
	ErrCodeGatewayUnavailable = "PAY017"
	ErrCodeInternalError      = "PAY018"
)

// =====================================================
// PAYMENT CONFIGURATION
// =====================================================
const (
	// Pending transactions older than this are expired by the worker
	PaymentTimeoutMinutes = 30

	// Default currency for Bangladeshi gateways
	DefaultCurrency = "BDT"

	// Money fields carry exactly two fractional digits
	AmountScale = 2
)

// =====================================================
// FRAUD SCREEN DEFAULTS
// =====================================================
const (
	// Single-payment amount ceiling before a payment is flagged
	FraudMaxAmount = "100000.00"

	// Velocity window and attempt ceiling per customer
	FraudVelocityWindowMinutes = 10
	FraudMaxAttemptsPerWindow  = 5
)

// =====================================================
// LIFECYCLE EVENTS
// =====================================================
// Keys emitted on the payment event hook. Consumers register listeners
// for order updates, notifications or fraud review.
const (
	EventPaymentInitiated = "payment.initiated"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCancelled = "payment.cancelled"
	EventPaymentRefunded  = "payment.refunded"
	EventPaymentFlagged   = "payment.flagged"
	EventPaymentExpired   = "payment.expired"
)
