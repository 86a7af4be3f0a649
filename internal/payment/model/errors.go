package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	// Gateway resolution
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	ErrDriverNotFound       = errors.New("payment gateway driver not found")
	ErrGatewayInactive      = errors.New("payment gateway is inactive")

	// Credentials
	ErrCredentialMissing  = errors.New("gateway credential missing")
	ErrInvalidCredentials = errors.New("gateway rejected credentials")

	// Payment
	ErrPaymentFailed  = errors.New("payment failed")
	ErrPaymentFlagged = errors.New("payment flagged by fraud screen")

	// Callback / reconciliation
	ErrInvalidSignature  = errors.New("invalid callback signature")
	ErrInvalidPayload    = errors.New("malformed callback payload")
	ErrConflictingStatus = errors.New("conflicting terminal status")

	// Lookups
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionExists   = errors.New("transaction already exists")

	// Refunds
	ErrRefundNotAllowed = errors.New("refund not allowed")
	ErrRefundTooLarge   = errors.New("refund exceeds captured amount")
)

// =====================================================
// CUSTOM PAYMENT ERROR
// =====================================================

type PaymentError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewGatewayNotConfiguredError(name string) *PaymentError {
	return NewPaymentError(
		ErrCodeGatewayNotConfigured,
		fmt.Sprintf("Gateway [%s] is not configured", name),
		ErrGatewayNotConfigured,
	)
}

func NewDriverNotFoundError(name, kind string) *PaymentError {
	return NewPaymentError(
		ErrCodeDriverNotFound,
		fmt.Sprintf("Driver [%s] for gateway [%s] not found", kind, name),
		ErrDriverNotFound,
	)
}

func NewGatewayInactiveError(name string) *PaymentError {
	return NewPaymentError(
		ErrCodeGatewayInactive,
		fmt.Sprintf("Gateway [%s] is inactive", name),
		ErrGatewayInactive,
	)
}

func NewCredentialMissingError(gateway, key string) *PaymentError {
	return NewPaymentError(
		ErrCodeCredentialMissing,
		fmt.Sprintf("Credential %s not found for %s", key, gateway),
		ErrCredentialMissing,
	)
}

func NewPaymentFailedError(gateway, reason string, err error) *PaymentError {
	if err == nil {
		err = ErrPaymentFailed
	}
	return NewPaymentError(
		ErrCodePaymentFailed,
		fmt.Sprintf("%s payment failed: %s", gateway, reason),
		err,
	)
}

func NewInvalidSignatureError(gateway string) *PaymentError {
	return NewPaymentError(
		ErrCodeInvalidSignature,
		fmt.Sprintf("Invalid %s callback signature - possible tampering attempt", gateway),
		ErrInvalidSignature,
	)
}

func NewConflictingStatusError(transactionID, current, attempted string) *PaymentError {
	return NewPaymentError(
		ErrCodeConflictingStatus,
		fmt.Sprintf("Transaction %s is already %s, refusing transition to %s", transactionID, current, attempted),
		ErrConflictingStatus,
	)
}

func NewTransactionNotFoundError(transactionID string) *PaymentError {
	return NewPaymentError(
		ErrCodeTransactionNotFound,
		fmt.Sprintf("Transaction not found: %s", transactionID),
		ErrTransactionNotFound,
	)
}

func NewRefundNotAllowedError(transactionID, status string) *PaymentError {
	return NewPaymentError(
		ErrCodeRefundNotAllowed,
		fmt.Sprintf("Transaction %s is %s, only completed transactions can be refunded", transactionID, status),
		ErrRefundNotAllowed,
	)
}

func NewRefundTooLargeError(transactionID string, requested, refundable decimal.Decimal) *PaymentError {
	return NewPaymentError(
		ErrCodeRefundTooLarge,
		fmt.Sprintf("Refund %s exceeds refundable %s for transaction %s",
			requested.StringFixed(AmountScale), refundable.StringFixed(AmountScale), transactionID),
		ErrRefundTooLarge,
	)
}

func NewPaymentFlaggedError(reason string) *PaymentError {
	return NewPaymentError(
		ErrCodePaymentFlagged,
		fmt.Sprintf("Payment flagged: %s", reason),
		ErrPaymentFlagged,
	)
}
