package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
)

// =====================================================
// PAY REQUEST/RESPONSE
// =====================================================

type PayRequest struct {
	// Empty gateway selects the configured default
	Gateway string `json:"gateway"`

	OrderID  string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	// Callback URLs the gateway reports back to
	SuccessURL string `json:"success_url"`
	FailURL    string `json:"fail_url"`
	CancelURL  string `json:"cancel_url"`
	IPNURL     string `json:"ipn_url"`

	// Customer identity, forwarded to the gateway
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

func (r PayRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Amount, validation.Required, validation.By(amountPositive)),
		validation.Field(&r.Currency, validation.Required, is.CurrencyCode),
		validation.Field(&r.SuccessURL, validation.Required, is.URL),
		validation.Field(&r.FailURL, validation.Required, is.URL),
		validation.Field(&r.CancelURL, validation.Required, is.URL),
		validation.Field(&r.IPNURL, is.URL),
		validation.Field(&r.CustomerEmail, is.Email),
	)
}

// amountPositive rejects zero and negative money values.
func amountPositive(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok || amount.LessThanOrEqual(decimal.Zero) {
		return validation.NewError("validation_amount", "must be greater than zero")
	}
	return nil
}

type PayResponse struct {
	TransactionID string          `json:"transaction_id"`
	Gateway       string          `json:"gateway"`
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`

	// Hosted-checkout gateways return a redirect target; wallet-style
	// gateways may instead return an in-band token in PaymentDetails.
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
}

// =====================================================
// REFUND REQUEST/RESPONSE
// =====================================================

type RefundRequest struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
}

func (r RefundRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TransactionID, validation.Required),
		validation.Field(&r.Amount, validation.Required, validation.By(amountPositive)),
		validation.Field(&r.Reason, validation.Length(0, 255)),
	)
}

type RefundResponse struct {
	TransactionID  string          `json:"transaction_id"`
	RefundID       string          `json:"refund_id"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	Status         string          `json:"status"`
}

// =====================================================
// TRANSACTION STATUS RESPONSE
// =====================================================

type TransactionStatusResponse struct {
	TransactionID string                 `json:"transaction_id"`
	OrderID       string                 `json:"order_id"`
	Gateway       string                 `json:"gateway"`
	Status        string                 `json:"status"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency"`
	RefundAmount  decimal.Decimal        `json:"refund_amount"`
	Details       map[string]interface{} `json:"details,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// NewTransactionStatusResponse maps a ledger row to the public view.
func NewTransactionStatusResponse(t *Transaction) *TransactionStatusResponse {
	return &TransactionStatusResponse{
		TransactionID: t.TransactionID,
		OrderID:       t.OrderID,
		Gateway:       t.GatewayName,
		Status:        t.Status,
		Amount:        t.Amount,
		Currency:      t.Currency,
		RefundAmount:  t.RefundAmount,
		Details:       t.PaymentDetails,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
