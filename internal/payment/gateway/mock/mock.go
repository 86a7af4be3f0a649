package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/model"
)

// =====================================================
// MOCK GATEWAY DRIVER FOR TESTING
// =====================================================
// Behaves like a hosted-checkout gateway without network calls. The
// webhook secret is real: IPN verifies an HMAC over the raw body, so
// tests can exercise tampering scenarios end to end.

type Driver struct {
	name   string
	secret string

	ShouldFailPay    bool
	ShouldFailRefund bool

	payCalls atomic.Int64
}

func NewDriver(name, secret string) *Driver {
	return &Driver{name: name, secret: secret}
}

// Secret exposes the webhook secret so tests can sign payloads.
func (d *Driver) Secret() string {
	return d.secret
}

// PayCalls reports how many payments were initiated.
func (d *Driver) PayCalls() int64 {
	return d.payCalls.Load()
}

func (d *Driver) GatewayName() string {
	return d.name
}

func (d *Driver) Pay(_ context.Context, req model.PayRequest) (*gateway.PayResult, error) {
	d.payCalls.Add(1)
	if d.ShouldFailPay {
		return nil, model.NewPaymentFailedError(d.name, "mock payment failure", nil)
	}

	tranID := uuid.NewString()
	return &gateway.PayResult{
		TransactionID: tranID,
		RedirectURL: fmt.Sprintf("https://mock-gateway.test/checkout?tran_id=%s&amount=%s",
			tranID, req.Amount.StringFixed(model.AmountScale)),
		Raw: map[string]interface{}{"status": "SUCCESS"},
	}, nil
}

func (d *Driver) Validate(data gateway.CallbackData) error {
	if data.Field("tran_id") == "" {
		return model.NewPaymentError(model.ErrCodeInvalidPayload, "missing tran_id", model.ErrInvalidPayload)
	}
	if data.Field("status") == "" {
		return model.NewPaymentError(model.ErrCodeInvalidPayload, "missing status", model.ErrInvalidPayload)
	}
	return nil
}

func (d *Driver) IPN(data gateway.CallbackData) (*gateway.CallbackEvent, error) {
	if err := d.Validate(data); err != nil {
		return nil, err
	}
	if !gateway.VerifyPayload(data.Body, data.Signature, d.secret) {
		return nil, model.NewInvalidSignatureError(d.name)
	}

	var status string
	switch data.Field("status") {
	case "VALID":
		status = model.StatusCompleted
	case "FAILED":
		status = model.StatusFailed
	case "CANCELLED":
		status = model.StatusCancelled
	default:
		return nil, model.NewPaymentError(model.ErrCodeInvalidPayload,
			fmt.Sprintf("unrecognised status %q", data.Field("status")), model.ErrInvalidPayload)
	}

	raw := make(map[string]interface{}, len(data.Fields))
	for k, v := range data.Fields {
		raw[k] = v
	}

	return &gateway.CallbackEvent{
		TransactionID: data.Field("tran_id"),
		Status:        status,
		GatewayRef:    data.Field("bank_tran_id"),
		Raw:           raw,
	}, nil
}

func (d *Driver) Refund(_ context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	if d.ShouldFailRefund {
		return nil, model.NewPaymentFailedError(d.name, "mock refund failure", nil)
	}
	return &gateway.RefundResult{
		RefundID: "RF-" + req.TransactionID,
		Amount:   req.Amount,
		Status:   "refunded",
		Raw:      map[string]interface{}{"status": "success"},
	}, nil
}

func (d *Driver) Verify(_ context.Context, transactionID string) (*gateway.VerifyResult, error) {
	return &gateway.VerifyResult{
		TransactionID: transactionID,
		Status:        model.StatusCompleted,
		Amount:        decimal.Zero,
		Currency:      model.DefaultCurrency,
		Raw:           map[string]interface{}{"status": "VALID"},
	}, nil
}
