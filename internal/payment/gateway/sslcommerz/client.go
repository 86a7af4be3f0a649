package sslcommerz

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/model"
)

// =====================================================
// SSLCOMMERZ CLIENT
// =====================================================
// Hosted-checkout driver: payment initiation opens a gateway session
// and redirects the customer to GatewayPageURL; the outcome arrives
// later on the callback URLs and the IPN.

type Client struct {
	config *Config
	api    *gateway.APIClient
}

// NewDriver is the registry factory for the sslcommerz kind.
func NewDriver(ctx context.Context, spec gateway.DriverSpec, resolver *gateway.Resolver) (gateway.Driver, error) {
	creds, err := resolver.ResolveAll(ctx, spec.Name, "store_id", "store_password")
	if err != nil {
		return nil, err
	}

	config := &Config{
		StoreID:       creds.Get("store_id"),
		StorePassword: creds.Get("store_password"),
		Sandbox:       spec.Sandbox,
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SSLCommerz config: %w", err)
	}

	return &Client{
		config: config,
		api:    gateway.NewAPIClient(spec.Name),
	}, nil
}

func (c *Client) GatewayName() string {
	return model.GatewaySSLCommerz
}

// =====================================================
// PAY
// =====================================================

func (c *Client) Pay(ctx context.Context, req model.PayRequest) (*gateway.PayResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "amount must be positive", nil)
	}
	if req.SuccessURL == "" || req.FailURL == "" || req.CancelURL == "" {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "success, fail and cancel URLs are required", nil)
	}

	tranID := uuid.NewString()

	fields := map[string]string{
		"store_id":         c.config.StoreID,
		"store_passwd":     c.config.StorePassword,
		"total_amount":     req.Amount.StringFixed(model.AmountScale),
		"currency":         req.Currency,
		"tran_id":          tranID,
		"success_url":      req.SuccessURL,
		"fail_url":         req.FailURL,
		"cancel_url":       req.CancelURL,
		"ipn_url":          req.IPNURL,
		"cus_name":         req.CustomerName,
		"cus_email":        req.CustomerEmail,
		"cus_phone":        req.CustomerPhone,
		"product_name":     req.OrderID,
		"product_category": "general",
		"product_profile":  "general",
		"shipping_method":  "NO",
	}

	resp, err := c.api.PostForm(ctx, c.config.SessionURL(), fields, nil)
	if err != nil {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "session request failed", err)
	}

	if asString(resp["status"]) != "SUCCESS" {
		reason := asString(resp["failedreason"])
		if reason == "" {
			reason = "session rejected"
		}
		return nil, model.NewPaymentFailedError(c.GatewayName(), reason, nil)
	}

	redirectURL := asString(resp["GatewayPageURL"])
	if redirectURL == "" {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "missing GatewayPageURL in session response", nil)
	}

	return &gateway.PayResult{
		TransactionID: tranID,
		RedirectURL:   redirectURL,
		Raw:           resp,
	}, nil
}

// =====================================================
// CALLBACKS
// =====================================================

func (c *Client) Validate(data gateway.CallbackData) error {
	if data.Field("tran_id") == "" {
		return model.NewPaymentError(model.ErrCodeInvalidPayload, "missing tran_id", model.ErrInvalidPayload)
	}
	if data.Field("status") == "" {
		return model.NewPaymentError(model.ErrCodeInvalidPayload, "missing status", model.ErrInvalidPayload)
	}
	return nil
}

func (c *Client) IPN(data gateway.CallbackData) (*gateway.CallbackEvent, error) {
	if err := c.Validate(data); err != nil {
		return nil, err
	}
	if !gateway.VerifyPayload(data.Body, data.Signature, c.config.StorePassword) {
		return nil, model.NewInvalidSignatureError(c.GatewayName())
	}

	status, err := mapStatus(data.Field("status"))
	if err != nil {
		return nil, err
	}

	amount := decimal.Zero
	if raw := data.Field("amount"); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			amount = parsed
		}
	}

	return &gateway.CallbackEvent{
		TransactionID: data.Field("tran_id"),
		Status:        status,
		GatewayRef:    data.Field("bank_tran_id"),
		Amount:        amount,
		Raw:           rawFields(data),
	}, nil
}

// mapStatus translates SSLCommerz transaction states to ledger statuses.
func mapStatus(status string) (string, error) {
	switch status {
	case "VALID", "VALIDATED":
		return model.StatusCompleted, nil
	case "FAILED":
		return model.StatusFailed, nil
	case "CANCELLED":
		return model.StatusCancelled, nil
	}
	return "", model.NewPaymentError(model.ErrCodeInvalidPayload,
		fmt.Sprintf("unrecognised status %q", status), model.ErrInvalidPayload)
}

// =====================================================
// REFUND
// =====================================================

func (c *Client) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	if req.GatewayRef == "" {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "bank_tran_id is required for refund", nil)
	}

	query := url.Values{}
	query.Set("store_id", c.config.StoreID)
	query.Set("store_passwd", c.config.StorePassword)
	query.Set("bank_tran_id", req.GatewayRef)
	query.Set("refund_amount", req.Amount.StringFixed(model.AmountScale))
	query.Set("refund_remarks", req.Reason)
	query.Set("format", "json")

	resp, err := c.api.GetJSON(ctx, c.config.RefundURL()+"?"+query.Encode(), nil)
	if err != nil {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "refund request failed", err)
	}

	if asString(resp["status"]) != "success" {
		reason := asString(resp["errorReason"])
		if reason == "" {
			reason = "refund rejected"
		}
		return nil, model.NewPaymentFailedError(c.GatewayName(), reason, nil)
	}

	return &gateway.RefundResult{
		RefundID: asString(resp["refund_ref_id"]),
		Amount:   req.Amount,
		Status:   asString(resp["refund_status"]),
		Raw:      resp,
	}, nil
}

// =====================================================
// VERIFY
// =====================================================

func (c *Client) Verify(ctx context.Context, transactionID string) (*gateway.VerifyResult, error) {
	query := url.Values{}
	query.Set("store_id", c.config.StoreID)
	query.Set("store_passwd", c.config.StorePassword)
	query.Set("tran_id", transactionID)
	query.Set("format", "json")

	resp, err := c.api.GetJSON(ctx, c.config.ValidatorURL()+"?"+query.Encode(), nil)
	if err != nil {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "verification request failed", err)
	}

	rawStatus := asString(resp["status"])
	if rawStatus == "INVALID_TRANSACTION" || rawStatus == "" {
		return nil, model.NewTransactionNotFoundError(transactionID)
	}

	status := model.StatusPending
	if mapped, err := mapStatus(rawStatus); err == nil {
		status = mapped
	}

	amount := decimal.Zero
	if raw := asString(resp["amount"]); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			amount = parsed
		}
	}

	return &gateway.VerifyResult{
		TransactionID: transactionID,
		Status:        status,
		Amount:        amount,
		Currency:      asString(resp["currency"]),
		Raw:           resp,
	}, nil
}

// =====================================================
// HELPERS
// =====================================================

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func rawFields(data gateway.CallbackData) map[string]interface{} {
	raw := make(map[string]interface{}, len(data.Fields))
	for k, v := range data.Fields {
		raw[k] = v
	}
	return raw
}
