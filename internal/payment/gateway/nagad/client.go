package nagad

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/model"
)

// =====================================================
// NAGAD CLIENT
// =====================================================
// Mobile-wallet driver. Checkout is initialized server-side and the
// customer is sent to the returned callBackUrl; requests are signed
// with the merchant key, which is also the webhook secret.

const (
	sandboxBaseURL = "https://sandbox-ssl.mynagad.com/api/dfs"
	liveBaseURL    = "https://api.mynagad.com/api/dfs"

	checkoutPath = "/check-out/initialize"
	verifyPath   = "/verify/payment"
	refundPath   = "/purchase/refund"
)

type Config struct {
	MerchantID  string
	MerchantKey string // request signing and webhook secret
	Sandbox     bool
}

func (c *Config) Validate() error {
	if c.MerchantID == "" {
		return fmt.Errorf("Nagad merchant_id is required")
	}
	if c.MerchantKey == "" {
		return fmt.Errorf("Nagad merchant_key is required")
	}
	return nil
}

func (c *Config) baseURL() string {
	if c.Sandbox {
		return sandboxBaseURL
	}
	return liveBaseURL
}

type Client struct {
	config *Config
	api    *gateway.APIClient
}

// NewDriver is the registry factory for the nagad kind.
func NewDriver(ctx context.Context, spec gateway.DriverSpec, resolver *gateway.Resolver) (gateway.Driver, error) {
	creds, err := resolver.ResolveAll(ctx, spec.Name, "merchant_id", "merchant_key")
	if err != nil {
		return nil, err
	}

	config := &Config{
		MerchantID:  creds.Get("merchant_id"),
		MerchantKey: creds.Get("merchant_key"),
		Sandbox:     spec.Sandbox,
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Nagad config: %w", err)
	}

	return &Client{
		config: config,
		api:    gateway.NewAPIClient(spec.Name),
	}, nil
}

func (c *Client) GatewayName() string {
	return model.GatewayNagad
}

// =====================================================
// PAY
// =====================================================

func (c *Client) Pay(ctx context.Context, req model.PayRequest) (*gateway.PayResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "amount must be positive", nil)
	}
	if req.SuccessURL == "" || req.FailURL == "" {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "success and fail URLs are required", nil)
	}

	orderRef := fmt.Sprintf("%s-%d", req.OrderID, time.Now().Unix())
	payload := fmt.Sprintf("%s|%s|%s", c.config.MerchantID, orderRef, req.Amount.StringFixed(model.AmountScale))

	resp, err := c.api.PostJSON(ctx,
		fmt.Sprintf("%s%s/%s/%s", c.config.baseURL(), checkoutPath, c.config.MerchantID, orderRef),
		map[string]interface{}{
			"merchantId":          c.config.MerchantID,
			"orderId":             orderRef,
			"amount":              req.Amount.StringFixed(model.AmountScale),
			"currencyCode":        req.Currency,
			"merchantCallbackURL": req.SuccessURL,
			"signature":           gateway.SignPayload([]byte(payload), c.config.MerchantKey),
		}, nil)
	if err != nil {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "checkout initialization failed", err)
	}

	status := asString(resp["status"])
	if status != "Success" && status != "Initiated" {
		reason := asString(resp["message"])
		if reason == "" {
			reason = "checkout rejected"
		}
		return nil, model.NewPaymentFailedError(c.GatewayName(), reason, nil)
	}

	paymentRef := asString(resp["paymentReferenceId"])
	if paymentRef == "" {
		paymentRef = orderRef
	}

	return &gateway.PayResult{
		TransactionID: paymentRef,
		RedirectURL:   asString(resp["callBackUrl"]),
		Raw:           resp,
	}, nil
}

// =====================================================
// CALLBACKS
// =====================================================

func (c *Client) Validate(data gateway.CallbackData) error {
	if data.Field("payment_ref_id") == "" {
		return model.NewPaymentError(model.ErrCodeInvalidPayload, "missing payment_ref_id", model.ErrInvalidPayload)
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
	if !gateway.VerifyPayload(data.Body, data.Signature, c.config.MerchantKey) {
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

	raw := make(map[string]interface{}, len(data.Fields))
	for k, v := range data.Fields {
		raw[k] = v
	}

	return &gateway.CallbackEvent{
		TransactionID: data.Field("payment_ref_id"),
		Status:        status,
		GatewayRef:    data.Field("issuer_payment_ref"),
		Amount:        amount,
		Raw:           raw,
	}, nil
}

// mapStatus translates Nagad transaction states to ledger statuses.
func mapStatus(status string) (string, error) {
	switch status {
	case "Success":
		return model.StatusCompleted, nil
	case "Failed":
		return model.StatusFailed, nil
	case "Aborted", "Cancelled":
		return model.StatusCancelled, nil
	}
	return "", model.NewPaymentError(model.ErrCodeInvalidPayload,
		fmt.Sprintf("unrecognised status %q", status), model.ErrInvalidPayload)
}

// =====================================================
// REFUND
// =====================================================

func (c *Client) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	payload := fmt.Sprintf("%s|%s|%s", c.config.MerchantID, req.TransactionID, req.Amount.StringFixed(model.AmountScale))

	resp, err := c.api.PostJSON(ctx, c.config.baseURL()+refundPath,
		map[string]interface{}{
			"merchantId":         c.config.MerchantID,
			"paymentReferenceId": req.TransactionID,
			"refundAmount":       req.Amount.StringFixed(model.AmountScale),
			"message":            req.Reason,
			"signature":          gateway.SignPayload([]byte(payload), c.config.MerchantKey),
		}, nil)
	if err != nil {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "refund request failed", err)
	}

	if asString(resp["status"]) != "Success" {
		return nil, model.NewPaymentFailedError(c.GatewayName(), asString(resp["message"]), nil)
	}

	return &gateway.RefundResult{
		RefundID: asString(resp["refundReferenceId"]),
		Amount:   req.Amount,
		Status:   asString(resp["status"]),
		Raw:      resp,
	}, nil
}

// =====================================================
// VERIFY
// =====================================================

func (c *Client) Verify(ctx context.Context, transactionID string) (*gateway.VerifyResult, error) {
	resp, err := c.api.GetJSON(ctx,
		fmt.Sprintf("%s%s/%s", c.config.baseURL(), verifyPath, transactionID), nil)
	if err != nil {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "verification request failed", err)
	}

	rawStatus := asString(resp["status"])
	if rawStatus == "" || rawStatus == "NotFound" {
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
		Currency:      asString(resp["currencyCode"]),
		Raw:           resp,
	}, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
