package bkash

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/model"
)

// =====================================================
// BKASH CLIENT
// =====================================================
// Tokenized-checkout wallet driver. Every operation grants a short
// lived id_token first; the driver itself stays stateless so tokens
// are never shared between concurrent calls.

const (
	sandboxBaseURL = "https://tokenized.sandbox.bka.sh/v1.2.0-beta"
	liveBaseURL    = "https://tokenized.pay.bka.sh/v1.2.0-beta"

	tokenGrantPath = "/tokenized/checkout/token/grant"
	createPath     = "/tokenized/checkout/create"
	statusPath     = "/tokenized/checkout/payment/status"
	refundPath     = "/tokenized/checkout/payment/refund"

	statusCodeSuccess = "0000"
)

type Config struct {
	AppKey    string
	AppSecret string // also the webhook secret
	Username  string
	Password  string
	Sandbox   bool
}

func (c *Config) Validate() error {
	if c.AppKey == "" || c.AppSecret == "" {
		return fmt.Errorf("bKash app_key and app_secret are required")
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("bKash username and password are required")
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

// NewDriver is the registry factory for the bkash kind.
func NewDriver(ctx context.Context, spec gateway.DriverSpec, resolver *gateway.Resolver) (gateway.Driver, error) {
	creds, err := resolver.ResolveAll(ctx, spec.Name, "app_key", "app_secret", "username", "password")
	if err != nil {
		return nil, err
	}

	config := &Config{
		AppKey:    creds.Get("app_key"),
		AppSecret: creds.Get("app_secret"),
		Username:  creds.Get("username"),
		Password:  creds.Get("password"),
		Sandbox:   spec.Sandbox,
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bKash config: %w", err)
	}

	return &Client{
		config: config,
		api:    gateway.NewAPIClient(spec.Name),
	}, nil
}

func (c *Client) GatewayName() string {
	return model.GatewayBkash
}

// grantToken exchanges app credentials for an id_token.
func (c *Client) grantToken(ctx context.Context) (string, error) {
	resp, err := c.api.PostJSON(ctx, c.config.baseURL()+tokenGrantPath,
		map[string]interface{}{
			"app_key":    c.config.AppKey,
			"app_secret": c.config.AppSecret,
		},
		map[string]string{
			"username": c.config.Username,
			"password": c.config.Password,
		})
	if err != nil {
		return "", model.NewPaymentFailedError(c.GatewayName(), "token grant failed", err)
	}

	token := asString(resp["id_token"])
	if token == "" {
		return "", model.NewPaymentError(model.ErrCodeInvalidCredentials,
			fmt.Sprintf("bKash rejected credentials: %s", asString(resp["statusMessage"])),
			model.ErrInvalidCredentials)
	}
	return token, nil
}

func (c *Client) authHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": token,
		"X-App-Key":     c.config.AppKey,
	}
}

// =====================================================
// PAY
// =====================================================

func (c *Client) Pay(ctx context.Context, req model.PayRequest) (*gateway.PayResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "amount must be positive", nil)
	}
	if req.SuccessURL == "" {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "success URL is required", nil)
	}

	token, err := c.grantToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.PostJSON(ctx, c.config.baseURL()+createPath,
		map[string]interface{}{
			"mode":                  "0011",
			"payerReference":        req.CustomerPhone,
			"callbackURL":           req.SuccessURL,
			"amount":                req.Amount.StringFixed(model.AmountScale),
			"currency":              req.Currency,
			"intent":                "sale",
			"merchantInvoiceNumber": req.OrderID,
		},
		c.authHeaders(token))
	if err != nil {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "create payment failed", err)
	}

	if asString(resp["statusCode"]) != statusCodeSuccess {
		return nil, model.NewPaymentFailedError(c.GatewayName(), asString(resp["statusMessage"]), nil)
	}

	paymentID := asString(resp["paymentID"])
	if paymentID == "" {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "missing paymentID in create response", nil)
	}

	return &gateway.PayResult{
		TransactionID: paymentID,
		RedirectURL:   asString(resp["bkashURL"]),
		Raw:           resp,
	}, nil
}

// =====================================================
// CALLBACKS
// =====================================================

func (c *Client) Validate(data gateway.CallbackData) error {
	if data.Field("paymentID") == "" {
		return model.NewPaymentError(model.ErrCodeInvalidPayload, "missing paymentID", model.ErrInvalidPayload)
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
	if !gateway.VerifyPayload(data.Body, data.Signature, c.config.AppSecret) {
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
		TransactionID: data.Field("paymentID"),
		Status:        status,
		GatewayRef:    data.Field("trxID"),
		Amount:        amount,
		Raw:           raw,
	}, nil
}

// mapStatus translates bKash transaction states to ledger statuses.
func mapStatus(status string) (string, error) {
	switch status {
	case "Completed", "success":
		return model.StatusCompleted, nil
	case "Failed", "failure":
		return model.StatusFailed, nil
	case "Cancelled", "cancel":
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
		return nil, model.NewPaymentFailedError(c.GatewayName(), "trxID is required for refund", nil)
	}

	token, err := c.grantToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.PostJSON(ctx, c.config.baseURL()+refundPath,
		map[string]interface{}{
			"paymentID": req.TransactionID,
			"trxID":     req.GatewayRef,
			"amount":    req.Amount.StringFixed(model.AmountScale),
			"reason":    req.Reason,
			"sku":       "refund",
		},
		c.authHeaders(token))
	if err != nil {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "refund request failed", err)
	}

	if asString(resp["statusCode"]) != statusCodeSuccess {
		return nil, model.NewPaymentFailedError(c.GatewayName(), asString(resp["statusMessage"]), nil)
	}

	return &gateway.RefundResult{
		RefundID: asString(resp["refundTrxID"]),
		Amount:   req.Amount,
		Status:   asString(resp["transactionStatus"]),
		Raw:      resp,
	}, nil
}

// =====================================================
// VERIFY
// =====================================================

func (c *Client) Verify(ctx context.Context, transactionID string) (*gateway.VerifyResult, error) {
	token, err := c.grantToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.PostJSON(ctx, c.config.baseURL()+statusPath,
		map[string]interface{}{"paymentID": transactionID},
		c.authHeaders(token))
	if err != nil {
		return nil, model.NewPaymentFailedError(c.GatewayName(), "status query failed", err)
	}

	if asString(resp["statusCode"]) != statusCodeSuccess {
		return nil, model.NewTransactionNotFoundError(transactionID)
	}

	status := model.StatusPending
	if mapped, err := mapStatus(asString(resp["transactionStatus"])); err == nil {
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

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
