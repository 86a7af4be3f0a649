package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/gateway/mock"
	"paygate/internal/payment/model"
	"paygate/internal/payment/repository"
)

const testWebhookSecret = "test-webhook-secret"

// newTestManager wires a manager whose only gateway is the mock driver.
func newTestManager(t *testing.T, driver gateway.Driver) *gateway.Manager {
	t.Helper()

	kind := gateway.DriverKind("mock")
	specs := map[string]gateway.DriverSpec{
		"mock": {Name: "mock", Kind: kind, Sandbox: true},
	}
	factories := map[gateway.DriverKind]gateway.Factory{
		kind: func(context.Context, gateway.DriverSpec, *gateway.Resolver) (gateway.Driver, error) {
			return driver, nil
		},
	}

	registry, err := gateway.NewRegistry(specs, factories)
	require.NoError(t, err)
	return gateway.NewManager(registry, gateway.NewResolver(), "mock")
}

func newTestPaymentService(t *testing.T, driver *mock.Driver) (PaymentService, *repository.MemoryLedger) {
	t.Helper()

	ledger := repository.NewMemoryLedger()
	svc := NewPaymentService(newTestManager(t, driver), ledger, NewFraudScreen(ledger), nil)
	return svc, ledger
}

func validPayRequest() model.PayRequest {
	return model.PayRequest{
		OrderID:    "order-1",
		Amount:     decimal.RequireFromString("200.00"),
		Currency:   model.DefaultCurrency,
		SuccessURL: "https://shop.test/payment/success",
		FailURL:    "https://shop.test/payment/fail",
		CancelURL:  "https://shop.test/payment/cancel",
	}
}

func TestPayCreatesPendingTransaction(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	svc, ledger := newTestPaymentService(t, driver)

	resp, err := svc.Pay(context.Background(), validPayRequest())
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, resp.Status)
	assert.NotEmpty(t, resp.TransactionID)
	assert.NotEmpty(t, resp.RedirectURL)
	assert.Equal(t, "mock", resp.Gateway)
	assert.Equal(t, int64(1), driver.PayCalls())

	txn, err := ledger.FindByTransactionID(context.Background(), resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, txn.Status)
	assert.Equal(t, "200.00", txn.Amount.StringFixed(model.AmountScale))
	assert.Equal(t, model.DefaultCurrency, txn.Currency)
}

func TestPayRejectsInvalidRequest(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	svc, _ := newTestPaymentService(t, driver)

	req := validPayRequest()
	req.OrderID = ""

	_, err := svc.Pay(context.Background(), req)
	require.Error(t, err)
	// The gateway must never be contacted with a bad request
	assert.Zero(t, driver.PayCalls())
}

func TestPayGatewayFailureLeavesNoLedgerEntry(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	driver.ShouldFailPay = true
	svc, ledger := newTestPaymentService(t, driver)

	_, err := svc.Pay(context.Background(), validPayRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPaymentFailed)

	rows, err := ledger.FindByOrderID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPayFlagsExcessiveAmount(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	svc, _ := newTestPaymentService(t, driver)

	req := validPayRequest()
	req.Amount = decimal.RequireFromString("150000.00")

	_, err := svc.Pay(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPaymentFlagged)
	assert.Zero(t, driver.PayCalls())
}

func TestPayFlagsVelocityBurst(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	svc, _ := newTestPaymentService(t, driver)

	for i := 0; i < model.FraudMaxAttemptsPerWindow; i++ {
		req := validPayRequest()
		req.OrderID = fmt.Sprintf("order-%d", i)
		req.CustomerID = "cust-1"
		_, err := svc.Pay(context.Background(), req)
		require.NoError(t, err)
	}

	req := validPayRequest()
	req.OrderID = "order-final"
	req.CustomerID = "cust-1"

	_, err := svc.Pay(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPaymentFlagged)
}

func TestRefundRequiresCompletedTransaction(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	svc, ledger := newTestPaymentService(t, driver)

	resp, err := svc.Pay(context.Background(), validPayRequest())
	require.NoError(t, err)

	// Refund against the still-pending transaction fails
	_, err = svc.Refund(context.Background(), model.RefundRequest{
		TransactionID: resp.TransactionID,
		Amount:        decimal.RequireFromString("50.00"),
		Reason:        "changed mind",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPaymentFailed)

	_, err = ledger.UpdateStatus(context.Background(), resp.TransactionID, model.StatusCompleted, nil)
	require.NoError(t, err)

	refund, err := svc.Refund(context.Background(), model.RefundRequest{
		TransactionID: resp.TransactionID,
		Amount:        decimal.RequireFromString("50.00"),
		Reason:        "changed mind",
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", refund.RefundedAmount.StringFixed(model.AmountScale))
	assert.NotEmpty(t, refund.RefundID)
}

func TestRefundRejectsExcessAmount(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	svc, ledger := newTestPaymentService(t, driver)

	resp, err := svc.Pay(context.Background(), validPayRequest())
	require.NoError(t, err)
	_, err = ledger.UpdateStatus(context.Background(), resp.TransactionID, model.StatusCompleted, nil)
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), model.RefundRequest{
		TransactionID: resp.TransactionID,
		Amount:        decimal.RequireFromString("500.00"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRefundTooLarge)

	// Partial refunds may not exceed the remaining captured amount
	_, err = svc.Refund(context.Background(), model.RefundRequest{
		TransactionID: resp.TransactionID,
		Amount:        decimal.RequireFromString("150.00"),
	})
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), model.RefundRequest{
		TransactionID: resp.TransactionID,
		Amount:        decimal.RequireFromString("100.00"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRefundTooLarge)
}

func TestGetStatus(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	svc, _ := newTestPaymentService(t, driver)

	resp, err := svc.Pay(context.Background(), validPayRequest())
	require.NoError(t, err)

	status, err := svc.GetStatus(context.Background(), resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, status.Status)
	assert.Equal(t, "order-1", status.OrderID)

	_, err = svc.GetStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
}

func TestVerifyUnknownTransactionIsFatal(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	svc, _ := newTestPaymentService(t, driver)

	_, err := svc.Verify(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)

	resp, err := svc.Pay(context.Background(), validPayRequest())
	require.NoError(t, err)

	result, err := svc.Verify(context.Background(), resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, resp.TransactionID, result.TransactionID)
}

func TestExpireStalePaymentsIgnoresFreshRows(t *testing.T) {
	driver := mock.NewDriver("mock", testWebhookSecret)
	svc, _ := newTestPaymentService(t, driver)

	_, err := svc.Pay(context.Background(), validPayRequest())
	require.NoError(t, err)

	count, err := svc.ExpireStalePayments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
