package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/infrastructure/cache"
	"paygate/internal/payment/gateway"
	"paygate/internal/payment/gateway/mock"
	"paygate/internal/payment/model"
	"paygate/internal/payment/repository"
)

type reconcilerFixture struct {
	driver     *mock.Driver
	ledger     *repository.MemoryLedger
	reconciler Reconciler
	events     *Events
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()

	driver := mock.NewDriver("mock", testWebhookSecret)
	ledger := repository.NewMemoryLedger()
	events := NewEvents()
	t.Cleanup(func() { _ = events.Close() })

	reconciler := NewReconciler(
		newTestManager(t, driver),
		ledger,
		cache.NewMemoryDedupStore(),
		events,
	)

	return &reconcilerFixture{
		driver:     driver,
		ledger:     ledger,
		reconciler: reconciler,
		events:     events,
	}
}

func (f *reconcilerFixture) createPending(t *testing.T, txnID string) {
	t.Helper()
	err := f.ledger.Create(context.Background(), &model.Transaction{
		TransactionID: txnID,
		GatewayName:   "mock",
		OrderID:       "order-1",
		Amount:        decimal.RequireFromString("200.00"),
		Currency:      model.DefaultCurrency,
		Status:        model.StatusPending,
	})
	require.NoError(t, err)
}

// signedIPN builds a callback the mock driver accepts, signed over the
// raw body with the webhook secret.
func (f *reconcilerFixture) signedIPN(txnID, gatewayStatus string) gateway.CallbackData {
	body := fmt.Sprintf("tran_id=%s&status=%s&bank_tran_id=BANK-1", txnID, gatewayStatus)
	return gateway.CallbackData{
		Kind:      model.CallbackIPN,
		Body:      []byte(body),
		Signature: gateway.SignPayload([]byte(body), f.driver.Secret()),
		Fields: map[string]string{
			"tran_id":      txnID,
			"status":       gatewayStatus,
			"bank_tran_id": "BANK-1",
		},
	}
}

func TestReconcilerCompletesPendingTransaction(t *testing.T) {
	f := newReconcilerFixture(t)
	f.createPending(t, "txn-1")

	completed := make(chan model.PaymentEvent, 1)
	_, err := f.events.Hook(model.EventPaymentCompleted, func(_ context.Context, e model.PaymentEvent) error {
		completed <- e
		return nil
	})
	require.NoError(t, err)

	result, err := f.reconciler.HandleCallback(context.Background(), "mock", f.signedIPN("txn-1", "VALID"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, result.Status)
	assert.False(t, result.Duplicate)

	txn, err := f.ledger.FindByTransactionID(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, txn.Status)
	assert.Equal(t, "BANK-1", txn.GatewayReference())

	select {
	case event := <-completed:
		assert.Equal(t, "txn-1", event.TransactionID)
		assert.Equal(t, model.StatusCompleted, event.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("completed event was not published")
	}
}

func TestReconcilerRedeliveryIsIdempotent(t *testing.T) {
	f := newReconcilerFixture(t)
	f.createPending(t, "txn-1")

	data := f.signedIPN("txn-1", "VALID")

	first, err := f.reconciler.HandleCallback(context.Background(), "mock", data)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	// The gateway retries the identical notification
	second, err := f.reconciler.HandleCallback(context.Background(), "mock", data)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, model.StatusCompleted, second.Status)
}

func TestReconcilerCancelTwice(t *testing.T) {
	f := newReconcilerFixture(t)
	f.createPending(t, "txn-1")

	data := f.signedIPN("txn-1", "CANCELLED")

	first, err := f.reconciler.HandleCallback(context.Background(), "mock", data)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, first.Status)
	assert.False(t, first.Duplicate)

	second, err := f.reconciler.HandleCallback(context.Background(), "mock", data)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, second.Status)
	assert.True(t, second.Duplicate)
}

func TestReconcilerRejectsConflictingTerminalStatus(t *testing.T) {
	f := newReconcilerFixture(t)
	f.createPending(t, "txn-1")

	_, err := f.reconciler.HandleCallback(context.Background(), "mock", f.signedIPN("txn-1", "VALID"))
	require.NoError(t, err)

	// The gateway now claims the same transaction was cancelled
	_, err = f.reconciler.HandleCallback(context.Background(), "mock", f.signedIPN("txn-1", "CANCELLED"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflictingStatus)

	txn, err := f.ledger.FindByTransactionID(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, txn.Status)
}

func TestReconcilerRejectsTamperedSignature(t *testing.T) {
	f := newReconcilerFixture(t)
	f.createPending(t, "txn-1")

	data := f.signedIPN("txn-1", "VALID")
	data.Body = []byte("tran_id=txn-1&status=VALID&amount=1.00")

	_, err := f.reconciler.HandleCallback(context.Background(), "mock", data)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidSignature)

	// The forged notification must not move the ledger
	txn, err := f.ledger.FindByTransactionID(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, txn.Status)
}

func TestReconcilerRejectsKindStatusMismatch(t *testing.T) {
	f := newReconcilerFixture(t)
	f.createPending(t, "txn-1")

	// A cancel redirect claiming a successful payment is a rewritten
	// redirect URL, valid signature or not
	data := f.signedIPN("txn-1", "VALID")
	data.Kind = model.CallbackCancel

	_, err := f.reconciler.HandleCallback(context.Background(), "mock", data)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidPayload)

	txn, err := f.ledger.FindByTransactionID(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, txn.Status)
}

func TestReconcilerUnknownTransaction(t *testing.T) {
	f := newReconcilerFixture(t)

	_, err := f.reconciler.HandleCallback(context.Background(), "mock", f.signedIPN("txn-ghost", "VALID"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
}

func TestReconcilerUnknownGateway(t *testing.T) {
	f := newReconcilerFixture(t)

	_, err := f.reconciler.HandleCallback(context.Background(), "stripe", f.signedIPN("txn-1", "VALID"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrGatewayNotConfigured)
}
