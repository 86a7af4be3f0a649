package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/payment/model"
)

func pendingTransaction(txnID string) *model.Transaction {
	return &model.Transaction{
		TransactionID: txnID,
		GatewayName:   model.GatewaySSLCommerz,
		OrderID:       "order-1",
		Amount:        decimal.RequireFromString("200.00"),
		Currency:      model.DefaultCurrency,
		Status:        model.StatusPending,
	}
}

func TestMemoryLedgerCreateAndFind(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Create(ctx, pendingTransaction("txn-1")))

	found, err := ledger.FindByTransactionID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, found.Status)
	assert.Equal(t, "200.00", found.Amount.StringFixed(model.AmountScale))

	_, err = ledger.FindByTransactionID(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
}

func TestMemoryLedgerRejectsDuplicateCreate(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Create(ctx, pendingTransaction("txn-1")))

	err := ledger.Create(ctx, pendingTransaction("txn-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransactionExists)
}

func TestMemoryLedgerStatusTransitions(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Create(ctx, pendingTransaction("txn-1")))

	// pending -> completed
	updated, err := ledger.UpdateStatus(ctx, "txn-1", model.StatusCompleted,
		map[string]interface{}{"status": "VALID"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)

	// Re-applying the same terminal status is an idempotent no-op
	updated, err = ledger.UpdateStatus(ctx, "txn-1", model.StatusCompleted,
		map[string]interface{}{"status": "VALID", "retry": "1"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.Equal(t, "1", updated.IPNResponse["retry"])

	// A different terminal status is a correctness anomaly
	_, err = ledger.UpdateStatus(ctx, "txn-1", model.StatusCancelled, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflictingStatus)

	// Statuses outside the state machine never reach a row
	_, err = ledger.UpdateStatus(ctx, "txn-1", "refunded", nil)
	require.Error(t, err)

	// The stored row is untouched by the rejected transition
	found, err := ledger.FindByTransactionID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, found.Status)
}

func TestMemoryLedgerRecordRefund(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Create(ctx, pendingTransaction("txn-1")))

	// Refund against a pending row is rejected
	_, err := ledger.RecordRefund(ctx, "txn-1", decimal.RequireFromString("50.00"), "damaged", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRefundNotAllowed)

	_, err = ledger.UpdateStatus(ctx, "txn-1", model.StatusCompleted, nil)
	require.NoError(t, err)

	// Partial refunds accumulate
	updated, err := ledger.RecordRefund(ctx, "txn-1", decimal.RequireFromString("50.00"), "damaged", nil)
	require.NoError(t, err)
	assert.Equal(t, "50.00", updated.RefundAmount.StringFixed(model.AmountScale))

	updated, err = ledger.RecordRefund(ctx, "txn-1", decimal.RequireFromString("25.00"), "partial", nil)
	require.NoError(t, err)
	assert.Equal(t, "75.00", updated.RefundAmount.StringFixed(model.AmountScale))
	assert.Equal(t, "125.00", updated.RefundableAmount().StringFixed(model.AmountScale))
}

func TestMemoryLedgerRefundCapEnforcedAtWrite(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Create(ctx, pendingTransaction("txn-1")))
	_, err := ledger.UpdateStatus(ctx, "txn-1", model.StatusCompleted, nil)
	require.NoError(t, err)

	// Two refunds of 150.00 against a 200.00 capture: the ledger itself
	// refuses the second, independent of any caller-side check.
	_, err = ledger.RecordRefund(ctx, "txn-1", decimal.RequireFromString("150.00"), "first", nil)
	require.NoError(t, err)

	_, err = ledger.RecordRefund(ctx, "txn-1", decimal.RequireFromString("150.00"), "second", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRefundTooLarge)

	found, err := ledger.FindByTransactionID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "150.00", found.RefundAmount.StringFixed(model.AmountScale))
}

func TestMemoryLedgerExpireStale(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Create(ctx, pendingTransaction("txn-stale")))
	require.NoError(t, ledger.Create(ctx, pendingTransaction("txn-done")))
	_, err := ledger.UpdateStatus(ctx, "txn-done", model.StatusCompleted, nil)
	require.NoError(t, err)

	// A future cutoff catches every pending row but leaves terminal ones
	expired, err := ledger.ExpireStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "txn-stale", expired[0].TransactionID)
	assert.Equal(t, model.StatusFailed, expired[0].Status)

	// Already expired rows are not selected again
	expired, err = ledger.ExpireStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestMemoryLedgerCountRecentByCustomer(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	customer := "cust-1"
	for _, id := range []string{"txn-1", "txn-2"} {
		txn := pendingTransaction(id)
		txn.CustomerID = &customer
		require.NoError(t, ledger.Create(ctx, txn))
	}
	require.NoError(t, ledger.Create(ctx, pendingTransaction("txn-anon")))

	count, err := ledger.CountRecentByCustomer(ctx, customer, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = ledger.CountRecentByCustomer(ctx, customer, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemorySpecStoreActiveOnly(t *testing.T) {
	store := NewMemorySpecStore()
	ctx := context.Background()

	store.Put(&model.GatewaySpec{Name: "sslcommerz", IsActive: true,
		Credentials: map[string]string{"store_id": "s1"}})
	store.Put(&model.GatewaySpec{Name: "bkash", IsActive: false})

	spec, err := store.ActiveSpec(ctx, "sslcommerz")
	require.NoError(t, err)
	require.NotNil(t, spec)
	assert.Equal(t, "s1", spec.Credentials["store_id"])

	spec, err = store.ActiveSpec(ctx, "bkash")
	require.NoError(t, err)
	assert.Nil(t, spec)

	spec, err = store.ActiveSpec(ctx, "nagad")
	require.NoError(t, err)
	assert.Nil(t, spec)
}
