package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.True(t, IsTerminalStatus(StatusFailed))
	assert.True(t, IsTerminalStatus(StatusCancelled))
	assert.False(t, IsTerminalStatus("unknown"))
}

func TestTransactionGatewayReference(t *testing.T) {
	txn := &Transaction{}
	assert.Empty(t, txn.GatewayReference())

	txn.IPNResponse = map[string]interface{}{"bank_tran_id": "BANK-1"}
	assert.Equal(t, "BANK-1", txn.GatewayReference())

	txn.IPNResponse = map[string]interface{}{"trxID": "TRX-1"}
	assert.Equal(t, "TRX-1", txn.GatewayReference())

	txn.IPNResponse = map[string]interface{}{"issuer_payment_ref": "REF-1"}
	assert.Equal(t, "REF-1", txn.GatewayReference())

	// Non-string values are skipped
	txn.IPNResponse = map[string]interface{}{"bank_tran_id": 42}
	assert.Empty(t, txn.GatewayReference())
}

func TestTransactionRefundableAmount(t *testing.T) {
	txn := &Transaction{
		Status:       StatusCompleted,
		Amount:       decimal.RequireFromString("200.00"),
		RefundAmount: decimal.RequireFromString("75.00"),
	}

	assert.True(t, txn.CanBeRefunded())
	assert.Equal(t, "125.00", txn.RefundableAmount().StringFixed(AmountScale))

	txn.RefundAmount = txn.Amount
	assert.False(t, txn.CanBeRefunded())

	pending := &Transaction{Status: StatusPending, Amount: decimal.RequireFromString("200.00")}
	assert.False(t, pending.CanBeRefunded())
	assert.True(t, pending.RefundableAmount().IsZero())
}

func TestTransactionIsExpired(t *testing.T) {
	fresh := &Transaction{Status: StatusPending, CreatedAt: time.Now()}
	assert.False(t, fresh.IsExpired())

	stale := &Transaction{
		Status:    StatusPending,
		CreatedAt: time.Now().Add(-time.Duration(PaymentTimeoutMinutes+1) * time.Minute),
	}
	assert.True(t, stale.IsExpired())

	// Terminal rows never expire
	done := &Transaction{
		Status:    StatusCompleted,
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}
	assert.False(t, done.IsExpired())
}
