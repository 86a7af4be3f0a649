package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/payment/model"
)

// =====================================================
// IN-MEMORY LEDGER
// =====================================================
// Mutex-guarded map implementation with the same transition semantics
// as the Postgres ledger. Used by unit tests and local development.

type MemoryLedger struct {
	mu     sync.Mutex
	nextID int64
	byTxn  map[string]*model.Transaction
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{byTxn: make(map[string]*model.Transaction)}
}

func (m *MemoryLedger) Create(_ context.Context, t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byTxn[t.TransactionID]; exists {
		return model.NewPaymentError(model.ErrCodeTransactionExists,
			"Transaction "+t.TransactionID+" already recorded", model.ErrTransactionExists)
	}

	m.nextID++
	t.ID = m.nextID
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	clone := *t
	m.byTxn[t.TransactionID] = &clone
	return nil
}

func (m *MemoryLedger) FindByTransactionID(_ context.Context, transactionID string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byTxn[transactionID]
	if !ok {
		return nil, model.NewTransactionNotFoundError(transactionID)
	}
	clone := *t
	return &clone, nil
}

func (m *MemoryLedger) FindByOrderID(_ context.Context, orderID string) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*model.Transaction
	for _, t := range m.byTxn {
		if t.OrderID == orderID {
			clone := *t
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MemoryLedger) UpdateStatus(_ context.Context, transactionID, newStatus string, rawPayload map[string]interface{}) (*model.Transaction, error) {
	if !model.IsValidStatus(newStatus) {
		return nil, fmt.Errorf("unknown status %q", newStatus)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byTxn[transactionID]
	if !ok {
		return nil, model.NewTransactionNotFoundError(transactionID)
	}

	if t.IsTerminal() {
		if t.Status != newStatus {
			return nil, model.NewConflictingStatusError(transactionID, t.Status, newStatus)
		}
		t.IPNResponse = rawPayload
		t.UpdatedAt = time.Now()
		clone := *t
		return &clone, nil
	}

	t.Status = newStatus
	t.IPNResponse = rawPayload
	t.UpdatedAt = time.Now()
	clone := *t
	return &clone, nil
}

func (m *MemoryLedger) RecordRefund(_ context.Context, transactionID string, amount decimal.Decimal, reason string, raw map[string]interface{}) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.byTxn[transactionID]
	if !ok {
		return nil, model.NewTransactionNotFoundError(transactionID)
	}
	if t.Status != model.StatusCompleted {
		return nil, model.NewRefundNotAllowedError(transactionID, t.Status)
	}
	// The cap check holds the mutex, matching the row-locked UPDATE of
	// the Postgres ledger.
	if amount.GreaterThan(t.RefundableAmount()) {
		return nil, model.NewRefundTooLargeError(transactionID, amount, t.RefundableAmount())
	}

	t.RefundAmount = t.RefundAmount.Add(amount)
	t.RefundReason = &reason
	now := time.Now()
	t.RefundedAt = &now
	t.UpdatedAt = now
	if t.PaymentDetails == nil {
		t.PaymentDetails = make(map[string]interface{})
	}
	for k, v := range raw {
		t.PaymentDetails[k] = v
	}

	clone := *t
	return &clone, nil
}

func (m *MemoryLedger) CountRecentByCustomer(_ context.Context, customerID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, t := range m.byTxn {
		if t.CustomerID != nil && *t.CustomerID == customerID && t.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryLedger) ExpireStale(_ context.Context, cutoff time.Time) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []*model.Transaction
	for _, t := range m.byTxn {
		if t.Status == model.StatusPending && t.CreatedAt.Before(cutoff) {
			t.Status = model.StatusFailed
			t.UpdatedAt = time.Now()
			clone := *t
			expired = append(expired, &clone)
		}
	}
	return expired, nil
}

// =====================================================
// IN-MEMORY SPEC STORE
// =====================================================

type MemorySpecStore struct {
	mu    sync.RWMutex
	specs map[string]*model.GatewaySpec
}

func NewMemorySpecStore() *MemorySpecStore {
	return &MemorySpecStore{specs: make(map[string]*model.GatewaySpec)}
}

// Put stores a spec for tests and local setups.
func (m *MemorySpecStore) Put(spec *model.GatewaySpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs[spec.Name] = spec
}

func (m *MemorySpecStore) ActiveSpec(_ context.Context, name string) (*model.GatewaySpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	spec, ok := m.specs[name]
	if !ok || !spec.IsActive {
		return nil, nil
	}
	clone := *spec
	return &clone, nil
}
