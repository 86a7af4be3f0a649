package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/hookz"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/model"
	"paygate/internal/payment/repository"
	"paygate/pkg/logger"
)

// =====================================================
// PAYMENT SERVICE IMPLEMENTATION
// =====================================================

type paymentService struct {
	manager *gateway.Manager
	ledger  repository.Ledger
	fraud   *FraudScreen
	events  *Events
}

func NewPaymentService(
	manager *gateway.Manager,
	ledger repository.Ledger,
	fraud *FraudScreen,
	events *Events,
) PaymentService {
	return &paymentService{
		manager: manager,
		ledger:  ledger,
		fraud:   fraud,
		events:  events,
	}
}

// =====================================================
// PAY
// =====================================================

// Pay initiates a payment.
//
// Flow:
// 1. Validate the request
// 2. Run the fraud screen
// 3. Resolve the driver (default gateway when none named)
// 4. Initiate with the external gateway
// 5. Record a pending ledger entry
// 6. Return the redirect target / initiation details
func (s *paymentService) Pay(ctx context.Context, req model.PayRequest) (*model.PayResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewPaymentError(model.ErrCodeInvalidAmount, "Invalid payment request", err)
	}

	if err := s.fraud.Screen(ctx, req); err != nil {
		if errors.Is(err, model.ErrPaymentFlagged) {
			s.emit(model.EventPaymentFlagged, model.PaymentEvent{
				OrderID:     req.OrderID,
				GatewayName: req.Gateway,
				Amount:      req.Amount,
				Currency:    req.Currency,
				OccurredAt:  time.Now(),
			})
		}
		return nil, err
	}

	driver, err := s.manager.Gateway(ctx, req.Gateway)
	if err != nil {
		return nil, err
	}

	result, err := driver.Pay(ctx, req)
	if err != nil {
		return nil, err
	}

	txn := &model.Transaction{
		TransactionID:  result.TransactionID,
		GatewayName:    driver.GatewayName(),
		OrderID:        req.OrderID,
		Amount:         req.Amount.Round(model.AmountScale),
		Currency:       req.Currency,
		Status:         model.StatusPending,
		PaymentDetails: result.Raw,
	}
	if req.CustomerID != "" {
		txn.CustomerID = &req.CustomerID
	}

	if err := s.ledger.Create(ctx, txn); err != nil {
		// The remote side may already hold a session for this id; the
		// caller must verify before retrying with a fresh transaction.
		return nil, fmt.Errorf("payment initiated but ledger write failed: %w", err)
	}

	logger.Info("payment initiated", map[string]interface{}{
		"transaction_id": txn.TransactionID,
		"gateway":        txn.GatewayName,
		"order_id":       txn.OrderID,
		"amount":         txn.Amount.StringFixed(model.AmountScale),
		"currency":       txn.Currency,
	})
	s.emit(model.EventPaymentInitiated, newPaymentEvent(txn, nil))

	return &model.PayResponse{
		TransactionID: txn.TransactionID,
		Gateway:       txn.GatewayName,
		OrderID:       txn.OrderID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Status:        txn.Status,
		RedirectURL:   result.RedirectURL,
		Details:       result.Raw,
		ExpiresAt:     time.Now().Add(time.Duration(model.PaymentTimeoutMinutes) * time.Minute),
	}, nil
}

// =====================================================
// REFUND
// =====================================================

func (s *paymentService) Refund(ctx context.Context, req model.RefundRequest) (*model.RefundResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewPaymentError(model.ErrCodeInvalidAmount, "Invalid refund request", err)
	}

	txn, err := s.ledger.FindByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != model.StatusCompleted {
		return nil, model.NewPaymentFailedError(txn.GatewayName,
			fmt.Sprintf("transaction %s is %s, only completed transactions can be refunded", txn.TransactionID, txn.Status),
			model.ErrPaymentFailed)
	}
	// Fast feedback before the gateway is contacted; the ledger's
	// guarded write is the authoritative cap under concurrency.
	if req.Amount.GreaterThan(txn.RefundableAmount()) {
		return nil, model.NewRefundTooLargeError(txn.TransactionID, req.Amount, txn.RefundableAmount())
	}

	driver, err := s.manager.Gateway(ctx, txn.GatewayName)
	if err != nil {
		return nil, err
	}

	result, err := driver.Refund(ctx, gateway.RefundRequest{
		TransactionID: txn.TransactionID,
		GatewayRef:    txn.GatewayReference(),
		Amount:        req.Amount.Round(model.AmountScale),
		Reason:        req.Reason,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.ledger.RecordRefund(ctx, txn.TransactionID, result.Amount, req.Reason, result.Raw)
	if err != nil {
		return nil, err
	}

	logger.Info("refund initiated", map[string]interface{}{
		"transaction_id": txn.TransactionID,
		"gateway":        txn.GatewayName,
		"refund_id":      result.RefundID,
		"amount":         result.Amount.StringFixed(model.AmountScale),
	})
	s.emit(model.EventPaymentRefunded, newPaymentEvent(updated, result.Raw))

	return &model.RefundResponse{
		TransactionID:  updated.TransactionID,
		RefundID:       result.RefundID,
		RefundedAmount: updated.RefundAmount,
		Status:         updated.Status,
	}, nil
}

// =====================================================
// VERIFY / STATUS
// =====================================================

func (s *paymentService) Verify(ctx context.Context, transactionID string) (*gateway.VerifyResult, error) {
	txn, err := s.ledger.FindByTransactionID(ctx, transactionID)
	if err != nil {
		// Unknown id is fatal for verify, unlike callbacks
		return nil, err
	}

	driver, err := s.manager.Gateway(ctx, txn.GatewayName)
	if err != nil {
		return nil, err
	}
	return driver.Verify(ctx, transactionID)
}

func (s *paymentService) GetStatus(ctx context.Context, transactionID string) (*model.TransactionStatusResponse, error) {
	txn, err := s.ledger.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return model.NewTransactionStatusResponse(txn), nil
}

// =====================================================
// EXPIRY
// =====================================================

func (s *paymentService) ExpireStalePayments(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-time.Duration(model.PaymentTimeoutMinutes) * time.Minute)

	expired, err := s.ledger.ExpireStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, txn := range expired {
		s.emit(model.EventPaymentExpired, newPaymentEvent(txn, nil))
	}
	if len(expired) > 0 {
		logger.Info("expired stale payments", map[string]interface{}{"count": len(expired)})
	}
	return len(expired), nil
}

// emit publishes a lifecycle event, logging instead of failing the
// payment path when the hook queue is saturated.
func (s *paymentService) emit(key string, event model.PaymentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(context.Background(), hookz.Key(key), event); err != nil {
		logger.Error("failed to emit payment event", err)
	}
}
