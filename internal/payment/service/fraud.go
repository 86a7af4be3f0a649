package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/payment/model"
	"paygate/internal/payment/repository"
)

// =====================================================
// FRAUD SCREEN
// =====================================================
// Pre-payment screening with two built-in heuristics: a single-payment
// amount ceiling and a per-customer velocity check. Flagged payments
// are rejected before any gateway call and published on the
// payment.flagged hook for review.

type FraudScreen struct {
	ledger repository.Ledger

	maxAmount   decimal.Decimal
	window      time.Duration
	maxAttempts int
}

func NewFraudScreen(ledger repository.Ledger) *FraudScreen {
	maxAmount, _ := decimal.NewFromString(model.FraudMaxAmount)
	return &FraudScreen{
		ledger:      ledger,
		maxAmount:   maxAmount,
		window:      time.Duration(model.FraudVelocityWindowMinutes) * time.Minute,
		maxAttempts: model.FraudMaxAttemptsPerWindow,
	}
}

// Screen returns a PaymentFlagged error when a request looks suspicious.
func (f *FraudScreen) Screen(ctx context.Context, req model.PayRequest) error {
	if req.Amount.GreaterThan(f.maxAmount) {
		return model.NewPaymentFlaggedError(
			fmt.Sprintf("amount %s exceeds ceiling %s",
				req.Amount.StringFixed(model.AmountScale), f.maxAmount.StringFixed(model.AmountScale)))
	}

	if req.CustomerID == "" {
		return nil
	}

	recent, err := f.ledger.CountRecentByCustomer(ctx, req.CustomerID, time.Now().Add(-f.window))
	if err != nil {
		return fmt.Errorf("failed to run velocity check: %w", err)
	}
	if recent >= f.maxAttempts {
		return model.NewPaymentFlaggedError(
			fmt.Sprintf("customer %s made %d payment attempts in %s", req.CustomerID, recent, f.window))
	}

	return nil
}
