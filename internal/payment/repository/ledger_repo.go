package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"paygate/internal/infrastructure/database"
	"paygate/internal/payment/model"
)

// =====================================================
// POSTGRES LEDGER IMPLEMENTATION
// =====================================================

type pgLedger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) Ledger {
	return &pgLedger{pool: pool}
}

const transactionColumns = `
	id, transaction_id, gateway_name, order_id, amount, currency, status,
	payment_details, ipn_response, customer_id,
	refund_amount, refund_reason, refunded_at,
	created_at, updated_at
`

func (r *pgLedger) Create(ctx context.Context, t *model.Transaction) error {
	query := `
		INSERT INTO payment_transactions (
			transaction_id, gateway_name, order_id, amount, currency, status,
			payment_details, customer_id, refund_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
		RETURNING id, created_at, updated_at
	`

	detailsJSON, err := json.Marshal(t.PaymentDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal payment_details: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		t.TransactionID,
		t.GatewayName,
		t.OrderID,
		t.Amount,
		t.Currency,
		t.Status,
		detailsJSON,
		t.CustomerID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return model.NewPaymentError(model.ErrCodeTransactionExists,
				fmt.Sprintf("Transaction %s already recorded", t.TransactionID),
				model.ErrTransactionExists)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

func (r *pgLedger) FindByTransactionID(ctx context.Context, transactionID string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE transaction_id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewTransactionNotFoundError(transactionID)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return t, nil
}

func (r *pgLedger) FindByOrderID(ctx context.Context, orderID string) ([]*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE order_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var result []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// UpdateStatus applies the transition inside a transaction holding a
// row lock, so two near-simultaneous callbacks for one transaction
// cannot both pass the terminal-state check.
func (r *pgLedger) UpdateStatus(ctx context.Context, transactionID, newStatus string, rawPayload map[string]interface{}) (*model.Transaction, error) {
	if !model.IsValidStatus(newStatus) {
		return nil, fmt.Errorf("unknown status %q", newStatus)
	}

	payloadJSON, err := json.Marshal(rawPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal callback payload: %w", err)
	}

	var result *model.Transaction
	err = database.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		lockQuery := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE transaction_id = $1 FOR UPDATE`
		current, err := scanTransaction(tx.QueryRow(ctx, lockQuery, transactionID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.NewTransactionNotFoundError(transactionID)
			}
			return fmt.Errorf("failed to lock transaction: %w", err)
		}

		if current.IsTerminal() {
			if current.Status != newStatus {
				return model.NewConflictingStatusError(transactionID, current.Status, newStatus)
			}
			// Idempotent redelivery: keep the latest payload, nothing else moves.
			if _, err := tx.Exec(ctx,
				`UPDATE payment_transactions SET ipn_response = $1, updated_at = NOW() WHERE transaction_id = $2`,
				payloadJSON, transactionID); err != nil {
				return fmt.Errorf("failed to store callback payload: %w", err)
			}
			current.IPNResponse = rawPayload
			result = current
			return nil
		}

		updated, err := scanTransaction(tx.QueryRow(ctx,
			`UPDATE payment_transactions
			 SET status = $1, ipn_response = $2, updated_at = NOW()
			 WHERE transaction_id = $3
			 RETURNING `+transactionColumns,
			newStatus, payloadJSON, transactionID))
		if err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordRefund accumulates a refund against a completed transaction.
// The cumulative-refund cap is part of the guarded UPDATE itself, so two
// concurrent refunds serialize on the row and the second one cannot push
// the total past the captured amount.
func (r *pgLedger) RecordRefund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string, raw map[string]interface{}) (*model.Transaction, error) {
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refund response: %w", err)
	}

	updated, err := scanTransaction(r.pool.QueryRow(ctx,
		`UPDATE payment_transactions
		 SET refund_amount = refund_amount + $1,
		     refund_reason = $2,
		     refunded_at = NOW(),
		     payment_details = COALESCE(payment_details, '{}'::jsonb) || $3::jsonb,
		     updated_at = NOW()
		 WHERE transaction_id = $4 AND status = $5
		   AND refund_amount + $1 <= amount
		 RETURNING `+transactionColumns,
		amount, reason, rawJSON, transactionID, model.StatusCompleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No row matched: missing, not completed, or over the cap.
			current, findErr := r.FindByTransactionID(ctx, transactionID)
			if findErr != nil {
				return nil, findErr
			}
			if current.Status != model.StatusCompleted {
				return nil, model.NewRefundNotAllowedError(transactionID, current.Status)
			}
			return nil, model.NewRefundTooLargeError(transactionID, amount, current.RefundableAmount())
		}
		return nil, fmt.Errorf("failed to record refund: %w", err)
	}
	return updated, nil
}

func (r *pgLedger) CountRecentByCustomer(ctx context.Context, customerID string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM payment_transactions WHERE customer_id = $1 AND created_at > $2`,
		customerID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent transactions: %w", err)
	}
	return count, nil
}

func (r *pgLedger) ExpireStale(ctx context.Context, cutoff time.Time) ([]*model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE payment_transactions
		 SET status = $1, updated_at = NOW()
		 WHERE status = $2 AND created_at < $3
		 RETURNING `+transactionColumns,
		model.StatusFailed, model.StatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to expire stale transactions: %w", err)
	}
	defer rows.Close()

	var expired []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired transaction: %w", err)
		}
		expired = append(expired, t)
	}
	return expired, rows.Err()
}

// =====================================================
// SCAN HELPERS
// =====================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		t           model.Transaction
		detailsJSON []byte
		ipnJSON     []byte
	)

	err := row.Scan(
		&t.ID,
		&t.TransactionID,
		&t.GatewayName,
		&t.OrderID,
		&t.Amount,
		&t.Currency,
		&t.Status,
		&detailsJSON,
		&ipnJSON,
		&t.CustomerID,
		&t.RefundAmount,
		&t.RefundReason,
		&t.RefundedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &t.PaymentDetails); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment_details: %w", err)
		}
	}
	if len(ipnJSON) > 0 {
		if err := json.Unmarshal(ipnJSON, &t.IPNResponse); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ipn_response: %w", err)
		}
	}
	return &t, nil
}

// isUniqueViolation detects a duplicate transaction_id insert.
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
