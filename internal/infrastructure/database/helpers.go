package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paygate/pkg/logger"
)

// =====================================================
// POOL STATISTICS
// =====================================================

// PoolStats is a point-in-time snapshot of the connection pool, exposed
// through the health endpoint and used for performance debugging.
type PoolStats struct {
	AcquiredConns     int32 `json:"acquired_conns"`
	ConstructingConns int32 `json:"constructing_conns"`
	IdleConns         int32 `json:"idle_conns"`
	TotalConns        int32 `json:"total_conns"`
	MaxConns          int32 `json:"max_conns"`

	// Cumulative counters, monotonically increasing over pool lifetime
	AcquireCount         int64         `json:"acquire_count"`
	AcquireDuration      time.Duration `json:"acquire_duration"`
	CanceledAcquireCount int64         `json:"canceled_acquire_count"`
	EmptyAcquireCount    int64         `json:"empty_acquire_count"`
	NewConnsCount        int64         `json:"new_conns_count"`
}

// Stats returns a consistent snapshot of pool statistics.
func (db *PostgresDB) Stats() (*PoolStats, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	raw := db.Pool.Stat()
	return &PoolStats{
		AcquiredConns:     raw.AcquiredConns(),
		ConstructingConns: raw.ConstructingConns(),
		IdleConns:         raw.IdleConns(),
		TotalConns:        raw.TotalConns(),
		MaxConns:          raw.MaxConns(),

		AcquireCount:         raw.AcquireCount(),
		AcquireDuration:      raw.AcquireDuration(),
		CanceledAcquireCount: raw.CanceledAcquireCount(),
		EmptyAcquireCount:    raw.EmptyAcquireCount(),
		NewConnsCount:        raw.NewConnsCount(),
	}, nil
}

// MonitorPoolHealth periodically inspects pool statistics and warns on
// exhaustion or slow acquires. Run it in its own goroutine; it stops
// when ctx is cancelled.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := db.Stats()
			if err != nil {
				continue
			}

			if stats.MaxConns > 0 {
				utilization := float64(stats.AcquiredConns) / float64(stats.MaxConns) * 100
				if utilization > 80 {
					logger.Warn("high database pool utilization", map[string]interface{}{
						"utilization_pct": utilization,
						"acquired":        stats.AcquiredConns,
						"max":             stats.MaxConns,
					})
				}
			}

			if avg := avgAcquireDuration(stats); avg > 100*time.Millisecond {
				logger.Warn("slow database connection acquires", map[string]interface{}{
					"avg_acquire": avg.String(),
				})
			}

		case <-ctx.Done():
			return
		}
	}
}

func avgAcquireDuration(stats *PoolStats) time.Duration {
	if stats.AcquireCount == 0 {
		return 0
	}
	return stats.AcquireDuration / time.Duration(stats.AcquireCount)
}

// =====================================================
// TRANSACTION HELPER
// =====================================================

// WithinTx runs fn inside a database transaction, committing only when
// fn returns nil. Rollback after commit is a no-op, so the deferred
// rollback is always safe.
func WithinTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Error("transaction rollback failed", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
