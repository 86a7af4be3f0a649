package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paygate/internal/payment/model"
)

// =====================================================
// POSTGRES GATEWAY SPEC STORE
// =====================================================

type pgSpecStore struct {
	pool *pgxpool.Pool
}

func NewSpecStore(pool *pgxpool.Pool) SpecStore {
	return &pgSpecStore{pool: pool}
}

// ActiveSpec loads the spec for an active gateway. Inactive or missing
// rows yield nil without error; credential resolution then falls back
// to static configuration.
func (r *pgSpecStore) ActiveSpec(ctx context.Context, name string) (*model.GatewaySpec, error) {
	query := `
		SELECT id, name, is_active, credentials, test_mode, additional_parameters, created_at, updated_at
		FROM payment_gateways
		WHERE name = $1 AND is_active = TRUE
	`

	var (
		spec       model.GatewaySpec
		credsJSON  []byte
		paramsJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, name).Scan(
		&spec.ID,
		&spec.Name,
		&spec.IsActive,
		&credsJSON,
		&spec.TestMode,
		&paramsJSON,
		&spec.CreatedAt,
		&spec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load gateway spec: %w", err)
	}

	if len(credsJSON) > 0 {
		if err := json.Unmarshal(credsJSON, &spec.Credentials); err != nil {
			return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
		}
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &spec.AdditionalParameters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal additional_parameters: %w", err)
		}
	}

	return &spec, nil
}
