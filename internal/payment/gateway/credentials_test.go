package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/payment/model"
)

// stubSpecReader serves specs from a map, standing in for the
// repository layer.
type stubSpecReader struct {
	specs map[string]*model.GatewaySpec
}

func (s *stubSpecReader) ActiveSpec(_ context.Context, name string) (*model.GatewaySpec, error) {
	spec, ok := s.specs[name]
	if !ok || !spec.IsActive {
		return nil, nil
	}
	return spec, nil
}

func TestResolverPrefersSpecOverStatic(t *testing.T) {
	static := NewStaticSource(map[string]map[string]string{
		"sslcommerz": {"store_id": "static-store", "store_password": "static-pass"},
	})
	specs := NewSpecSource(&stubSpecReader{specs: map[string]*model.GatewaySpec{
		"sslcommerz": {
			Name:        "sslcommerz",
			IsActive:    true,
			Credentials: map[string]string{"store_id": "db-store"},
		},
	}})

	resolver := NewResolver(specs, static)

	// store_id exists in both sources: the persisted spec wins
	value, err := resolver.Resolve(context.Background(), "sslcommerz", "store_id")
	require.NoError(t, err)
	assert.Equal(t, "db-store", value)

	// store_password only exists statically: falls through
	value, err = resolver.Resolve(context.Background(), "sslcommerz", "store_password")
	require.NoError(t, err)
	assert.Equal(t, "static-pass", value)
}

func TestResolverMissingKey(t *testing.T) {
	resolver := NewResolver(NewStaticSource(map[string]map[string]string{
		"bkash": {"app_key": "key"},
	}))

	_, err := resolver.Resolve(context.Background(), "bkash", "app_secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCredentialMissing)

	var paymentErr *model.PaymentError
	require.ErrorAs(t, err, &paymentErr)
	assert.Equal(t, model.ErrCodeCredentialMissing, paymentErr.Code)
}

func TestResolverIgnoresInactiveSpec(t *testing.T) {
	specs := NewSpecSource(&stubSpecReader{specs: map[string]*model.GatewaySpec{
		"nagad": {
			Name:        "nagad",
			IsActive:    false,
			Credentials: map[string]string{"merchant_id": "db-merchant"},
		},
	}})
	static := NewStaticSource(map[string]map[string]string{
		"nagad": {"merchant_id": "static-merchant"},
	})

	resolver := NewResolver(specs, static)

	value, err := resolver.Resolve(context.Background(), "nagad", "merchant_id")
	require.NoError(t, err)
	assert.Equal(t, "static-merchant", value)
}

func TestResolveAllFailsOnFirstMissingKey(t *testing.T) {
	resolver := NewResolver(NewStaticSource(map[string]map[string]string{
		"bkash": {"app_key": "key", "username": "user"},
	}))

	_, err := resolver.ResolveAll(context.Background(), "bkash", "app_key", "app_secret", "username")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCredentialMissing)
}

func TestStaticSourceTreatsEmptyValueAsAbsent(t *testing.T) {
	static := NewStaticSource(map[string]map[string]string{
		"sslcommerz": {"store_id": ""},
	})

	_, ok, err := static.Credential(context.Background(), "sslcommerz", "store_id")
	require.NoError(t, err)
	assert.False(t, ok)
}
