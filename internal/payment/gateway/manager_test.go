package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/payment/model"
)

// stubDriver satisfies Driver for registry and manager tests without
// any gateway behaviour.
type stubDriver struct {
	name string
}

func (d *stubDriver) GatewayName() string { return d.name }
func (d *stubDriver) Pay(context.Context, model.PayRequest) (*PayResult, error) {
	return &PayResult{}, nil
}
func (d *stubDriver) Validate(CallbackData) error          { return nil }
func (d *stubDriver) IPN(CallbackData) (*CallbackEvent, error) {
	return &CallbackEvent{}, nil
}
func (d *stubDriver) Refund(context.Context, RefundRequest) (*RefundResult, error) {
	return &RefundResult{}, nil
}
func (d *stubDriver) Verify(context.Context, string) (*VerifyResult, error) {
	return &VerifyResult{}, nil
}

func testRegistry(t *testing.T, constructed *atomic.Int64) *Registry {
	t.Helper()

	specs := map[string]DriverSpec{
		"sslcommerz": {Name: "sslcommerz", Kind: KindSSLCommerz, Sandbox: true},
		"bkash":      {Name: "bkash", Kind: KindBkash, Sandbox: true},
	}
	factory := func(_ context.Context, spec DriverSpec, _ *Resolver) (Driver, error) {
		if constructed != nil {
			constructed.Add(1)
		}
		return &stubDriver{name: spec.Name}, nil
	}

	registry, err := NewRegistry(specs, map[DriverKind]Factory{
		KindSSLCommerz: factory,
		KindBkash:      factory,
	})
	require.NoError(t, err)
	return registry
}

func TestNewRegistryRejectsUnknownKind(t *testing.T) {
	specs := map[string]DriverSpec{
		"nagad": {Name: "nagad", Kind: KindNagad},
	}

	_, err := NewRegistry(specs, map[DriverKind]Factory{})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDriverNotFound)
}

func TestRegistryLookupUnknownGateway(t *testing.T) {
	registry := testRegistry(t, nil)

	_, err := registry.Lookup("stripe")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrGatewayNotConfigured)
}

func TestManagerReturnsCachedInstance(t *testing.T) {
	var constructed atomic.Int64
	manager := NewManager(testRegistry(t, &constructed), NewResolver(), "sslcommerz")

	first, err := manager.Gateway(context.Background(), "sslcommerz")
	require.NoError(t, err)
	second, err := manager.Gateway(context.Background(), "sslcommerz")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), constructed.Load())
}

func TestManagerEmptyNameSelectsDefault(t *testing.T) {
	manager := NewManager(testRegistry(t, nil), NewResolver(), "bkash")

	driver, err := manager.Gateway(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "bkash", driver.GatewayName())
}

func TestManagerUnknownGateway(t *testing.T) {
	manager := NewManager(testRegistry(t, nil), NewResolver(), "sslcommerz")

	_, err := manager.Gateway(context.Background(), "paypal")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrGatewayNotConfigured)
}

func TestManagerRejectsDisabledGateway(t *testing.T) {
	var constructed atomic.Int64
	specs := map[string]DriverSpec{
		"sslcommerz": {Name: "sslcommerz", Kind: KindSSLCommerz, Sandbox: true, Disabled: true},
	}
	factory := func(_ context.Context, spec DriverSpec, _ *Resolver) (Driver, error) {
		constructed.Add(1)
		return &stubDriver{name: spec.Name}, nil
	}
	registry, err := NewRegistry(specs, map[DriverKind]Factory{KindSSLCommerz: factory})
	require.NoError(t, err)

	manager := NewManager(registry, NewResolver(), "sslcommerz")

	_, err = manager.Gateway(context.Background(), "sslcommerz")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrGatewayInactive)
	// A disabled gateway is never constructed, so nothing can be cached
	assert.Zero(t, constructed.Load())
}

func TestManagerConcurrentConstructOnce(t *testing.T) {
	var constructed atomic.Int64
	manager := NewManager(testRegistry(t, &constructed), NewResolver(), "sslcommerz")

	const goroutines = 32
	drivers := make([]Driver, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			driver, err := manager.Gateway(context.Background(), "sslcommerz")
			assert.NoError(t, err)
			drivers[i] = driver
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), constructed.Load())
	for i := 1; i < goroutines; i++ {
		assert.Same(t, drivers[0], drivers[i])
	}
}
