package gateway

import (
	"context"
	"sync"

	"paygate/internal/payment/model"
)

// =====================================================
// GATEWAY MANAGER
// =====================================================
// The manager is the facade callers resolve drivers through. It owns
// the only shared mutable state on the hot path: a per-name instance
// cache. Concurrent first-time requests for the same name yield exactly
// one constructed instance; instances are immutable afterwards and
// shared freely.

type Manager struct {
	registry       *Registry
	resolver       *Resolver
	defaultGateway string

	mu      sync.Mutex
	drivers map[string]Driver
}

func NewManager(registry *Registry, resolver *Resolver, defaultGateway string) *Manager {
	return &Manager{
		registry:       registry,
		resolver:       resolver,
		defaultGateway: defaultGateway,
		drivers:        make(map[string]Driver),
	}
}

// Gateway resolves a name to a cached driver instance, constructing it
// on first use. An empty name selects the configured default.
func (m *Manager) Gateway(ctx context.Context, name string) (Driver, error) {
	if name == "" {
		name = m.defaultGateway
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if driver, ok := m.drivers[name]; ok {
		return driver, nil
	}

	// A disabled gateway stays configured but never constructs; the
	// cache cannot hold one.
	spec, err := m.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if spec.Disabled {
		return nil, model.NewGatewayInactiveError(name)
	}

	// Construction happens under the lock so a burst of first-time
	// callers cannot build two instances for one name. Construction is
	// a config lookup plus a credential read, cheap enough to hold it.
	driver, err := m.registry.Build(ctx, name, m.resolver)
	if err != nil {
		return nil, err
	}
	m.drivers[name] = driver

	return driver, nil
}

// DefaultGateway returns the statically configured default name.
func (m *Manager) DefaultGateway() string {
	return m.defaultGateway
}
