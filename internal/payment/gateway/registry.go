package gateway

import (
	"context"
	"fmt"

	"paygate/internal/payment/model"
)

// =====================================================
// DRIVER REGISTRY
// =====================================================
// Gateway names map to a closed set of driver kinds through a factory
// table, so an unknown kind is caught when configuration is validated,
// not on first use. The registry is populated at process start and is
// read-only afterwards.

// DriverKind identifies which driver implementation to construct.
type DriverKind string

const (
	KindSSLCommerz DriverKind = "sslcommerz"
	KindBkash      DriverKind = "bkash"
	KindNagad      DriverKind = "nagad"
)

// DriverSpec is the configured binding for one gateway name.
type DriverSpec struct {
	Name    string
	Kind    DriverKind
	Sandbox bool
	Params  map[string]string // additional gateway parameters, opaque

	// Disabled keeps a gateway configured but refuses to resolve it,
	// e.g. while its merchant account is suspended.
	Disabled bool
}

// Factory constructs a driver instance. The factory resolves its own
// credential keys through the resolver, mirroring per-driver setup.
type Factory func(ctx context.Context, spec DriverSpec, resolver *Resolver) (Driver, error)

// Registry maps gateway names to driver specs and kinds to factories.
type Registry struct {
	specs     map[string]DriverSpec
	factories map[DriverKind]Factory
}

func NewRegistry(specs map[string]DriverSpec, factories map[DriverKind]Factory) (*Registry, error) {
	r := &Registry{
		specs:     specs,
		factories: factories,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// validate rejects configured gateways whose driver kind has no factory.
func (r *Registry) validate() error {
	for name, spec := range r.specs {
		if spec.Kind == "" {
			return fmt.Errorf("gateway [%s] has no driver kind: %w", name, model.ErrDriverNotFound)
		}
		if _, ok := r.factories[spec.Kind]; !ok {
			return model.NewDriverNotFoundError(name, string(spec.Kind))
		}
	}
	return nil
}

// Lookup returns the driver spec for a configured gateway name.
func (r *Registry) Lookup(name string) (DriverSpec, error) {
	spec, ok := r.specs[name]
	if !ok {
		return DriverSpec{}, model.NewGatewayNotConfiguredError(name)
	}
	return spec, nil
}

// Build constructs a fresh driver for a configured gateway.
func (r *Registry) Build(ctx context.Context, name string, resolver *Resolver) (Driver, error) {
	spec, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	factory, ok := r.factories[spec.Kind]
	if !ok {
		return nil, model.NewDriverNotFoundError(name, string(spec.Kind))
	}
	return factory(ctx, spec, resolver)
}

// Names returns the configured gateway names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	return names
}
