package gateway

import (
	"context"

	"paygate/internal/payment/model"
)

// =====================================================
// CREDENTIAL RESOLUTION
// =====================================================
// Credentials come from an ordered list of sources. The first source
// holding a key wins; a key absent from every source is a configuration
// defect surfaced as CredentialMissing. Resolution happens once per
// driver construction - a live driver does not hot-reload secrets.

// CredentialSource supplies credential values for one gateway.
type CredentialSource interface {
	// Credential returns (value, true) when the source holds the key.
	Credential(ctx context.Context, gatewayName, key string) (string, bool, error)
}

// Resolver merges an ordered list of credential sources.
type Resolver struct {
	sources []CredentialSource
}

func NewResolver(sources ...CredentialSource) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve returns the highest-precedence value for a required key.
func (r *Resolver) Resolve(ctx context.Context, gatewayName, key string) (string, error) {
	for _, src := range r.sources {
		value, ok, err := src.Credential(ctx, gatewayName, key)
		if err != nil {
			return "", err
		}
		if ok {
			return value, nil
		}
	}
	return "", model.NewCredentialMissingError(gatewayName, key)
}

// ResolveAll resolves every required key, failing on the first absence.
func (r *Resolver) ResolveAll(ctx context.Context, gatewayName string, keys ...string) (Credentials, error) {
	creds := make(Credentials, len(keys))
	for _, key := range keys {
		value, err := r.Resolve(ctx, gatewayName, key)
		if err != nil {
			return nil, err
		}
		creds[key] = value
	}
	return creds, nil
}

// Credentials is the merged, driver-specific credential view.
// Immutable once handed to a driver.
type Credentials map[string]string

func (c Credentials) Get(key string) string {
	return c[key]
}

// =====================================================
// STATIC CONFIG SOURCE
// =====================================================

// StaticSource serves credentials from the statically configured
// gateway blocks (the lowest-precedence fallback).
type StaticSource struct {
	gateways map[string]map[string]string
}

func NewStaticSource(gateways map[string]map[string]string) *StaticSource {
	return &StaticSource{gateways: gateways}
}

func (s *StaticSource) Credential(_ context.Context, gatewayName, key string) (string, bool, error) {
	block, ok := s.gateways[gatewayName]
	if !ok {
		return "", false, nil
	}
	value, ok := block[key]
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// =====================================================
// PERSISTED SPEC SOURCE
// =====================================================

// SpecReader loads the persisted, administratively managed gateway spec.
// Implemented by the repository layer.
type SpecReader interface {
	// ActiveSpec returns the spec for an active gateway, or
	// ErrTransactionNotFound-style nil when no active row exists.
	ActiveSpec(ctx context.Context, name string) (*model.GatewaySpec, error)
}

// SpecSource serves credentials from the persisted GatewaySpec. Values
// here win over static configuration. Inactive specs contribute nothing.
type SpecSource struct {
	specs SpecReader
}

func NewSpecSource(specs SpecReader) *SpecSource {
	return &SpecSource{specs: specs}
}

func (s *SpecSource) Credential(ctx context.Context, gatewayName, key string) (string, bool, error) {
	spec, err := s.specs.ActiveSpec(ctx, gatewayName)
	if err != nil {
		return "", false, err
	}
	if spec == nil || !spec.IsActive {
		return "", false, nil
	}
	value, ok := spec.Credentials[key]
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}
