package provider

import (
	"context"
	"sort"
	"time"
)

// Provider is a warehouse product-lookup backend. Implementations are
// stateless with respect to sessions: the caller owns the token.
type Provider interface {
	// Name returns the name of the provider
	Name() string

	// Login exchanges credentials for a session token
	Login(ctx context.Context, credentials *Credentials) (string, error)

	// LookupProduct returns product metadata and per-region stock for a SKU
	LookupProduct(ctx context.Context, token, sku string) (*Product, error)
}

// Settings configures a provider instance
type Settings struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Factory is a factory function type for creating providers
type Factory func(settings Settings) Provider

// Registry holds all registered provider factories
var Registry = make(map[string]Factory)

// Register registers a provider factory
func Register(name string, factory Factory) {
	Registry[name] = factory
}

// Create creates a new provider instance by name
func Create(name string, settings Settings) (Provider, error) {
	factory, exists := Registry[name]
	if !exists {
		return nil, ErrProviderNotFound
	}
	return factory(settings), nil
}

// GetRegisteredProviders returns the sorted names of all registered providers
func GetRegisteredProviders() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
