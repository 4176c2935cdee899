package secrets

import (
	"context"
	"fmt"
	"sync"
)

// Config holds the configuration for the Manager.
type Config struct {
	// DefaultProvider is the name of the default provider to use.
	DefaultProvider string

	// AutoClear controls whether resolved secrets clear their memory
	// after use (String(), Bytes()).
	AutoClear bool
}

// Manager orchestrates secret resolution across registered providers and
// feeds every resolved value into its Redactor.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	autoClear       bool
	redactor        *Redactor

	mu sync.RWMutex
}

// NewManager creates a Manager with the provided configuration.
func NewManager(config *Config) *Manager {
	if config == nil {
		config = &Config{}
	}

	return &Manager{
		providers:       make(map[string]Provider),
		defaultProvider: config.DefaultProvider,
		autoClear:       config.AutoClear,
		redactor:        NewRedactor(),
	}
}

// Redactor returns the manager's redactor. Every value the manager has
// resolved is registered on it.
func (m *Manager) Redactor() *Redactor {
	return m.redactor
}

// Register adds a provider to the manager's registry.
// Returns an error if a provider with the same name already exists.
func (m *Manager) Register(name string, provider Provider) error {
	if name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.providers[name]; exists {
		return fmt.Errorf("provider with name %q already registered", name)
	}

	m.providers[name] = provider
	return nil
}

// Resolve resolves a secret using the default provider.
func (m *Manager) Resolve(ctx context.Context, ref Ref) (*Secret, error) {
	if m.defaultProvider == "" {
		return nil, fmt.Errorf("no default provider configured")
	}
	return m.ResolveFrom(ctx, m.defaultProvider, ref)
}

// ResolveFrom resolves a secret using a specific provider. The resolved
// value is registered with the redactor before it is returned.
func (m *Manager) ResolveFrom(ctx context.Context, providerName string, ref Ref) (*Secret, error) {
	if providerName == "" {
		return nil, fmt.Errorf("provider name cannot be empty")
	}

	m.mu.RLock()
	provider, exists := m.providers[providerName]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("provider %q: %w", providerName, ErrProviderNotFound)
	}

	secret, err := provider.Resolve(ctx, ref)
	if err != nil {
		return nil, wrapProviderError(providerName, ref, err)
	}

	if secret != nil {
		secret.AutoClear = m.autoClear
		m.redactor.Add(string(secret.Value))
	}

	return secret, nil
}

// Exists checks if a secret exists using the default provider.
func (m *Manager) Exists(ctx context.Context, ref Ref) (bool, error) {
	if m.defaultProvider == "" {
		return false, fmt.Errorf("no default provider configured")
	}

	m.mu.RLock()
	provider, exists := m.providers[m.defaultProvider]
	m.mu.RUnlock()

	if !exists {
		return false, fmt.Errorf("provider %q: %w", m.defaultProvider, ErrProviderNotFound)
	}

	ok, err := provider.Exists(ctx, ref)
	if err != nil {
		return false, wrapProviderError(m.defaultProvider, ref, err)
	}
	return ok, nil
}

// Close gracefully shuts down all registered providers and aggregates
// any errors.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, provider := range m.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	m.providers = make(map[string]Provider)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("errors during shutdown: %v", errs)
}
