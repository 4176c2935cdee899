package secrets

import "context"

// Provider is the interface all secret backends implement.
type Provider interface {
	// Name returns the provider's identifier (e.g. "env", "file", "memory").
	Name() string

	// Resolve retrieves a single secret by reference.
	Resolve(ctx context.Context, ref Ref) (*Secret, error)

	// Exists checks if a secret exists without retrieving its value.
	Exists(ctx context.Context, ref Ref) (bool, error)

	// Close gracefully shuts down the provider and releases resources.
	Close() error
}
