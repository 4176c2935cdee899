// Package memory implements an in-memory secrets provider for tests.
package memory

import (
	"context"
	"sync"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// Provider stores secrets in memory. It is safe for concurrent use.
type Provider struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New creates an empty in-memory provider.
func New() *Provider {
	return &Provider{values: make(map[string][]byte)}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "memory"
}

// Store saves a secret value. The value is copied.
func (p *Provider) Store(path string, value []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	p.values[path] = v
}

// Resolve returns a copy of the stored secret.
func (p *Provider) Resolve(ctx context.Context, ref secrets.Ref) (*secrets.Secret, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	value, ok := p.values[ref.Path]
	if !ok {
		return nil, secrets.ErrSecretNotFound
	}

	v := make([]byte, len(value))
	copy(v, value)
	return &secrets.Secret{Value: v}, nil
}

// Exists reports whether a secret is stored at the path.
func (p *Provider) Exists(ctx context.Context, ref secrets.Ref) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.values[ref.Path]
	return ok, nil
}

// Close clears all stored values.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, v := range p.values {
		for i := range v {
			v[i] = 0
		}
		delete(p.values, k)
	}
	return nil
}
