// Package env implements a secrets provider backed by process environment
// variables. This is the natural backend when the pipeline runs under a CI
// runner that injects repository secrets into the environment.
package env

import (
	"context"
	"os"
	"strings"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// Provider resolves secrets from environment variables.
// A ref path like "registry/token" maps to the variable "REGISTRY_TOKEN"
// (uppercased, with path separators and dashes folded to underscores),
// prefixed with Prefix when one is configured.
type Provider struct {
	// Prefix is prepended to every derived variable name (e.g. "FORGE_").
	Prefix string
}

// New creates an environment provider with no prefix.
func New() *Provider {
	return &Provider{}
}

// NewWithPrefix creates an environment provider with the given prefix.
func NewWithPrefix(prefix string) *Provider {
	return &Provider{Prefix: prefix}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "env"
}

// Resolve looks up the environment variable derived from the ref path.
func (p *Provider) Resolve(ctx context.Context, ref secrets.Ref) (*secrets.Secret, error) {
	name := p.varName(ref.Path)
	value, ok := os.LookupEnv(name)
	if !ok {
		return nil, secrets.ErrSecretNotFound
	}

	return &secrets.Secret{Value: []byte(value)}, nil
}

// Exists reports whether the derived environment variable is set.
func (p *Provider) Exists(ctx context.Context, ref secrets.Ref) (bool, error) {
	_, ok := os.LookupEnv(p.varName(ref.Path))
	return ok, nil
}

// Close is a no-op for the environment provider.
func (p *Provider) Close() error {
	return nil
}

// varName derives the environment variable name from a secret path.
func (p *Provider) varName(path string) string {
	name := strings.ToUpper(path)
	name = strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(name)
	return p.Prefix + name
}
