package secrets_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
	"github.com/input-output-hk/catalyst-forge-release/secrets/providers/memory"
)

func newManager(t *testing.T, autoClear bool) (*secrets.Manager, *memory.Provider) {
	t.Helper()

	manager := secrets.NewManager(&secrets.Config{
		DefaultProvider: "memory",
		AutoClear:       autoClear,
	})
	provider := memory.New()
	require.NoError(t, manager.Register("memory", provider))
	t.Cleanup(func() { _ = manager.Close() })

	return manager, provider
}

func TestManagerResolve(t *testing.T) {
	ctx := context.Background()
	manager, provider := newManager(t, false)
	provider.Store("registry/token", []byte("tok-abc123"))

	secret, err := manager.Resolve(ctx, secrets.Ref{Path: "registry/token"})
	require.NoError(t, err)
	assert.Equal(t, "tok-abc123", secret.String())
}

func TestManagerResolveMissing(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(t, false)

	_, err := manager.Resolve(ctx, secrets.Ref{Path: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)

	var provErr *secrets.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "memory", provErr.Provider)
	assert.Equal(t, "nope", provErr.Path)
}

func TestManagerUnknownProvider(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(t, false)

	_, err := manager.ResolveFrom(ctx, "vault", secrets.Ref{Path: "x"})
	assert.ErrorIs(t, err, secrets.ErrProviderNotFound)
}

func TestManagerRegistersRedaction(t *testing.T) {
	ctx := context.Background()
	manager, provider := newManager(t, false)
	provider.Store("registry/token", []byte("tok-abc123"))

	_, err := manager.Resolve(ctx, secrets.Ref{Path: "registry/token"})
	require.NoError(t, err)

	scrubbed := manager.Redactor().Redact("publishing with token tok-abc123 done")
	assert.NotContains(t, scrubbed, "tok-abc123")
	assert.Contains(t, scrubbed, "[REDACTED]")
}

func TestManagerAutoClear(t *testing.T) {
	ctx := context.Background()
	manager, provider := newManager(t, true)
	provider.Store("k", []byte("value-1"))

	secret, err := manager.Resolve(ctx, secrets.Ref{Path: "k"})
	require.NoError(t, err)
	assert.Equal(t, "value-1", secret.String())
	// Cleared after first use.
	assert.Equal(t, "", secret.String())
}

func TestManagerDuplicateRegister(t *testing.T) {
	manager, _ := newManager(t, false)
	err := manager.Register("memory", memory.New())
	assert.Error(t, err)
}

func TestManagerExists(t *testing.T) {
	ctx := context.Background()
	manager, provider := newManager(t, false)
	provider.Store("k", []byte("v-1234"))

	ok, err := manager.Exists(ctx, secrets.Ref{Path: "k"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = manager.Exists(ctx, secrets.Ref{Path: "missing"})
	require.NoError(t, err)
	assert.False(t, ok)
}
