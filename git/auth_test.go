package git

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func TestTokenAuthProvider(t *testing.T) {
	p := NewTokenAuthProvider("tok-123")

	t.Run("https URL gets basic auth", func(t *testing.T) {
		method, err := p.Method("https://forge.example.com/org/repo.git")
		require.NoError(t, err)
		require.NotNil(t, method)
	})

	t.Run("ssh URL gets no auth", func(t *testing.T) {
		method, err := p.Method("ssh://git@forge.example.com/org/repo.git")
		require.NoError(t, err)
		assert.Nil(t, method)
	})

	t.Run("empty token errors", func(t *testing.T) {
		empty := NewTokenAuthProvider("")
		_, err := empty.Method("https://forge.example.com/org/repo.git")
		assert.Error(t, err)
	})
}

func TestSSHKeyAuthProvider(t *testing.T) {
	keyPEM := generateTestKey(t)

	t.Run("ssh URL gets key auth", func(t *testing.T) {
		p := NewSSHKeyAuthProvider(keyPEM, "")
		method, err := p.Method("ssh://aur@aur.example.org/pkg.git")
		require.NoError(t, err)
		require.NotNil(t, method)
	})

	t.Run("scp-style URL gets key auth", func(t *testing.T) {
		p := NewSSHKeyAuthProvider(keyPEM, "")
		method, err := p.Method("git@aur.example.org:pkg.git")
		require.NoError(t, err)
		require.NotNil(t, method)
	})

	t.Run("https URL gets no auth", func(t *testing.T) {
		p := NewSSHKeyAuthProvider(keyPEM, "")
		method, err := p.Method("https://forge.example.com/org/repo.git")
		require.NoError(t, err)
		assert.Nil(t, method)
	})

	t.Run("missing key errors", func(t *testing.T) {
		p := NewSSHKeyAuthProvider(nil, "")
		_, err := p.Method("ssh://aur@aur.example.org/pkg.git")
		assert.Error(t, err)
	})

	t.Run("garbage key errors", func(t *testing.T) {
		p := NewSSHKeyAuthProvider([]byte("not a key"), "")
		_, err := p.Method("ssh://aur@aur.example.org/pkg.git")
		assert.Error(t, err)
	})
}

func TestIsSSHURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"ssh://git@host/repo.git", true},
		{"git@host:repo.git", true},
		{"git+ssh://host/repo.git", true},
		{"https://host/repo.git", false},
		{"git://host/repo.git", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, isSSHURL(tt.url))
		})
	}
}

// generateTestKey creates an ed25519 private key in OpenSSH PEM format.
func generateTestKey(t *testing.T) []byte {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	block, err := gossh.MarshalPrivateKey(priv, "test key")
	require.NoError(t, err)

	return pem.EncodeToMemory(block)
}
