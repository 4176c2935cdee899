// This file contains authentication providers for git transports.
package git

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// AuthProvider resolves authentication methods for git operations.
type AuthProvider interface {
	// Method returns the transport.AuthMethod for the given remote URL.
	// Returns nil if no authentication is needed for this URL.
	Method(remoteURL string) (transport.AuthMethod, error)
}

// TokenAuthProvider authenticates HTTPS remotes with a bearer token.
// The token is injected as the basic-auth password, which is what forges
// expect for token-authenticated pushes.
type TokenAuthProvider struct {
	// Username to pair with the token. Defaults to "token".
	Username string

	// Token is the access token. It is never included in error messages.
	Token string
}

// NewTokenAuthProvider creates a token provider for HTTPS remotes.
func NewTokenAuthProvider(token string) *TokenAuthProvider {
	return &TokenAuthProvider{Username: "token", Token: token}
}

// Method returns basic auth for http(s) URLs and nil for other schemes.
//
//nolint:ireturn // go-git requires the transport.AuthMethod interface
func (p *TokenAuthProvider) Method(remoteURL string) (transport.AuthMethod, error) {
	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, nil
	}
	if p.Token == "" {
		return nil, fmt.Errorf("no token configured")
	}

	username := p.Username
	if username == "" {
		username = "token"
	}
	return &githttp.BasicAuth{Username: username, Password: p.Token}, nil
}

// SSHKeyAuthProvider authenticates SSH remotes with a private key held in
// memory. The key bytes come from the secrets manager, never from disk.
type SSHKeyAuthProvider struct {
	// PrivateKey contains the PEM-encoded private key.
	PrivateKey []byte

	// Passphrase for encrypted keys.
	Passphrase string

	// Username for SSH authentication. Defaults to "git".
	Username string

	// HostKeyCallback for host key verification. If nil, host keys are
	// not verified; set a known-hosts callback for production remotes.
	HostKeyCallback gossh.HostKeyCallback
}

// NewSSHKeyAuthProvider creates an SSH provider from private key bytes.
func NewSSHKeyAuthProvider(keyBytes []byte, passphrase string) *SSHKeyAuthProvider {
	return &SSHKeyAuthProvider{
		PrivateKey: keyBytes,
		Passphrase: passphrase,
		Username:   "git",
	}
}

// WithHostKeyCallback sets the host key verification callback.
func (p *SSHKeyAuthProvider) WithHostKeyCallback(callback gossh.HostKeyCallback) *SSHKeyAuthProvider {
	p.HostKeyCallback = callback
	return p
}

// Method returns public-key auth for SSH URLs and nil for other schemes.
//
//nolint:ireturn // go-git requires the transport.AuthMethod interface
func (p *SSHKeyAuthProvider) Method(remoteURL string) (transport.AuthMethod, error) {
	if !isSSHURL(remoteURL) {
		return nil, nil
	}
	if len(p.PrivateKey) == 0 {
		return nil, fmt.Errorf("no SSH private key configured")
	}

	username := p.Username
	if username == "" {
		username = "git"
	}

	auth, err := gitssh.NewPublicKeys(username, p.PrivateKey, p.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}

	if p.HostKeyCallback != nil {
		auth.HostKeyCallback = p.HostKeyCallback
	} else {
		//nolint:gosec // packaging remotes are configured explicitly
		auth.HostKeyCallback = gossh.InsecureIgnoreHostKey()
	}

	return auth, nil
}

// isSSHURL reports whether the remote URL uses an SSH transport,
// including the scp-like git@host:path form.
func isSSHURL(remoteURL string) bool {
	if strings.HasPrefix(remoteURL, "git@") && !strings.HasPrefix(remoteURL, "git://") {
		return true
	}
	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return false
	}
	switch parsed.Scheme {
	case "ssh", "git", "git+ssh":
		return true
	default:
		return false
	}
}
