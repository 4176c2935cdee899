// Package file implements a secrets provider backed by a directory of
// secret files, one file per secret. This matches mounted-secret layouts
// where each credential (registry token, SSH private key) is a single file.
package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// Provider resolves secrets from files under a root directory.
// A ref path like "aur/ssh-key" maps to <root>/aur/ssh-key.
type Provider struct {
	root string
}

// New creates a file provider rooted at dir.
func New(dir string) *Provider {
	return &Provider{root: dir}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "file"
}

// Resolve reads the secret file for the given ref.
// Trailing newlines are trimmed for single-line secrets; multi-line
// content (key material) is returned untouched.
func (p *Provider) Resolve(ctx context.Context, ref secrets.Ref) (*secrets.Secret, error) {
	path, err := p.secretPath(ref.Path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, secrets.ErrSecretNotFound
		}
		return nil, err
	}

	value := data
	if !strings.Contains(strings.TrimRight(string(data), "\n"), "\n") {
		value = []byte(strings.TrimRight(string(data), "\n"))
	}

	info, err := os.Stat(path)
	if err != nil {
		return &secrets.Secret{Value: value}, nil
	}

	return &secrets.Secret{Value: value, CreatedAt: info.ModTime()}, nil
}

// Exists reports whether the secret file exists.
func (p *Provider) Exists(ctx context.Context, ref secrets.Ref) (bool, error) {
	path, err := p.secretPath(ref.Path)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close is a no-op for the file provider.
func (p *Provider) Close() error {
	return nil
}

// secretPath joins the ref path under the root, rejecting traversal
// outside the root directory.
func (p *Provider) secretPath(refPath string) (string, error) {
	if refPath == "" {
		return "", secrets.ErrSecretNotFound
	}

	cleaned := filepath.Clean(refPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", errors.New("secret path escapes provider root")
	}

	return filepath.Join(p.root, cleaned), nil
}
