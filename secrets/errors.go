package secrets

import (
	"errors"
	"fmt"
)

// ErrSecretNotFound is returned when a referenced secret does not exist.
// Check with errors.Is().
var ErrSecretNotFound = errors.New("secret not found")

// ErrProviderNotFound is returned when a named provider is not registered.
var ErrProviderNotFound = errors.New("provider not found")

// ProviderError wraps a failure from a specific provider while preserving
// the underlying sentinel for errors.Is checks. The secret value never
// appears in the error; only the reference path does.
type ProviderError struct {
	Provider string
	Path     string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q: secret %q: %v", e.Provider, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// wrapProviderError attaches provider and path context to an error.
func wrapProviderError(provider string, ref Ref, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Path: ref.Path, Err: err}
}
