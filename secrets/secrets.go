// Package secrets provides provider-agnostic credential handling for the
// release pipeline with just-in-time resolution and output redaction.
//
// Secrets are referenced by path in the pipeline definition and resolved
// only when a step needs them. Every resolved value is registered with the
// manager's Redactor so that captured step output can be scrubbed before it
// is logged or journaled.
package secrets

import "time"

// Secret represents a resolved secret value.
// The value should never be logged or serialized.
type Secret struct {
	// Value contains the secret data as bytes.
	Value []byte

	// Version indicates the version of this secret, if the provider tracks one.
	Version string

	// CreatedAt records when this secret was created.
	CreatedAt time.Time

	// AutoClear controls whether accessor methods clear memory after use.
	AutoClear bool
}

// Ref is a reference to a secret without containing the actual value.
type Ref struct {
	// Path identifies the secret (e.g. "registry/token", "aur/ssh-key").
	Path string

	// Version selects a specific version (empty for latest).
	Version string
}

// String returns the secret value as a string.
// If AutoClear is enabled the value is cleared after use.
func (s *Secret) String() string {
	if s.Value == nil {
		return ""
	}

	value := string(s.Value)
	if s.AutoClear {
		s.Clear()
	}
	return value
}

// Bytes returns a copy of the secret value.
// If AutoClear is enabled the value is cleared after use.
func (s *Secret) Bytes() []byte {
	if s.Value == nil {
		return nil
	}

	value := make([]byte, len(s.Value))
	copy(value, s.Value)
	if s.AutoClear {
		s.Clear()
	}
	return value
}

// Clear zeros out the secret value in memory.
func (s *Secret) Clear() {
	if s.Value != nil {
		for i := range s.Value {
			s.Value[i] = 0
		}
		s.Value = nil
	}
}
