package secrets

import (
	"strings"
	"sync"
)

// redactedPlaceholder replaces secret values in scrubbed output.
const redactedPlaceholder = "[REDACTED]"

// minRedactLength guards against registering values so short that
// redaction would mangle unrelated output.
const minRedactLength = 4

// Redactor scrubs known secret values from text. The manager registers
// every resolved value; callers scrub captured output before logging or
// journaling it.
//
// Redactor is safe for concurrent use.
type Redactor struct {
	mu     sync.RWMutex
	values []string
}

// NewRedactor creates an empty Redactor.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// Add registers a secret value for redaction. Values shorter than four
// bytes are ignored. Duplicate registrations are collapsed.
func (r *Redactor) Add(value string) {
	if len(value) < minRedactLength {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.values {
		if v == value {
			return
		}
	}
	r.values = append(r.values, value)

	// Multi-line secrets (SSH keys) also get their individual lines
	// registered so partial leaks are caught.
	if strings.Contains(value, "\n") {
		for _, line := range strings.Split(value, "\n") {
			line = strings.TrimSpace(line)
			if len(line) >= minRedactLength && !r.containsLocked(line) {
				r.values = append(r.values, line)
			}
		}
	}
}

// Redact replaces every registered secret value in s with a placeholder.
func (r *Redactor) Redact(s string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.values {
		s = strings.ReplaceAll(s, v, redactedPlaceholder)
	}
	return s
}

// Len returns the number of registered values.
func (r *Redactor) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

func (r *Redactor) containsLocked(value string) bool {
	for _, v := range r.values {
		if v == value {
			return true
		}
	}
	return false
}
