// Package trigger decides whether an incoming push event should start a
// release run. Only tag pushes matching the configured pattern are release
// triggers; branch pushes and non-matching tags are rejected.
package trigger

import (
	"path"
	"strings"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// TagRefPrefix is the git reference prefix for tags.
const TagRefPrefix = "refs/tags/"

// Event is a push-style event delivered by a forge webhook or constructed
// for a manual run.
type Event struct {
	// Ref is the full git reference that was pushed (e.g. "refs/tags/v1.2.0").
	Ref string `json:"ref"`

	// After is the commit SHA the ref points to after the push.
	After string `json:"after"`

	// Repository is the repository name the event belongs to.
	Repository string `json:"repository"`

	// Pusher identifies who pushed the ref.
	Pusher string `json:"pusher"`
}

// ParseRef extracts the tag name from a full reference.
// Returns ok=false for non-tag references.
func ParseRef(ref string) (tag string, ok bool) {
	if !strings.HasPrefix(ref, TagRefPrefix) {
		return "", false
	}
	tag = strings.TrimPrefix(ref, TagRefPrefix)
	return tag, tag != ""
}

// Matcher matches tag names against include/exclude glob patterns.
// Patterns use path.Match syntax (* and ? wildcards).
type Matcher struct {
	// Pattern is the glob a tag must match to trigger a release.
	// An empty pattern matches every tag.
	Pattern string

	// Exclude is an optional glob; matching tags never trigger a release.
	Exclude string
}

// NewMatcher creates a Matcher with the given include pattern.
func NewMatcher(pattern string) *Matcher {
	return &Matcher{Pattern: pattern}
}

// WithExclude sets the exclude pattern.
func (m *Matcher) WithExclude(pattern string) *Matcher {
	m.Exclude = pattern
	return m
}

// MatchTag reports whether the tag name triggers a release.
func (m *Matcher) MatchTag(tag string) bool {
	if tag == "" {
		return false
	}
	if !matchesGlob(tag, m.Pattern) {
		return false
	}
	if m.Exclude != "" && matchesGlob(tag, m.Exclude) {
		return false
	}
	return true
}

// Match evaluates a push event. On success it returns the tag name that
// should be released. Non-tag refs and non-matching tags return
// CodeTriggerRejected.
func (m *Matcher) Match(event Event) (string, error) {
	tag, ok := ParseRef(event.Ref)
	if !ok {
		return "", errors.Newf(errors.CodeTriggerRejected,
			"ref %q is not a tag push", event.Ref)
	}

	if !m.MatchTag(tag) {
		return "", errors.Newf(errors.CodeTriggerRejected,
			"tag %q does not match release pattern %q", tag, m.Pattern)
	}

	return tag, nil
}

// matchesGlob matches a name against a glob pattern.
// An empty pattern matches everything; a malformed pattern matches nothing.
func matchesGlob(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}
