// Package publish defines the publisher contract shared by the concrete
// publisher implementations (registry, pkgrepo, oci).
//
// A publisher delivers one released version to one external destination.
// Publishers are either primary (run before the pre-release gate) or gated
// (skipped for pre-release tags); that ordering is decided by the pipeline
// from configuration, not by the publisher itself.
package publish

import (
	"context"
	"fmt"
	"strings"
)

// ExcerptLimit is the default size of output excerpts attached to publish
// errors and journal records.
const ExcerptLimit = 2048

// Excerpt returns the last max bytes of s, trimmed to whole lines where
// possible. Used to attach a bounded slice of command output to errors.
func Excerpt(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[len(s)-max:]
	if idx := strings.IndexByte(cut, '\n'); idx >= 0 && idx < len(cut)-1 {
		cut = cut[idx+1:]
	}
	return cut
}

// Request carries everything a publisher needs about the release in flight.
type Request struct {
	// Project is the project name being released.
	Project string

	// Tag is the git tag that triggered the release, e.g. "v1.2.0".
	Tag string

	// Version is the normalized semantic version without the "v" prefix.
	Version string

	// CommitSHA is the commit the tag resolves to.
	CommitSHA string

	// WorkDir is a checkout of the project at the tagged commit.
	WorkDir string

	// Notes is the rendered markdown release notes, possibly empty.
	Notes string
}

// Validate checks that the request carries the required release identity.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("request cannot be nil")
	}
	if r.Tag == "" {
		return fmt.Errorf("request tag cannot be empty")
	}
	if r.Version == "" {
		return fmt.Errorf("request version cannot be empty")
	}
	return nil
}

// Env returns the release identity as environment variables. Publishers
// inject these into the commands they run so publish scripts can reference
// the release without templating.
func (r *Request) Env() map[string]string {
	return map[string]string{
		"RELEASE_PROJECT": r.Project,
		"RELEASE_TAG":     r.Tag,
		"RELEASE_VERSION": r.Version,
		"RELEASE_COMMIT":  r.CommitSHA,
	}
}

// Publisher delivers a release to one destination.
type Publisher interface {
	// Name identifies this publisher instance in logs and the run journal.
	Name() string

	// Kind identifies the publisher implementation ("registry", "pkgrepo",
	// "oci").
	Kind() string

	// Publish delivers the release described by the request.
	Publish(ctx context.Context, req *Request) error
}
