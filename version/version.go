// Package version interprets version tags for the release pipeline.
// It wraps semantic version parsing and classifies tags into release channels.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// DefaultPrereleaseMarkers are the substrings that mark a tag as a
// pre-release even before semantic version parsing is consulted.
var DefaultPrereleaseMarkers = []string{"-rc", "-alpha"}

// Channel classifies a version tag by stability.
type Channel string

const (
	// ChannelStable is a stable release (no prerelease component).
	ChannelStable Channel = "stable"

	// ChannelCandidate is a release candidate (rc prerelease).
	ChannelCandidate Channel = "candidate"

	// ChannelAlpha is an alpha pre-release.
	ChannelAlpha Channel = "alpha"

	// ChannelOther is any other pre-release (beta, dev builds, etc.).
	ChannelOther Channel = "other"
)

// Version is a parsed version tag. The raw tag is retained because gate
// decisions are defined over the tag string, not just its semver parse.
type Version struct {
	raw    string
	parsed *semver.Version
}

// Parse parses a version tag into a Version.
// A leading "v" is tolerated (semver parsing strips it).
// Returns CodeInvalidTag if the tag is not a valid semantic version.
func Parse(tag string) (*Version, error) {
	if tag == "" {
		return nil, errors.New(errors.CodeInvalidTag, "tag cannot be empty")
	}

	v, err := semver.NewVersion(tag)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidTag,
			"tag is not a valid semantic version",
			map[string]interface{}{"tag": tag})
	}

	return &Version{raw: tag, parsed: v}, nil
}

// Tag returns the original tag string.
func (v *Version) Tag() string {
	return v.raw
}

// Semver returns the canonical semantic version string (without "v" prefix).
func (v *Version) Semver() string {
	return v.parsed.String()
}

// Prerelease returns the semver prerelease component ("" for stable versions).
func (v *Version) Prerelease() string {
	return v.parsed.Prerelease()
}

// IsPrerelease reports whether the tag denotes a non-stable release.
// A tag is a pre-release when its semver prerelease component is non-empty
// or when the raw tag contains any of the given marker substrings.
// If no markers are given, DefaultPrereleaseMarkers apply.
func (v *Version) IsPrerelease(markers ...string) bool {
	if v.parsed.Prerelease() != "" {
		return true
	}
	if len(markers) == 0 {
		markers = DefaultPrereleaseMarkers
	}
	for _, m := range markers {
		if m != "" && strings.Contains(v.raw, m) {
			return true
		}
	}
	return false
}

// Channel returns the release channel for this version.
func (v *Version) Channel() Channel {
	pre := v.parsed.Prerelease()
	switch {
	case pre == "":
		return ChannelStable
	case strings.HasPrefix(pre, "rc"):
		return ChannelCandidate
	case strings.HasPrefix(pre, "alpha"):
		return ChannelAlpha
	default:
		return ChannelOther
	}
}

// Compare compares two versions per semantic versioning precedence.
// Returns -1, 0, or 1.
func (v *Version) Compare(other *Version) int {
	return v.parsed.Compare(other.parsed)
}

// PreviousStable returns the highest stable version in tags that is lower
// than v, or "" if there is none. Unparseable tags are skipped.
// This is used to determine the commit range for release notes.
func PreviousStable(v *Version, tags []string) string {
	var best *Version
	for _, tag := range tags {
		candidate, err := Parse(tag)
		if err != nil || candidate.IsPrerelease() {
			continue
		}
		if candidate.Compare(v) >= 0 {
			continue
		}
		if best == nil || candidate.Compare(best) > 0 {
			best = candidate
		}
	}
	if best == nil {
		return ""
	}
	return best.Tag()
}
