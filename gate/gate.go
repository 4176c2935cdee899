// Package gate implements the pre-release gate: the predicate that decides
// whether a tagged release may proceed past the primary publish steps.
//
// The gate is intentionally a control-flow mechanism, not an error: a Halt
// outcome means the remaining gated steps (secondary publish, promotion) are
// skipped and the run ends successfully in a halted state.
package gate

import (
	"fmt"

	"github.com/input-output-hk/catalyst-forge-release/version"
)

// Outcome is the gate's decision for a tag.
type Outcome int

const (
	// Proceed allows the remaining pipeline steps to run.
	Proceed Outcome = iota

	// Halt stops the pipeline before the gated steps.
	Halt
)

// String returns a human-readable representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case Proceed:
		return "proceed"
	case Halt:
		return "halt"
	default:
		return "unknown"
	}
}

// Decision carries the gate outcome and, for Halt, the reason.
type Decision struct {
	Outcome Outcome
	Reason  string
}

// Gate decides whether a tag denotes a stable release.
type Gate struct {
	// Markers are the substrings that mark a tag as a pre-release in
	// addition to its semver prerelease component.
	// Defaults to version.DefaultPrereleaseMarkers when empty.
	Markers []string
}

// New creates a Gate with the given pre-release markers.
func New(markers ...string) *Gate {
	return &Gate{Markers: markers}
}

// Check evaluates the tag. Pre-release tags halt; stable tags proceed.
// Unparseable tags halt as well: a tag the pipeline cannot classify must
// never reach promotion.
func (g *Gate) Check(tag string) Decision {
	v, err := version.Parse(tag)
	if err != nil {
		return Decision{
			Outcome: Halt,
			Reason:  fmt.Sprintf("tag %q is not a valid version tag", tag),
		}
	}

	if v.IsPrerelease(g.Markers...) {
		return Decision{
			Outcome: Halt,
			Reason:  fmt.Sprintf("tag %q is a pre-release", tag),
		}
	}

	return Decision{Outcome: Proceed}
}
