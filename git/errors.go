// Package git provides sentinel errors for the pipeline's git operations.
// All errors can be checked using errors.Is() for programmatic handling.
package git

import (
	"errors"
	"fmt"
)

// ErrAlreadyUpToDate is returned when fetch or push operations result in no
// changes because local and remote states are already synchronized.
var ErrAlreadyUpToDate = errors.New("already up to date")

// ErrAuthRequired is returned when an operation requires authentication but
// no credentials were provided or available.
var ErrAuthRequired = errors.New("authentication required")

// ErrTagExists is returned when attempting to create a tag that already exists.
var ErrTagExists = errors.New("tag already exists")

// ErrTagMissing is returned when attempting to operate on a tag that does not exist.
var ErrTagMissing = errors.New("tag does not exist")

// ErrBranchMissing is returned when attempting to operate on a branch that does not exist.
var ErrBranchMissing = errors.New("branch does not exist")

// ErrNotFastForward is returned when a branch update cannot be performed as
// a fast-forward. The stable branch is only ever moved by fast-forward.
var ErrNotFastForward = errors.New("not a fast-forward")

// ErrInvalidRef is returned when a reference name or revision specification
// is malformed or invalid.
var ErrInvalidRef = errors.New("invalid reference")

// ErrResolveFailed is returned when a revision cannot be resolved to a
// commit hash.
var ErrResolveFailed = errors.New("cannot resolve revision")

// WrapError wraps an error with additional context while preserving the
// ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
