// This file contains synchronization operations (fetch, fast-forward, push).
package git

import (
	"context"
	"errors"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Fetch fetches changes from the specified remote.
// Returns ErrAlreadyUpToDate if there are no changes to fetch.
//
// Context timeout/cancellation is honored during the fetch operation.
func (r *Repo) Fetch(ctx context.Context, remote string) error {
	if remote == "" {
		remote = DefaultRemoteName
	}

	fetchOpts := &gogit.FetchOptions{
		RemoteName: remote,
		Depth:      r.options.ShallowDepth,
	}

	authMethod, err := r.authFor(remote)
	if err != nil {
		return err
	}
	fetchOpts.Auth = authMethod

	err = r.repo.FetchContext(ctx, fetchOpts)
	if err != nil {
		if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return ErrAlreadyUpToDate
		}
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return WrapError(ErrResolveFailed, "remote not found")
		}
		return WrapError(err, "failed to fetch from remote")
	}

	return nil
}

// FastForwardBranch moves the named branch to the target revision, but only
// when the move is a fast-forward. Returns ErrNotFastForward when the
// branch has commits the target does not include, and ErrAlreadyUpToDate
// when the branch already points at the target.
func (r *Repo) FastForwardBranch(ctx context.Context, branch, targetRev string) error {
	if branch == "" {
		return WrapError(ErrInvalidRef, "branch name cannot be empty")
	}
	if targetRev == "" {
		return WrapError(ErrInvalidRef, "target revision cannot be empty")
	}

	targetHash, err := r.repo.ResolveRevision(plumbing.Revision(targetRev))
	if err != nil {
		return WrapErrorf(ErrResolveFailed, "failed to resolve %q", targetRev)
	}

	branchRefName := plumbing.NewBranchReferenceName(branch)
	branchRef, err := r.repo.Reference(branchRefName, true)
	if err != nil {
		return WrapErrorf(ErrBranchMissing, "branch %q not found", branch)
	}

	if branchRef.Hash() == *targetHash {
		return ErrAlreadyUpToDate
	}

	branchCommit, err := r.repo.CommitObject(branchRef.Hash())
	if err != nil {
		return WrapError(err, "failed to load branch commit")
	}
	targetCommit, err := r.repo.CommitObject(*targetHash)
	if err != nil {
		return WrapError(err, "failed to load target commit")
	}

	isFF, err := branchCommit.IsAncestor(targetCommit)
	if err != nil {
		return WrapError(err, "failed to check ancestry")
	}
	if !isFF {
		return WrapErrorf(ErrNotFastForward, "branch %q has diverged from %q", branch, targetRev)
	}

	newRef := plumbing.NewHashReference(branchRefName, *targetHash)
	if err := r.repo.Storer.SetReference(newRef); err != nil {
		return WrapError(err, "failed to update branch reference")
	}

	return nil
}

// Push pushes the given refspecs to the specified remote.
// An empty refspec list pushes the default matching refs.
// Returns ErrAlreadyUpToDate if there are no changes to push and
// ErrNotFastForward if the push would overwrite remote changes.
//
// Context timeout/cancellation is honored during the push operation.
func (r *Repo) Push(ctx context.Context, remote string, refspecs ...string) error {
	if remote == "" {
		remote = DefaultRemoteName
	}

	pushOpts := &gogit.PushOptions{RemoteName: remote}
	for _, spec := range refspecs {
		pushOpts.RefSpecs = append(pushOpts.RefSpecs, config.RefSpec(spec))
	}

	authMethod, err := r.authFor(remote)
	if err != nil {
		return err
	}
	pushOpts.Auth = authMethod

	err = r.repo.PushContext(ctx, pushOpts)
	if err != nil {
		if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return ErrAlreadyUpToDate
		}
		if errors.Is(err, gogit.ErrNonFastForwardUpdate) {
			return ErrNotFastForward
		}
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return WrapError(ErrResolveFailed, "remote not found")
		}
		return WrapError(err, "failed to push to remote")
	}

	return nil
}

// Head returns the commit hash HEAD points at.
func (r *Repo) Head(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", WrapError(err, "failed to resolve HEAD")
	}
	return head.Hash().String(), nil
}

// authFor resolves the auth method for the given remote's first URL.
//
//nolint:ireturn // go-git requires the transport.AuthMethod interface
func (r *Repo) authFor(remote string) (transport.AuthMethod, error) {
	if r.options.Auth == nil {
		return nil, nil
	}

	remoteConfig, err := r.repo.Remote(remote)
	if err != nil {
		return nil, WrapError(err, "failed to get remote configuration")
	}

	urls := remoteConfig.Config().URLs
	if len(urls) == 0 {
		return nil, WrapError(ErrInvalidRef, "remote has no URLs")
	}

	authMethod, err := r.options.Auth.Method(urls[0])
	if err != nil {
		return nil, WrapError(ErrAuthRequired, "failed to get authentication method")
	}
	return authMethod, nil
}
