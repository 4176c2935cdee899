// This file contains branch reference operations.
package git

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
)

// CreateBranch creates a branch pointing at the target revision.
func (r *Repo) CreateBranch(ctx context.Context, name, target string) error {
	if name == "" {
		return WrapError(ErrInvalidRef, "branch name cannot be empty")
	}
	if target == "" {
		return WrapError(ErrInvalidRef, "target revision cannot be empty")
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(target))
	if err != nil {
		return WrapError(ErrResolveFailed, "failed to resolve target revision")
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), *hash)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return WrapError(err, "failed to create branch")
	}

	return nil
}

// BranchHead returns the commit hash a branch points at.
func (r *Repo) BranchHead(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", WrapError(ErrInvalidRef, "branch name cannot be empty")
	}

	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return "", WrapErrorf(ErrBranchMissing, "branch %q not found", name)
	}

	return ref.Hash().String(), nil
}
