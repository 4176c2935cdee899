// This file contains worktree operations used by the packaging publisher.
package git

import (
	"context"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitAll stages every modified and untracked file and creates a commit
// with the given message and signature. Returns the new commit hash.
func (r *Repo) CommitAll(ctx context.Context, message string, sig Signature) (string, error) {
	if message == "" {
		return "", WrapError(ErrInvalidRef, "commit message cannot be empty")
	}

	if err := r.worktree.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return "", WrapError(err, "failed to stage changes")
	}

	when := sig.When
	if when.IsZero() {
		when = time.Now()
	}

	hash, err := r.worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  sig.Name,
			Email: sig.Email,
			When:  when,
		},
	})
	if err != nil {
		return "", WrapError(err, "failed to create commit")
	}

	return hash.String(), nil
}

// HasChanges reports whether the worktree has uncommitted changes.
func (r *Repo) HasChanges(ctx context.Context) (bool, error) {
	status, err := r.worktree.Status()
	if err != nil {
		return false, WrapError(err, "failed to get worktree status")
	}
	return !status.IsClean(), nil
}

// AddRemote registers a remote with the given name and URL.
func (r *Repo) AddRemote(ctx context.Context, name, url string) error {
	if name == "" || url == "" {
		return WrapError(ErrInvalidRef, "remote name and URL are required")
	}

	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return WrapError(err, "failed to create remote")
	}
	return nil
}
