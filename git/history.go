// This file contains history operations used for release note generation.
package git

import (
	"context"
	"io"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Commit is a flattened commit record.
type Commit struct {
	// Hash is the full commit hash.
	Hash string

	// Message is the complete commit message.
	Message string

	// Author is the commit author's name.
	Author string

	// Email is the commit author's email.
	Email string

	// When is the author timestamp.
	When time.Time
}

// CommitsBetween returns the commits reachable from toRev but not from
// fromRev, newest first. An empty fromRev returns the full history of
// toRev. Both revisions may be tags, branches, or hashes.
func (r *Repo) CommitsBetween(ctx context.Context, fromRev, toRev string) ([]Commit, error) {
	if toRev == "" {
		return nil, WrapError(ErrInvalidRef, "toRev cannot be empty")
	}

	toHash, err := r.repo.ResolveRevision(plumbing.Revision(toRev))
	if err != nil {
		return nil, WrapErrorf(ErrResolveFailed, "failed to resolve %q", toRev)
	}

	var stop map[plumbing.Hash]bool
	if fromRev != "" {
		fromHash, fromErr := r.repo.ResolveRevision(plumbing.Revision(fromRev))
		if fromErr != nil {
			return nil, WrapErrorf(ErrResolveFailed, "failed to resolve %q", fromRev)
		}
		stop = ancestorSet(r, *fromHash)
	}

	iter, err := r.repo.Log(&gogit.LogOptions{From: *toHash})
	if err != nil {
		return nil, WrapError(err, "failed to open commit log")
	}
	defer iter.Close()

	var commits []Commit
	for {
		commit, iterErr := iter.Next()
		if iterErr == io.EOF {
			break
		}
		if iterErr != nil {
			return nil, WrapError(iterErr, "failed to iterate commits")
		}
		if stop != nil && stop[commit.Hash] {
			continue
		}
		commits = append(commits, Commit{
			Hash:    commit.Hash.String(),
			Message: commit.Message,
			Author:  commit.Author.Name,
			Email:   commit.Author.Email,
			When:    commit.Author.When,
		})
	}

	return commits, nil
}

// ancestorSet collects the hashes reachable from the given commit so the
// shared history can be excluded from a commit range.
func ancestorSet(r *Repo, from plumbing.Hash) map[plumbing.Hash]bool {
	set := make(map[plumbing.Hash]bool)

	iter, err := r.repo.Log(&gogit.LogOptions{From: from})
	if err != nil {
		return set
	}
	defer iter.Close()

	_ = iter.ForEach(func(c *object.Commit) error {
		set[c.Hash] = true
		return nil
	})

	return set
}
