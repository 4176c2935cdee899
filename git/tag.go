// This file contains tag operations: resolution, listing, and creation.
package git

import (
	"context"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// TagFilter is a predicate for filtering tags. A tag must pass every filter
// to be included.
type TagFilter func(name string) bool

// ResolveTag resolves a tag name to its commit hash.
// Annotated tags are peeled to the commit they point at.
func (r *Repo) ResolveTag(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", WrapError(ErrInvalidRef, "tag name cannot be empty")
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return "", WrapErrorf(ErrResolveFailed, "failed to resolve tag %q", name)
	}

	// Peel annotated tags to the underlying commit.
	if tagObj, tagErr := r.repo.TagObject(*hash); tagErr == nil {
		commit, commitErr := tagObj.Commit()
		if commitErr != nil {
			return "", WrapError(commitErr, "failed to peel annotated tag")
		}
		return commit.Hash.String(), nil
	}

	return hash.String(), nil
}

// Tags returns tag names passing all the provided filters, sorted
// alphabetically.
func (r *Repo) Tags(ctx context.Context, filters ...TagFilter) ([]string, error) {
	refs, err := r.repo.References()
	if err != nil {
		return nil, WrapError(err, "failed to get references")
	}

	var tags []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsTag() {
			return nil
		}
		name := ref.Name().Short()
		for _, filter := range filters {
			if filter != nil && !filter(name) {
				return nil
			}
		}
		tags = append(tags, name)
		return nil
	})
	if err != nil {
		return nil, WrapError(err, "failed to iterate references")
	}

	sort.Strings(tags)
	return tags, nil
}

// CreateTag creates a lightweight tag at the specified target revision.
func (r *Repo) CreateTag(ctx context.Context, name, target string) error {
	if name == "" {
		return WrapError(ErrInvalidRef, "tag name cannot be empty")
	}
	if target == "" {
		return WrapError(ErrInvalidRef, "target revision cannot be empty")
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(target))
	if err != nil {
		return WrapError(ErrResolveFailed, "failed to resolve target revision")
	}

	tagRefName := plumbing.NewTagReferenceName(name)
	if _, refErr := r.repo.Reference(tagRefName, true); refErr == nil {
		return WrapError(ErrTagExists, "tag already exists")
	}

	tagRef := plumbing.NewHashReference(tagRefName, *hash)
	if err := r.repo.Storer.SetReference(tagRef); err != nil {
		return WrapError(err, "failed to create tag")
	}

	return nil
}

// TagPrefixFilter matches tags with the given prefix.
func TagPrefixFilter(prefix string) TagFilter {
	return func(name string) bool {
		return strings.HasPrefix(name, prefix)
	}
}

// TagExcludeSuffixFilter excludes tags with the given suffix.
func TagExcludeSuffixFilter(suffix string) TagFilter {
	return func(name string) bool {
		return !strings.HasSuffix(name, suffix)
	}
}
