// Package git provides a high-level go-git facade for the release pipeline.
// It exposes the task-oriented operations the pipeline needs: resolving
// tags, walking history for release notes, fast-forwarding the stable
// branch, and pushing with SSH or token authentication.
package git

import (
	"context"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// DefaultRemoteName is the remote used when none is specified.
const DefaultRemoteName = "origin"

// Options configures repository access.
type Options struct {
	// Path is the OS path of the repository worktree.
	// Ignored when FS is set.
	Path string

	// FS is an optional billy filesystem root for the worktree.
	// Use memfs for in-memory repositories in tests.
	FS billy.Filesystem

	// Auth is an optional provider that resolves per-URL auth methods.
	Auth AuthProvider

	// ShallowDepth sets the depth for shallow clone/fetch operations.
	// Zero means full history.
	ShallowDepth int
}

// worktreeFS returns the billy filesystem for the worktree.
func (o *Options) worktreeFS() billy.Filesystem {
	if o.FS != nil {
		return o.FS
	}
	if o.Path != "" {
		return osfs.New(o.Path)
	}
	return memfs.New()
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.Path == "" && o.FS == nil {
		return WrapError(ErrInvalidRef, "either Path or FS is required")
	}
	if o.ShallowDepth < 0 {
		return WrapError(ErrInvalidRef, "ShallowDepth cannot be negative")
	}
	return nil
}

// Repo represents a git repository and provides high-level operations.
type Repo struct {
	repo     *gogit.Repository
	worktree *gogit.Worktree
	options  Options
}

// Path returns the worktree OS path, empty for in-memory repositories.
func (r *Repo) Path() string {
	return r.options.Path
}

// Signature identifies the author of commits and tags the pipeline creates.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Init creates a new non-bare repository at the configured location.
func Init(ctx context.Context, opts *Options) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}

	worktreeFS := opts.worktreeFS()
	storage, err := newStorage(worktreeFS)
	if err != nil {
		return nil, err
	}

	repo, err := gogit.Init(storage, worktreeFS)
	if err != nil {
		return nil, WrapError(err, "failed to initialize repository")
	}

	return wrapRepo(repo, opts)
}

// Open opens an existing repository at the configured location.
func Open(ctx context.Context, opts *Options) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}

	worktreeFS := opts.worktreeFS()
	storage, err := newStorage(worktreeFS)
	if err != nil {
		return nil, err
	}

	repo, err := gogit.Open(storage, worktreeFS)
	if err != nil {
		return nil, WrapError(err, "failed to open repository")
	}

	return wrapRepo(repo, opts)
}

// Clone creates a repository by cloning from a remote URL.
// Authentication is resolved through the AuthProvider when one is set.
//
// Context timeout/cancellation is honored during the clone operation.
func Clone(ctx context.Context, remoteURL string, opts *Options) (*Repo, error) {
	if remoteURL == "" {
		return nil, WrapError(ErrInvalidRef, "remote URL cannot be empty")
	}
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}

	worktreeFS := opts.worktreeFS()
	storage, err := newStorage(worktreeFS)
	if err != nil {
		return nil, err
	}

	cloneOpts := &gogit.CloneOptions{
		URL:          remoteURL,
		Depth:        opts.ShallowDepth,
		SingleBranch: opts.ShallowDepth > 0,
	}

	if opts.Auth != nil {
		authMethod, authErr := opts.Auth.Method(remoteURL)
		if authErr != nil {
			return nil, WrapError(ErrAuthRequired, "failed to get authentication method")
		}
		cloneOpts.Auth = authMethod
	}

	repo, err := gogit.CloneContext(ctx, storage, worktreeFS, cloneOpts)
	if err != nil {
		return nil, WrapError(err, "failed to clone repository")
	}

	return wrapRepo(repo, opts)
}

// newStorage creates .git storage under the worktree filesystem.
func newStorage(worktreeFS billy.Filesystem) (*filesystem.Storage, error) {
	dotGitFS, err := worktreeFS.Chroot(gogit.GitDirName)
	if err != nil {
		return nil, WrapError(err, "failed to access .git directory")
	}
	return filesystem.NewStorage(dotGitFS, cache.NewObjectLRUDefault()), nil
}

func wrapRepo(repo *gogit.Repository, opts *Options) (*Repo, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, WrapError(err, "failed to get worktree")
	}

	return &Repo{
		repo:     repo,
		worktree: worktree,
		options:  *opts,
	}, nil
}
