// Package promote moves the stable branch to the released commit once a
// stable release has been published.
//
// The default mode fast-forwards the branch directly and pushes it: the end
// state is that the stable branch points at the tagged commit, and the
// branch only ever moves by fast-forward. A pull-request mode is available
// for repositories whose branch protection requires one; it shells out to
// the forge CLI.
package promote

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/executor"
	"github.com/input-output-hk/catalyst-forge-release/git"
	"github.com/input-output-hk/catalyst-forge-release/publish"
)

// Mode selects how the stable branch is moved.
type Mode string

const (
	// ModeDirect fast-forwards and pushes the branch.
	ModeDirect Mode = "direct"

	// ModePullRequest opens a pull request via the forge CLI.
	ModePullRequest Mode = "pull-request"
)

// Options configures promotion.
type Options struct {
	// Branch is the stable branch name. Defaults to "stable".
	Branch string

	// Remote is the remote to push to. Defaults to "origin".
	Remote string

	// Mode selects direct push or pull request. Defaults to ModeDirect.
	Mode Mode

	// CreateMissing creates the stable branch at the released commit when
	// it does not exist yet (first release).
	CreateMissing bool

	// ForgeCommand is the forge CLI used in pull-request mode.
	// Defaults to ["gh"].
	ForgeCommand []string

	// AutoMerge requests automatic merge of the pull request once checks
	// pass. Pull-request mode only.
	AutoMerge bool
}

// Validate checks the options.
func (o *Options) Validate() error {
	switch o.Mode {
	case "", ModeDirect, ModePullRequest:
	default:
		return errors.Newf(errors.CodeInvalidConfig, "unknown promotion mode %q", o.Mode)
	}
	return nil
}

func (o *Options) branch() string {
	if o.Branch == "" {
		return "stable"
	}
	return o.Branch
}

func (o *Options) remote() string {
	if o.Remote == "" {
		return git.DefaultRemoteName
	}
	return o.Remote
}

func (o *Options) mode() Mode {
	if o.Mode == "" {
		return ModeDirect
	}
	return o.Mode
}

func (o *Options) forgeCommand() []string {
	if len(o.ForgeCommand) == 0 {
		return []string{"gh"}
	}
	return o.ForgeCommand
}

// Promoter moves the stable branch after a successful stable release.
type Promoter struct {
	options Options
	runner  *executor.Runner
	logger  *slog.Logger
}

// New creates a Promoter. The runner is only used in pull-request mode.
func New(options Options, runner *executor.Runner, logger *slog.Logger) (*Promoter, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Promoter{options: options, runner: runner, logger: logger}, nil
}

// Promote moves the stable branch of the given repository to the tagged
// commit. Returns nil when the branch already points at the commit.
func (p *Promoter) Promote(ctx context.Context, repo *git.Repo, tag, notes string) error {
	if repo == nil {
		return errors.New(errors.CodeInvalidInput, "repository cannot be nil")
	}
	if tag == "" {
		return errors.New(errors.CodeInvalidInput, "tag cannot be empty")
	}

	if p.options.mode() == ModePullRequest {
		return p.promoteViaPullRequest(ctx, repo, tag, notes)
	}
	return p.promoteDirect(ctx, repo, tag)
}

// promoteDirect fast-forwards the stable branch to the tag and pushes it.
func (p *Promoter) promoteDirect(ctx context.Context, repo *git.Repo, tag string) error {
	branch := p.options.branch()
	remote := p.options.remote()

	err := repo.FastForwardBranch(ctx, branch, tag)
	switch {
	case err == nil:
	case stderrors.Is(err, git.ErrAlreadyUpToDate):
		p.logger.Info("stable branch already at release", "branch", branch, "tag", tag)
		return nil
	case stderrors.Is(err, git.ErrBranchMissing) && p.options.CreateMissing:
		if createErr := repo.CreateBranch(ctx, branch, tag); createErr != nil {
			return errors.Wrap(createErr, errors.CodePromotionFailed, "failed to create stable branch")
		}
	case stderrors.Is(err, git.ErrNotFastForward):
		return errors.WrapWithContext(err, errors.CodePromotionFailed,
			"stable branch has diverged from the release",
			map[string]interface{}{"branch": branch, "tag": tag})
	default:
		return errors.Wrap(err, errors.CodePromotionFailed, "failed to fast-forward stable branch")
	}

	refspec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)
	if err := repo.Push(ctx, remote, refspec); err != nil {
		if stderrors.Is(err, git.ErrAlreadyUpToDate) {
			return nil
		}
		return errors.WrapWithContext(err, errors.CodePromotionFailed,
			"failed to push stable branch",
			map[string]interface{}{"branch": branch, "remote": remote})
	}

	p.logger.Info("stable branch promoted", "branch", branch, "tag", tag, "remote", remote)
	return nil
}

// promoteViaPullRequest opens a promotion pull request with the forge CLI,
// optionally enabling auto-merge.
func (p *Promoter) promoteViaPullRequest(ctx context.Context, repo *git.Repo, tag, notes string) error {
	if p.runner == nil {
		return errors.New(errors.CodeInvalidConfig, "pull-request mode requires a command runner")
	}

	branch := p.options.branch()
	command := p.options.forgeCommand()

	createArgs := append(append([]string{}, command[1:]...),
		"pr", "create",
		"--base", branch,
		"--head", tag,
		"--title", fmt.Sprintf("Promote %s to %s", tag, branch),
		"--body-file", "-",
	)

	result, err := p.runner.Run(ctx, executor.Spec{
		Program: command[0],
		Args:    createArgs,
		Dir:     repo.Path(),
		Stdin:   notes,
	})
	if err != nil {
		return errors.WrapWithContext(err, errors.CodePromotionFailed,
			"failed to open promotion pull request",
			map[string]interface{}{
				"branch": branch,
				"output": publish.Excerpt(result.Combined(), publish.ExcerptLimit),
			})
	}

	if p.options.AutoMerge {
		mergeArgs := append(append([]string{}, command[1:]...), "pr", "merge", tag, "--auto", "--merge")
		result, err := p.runner.Run(ctx, executor.Spec{
			Program: command[0],
			Args:    mergeArgs,
			Dir:     repo.Path(),
		})
		if err != nil {
			return errors.WrapWithContext(err, errors.CodePromotionFailed,
				"failed to enable auto-merge",
				map[string]interface{}{
					"branch": branch,
					"output": publish.Excerpt(result.Combined(), publish.ExcerptLimit),
				})
		}
	}

	p.logger.Info("promotion pull request opened", "branch", branch, "tag", tag)
	return nil
}
