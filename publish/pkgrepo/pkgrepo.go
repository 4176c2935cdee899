// Package pkgrepo implements the packaging-repository publisher. It clones
// a downstream packaging repository (a user-repository of build scripts,
// reached over SSH), runs the configured update commands against the clone,
// commits the result, and pushes it back.
//
// This publisher is gated: the pipeline never runs it for pre-release tags.
package pkgrepo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/executor"
	"github.com/input-output-hk/catalyst-forge-release/git"
	"github.com/input-output-hk/catalyst-forge-release/publish"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// Options configures a packaging-repository publisher.
type Options struct {
	// Name identifies this publisher instance.
	Name string

	// RemoteURL is the packaging repository, usually an SSH URL such as
	// "ssh://aur@aur.example.org/project.git".
	RemoteURL string

	// Branch is the branch to push. Defaults to "master", the convention
	// of user packaging repositories.
	Branch string

	// KeyRef is the secrets path of the SSH private key used for the
	// clone and push. Required for SSH remotes.
	KeyRef string

	// TokenRef is the secrets path of an access token, for HTTPS remotes.
	TokenRef string

	// UpdateCommands run in the clone, in order. Each command sees the
	// RELEASE_* environment and is expected to regenerate the packaging
	// files for the new version.
	UpdateCommands [][]string

	// CommitMessage is a format string with one %s verb receiving the tag.
	// Defaults to "chore: update to %s".
	CommitMessage string

	// Committer signs the update commit.
	Committer git.Signature

	// CommandTimeout bounds each update command. Zero means no timeout.
	CommandTimeout time.Duration
}

// Validate checks the options for required fields.
func (o *Options) Validate() error {
	if o.Name == "" {
		return errors.New(errors.CodeInvalidConfig, "pkgrepo publisher requires a name")
	}
	if o.RemoteURL == "" {
		return errors.Newf(errors.CodeInvalidConfig, "pkgrepo publisher %q requires a remote URL", o.Name)
	}
	if len(o.UpdateCommands) == 0 {
		return errors.Newf(errors.CodeInvalidConfig, "pkgrepo publisher %q requires update commands", o.Name)
	}
	for i, command := range o.UpdateCommands {
		if len(command) == 0 {
			return errors.Newf(errors.CodeInvalidConfig,
				"pkgrepo publisher %q: update command %d is empty", o.Name, i)
		}
	}
	if o.Committer.Name == "" || o.Committer.Email == "" {
		return errors.Newf(errors.CodeInvalidConfig, "pkgrepo publisher %q requires a committer", o.Name)
	}
	return nil
}

func (o *Options) branch() string {
	if o.Branch == "" {
		return "master"
	}
	return o.Branch
}

func (o *Options) commitMessage(tag string) string {
	format := o.CommitMessage
	if format == "" {
		format = "chore: update to %s"
	}
	return fmt.Sprintf(format, tag)
}

// Publisher updates a downstream packaging repository for a new release.
type Publisher struct {
	options Options
	runner  *executor.Runner
	secrets *secrets.Manager
	logger  *slog.Logger
}

// New creates a packaging-repository publisher.
func New(options Options, runner *executor.Runner, manager *secrets.Manager, logger *slog.Logger) (*Publisher, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, errors.New(errors.CodeInvalidInput, "runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{options: options, runner: runner, secrets: manager, logger: logger}, nil
}

// Name returns the configured publisher name.
func (p *Publisher) Name() string { return p.options.Name }

// Kind returns "pkgrepo".
func (p *Publisher) Kind() string { return "pkgrepo" }

// Publish clones the packaging repository, runs the update commands,
// commits the changes, and pushes the configured branch. When the update
// commands leave the clone unchanged, the publish is a no-op.
func (p *Publisher) Publish(ctx context.Context, req *publish.Request) error {
	if err := req.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "invalid publish request")
	}

	auth, err := p.authProvider(ctx)
	if err != nil {
		return err
	}

	cloneDir, err := os.MkdirTemp("", "pkgrepo-*")
	if err != nil {
		return errors.Wrap(err, errors.CodePublishFailed, "failed to create clone directory")
	}
	defer os.RemoveAll(cloneDir)

	repo, err := git.Clone(ctx, p.options.RemoteURL, &git.Options{Path: cloneDir, Auth: auth})
	if err != nil {
		return errors.WrapWithContext(err, errors.CodePublishFailed,
			"failed to clone packaging repository",
			map[string]interface{}{"publisher": p.options.Name})
	}

	if err := p.runUpdates(ctx, cloneDir, req); err != nil {
		return err
	}

	changed, err := repo.HasChanges(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CodePublishFailed, "failed to inspect clone status")
	}
	if !changed {
		p.logger.Info("packaging repository already up to date",
			"publisher", p.options.Name, "tag", req.Tag)
		return nil
	}

	if _, err := repo.CommitAll(ctx, p.options.commitMessage(req.Tag), p.options.Committer); err != nil {
		return errors.Wrap(err, errors.CodePublishFailed, "failed to commit packaging update")
	}

	branch := p.options.branch()
	refspec := fmt.Sprintf("HEAD:refs/heads/%s", branch)
	if err := repo.Push(ctx, git.DefaultRemoteName, refspec); err != nil {
		return errors.WrapWithContext(err, errors.CodePublishFailed,
			"failed to push packaging update",
			map[string]interface{}{"publisher": p.options.Name, "branch": branch})
	}

	p.logger.Info("packaging repository updated",
		"publisher", p.options.Name, "tag", req.Tag, "branch", branch)
	return nil
}

// runUpdates executes each configured update command in the clone.
func (p *Publisher) runUpdates(ctx context.Context, cloneDir string, req *publish.Request) error {
	for _, command := range p.options.UpdateCommands {
		result, err := p.runner.Run(ctx, executor.Spec{
			Program: command[0],
			Args:    command[1:],
			Dir:     cloneDir,
			Env:     req.Env(),
			Timeout: p.options.CommandTimeout,
		})
		if err != nil {
			return errors.WrapWithContext(err, errors.CodePublishFailed,
				"packaging update command failed",
				map[string]interface{}{
					"publisher": p.options.Name,
					"command":   command[0],
					"exit_code": result.ExitCode,
					"output":    publish.Excerpt(result.Combined(), publish.ExcerptLimit),
				})
		}
	}
	return nil
}

// authProvider resolves the configured credential into a git auth provider.
func (p *Publisher) authProvider(ctx context.Context) (git.AuthProvider, error) {
	switch {
	case p.options.KeyRef != "":
		if p.secrets == nil {
			return nil, errors.Newf(errors.CodePublishFailed,
				"publisher %q has a key ref but no secrets manager", p.options.Name)
		}
		key, err := p.secrets.Resolve(ctx, secrets.Ref{Path: p.options.KeyRef})
		if err != nil {
			return nil, errors.WrapWithContext(err, errors.CodeSecretResolution,
				"failed to resolve SSH key",
				map[string]interface{}{"publisher": p.options.Name})
		}
		return git.NewSSHKeyAuthProvider(key.Bytes(), ""), nil

	case p.options.TokenRef != "":
		if p.secrets == nil {
			return nil, errors.Newf(errors.CodePublishFailed,
				"publisher %q has a token ref but no secrets manager", p.options.Name)
		}
		token, err := p.secrets.Resolve(ctx, secrets.Ref{Path: p.options.TokenRef})
		if err != nil {
			return nil, errors.WrapWithContext(err, errors.CodeSecretResolution,
				"failed to resolve access token",
				map[string]interface{}{"publisher": p.options.Name})
		}
		return git.NewTokenAuthProvider(token.String()), nil

	default:
		return nil, nil
	}
}
