// Package registry implements the package-registry publisher. It runs a
// configured publish command (the ecosystem's package manager) with a
// registry token resolved from the secrets manager into the command's
// environment.
package registry

import (
	"context"
	"path/filepath"
	"time"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/executor"
	"github.com/input-output-hk/catalyst-forge-release/publish"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// DefaultTokenEnv is the environment variable the token is exposed as when
// the configuration does not name one.
const DefaultTokenEnv = "REGISTRY_TOKEN"

// Options configures a registry publisher.
type Options struct {
	// Name identifies this publisher instance.
	Name string

	// Command is the publish command argv, e.g. ["cargo", "publish"].
	Command []string

	// Dir is the working directory relative to the release checkout.
	// Empty means the checkout root.
	Dir string

	// TokenRef is the secrets path of the registry token. Empty means the
	// command authenticates some other way.
	TokenRef string

	// TokenEnv is the environment variable the token is exposed as.
	// Defaults to DefaultTokenEnv.
	TokenEnv string

	// Timeout bounds the publish command. Zero means no timeout.
	Timeout time.Duration

	// Retries is the number of additional attempts after a failure.
	// Registry uploads are not always idempotent, so this defaults to zero.
	Retries int
}

// Validate checks the options for required fields.
func (o *Options) Validate() error {
	if o.Name == "" {
		return errors.New(errors.CodeInvalidConfig, "registry publisher requires a name")
	}
	if len(o.Command) == 0 {
		return errors.Newf(errors.CodeInvalidConfig, "registry publisher %q requires a command", o.Name)
	}
	return nil
}

// Publisher publishes a release to a package registry by running the
// configured publish command.
type Publisher struct {
	options Options
	runner  *executor.Runner
	secrets *secrets.Manager
}

// New creates a registry publisher. The runner should carry the secrets
// manager's redactor so captured publish output is scrubbed.
func New(options Options, runner *executor.Runner, manager *secrets.Manager) (*Publisher, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, errors.New(errors.CodeInvalidInput, "runner cannot be nil")
	}

	return &Publisher{options: options, runner: runner, secrets: manager}, nil
}

// Name returns the configured publisher name.
func (p *Publisher) Name() string { return p.options.Name }

// Kind returns "registry".
func (p *Publisher) Kind() string { return "registry" }

// Publish resolves the registry token and runs the publish command in the
// release checkout. The command fails the release on non-zero exit.
func (p *Publisher) Publish(ctx context.Context, req *publish.Request) error {
	if err := req.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "invalid publish request")
	}

	env := req.Env()

	if p.options.TokenRef != "" {
		if p.secrets == nil {
			return errors.Newf(errors.CodePublishFailed,
				"publisher %q has a token ref but no secrets manager", p.options.Name)
		}

		token, err := p.secrets.Resolve(ctx, secrets.Ref{Path: p.options.TokenRef})
		if err != nil {
			return errors.WrapWithContext(err, errors.CodeSecretResolution,
				"failed to resolve registry token",
				map[string]interface{}{"publisher": p.options.Name})
		}

		tokenEnv := p.options.TokenEnv
		if tokenEnv == "" {
			tokenEnv = DefaultTokenEnv
		}
		env[tokenEnv] = token.String()
	}

	dir := req.WorkDir
	if p.options.Dir != "" {
		dir = filepath.Join(req.WorkDir, p.options.Dir)
	}

	result, err := p.runner.Run(ctx, executor.Spec{
		Program: p.options.Command[0],
		Args:    p.options.Command[1:],
		Dir:     dir,
		Env:     env,
		Timeout: p.options.Timeout,
		Retries: p.options.Retries,
	})
	if err != nil {
		return errors.WrapWithContext(err, errors.CodePublishFailed,
			"registry publish command failed",
			map[string]interface{}{
				"publisher": p.options.Name,
				"exit_code": result.ExitCode,
				"output":    publish.Excerpt(result.Combined(), publish.ExcerptLimit),
			})
	}

	return nil
}
