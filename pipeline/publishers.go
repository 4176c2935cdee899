package pipeline

import (
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/executor"
	"github.com/input-output-hk/catalyst-forge-release/git"
	"github.com/input-output-hk/catalyst-forge-release/publish/oci"
	"github.com/input-output-hk/catalyst-forge-release/publish/pkgrepo"
	"github.com/input-output-hk/catalyst-forge-release/publish/registry"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// BuildPublishers instantiates the configured publishers in definition
// order.
func BuildPublishers(cfg *config.Config, runner *executor.Runner, manager *secrets.Manager, logger *slog.Logger) ([]BoundPublisher, error) {
	var publishers []BoundPublisher

	for _, spec := range cfg.Publishers {
		var (
			bound BoundPublisher
			err   error
		)

		switch spec.Kind {
		case config.KindRegistry:
			bound.Publisher, err = registry.New(registry.Options{
				Name:     spec.Name,
				Command:  spec.Command,
				Dir:      spec.Dir,
				TokenRef: spec.TokenRef,
				TokenEnv: spec.TokenEnv,
				Timeout:  spec.Timeout.Std(),
				Retries:  spec.Retries,
			}, runner, manager)

		case config.KindPkgRepo:
			bound.Publisher, err = pkgrepo.New(pkgrepo.Options{
				Name:           spec.Name,
				RemoteURL:      spec.RemoteURL,
				Branch:         spec.Branch,
				KeyRef:         spec.KeyRef,
				TokenRef:       spec.TokenRef,
				UpdateCommands: spec.UpdateCommands,
				CommitMessage:  spec.CommitMessage,
				Committer: git.Signature{
					Name:  cfg.Committer.Name,
					Email: cfg.Committer.Email,
				},
				CommandTimeout: spec.Timeout.Std(),
			}, runner, manager, logger)

		case config.KindOCI:
			bound.Publisher, err = oci.New(oci.Options{
				Name:           spec.Name,
				Repository:     spec.Repository,
				ArtifactPath:   spec.ArtifactPath,
				ArtifactType:   spec.ArtifactType,
				CredentialsRef: spec.CredentialsRef,
				PlainHTTP:      spec.PlainHTTP,
			}, manager, logger)

		default:
			err = errors.Newf(errors.CodeInvalidConfig,
				"publisher %q has unknown kind %q", spec.Name, spec.Kind)
		}

		if err != nil {
			return nil, err
		}

		bound.Gated = spec.Gated
		publishers = append(publishers, bound)
	}

	return publishers, nil
}
