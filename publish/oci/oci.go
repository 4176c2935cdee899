// Package oci implements the artifact publisher for OCI registries. The
// built release artifact is pushed as an ORAS artifact: a single content
// blob wrapped in an OCI 1.1 manifest, tagged with the release tag.
package oci

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/publish"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// DefaultArtifactType marks manifests produced by this publisher.
const DefaultArtifactType = "application/vnd.release.artifact.v1"

// Options configures an OCI artifact publisher.
type Options struct {
	// Name identifies this publisher instance.
	Name string

	// Repository is the registry repository path without a tag,
	// e.g. "ghcr.io/org/hyprtool".
	Repository string

	// ArtifactPath is the artifact file, relative to the release checkout.
	ArtifactPath string

	// ArtifactType is the manifest artifact type.
	// Defaults to DefaultArtifactType.
	ArtifactType string

	// CredentialsRef is the secrets path of registry credentials in
	// "username:password" form. Empty uses anonymous access.
	CredentialsRef string

	// PlainHTTP enables HTTP registries, for local test registries only.
	PlainHTTP bool
}

// Validate checks the options for required fields.
func (o *Options) Validate() error {
	if o.Name == "" {
		return errors.New(errors.CodeInvalidConfig, "oci publisher requires a name")
	}
	if o.Repository == "" {
		return errors.Newf(errors.CodeInvalidConfig, "oci publisher %q requires a repository", o.Name)
	}
	if !strings.Contains(o.Repository, "/") {
		return errors.Newf(errors.CodeInvalidConfig,
			"oci publisher %q repository must include a registry host", o.Name)
	}
	if strings.ContainsAny(refPart(o.Repository), ":@") {
		return errors.Newf(errors.CodeInvalidConfig,
			"oci publisher %q repository must not include a tag or digest", o.Name)
	}
	if o.ArtifactPath == "" {
		return errors.Newf(errors.CodeInvalidConfig, "oci publisher %q requires an artifact path", o.Name)
	}
	return nil
}

// refPart returns the path segment after the last slash.
func refPart(repository string) string {
	if idx := strings.LastIndex(repository, "/"); idx >= 0 {
		return repository[idx+1:]
	}
	return repository
}

// registryHost returns the registry host of a repository path.
func registryHost(repository string) string {
	if idx := strings.Index(repository, "/"); idx >= 0 {
		return repository[:idx]
	}
	return repository
}

// Publisher pushes release artifacts to an OCI registry.
type Publisher struct {
	options Options
	secrets *secrets.Manager
	logger  *slog.Logger
}

// New creates an OCI artifact publisher.
func New(options Options, manager *secrets.Manager, logger *slog.Logger) (*Publisher, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{options: options, secrets: manager, logger: logger}, nil
}

// Name returns the configured publisher name.
func (p *Publisher) Name() string { return p.options.Name }

// Kind returns "oci".
func (p *Publisher) Kind() string { return "oci" }

// Publish reads the artifact from the release checkout and pushes it,
// tagged with the release tag. The media type is sniffed from content.
func (p *Publisher) Publish(ctx context.Context, req *publish.Request) error {
	if err := req.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "invalid publish request")
	}

	artifactPath := filepath.Join(req.WorkDir, p.options.ArtifactPath)
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return errors.WrapWithContext(err, errors.CodePublishFailed,
			"failed to read release artifact",
			map[string]interface{}{"publisher": p.options.Name, "artifact": p.options.ArtifactPath})
	}
	if len(data) == 0 {
		return errors.Newf(errors.CodePublishFailed,
			"release artifact %s is empty", p.options.ArtifactPath)
	}

	repo, err := p.repository(ctx)
	if err != nil {
		return err
	}

	manifestDigest, err := pushArtifact(ctx, repo, data, artifactOptions{
		artifactType: p.artifactType(),
		tag:          req.Tag,
		annotations: map[string]string{
			ocispec.AnnotationVersion:  req.Version,
			ocispec.AnnotationRevision: req.CommitSHA,
		},
	})
	if err != nil {
		return errors.WrapWithContext(err, errors.CodePublishFailed,
			"failed to push artifact",
			map[string]interface{}{"publisher": p.options.Name, "repository": p.options.Repository})
	}

	p.logger.Info("artifact published",
		"publisher", p.options.Name,
		"repository", p.options.Repository,
		"tag", req.Tag,
		"digest", manifestDigest.String())
	return nil
}

func (p *Publisher) artifactType() string {
	if p.options.ArtifactType == "" {
		return DefaultArtifactType
	}
	return p.options.ArtifactType
}

// repository builds the authenticated ORAS repository client.
func (p *Publisher) repository(ctx context.Context) (*remote.Repository, error) {
	repo, err := remote.NewRepository(p.options.Repository)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "invalid OCI repository reference")
	}
	repo.PlainHTTP = p.options.PlainHTTP

	client := &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
	}

	if p.options.CredentialsRef != "" {
		if p.secrets == nil {
			return nil, errors.Newf(errors.CodePublishFailed,
				"publisher %q has a credentials ref but no secrets manager", p.options.Name)
		}

		secret, err := p.secrets.Resolve(ctx, secrets.Ref{Path: p.options.CredentialsRef})
		if err != nil {
			return nil, errors.WrapWithContext(err, errors.CodeSecretResolution,
				"failed to resolve registry credentials",
				map[string]interface{}{"publisher": p.options.Name})
		}

		username, password, ok := splitCredentials(secret.String())
		if !ok {
			return nil, errors.New(errors.CodeSecretResolution,
				"registry credentials must be in username:password form")
		}

		client.Credential = auth.StaticCredential(registryHost(p.options.Repository), auth.Credential{
			Username: username,
			Password: password,
		})
	}

	repo.Client = client
	return repo, nil
}

// splitCredentials splits a "username:password" credential value.
func splitCredentials(value string) (username, password string, ok bool) {
	idx := strings.Index(value, ":")
	if idx <= 0 {
		return "", "", false
	}
	return value[:idx], value[idx+1:], true
}

// artifactOptions collects what pushArtifact needs beyond the blob itself.
type artifactOptions struct {
	artifactType string
	tag          string
	annotations  map[string]string
}

// pushArtifact pushes the content blob, packs an OCI 1.1 manifest around
// it, and tags the manifest. Returns the manifest digest.
func pushArtifact(ctx context.Context, repo oras.Target, data []byte, opts artifactOptions) (digest.Digest, error) {
	mediaType := mimetype.Detect(data).String()

	blobDesc, err := oras.PushBytes(ctx, repo, mediaType, data)
	if err != nil {
		return "", err
	}

	manifestDesc, err := oras.PackManifest(ctx, repo, oras.PackManifestVersion1_1, opts.artifactType,
		oras.PackManifestOptions{
			Layers:              []ocispec.Descriptor{blobDesc},
			ManifestAnnotations: opts.annotations,
		})
	if err != nil {
		return "", err
	}

	if _, err := oras.Tag(ctx, repo, manifestDesc.Digest.String(), opts.tag); err != nil {
		return "", err
	}

	return manifestDesc.Digest, nil
}
