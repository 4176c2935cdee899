// Package config defines the pipeline definition file and its loader.
//
// A pipeline definition is a YAML document describing one project's release
// pipeline: the trigger pattern, the provision steps, the publishers with
// their secret references, the pre-release gate markers, and promotion.
// Schema-level decoding is handled by the YAML decoder; Validate performs
// the referential checks the decoder cannot express.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-release/gate"
	"github.com/input-output-hk/catalyst-forge-release/version"
)

// Publisher kinds accepted in the pipeline definition.
const (
	KindRegistry = "registry"
	KindPkgRepo  = "pkgrepo"
	KindOCI      = "oci"
)

// Duration wraps time.Duration for YAML decoding of values like "5m".
type Duration time.Duration

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root of a pipeline definition.
type Config struct {
	// Project is the project name, used in journal records and logs.
	Project string `yaml:"project"`

	// Repository is the project repository URL, cloned in server mode.
	Repository string `yaml:"repository"`

	// Trigger decides which tag pushes start a release.
	Trigger TriggerConfig `yaml:"trigger"`

	// Gate configures the pre-release gate.
	Gate GateConfig `yaml:"gate"`

	// Provision steps prepare the release environment, in order.
	Provision []StepConfig `yaml:"provision"`

	// Publishers deliver the release, in order. Gated publishers run only
	// after the gate lets a stable release through.
	Publishers []PublisherConfig `yaml:"publishers"`

	// Promotion moves the stable branch after a stable release.
	Promotion PromotionConfig `yaml:"promotion"`

	// Secrets selects and configures the secrets provider.
	Secrets SecretsConfig `yaml:"secrets"`

	// Committer signs commits the pipeline creates.
	Committer CommitterConfig `yaml:"committer"`

	// Store configures the run journal.
	Store StoreConfig `yaml:"store"`

	// Server configures the webhook daemon.
	Server ServerConfig `yaml:"server"`
}

// TriggerConfig is the tag matcher definition.
type TriggerConfig struct {
	// Pattern is a glob the tag must match, e.g. "v*".
	Pattern string `yaml:"pattern"`

	// Exclude is an optional glob of tags to reject.
	Exclude string `yaml:"exclude"`
}

// GateConfig configures the pre-release gate.
type GateConfig struct {
	// Markers are substrings that mark a tag as pre-release.
	// Defaults to "-rc" and "-alpha".
	Markers []string `yaml:"markers"`
}

// StepConfig is one provision step.
type StepConfig struct {
	// Name identifies the step in the run journal.
	Name string `yaml:"name"`

	// Command is the step argv.
	Command []string `yaml:"command"`

	// Timeout bounds the step. Zero uses no timeout.
	Timeout Duration `yaml:"timeout"`

	// Retries is the number of additional attempts after a failure.
	Retries int `yaml:"retries"`
}

// PublisherConfig is one publisher definition. Kind selects which fields
// apply; Validate rejects definitions missing their kind's fields.
type PublisherConfig struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Gated bool   `yaml:"gated"`

	// registry fields.
	Command  []string `yaml:"command"`
	Dir      string   `yaml:"dir"`
	TokenRef string   `yaml:"token_ref"`
	TokenEnv string   `yaml:"token_env"`
	Timeout  Duration `yaml:"timeout"`
	Retries  int      `yaml:"retries"`

	// pkgrepo fields.
	RemoteURL      string     `yaml:"remote_url"`
	Branch         string     `yaml:"branch"`
	KeyRef         string     `yaml:"key_ref"`
	UpdateCommands [][]string `yaml:"update_commands"`
	CommitMessage  string     `yaml:"commit_message"`

	// oci fields.
	Repository     string `yaml:"repository"`
	ArtifactPath   string `yaml:"artifact_path"`
	ArtifactType   string `yaml:"artifact_type"`
	CredentialsRef string `yaml:"credentials_ref"`
	PlainHTTP      bool   `yaml:"plain_http"`
}

// PromotionConfig configures the stable-branch promotion step.
type PromotionConfig struct {
	// Enabled turns promotion on. Promotion is gated: it never runs for
	// pre-release tags.
	Enabled bool `yaml:"enabled"`

	// Branch is the stable branch. Defaults to "stable".
	Branch string `yaml:"branch"`

	// Remote to push the branch to. Defaults to "origin".
	Remote string `yaml:"remote"`

	// Mode is "direct" or "pull-request". Defaults to "direct".
	Mode string `yaml:"mode"`

	// CreateMissing creates the branch on first release.
	CreateMissing bool `yaml:"create_missing"`

	// AutoMerge enables auto-merge in pull-request mode.
	AutoMerge bool `yaml:"auto_merge"`

	// TokenRef is the secrets path of the push token for HTTPS remotes.
	TokenRef string `yaml:"token_ref"`
}

// SecretsConfig selects the secrets provider.
type SecretsConfig struct {
	// Provider is "env" or "file". Defaults to "env".
	Provider string `yaml:"provider"`

	// Prefix namespaces environment variables for the env provider.
	Prefix string `yaml:"prefix"`

	// Dir is the secrets directory for the file provider.
	Dir string `yaml:"dir"`

	// AutoClear clears resolved secret values after first use.
	AutoClear bool `yaml:"auto_clear"`
}

// CommitterConfig signs pipeline-created commits.
type CommitterConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// StoreConfig configures the run journal.
type StoreConfig struct {
	// Path is the SQLite database file. Defaults to the user data dir.
	Path string `yaml:"path"`
}

// ServerConfig configures the webhook daemon.
type ServerConfig struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string `yaml:"addr"`
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Trigger.Pattern == "" {
		c.Trigger.Pattern = "v*"
	}
	if len(c.Gate.Markers) == 0 {
		c.Gate.Markers = append([]string(nil), version.DefaultPrereleaseMarkers...)
	}
	if c.Promotion.Branch == "" {
		c.Promotion.Branch = "stable"
	}
	if c.Promotion.Mode == "" {
		c.Promotion.Mode = "direct"
	}
	if c.Secrets.Provider == "" {
		c.Secrets.Provider = "env"
	}
	if c.Committer.Name == "" {
		c.Committer.Name = "release-bot"
	}
	if c.Committer.Email == "" {
		c.Committer.Email = "release-bot@localhost"
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(xdg.DataHome, "forge-release", "runs.db")
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// NewGate builds the pre-release gate from the configured markers.
func (c *Config) NewGate() *gate.Gate {
	return gate.New(c.Gate.Markers...)
}
