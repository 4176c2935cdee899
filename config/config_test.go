package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/gate"
)

const validYAML = `
project: hyprtool
repository: https://github.com/org/hyprtool.git
trigger:
  pattern: "v*"
provision:
  - name: toolchain
    command: ["rustup", "default", "stable"]
    timeout: 5m
publishers:
  - name: crates
    kind: registry
    command: ["cargo", "publish"]
    token_ref: registry/token
    token_env: CARGO_REGISTRY_TOKEN
  - name: aur
    kind: pkgrepo
    gated: true
    remote_url: ssh://aur@aur.example.org/hyprtool.git
    key_ref: aur/ssh-key
    update_commands:
      - ["./update.sh"]
promotion:
  enabled: true
  create_missing: true
secrets:
  provider: env
committer:
  name: release-bot
  email: bot@example.com
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "hyprtool", cfg.Project)
	require.Len(t, cfg.Publishers, 2)
	assert.False(t, cfg.Publishers[0].Gated)
	assert.True(t, cfg.Publishers[1].Gated)
	assert.Equal(t, 5*time.Minute, cfg.Provision[0].Timeout.Std())

	// Defaults applied.
	assert.Equal(t, []string{"-rc", "-alpha"}, cfg.Gate.Markers)
	assert.Equal(t, "stable", cfg.Promotion.Branch)
	assert.Equal(t, "direct", cfg.Promotion.Mode)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.NotEmpty(t, cfg.Store.Path)
}

func TestParseUnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte("project: x\nunknown_field: true\n"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))
}

func TestParseInvalidDuration(t *testing.T) {
	_, err := Parse([]byte(`
project: x
provision:
  - name: s
    command: ["true"]
    timeout: soon
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestNewGate(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	g := cfg.NewGate()
	assert.Equal(t, gate.Halt, g.Check("v1.2.0-rc1").Outcome)
	assert.Equal(t, gate.Proceed, g.Check("v1.2.0").Outcome)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := &Config{
		Trigger: TriggerConfig{Pattern: "v*", Exclude: "["},
		Publishers: []PublisherConfig{
			{Name: "a", Kind: "registry"},
			{Name: "a", Kind: "carrier-pigeon"},
			{Kind: "oci"},
		},
		Promotion: PromotionConfig{Enabled: true, Mode: "rebase"},
		Secrets:   SecretsConfig{Provider: "vault"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))

	msg := err.Error()
	assert.Contains(t, msg, "project name is required")
	assert.Contains(t, msg, "not a valid glob")
	assert.Contains(t, msg, `registry publisher "a" has no command`)
	assert.Contains(t, msg, "duplicate publisher name")
	assert.Contains(t, msg, "unknown kind")
	assert.Contains(t, msg, "publisher 2 has no name")
	assert.Contains(t, msg, `promotion mode "rebase" is unknown`)
	assert.Contains(t, msg, `secrets provider "vault" is unknown`)
}

func TestValidateFileSecretsRequireDir(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	cfg.Secrets = SecretsConfig{Provider: "file"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file secrets provider requires a dir")

	cfg.Secrets.Dir = "/etc/forge-release/secrets"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hyprtool", cfg.Project)
}

func TestLoadFromEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "hyprtool", cfg.Project)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))
}
