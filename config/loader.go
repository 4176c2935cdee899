package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	forgeerrors "github.com/input-output-hk/catalyst-forge-release/errors"
)

// EnvConfigPath is the environment variable overriding the config location.
const EnvConfigPath = "FORGE_RELEASE_CONFIG"

// DefaultFileName is the pipeline definition file name.
const DefaultFileName = "forge-release.yaml"

// Load reads, decodes, defaults, and validates a pipeline definition.
// An empty path triggers the search order: $FORGE_RELEASE_CONFIG, the
// working directory, then the user config directory.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, forgeerrors.WrapWithContext(err, forgeerrors.CodeInvalidConfig,
			"failed to read pipeline definition",
			map[string]interface{}{"path": path})
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, forgeerrors.WrapWithContext(err, forgeerrors.CodeInvalidConfig,
			"failed to load pipeline definition",
			map[string]interface{}{"path": path})
	}
	return cfg, nil
}

// Parse decodes a pipeline definition, applies defaults, and validates it.
// Unknown fields are rejected so typos fail loudly.
func Parse(data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, forgeerrors.Wrap(err, forgeerrors.CodeInvalidConfig,
			"failed to decode pipeline definition")
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findConfig resolves the pipeline definition path using the search order.
func findConfig() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", forgeerrors.Wrap(err, forgeerrors.CodeInvalidConfig,
			"failed to probe working directory for pipeline definition")
	}

	xdgPath := filepath.Join(xdg.ConfigHome, "forge-release", DefaultFileName)
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath, nil
	}

	return "", forgeerrors.Newf(forgeerrors.CodeInvalidConfig,
		"no pipeline definition found (set %s, or create %s in the working directory or %s)",
		EnvConfigPath, DefaultFileName, filepath.Join(xdg.ConfigHome, "forge-release"))
}
