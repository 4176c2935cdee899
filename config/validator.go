package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// Validate performs the referential checks the YAML decoder cannot
// express. All problems are collected and reported in a single error.
func (c *Config) Validate() error {
	var problems []string

	if c.Project == "" {
		problems = append(problems, "project name is required")
	}

	problems = append(problems, c.validateTrigger()...)
	problems = append(problems, c.validateGate()...)
	problems = append(problems, c.validateProvision()...)
	problems = append(problems, c.validatePublishers()...)
	problems = append(problems, c.validatePromotion()...)
	problems = append(problems, c.validateSecrets()...)

	if len(problems) > 0 {
		return errors.Newf(errors.CodeInvalidConfig,
			"pipeline definition validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateTrigger() []string {
	var problems []string

	if c.Trigger.Pattern == "" {
		problems = append(problems, "trigger pattern is required")
	} else if !validGlob(c.Trigger.Pattern) {
		problems = append(problems, fmt.Sprintf("trigger pattern %q is not a valid glob", c.Trigger.Pattern))
	}
	if c.Trigger.Exclude != "" && !validGlob(c.Trigger.Exclude) {
		problems = append(problems, fmt.Sprintf("trigger exclude %q is not a valid glob", c.Trigger.Exclude))
	}
	return problems
}

func (c *Config) validateGate() []string {
	var problems []string
	for i, marker := range c.Gate.Markers {
		if marker == "" {
			problems = append(problems, fmt.Sprintf("gate marker %d is empty", i))
		}
	}
	return problems
}

func (c *Config) validateProvision() []string {
	var problems []string
	seen := make(map[string]bool)

	for i, step := range c.Provision {
		if step.Name == "" {
			problems = append(problems, fmt.Sprintf("provision step %d has no name", i))
			continue
		}
		if seen[step.Name] {
			problems = append(problems, fmt.Sprintf("duplicate provision step name %q", step.Name))
		}
		seen[step.Name] = true

		if len(step.Command) == 0 {
			problems = append(problems, fmt.Sprintf("provision step %q has no command", step.Name))
		}
		if step.Retries < 0 {
			problems = append(problems, fmt.Sprintf("provision step %q has negative retries", step.Name))
		}
	}
	return problems
}

func (c *Config) validatePublishers() []string {
	var problems []string
	seen := make(map[string]bool)

	for i, pub := range c.Publishers {
		if pub.Name == "" {
			problems = append(problems, fmt.Sprintf("publisher %d has no name", i))
			continue
		}
		if seen[pub.Name] {
			problems = append(problems, fmt.Sprintf("duplicate publisher name %q", pub.Name))
		}
		seen[pub.Name] = true

		switch pub.Kind {
		case KindRegistry:
			if len(pub.Command) == 0 {
				problems = append(problems, fmt.Sprintf("registry publisher %q has no command", pub.Name))
			}
		case KindPkgRepo:
			if pub.RemoteURL == "" {
				problems = append(problems, fmt.Sprintf("pkgrepo publisher %q has no remote_url", pub.Name))
			}
			if len(pub.UpdateCommands) == 0 {
				problems = append(problems, fmt.Sprintf("pkgrepo publisher %q has no update_commands", pub.Name))
			}
		case KindOCI:
			if pub.Repository == "" {
				problems = append(problems, fmt.Sprintf("oci publisher %q has no repository", pub.Name))
			}
			if pub.ArtifactPath == "" {
				problems = append(problems, fmt.Sprintf("oci publisher %q has no artifact_path", pub.Name))
			}
		case "":
			problems = append(problems, fmt.Sprintf("publisher %q has no kind", pub.Name))
		default:
			problems = append(problems, fmt.Sprintf("publisher %q has unknown kind %q (valid: %s, %s, %s)",
				pub.Name, pub.Kind, KindRegistry, KindPkgRepo, KindOCI))
		}
	}
	return problems
}

func (c *Config) validatePromotion() []string {
	var problems []string
	if !c.Promotion.Enabled {
		return problems
	}

	switch c.Promotion.Mode {
	case "direct", "pull-request":
	default:
		problems = append(problems, fmt.Sprintf("promotion mode %q is unknown (valid: direct, pull-request)",
			c.Promotion.Mode))
	}
	return problems
}

func (c *Config) validateSecrets() []string {
	var problems []string

	switch c.Secrets.Provider {
	case "env":
	case "file":
		if c.Secrets.Dir == "" {
			problems = append(problems, "file secrets provider requires a dir")
		}
	default:
		problems = append(problems, fmt.Sprintf("secrets provider %q is unknown (valid: env, file)",
			c.Secrets.Provider))
	}
	return problems
}

// validGlob reports whether the pattern is accepted by path.Match.
func validGlob(pattern string) bool {
	_, err := path.Match(pattern, "probe")
	return err == nil
}
