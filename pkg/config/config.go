// Package config loads the workspace-level .caravel.yaml configuration.
package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// FileName is the workspace configuration file, looked up at the root.
const FileName = ".caravel.yaml"

// Config is everything the engine reads from the workspace configuration.
type Config struct {
	// PRName and PRBody are text/template sources for the outgoing request.
	// Empty values use the built-in rendering.
	PRName string `yaml:"pr_name"`
	PRBody string `yaml:"pr_body"`

	// PRLabels are applied to the outgoing request. Validated before use.
	PRLabels []string `yaml:"pr_labels"`

	// FeaturesAlwaysIncrementMinor forces feat commits to bump minor even
	// on pre-1.0 versions.
	FeaturesAlwaysIncrementMinor bool `yaml:"features_always_increment_minor"`

	// BranchPrefix names engine-owned release branches.
	BranchPrefix string `yaml:"branch_prefix"`

	// Concurrency bounds the parallel read-only sub-steps (compatibility
	// checks, changelog rendering).
	Concurrency int `yaml:"concurrency"`

	Forge    Forge    `yaml:"forge"`
	Registry Registry `yaml:"registry"`

	// Packages holds loosely-typed per-package overrides, decoded on
	// demand with Override.
	Packages map[string]map[string]any `yaml:"packages"`
}

// Forge locates the hosting platform.
type Forge struct {
	// APIURL is the REST endpoint, e.g. https://api.github.com.
	APIURL string `yaml:"api_url"`
	// HTMLURL is the browse endpoint used for compare/tag links.
	HTMLURL string `yaml:"html_url"`
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`
	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `yaml:"token_env"`
}

// Registry locates the package registry.
type Registry struct {
	URL string `yaml:"url"`
}

// PackageOverride are the recognized per-package settings.
type PackageOverride struct {
	// Publish overrides the manifest's publish flag.
	Publish *bool `mapstructure:"publish"`
	// ChangelogPath relocates the package changelog, relative to the
	// package root.
	ChangelogPath string `mapstructure:"changelog_path"`
	// SkipChangelog suppresses changelog generation for the package.
	SkipChangelog bool `mapstructure:"skip_changelog"`
}

// Load reads the configuration file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills the zero fields a working engine needs. Load calls it;
// embedders constructing a Config by hand get the same treatment from the
// engine.
func (c *Config) ApplyDefaults() {
	if c.BranchPrefix == "" {
		c.BranchPrefix = "caravel-release-"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Forge.TokenEnv == "" {
		c.Forge.TokenEnv = "CARAVEL_TOKEN"
	}
}

// Override decodes the loosely-typed override map for one package. Unknown
// keys are rejected so typos fail loudly instead of being ignored.
func (c *Config) Override(pkg string) (PackageOverride, error) {
	var out PackageOverride
	raw, ok := c.Packages[pkg]
	if !ok {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &out,
		ErrorUnused: true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("package %q overrides: %w", pkg, err)
	}
	return out, nil
}
