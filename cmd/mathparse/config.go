package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/mathparse"
)

// configConstraint is the range of config file versions this build reads.
const configConstraint = "^1"

// config is the contents of a config file. Flags given on the command line
// override it.
type config struct {
	// Version is the config format version, checked against configConstraint.
	Version string `toml:"version" yaml:"version"`
	// Number names the representation of numeric literals.
	Number string `toml:"number" yaml:"number"`
	// Fallback names the representation of non-integers when Number is
	// bigint.
	Fallback string `toml:"fallback" yaml:"fallback"`
	// Precision is the precision of calculations in bits.
	Precision uint `toml:"precision" yaml:"precision"`
	// Define holds statements evaluated before anything else, e.g. function
	// definitions.
	Define []string `toml:"define" yaml:"define"`
	// Variables maps names to expressions giving their values.
	Variables map[string]string `toml:"variables" yaml:"variables"`
	LogLevel  string            `toml:"log_level" yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		Version:   "1.0.0",
		Number:    "bignumber",
		Fallback:  "number",
		Precision: 64,
		LogLevel:  "warn",
	}
}

// loadConfig reads a config file. Files ending in .yaml or .yml are YAML;
// anything else is TOML. Keys missing from the file keep their defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("YAML parse error in %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("TOML parse error in %s: %w", path, err)
		}
	}
	if err := checkVersion(cfg.Version); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// checkVersion reports an error if v is not a version in configConstraint.
func checkVersion(v string) error {
	c, err := semver.NewConstraint(configConstraint)
	if err != nil {
		return err
	}
	sv, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid config version %q: %w", v, err)
	}
	if !c.Check(sv) {
		return fmt.Errorf("config version %s is not supported (want %s)", v, configConstraint)
	}
	return nil
}

// numbers is the numeric policy named by the config.
func (cfg config) numbers() (mathparse.NumberConfig, error) {
	kind, err := mathparse.ParseNumberKind(cfg.Number)
	if err != nil {
		return mathparse.NumberConfig{}, err
	}
	fallback, err := mathparse.ParseNumberKind(cfg.Fallback)
	if err != nil {
		return mathparse.NumberConfig{}, fmt.Errorf("fallback: %w", err)
	}
	return mathparse.NumberConfig{Kind: kind, Prec: cfg.Precision, Fallback: fallback}, nil
}
