package cmd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/riftlang/riftcheck/verify"
)

const defaultConfigPath = ".riftcheck.yaml"

// Config is the on-disk configuration. Flags override file values.
type Config struct {
	Mode           string        `yaml:"mode"` // "permissive" or "strict"
	Static         *bool         `yaml:"static,omitempty"`
	EnforceEffects *bool         `yaml:"enforce_effects,omitempty"`
	DenyDisproven  bool          `yaml:"deny_disproven"`
	SolverTimeout  time.Duration `yaml:"solver_timeout"`
	Manifest       string        `yaml:"manifest"`
	Workers        int           `yaml:"workers"`
}

func loadConfig(path string) (Config, error) {
	cfg := Config{Mode: "permissive"}

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Mode != "" && cfg.Mode != "permissive" && cfg.Mode != "strict" {
		return cfg, fmt.Errorf("config %s: mode must be permissive or strict, got %q", path, cfg.Mode)
	}
	return cfg, nil
}

// options builds verification options from the config file with the
// command-line flags layered on top.
func (cfg Config) options() verify.Options {
	opts := verify.DefaultOptions()
	if cfg.Static != nil {
		opts.Static = *cfg.Static
	}
	if cfg.EnforceEffects != nil {
		opts.EnforceEffects = *cfg.EnforceEffects
	}
	opts.Strict = cfg.Mode == "strict"
	opts.DenyDisproven = cfg.DenyDisproven
	if cfg.SolverTimeout > 0 {
		opts.SolverTimeout = cfg.SolverTimeout
	}
	opts.Workers = cfg.Workers
	return opts
}
