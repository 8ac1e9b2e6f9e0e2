package app

import "github.com/vk/multirelease/internal/options"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Root is the workspace root directory.
	Root string
	// ConfigPath points at the run configuration file. Empty means probe the
	// default file name under Root.
	ConfigPath string
	// Engine names the release engine to pull from the registry.
	Engine string

	// Locations are explicit unit directories relative to Root, bypassing
	// the configured package globs.
	Locations []string
	// Ignore removes matched unit locations from the run, in addition to
	// any ignore list in the run configuration.
	Ignore []string

	LogFormat string
	LogLevel  string

	// Flags is the option layer built from command-line flags. It has the
	// highest precedence during per-unit option resolution.
	Flags options.Overrides
}

// NewConfig validates a Config and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Engine == "" {
		cfg.Engine = "noop"
	}

	// Log format and level are validated by the CLI layer; unknown values
	// here just fall back to the logger defaults.

	return &cfg, nil
}
