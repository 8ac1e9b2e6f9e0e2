package app

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vk/multirelease/internal/engine"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *engine.Registry
	config   *Config
	runID    string
}

// New is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger. A nil registry
// means the built-in engine set.
func New(outW io.Writer, cfg *Config, reg *engine.Registry) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if reg == nil {
		reg = engine.DefaultRegistry()
	}

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
		runID:    uuid.NewString(),
	}
}

// Registry returns the application's engine registry. This is primarily for
// testing and for entrypoints that register extra engines.
func (a *App) Registry() *engine.Registry {
	return a.registry
}
