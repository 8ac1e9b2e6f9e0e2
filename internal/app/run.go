package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vk/multirelease/internal/ctxlog"
	"github.com/vk/multirelease/internal/engine"
	"github.com/vk/multirelease/internal/graph"
	"github.com/vk/multirelease/internal/hclconf"
	"github.com/vk/multirelease/internal/options"
	"github.com/vk/multirelease/internal/pipeline"
	"github.com/vk/multirelease/internal/syncbus"
	"github.com/vk/multirelease/internal/unit"
	"github.com/vk/multirelease/internal/workspace"
)

// Run executes one multirelease: discover units, resolve options, link the
// dependency graph, then drive every unit's release pipeline concurrently.
// The returned error covers fatal pre-run failures only; per-unit pipeline
// failures are recorded in the report and never abort sibling units.
func (a *App) Run(ctx context.Context) (*Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "run_id", a.runID)

	file, err := hclconf.LoadIfPresent(ctx, a.configPath())
	if err != nil {
		return nil, err
	}

	units, err := a.discover(ctx, file)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		a.logger.Warn("No units found in workspace, nothing to release.")
		return buildReport(a.runID, nil), nil
	}

	if err := a.resolveOptions(units, file); err != nil {
		return nil, err
	}

	g := graph.Link(ctx, units)
	if sequentialPrepareRequested(units) {
		// Under sequential-prepare the dependency gate is a hard ordering
		// edge, so a cyclic graph would deadlock. Reject it before any
		// pipeline starts.
		if err := g.HasCycle(); err != nil {
			return nil, err
		}
		a.logger.Debug("Dependency graph validated acyclic for sequential prepare.")
	}

	tasks, icept, err := a.buildTasks(units)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Starting concurrent release run.", "run_id", a.runID, "units", len(units), "engine", a.config.Engine)
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(t unitTask) {
			defer wg.Done()
			out, runErr := t.runner.Run(ctx, t.spec)
			// Finalize records the result and announces completion even on
			// the skip path, so gated dependents always unblock.
			icept.Finalize(t.unit, out, runErr)
		}(task)
	}
	wg.Wait()
	a.logger.Info("Release run finished.", "run_id", a.runID)

	report := buildReport(a.runID, units)
	a.logger.Info("Run summary.",
		"released", report.Released(), "skipped", report.Skipped(), "failed", report.Failed())
	return report, nil
}

func (a *App) configPath() string {
	if a.config.ConfigPath != "" {
		return a.config.ConfigPath
	}
	return filepath.Join(a.config.Root, hclconf.DefaultFileName)
}

// discover merges the run configuration's workspace block with the
// command-line location and ignore lists, then loads the unit set.
func (a *App) discover(ctx context.Context, file *hclconf.File) ([]*unit.Unit, error) {
	wsCfg := workspace.Config{
		Root:      a.config.Root,
		Locations: a.config.Locations,
		Ignore:    a.config.Ignore,
	}
	if file.Workspace != nil {
		wsCfg.Packages = file.Workspace.Packages
		wsCfg.Ignore = append(wsCfg.Ignore, file.Workspace.Ignore...)
	}
	return workspace.Discover(ctx, wsCfg)
}

// resolveOptions merges the three option layers per unit, flags winning over
// per-unit blocks winning over the global block, and forces the unit name
// into every tag template.
func (a *App) resolveOptions(units []*unit.Unit, file *hclconf.File) error {
	global := file.GlobalOverrides()
	for _, u := range units {
		opts, err := options.Resolve(global, file.UnitOverrides(u.Name, u.Dir), a.config.Flags)
		if err != nil {
			return fmt.Errorf("unit %q: %w", u.Name, err)
		}
		opts.TagFormat = pipeline.EnsureUnitTag(opts.TagFormat)
		u.Options = opts
	}
	return nil
}

func sequentialPrepareRequested(units []*unit.Unit) bool {
	for _, u := range units {
		if u.Options.SequentialPrepare {
			return true
		}
	}
	return false
}

// unitTask is one unit's prepared pipeline invocation.
type unitTask struct {
	unit   *unit.Unit
	spec   engine.RunSpec
	runner *engine.Runner
}

// buildTasks wires every unit to a fresh engine stage set wrapped by the
// shared interceptor. An unknown engine name fails the run before any task
// starts.
func (a *App) buildTasks(units []*unit.Unit) ([]unitTask, *pipeline.Interceptor, error) {
	bus := syncbus.New()
	icept := pipeline.NewInterceptor(bus, units)
	runner := &engine.Runner{}
	env := os.Environ()

	tasks := make([]unitTask, 0, len(units))
	for _, u := range units {
		inner, err := a.registry.Stages(a.config.Engine)
		if err != nil {
			return nil, nil, &options.ConfigurationError{Field: "engine", Reason: err.Error()}
		}
		tasks = append(tasks, unitTask{
			unit:   u,
			runner: runner,
			spec: engine.RunSpec{
				Name:      u.Name,
				Cwd:       filepath.Join(a.config.Root, u.Dir),
				Env:       env,
				Stdout:    a.outW,
				Stderr:    a.outW,
				TagFormat: u.Options.TagFormat,
				DryRun:    u.Options.DryRun,
				Manifest:  u.Manifest,
				Stages:    icept.Stages(u, inner),
			},
		})
	}
	return tasks, icept, nil
}
