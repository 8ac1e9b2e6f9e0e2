package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/multirelease/internal/engine"
	"github.com/vk/multirelease/internal/engine/enginetest"
	"github.com/vk/multirelease/internal/graph"
	"github.com/vk/multirelease/internal/options"
	"github.com/vk/multirelease/internal/unit"
	"github.com/vk/multirelease/internal/version"
)

// writePackage lays one unit directory with a package.json under root.
func writePackage(t *testing.T, root, dir, name, ver string, deps map[string]string) {
	t.Helper()
	full := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(full, 0o755))

	doc := map[string]any{"name": name, "version": ver}
	if len(deps) > 0 {
		doc["dependencies"] = deps
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(full, "package.json"), raw, 0o600))
}

func writeRunConfig(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".multirelease.hcl"), []byte(content), 0o600))
}

func newTestApp(t *testing.T, cfg Config, router *enginetest.Router) *App {
	t.Helper()
	cfg.Engine = "fake"
	cfg.LogLevel = "error"
	conf, err := NewConfig(cfg)
	require.NoError(t, err)

	reg := engine.NewRegistry()
	reg.Register("fake", func() engine.Stages { return router })
	return New(io.Discard, conf, reg)
}

func TestRun_PropagationChain(t *testing.T) {
	t.Parallel()

	// C depends on B depends on A; only A has a feature commit.
	root := t.TempDir()
	writePackage(t, root, "packages/a", "pkg-a", "1.0.0", nil)
	writePackage(t, root, "packages/b", "pkg-b", "1.0.0", map[string]string{"pkg-a": "^1.0.0"})
	writePackage(t, root, "packages/c", "pkg-c", "1.0.0", map[string]string{"pkg-b": "^1.0.0"})
	writeRunConfig(t, root, `
workspace {
  packages = ["packages/*"]
}
`)

	router := enginetest.NewRouter()
	router.Unit("pkg-a").ReleaseType = version.Minor

	var bRange, cRange string
	router.Unit("pkg-b").OnPrepare = func(rc *engine.Context) {
		bRange, _ = rc.Manifest.Range("pkg-a")
	}
	router.Unit("pkg-c").OnPrepare = func(rc *engine.Context) {
		cRange, _ = rc.Manifest.Range("pkg-b")
	}

	a := newTestApp(t, Config{Root: root}, router)
	report, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Units, 3)
	assert.Equal(t, 3, report.Released())
	assert.Equal(t, 0, report.Failed())

	byName := make(map[string]UnitReport)
	for _, ur := range report.Units {
		byName[ur.Name] = ur
	}
	assert.Equal(t, "1.1.0", byName["pkg-a"].Version, "own minor bump")
	assert.Equal(t, "pkg-a@1.1.0", byName["pkg-a"].Tag)
	assert.Equal(t, "1.0.1", byName["pkg-b"].Version, "patch forced by dependency release")
	assert.Equal(t, "1.0.1", byName["pkg-c"].Version, "transitive patch")

	// Default bump policy pins the released dependency versions into the
	// manifests handed to prepare.
	assert.Equal(t, "1.1.0", bRange)
	assert.Equal(t, "1.0.1", cRange)
}

func TestRun_CycleRejectedUnderSequentialPrepare(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePackage(t, root, "packages/a", "pkg-a", "1.0.0", map[string]string{"pkg-b": "^1.0.0"})
	writePackage(t, root, "packages/b", "pkg-b", "1.0.0", map[string]string{"pkg-a": "^1.0.0"})
	writeRunConfig(t, root, `
workspace {
  packages = ["packages/*"]
}

options {
  sequential_prepare = true
}
`)

	router := enginetest.NewRouter()
	a := newTestApp(t, Config{Root: root}, router)

	_, err := a.Run(context.Background())
	var cycleErr *graph.CycleError
	require.ErrorAs(t, err, &cycleErr)

	// Fails fast: no pipeline stage ever ran.
	assert.Empty(t, router.Unit("pkg-a").Calls())
	assert.Empty(t, router.Unit("pkg-b").Calls())
}

func TestRun_FailedDependencySkipsDependent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePackage(t, root, "packages/a", "pkg-a", "1.0.0", nil)
	writePackage(t, root, "packages/b", "pkg-b", "1.0.0", map[string]string{"pkg-a": "^1.0.0"})
	writeRunConfig(t, root, `
workspace {
  packages = ["packages/*"]
}
`)

	router := enginetest.NewRouter()
	router.Unit("pkg-a").ReleaseType = version.Patch
	router.Unit("pkg-a").PublishErr = assert.AnError
	router.Unit("pkg-b").ReleaseType = version.Minor

	a := newTestApp(t, Config{Root: root}, router)
	report, err := a.Run(context.Background())
	require.NoError(t, err, "per-unit failures never fail the run itself")

	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.Skipped(), "dependent skips on failed dependency by default")
	assert.Equal(t, 0, report.Released())
}

func TestRun_FlagsWinOverConfig(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePackage(t, root, "packages/a", "pkg-a", "1.0.0", nil)
	writePackage(t, root, "packages/b", "pkg-b", "1.0.0", map[string]string{"pkg-a": "^1.0.0"})
	writeRunConfig(t, root, `
workspace {
  packages = ["packages/*"]
}

options {
  deps {
    release = "patch"
  }
}
`)

	router := enginetest.NewRouter()
	router.Unit("pkg-a").ReleaseType = version.Major

	inherit := options.ReleaseInherit
	a := newTestApp(t, Config{
		Root:  root,
		Flags: options.Overrides{DepsRelease: &inherit},
	}, router)

	report, err := a.Run(context.Background())
	require.NoError(t, err)

	byName := make(map[string]UnitReport)
	for _, ur := range report.Units {
		byName[ur.Name] = ur
	}
	assert.Equal(t, "2.0.0", byName["pkg-a"].Version)
	assert.Equal(t, "2.0.0", byName["pkg-b"].Version, "inherit from the flag layer, not patch from the file")
}

func TestRun_ExplicitLocations(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePackage(t, root, "libs/core", "pkg-core", "2.3.4", nil)
	writePackage(t, root, "libs/extra", "pkg-extra", "1.0.0", nil)

	router := enginetest.NewRouter()
	router.Unit("pkg-core").ReleaseType = version.Patch

	a := newTestApp(t, Config{Root: root, Locations: []string{"libs/core"}}, router)
	report, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Units, 1, "only the listed location is part of the run")
	assert.Equal(t, "2.3.5", report.Units[0].Version)
	assert.Empty(t, router.Unit("pkg-extra").Calls())
}

func TestRun_UnknownEngine(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePackage(t, root, "packages/a", "pkg-a", "1.0.0", nil)
	writeRunConfig(t, root, `
workspace {
  packages = ["packages/*"]
}
`)

	conf, err := NewConfig(Config{Root: root, Engine: "no-such-engine", LogLevel: "error"})
	require.NoError(t, err)
	a := New(io.Discard, conf, nil)

	_, err = a.Run(context.Background())
	var confErr *options.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "engine", confErr.Field)
}

func TestRun_NothingConfigured(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	conf, err := NewConfig(Config{Root: root, LogLevel: "error"})
	require.NoError(t, err)
	a := New(io.Discard, conf, nil)

	_, err = a.Run(context.Background())
	var confErr *options.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

func TestReport_Write(t *testing.T) {
	t.Parallel()

	units := []*unit.Unit{
		{Name: "pkg-a"},
		{Name: "pkg-b"},
	}
	units[0].SetResult(unit.Result{
		Status: unit.StatusReleased,
		Outcome: &engine.Outcome{
			NextRelease: &engine.Release{Version: "1.1.0", GitTag: "pkg-a@1.1.0"},
		},
	})
	units[1].SetResult(unit.Result{Status: unit.StatusSkipped})

	var buf bytes.Buffer
	report := buildReport("run-1", units)
	require.NoError(t, report.Write(&buf))

	out := buf.String()
	assert.Contains(t, out, "released 1 of 2 units (1 skipped, 0 failed)")
	assert.Contains(t, out, "pkg-a")
	assert.Contains(t, out, "pkg-a@1.1.0")
	assert.Contains(t, out, "skipped")
}
