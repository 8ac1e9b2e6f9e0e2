package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/multirelease/internal/manifest"
	"github.com/vk/multirelease/internal/version"
)

// Context is the evolving state threaded through one unit's lifecycle
// stages. Stages read the fields populated by earlier stages and augment it
// for later ones.
type Context struct {
	// Name is the unit's identity; Cwd its filesystem location.
	Name string
	Cwd  string
	Env  []string

	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	TagFormat string
	DryRun    bool

	// Manifest is the unit's manifest staged for this run. Prepare-stage
	// mutations target this in-memory copy.
	Manifest *manifest.Manifest

	Commits     []Commit
	LastRelease *Release
	NextRelease *Release
	Notes       string
}

// Stages is the capability set a release engine exposes for one unit. The
// orchestrator never calls these directly; it hands an intercepted Stages
// back to the Runner, which drives them through the single-unit protocol.
type Stages interface {
	// VerifyConditions checks that the unit can be released at all
	// (credentials, remote state, working tree).
	VerifyConditions(ctx context.Context, rc *Context) error

	// AnalyzeCommits classifies the commits since the last release and
	// returns the warranted release magnitude, or version.None to skip.
	AnalyzeCommits(ctx context.Context, rc *Context) (version.Type, error)

	// GenerateNotes renders the release notes for the next release.
	GenerateNotes(ctx context.Context, rc *Context) (string, error)

	// Prepare stages the release: writes manifests, changelogs, build
	// artifacts.
	Prepare(ctx context.Context, rc *Context) error

	// Publish pushes the release to its registry and returns the published
	// release.
	Publish(ctx context.Context, rc *Context) (*Release, error)

	// AddChannel promotes an existing release to an additional distribution
	// channel. The Runner's normal flow never invokes it; engines that
	// support channel promotion call it themselves.
	AddChannel(ctx context.Context, rc *Context) (*Release, error)

	// Success runs after a completed release; Fail after any stage error.
	Success(ctx context.Context, rc *Context) error
	Fail(ctx context.Context, rc *Context, stageErr error) error
}
