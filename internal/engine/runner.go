package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vk/multirelease/internal/ctxlog"
	"github.com/vk/multirelease/internal/manifest"
	"github.com/vk/multirelease/internal/version"
)

// RunSpec is the full option set for one single-unit pipeline invocation,
// including the (possibly intercepted) stage set as an inline plugin.
type RunSpec struct {
	Name      string
	Cwd       string
	Env       []string
	Stdout    io.Writer
	Stderr    io.Writer
	TagFormat string
	DryRun    bool

	Manifest *manifest.Manifest
	Stages   Stages
}

// Runner drives a stage set through the single-unit release protocol:
// verifyConditions, analyzeCommits, generateNotes, prepare, publish,
// success — or fail once on the first stage error. When analyzeCommits
// yields no release the run short-circuits and returns a nil Outcome.
type Runner struct{}

// Run executes the pipeline described by spec. The returned Outcome is nil
// when the pipeline decided to skip; the returned error is non-nil only when
// a stage failed.
func (r *Runner) Run(ctx context.Context, spec RunSpec) (*Outcome, error) {
	logger := ctxlog.FromContext(ctx).With("unit", spec.Name)

	rc := &Context{
		Name:      spec.Name,
		Cwd:       spec.Cwd,
		Env:       spec.Env,
		Stdout:    spec.Stdout,
		Stderr:    spec.Stderr,
		Logger:    logger,
		TagFormat: spec.TagFormat,
		DryRun:    spec.DryRun,
		Manifest:  spec.Manifest,
	}

	// The manifest version is the fallback notion of "last release" for
	// engines that do not resolve it from tags during verifyConditions.
	if spec.Manifest != nil && spec.Manifest.Version != "" {
		rc.LastRelease = &Release{
			Version: spec.Manifest.Version,
			GitTag:  FormatTag(spec.TagFormat, spec.Name, spec.Manifest.Version),
		}
	}

	if err := spec.Stages.VerifyConditions(ctx, rc); err != nil {
		return nil, r.fail(ctx, rc, spec, "verifyConditions", err)
	}
	logger.Debug("Conditions verified.")

	releaseType, err := spec.Stages.AnalyzeCommits(ctx, rc)
	if err != nil {
		return nil, r.fail(ctx, rc, spec, "analyzeCommits", err)
	}
	if releaseType == version.None {
		logger.Info("No release warranted, skipping unit.")
		return nil, nil
	}

	lastVersion := ""
	if rc.LastRelease != nil {
		lastVersion = rc.LastRelease.Version
	}
	nextVersion, err := version.Bump(lastVersion, releaseType)
	if err != nil {
		return nil, r.fail(ctx, rc, spec, "analyzeCommits", err)
	}
	rc.NextRelease = &Release{
		Version: nextVersion,
		GitTag:  FormatTag(spec.TagFormat, spec.Name, nextVersion),
		Type:    releaseType,
	}
	logger.Info("Release decided.", "type", releaseType, "version", nextVersion, "tag", rc.NextRelease.GitTag)

	notes, err := spec.Stages.GenerateNotes(ctx, rc)
	if err != nil {
		return nil, r.fail(ctx, rc, spec, "generateNotes", err)
	}
	rc.Notes = notes
	rc.NextRelease.Notes = notes

	if err := spec.Stages.Prepare(ctx, rc); err != nil {
		return nil, r.fail(ctx, rc, spec, "prepare", err)
	}
	logger.Debug("Prepare complete.")

	published, err := spec.Stages.Publish(ctx, rc)
	if err != nil {
		return nil, r.fail(ctx, rc, spec, "publish", err)
	}
	if published != nil {
		rc.NextRelease = published
	}
	logger.Info("Published.", "version", rc.NextRelease.Version, "tag", rc.NextRelease.GitTag)

	if err := spec.Stages.Success(ctx, rc); err != nil {
		// A failing success hook does not un-publish anything; surface it
		// as the unit's error all the same.
		return nil, r.fail(ctx, rc, spec, "success", err)
	}

	return &Outcome{
		LastRelease: rc.LastRelease,
		NextRelease: rc.NextRelease,
		Commits:     rc.Commits,
		Releases:    []Release{*rc.NextRelease},
	}, nil
}

// fail invokes the fail stage exactly once and wraps the stage error with
// the stage name for reporting.
func (r *Runner) fail(ctx context.Context, rc *Context, spec RunSpec, stage string, stageErr error) error {
	if failErr := spec.Stages.Fail(ctx, rc, stageErr); failErr != nil {
		ctxlog.FromContext(ctx).Warn("Fail stage itself errored.", "unit", spec.Name, "error", failErr)
	}
	return fmt.Errorf("%s: %w", stage, stageErr)
}

// FormatTag expands a tag template. Supported placeholders are ${name} and
// ${version}.
func FormatTag(format, name, ver string) string {
	tag := strings.ReplaceAll(format, "${name}", name)
	return strings.ReplaceAll(tag, "${version}", ver)
}
