package engine

import (
	"context"
	"fmt"

	"github.com/vk/multirelease/internal/version"
)

// Noop is the built-in stage set. It never detects semver-significant
// commits of its own, so a unit only releases through dependency
// propagation; prepare and publish log what a real engine would do. Useful
// for dry runs and for exercising the orchestration without touching any
// external service.
type Noop struct{}

func (Noop) VerifyConditions(_ context.Context, _ *Context) error { return nil }

func (Noop) AnalyzeCommits(_ context.Context, _ *Context) (version.Type, error) {
	return version.None, nil
}

func (Noop) GenerateNotes(_ context.Context, rc *Context) (string, error) {
	return fmt.Sprintf("Release %s of %s", rc.NextRelease.Version, rc.Name), nil
}

func (Noop) Prepare(_ context.Context, rc *Context) error {
	rc.Logger.Info("Would stage release artifacts.", "version", rc.NextRelease.Version)
	return nil
}

func (Noop) Publish(_ context.Context, rc *Context) (*Release, error) {
	rc.Logger.Info("Would publish.", "tag", rc.NextRelease.GitTag)
	return rc.NextRelease, nil
}

func (Noop) AddChannel(_ context.Context, rc *Context) (*Release, error) {
	return rc.NextRelease, nil
}

func (Noop) Success(_ context.Context, _ *Context) error { return nil }

func (Noop) Fail(_ context.Context, _ *Context, _ error) error { return nil }
