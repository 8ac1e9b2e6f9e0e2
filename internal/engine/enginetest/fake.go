// Package enginetest provides a scriptable Stages implementation for tests.
package enginetest

import (
	"context"
	"sync"

	"github.com/vk/multirelease/internal/engine"
	"github.com/vk/multirelease/internal/version"
)

// Fake is a release engine stage set whose behavior is configured up front
// and whose invocations are recorded. The zero value verifies, analyzes to
// "no release" and succeeds every stage.
type Fake struct {
	// ReleaseType is what AnalyzeCommits reports for the unit's own commits.
	ReleaseType version.Type
	// Commits are attached to the pipeline context during analyze.
	Commits []engine.Commit

	// Stage errors, injected verbatim.
	VerifyErr  error
	AnalyzeErr error
	NotesErr   error
	PrepareErr error
	PublishErr error
	SuccessErr error

	// Hooks run after the scripted behavior of the matching stage, letting a
	// test observe or mutate the live pipeline context.
	OnVerify  func(rc *engine.Context)
	OnPrepare func(rc *engine.Context)
	OnPublish func(rc *engine.Context)

	mu       sync.Mutex
	calls    []string
	failWith []error
}

var _ engine.Stages = (*Fake)(nil)

// Calls returns the stage names invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FailErrors returns the errors passed to the fail stage.
func (f *Fake) FailErrors() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.failWith...)
}

func (f *Fake) record(stage string) {
	f.mu.Lock()
	f.calls = append(f.calls, stage)
	f.mu.Unlock()
}

func (f *Fake) VerifyConditions(_ context.Context, rc *engine.Context) error {
	f.record("verifyConditions")
	if f.OnVerify != nil {
		f.OnVerify(rc)
	}
	return f.VerifyErr
}

func (f *Fake) AnalyzeCommits(_ context.Context, rc *engine.Context) (version.Type, error) {
	f.record("analyzeCommits")
	rc.Commits = append(rc.Commits, f.Commits...)
	return f.ReleaseType, f.AnalyzeErr
}

func (f *Fake) GenerateNotes(_ context.Context, rc *engine.Context) (string, error) {
	f.record("generateNotes")
	return "notes for " + rc.Name, f.NotesErr
}

func (f *Fake) Prepare(_ context.Context, rc *engine.Context) error {
	f.record("prepare")
	if f.OnPrepare != nil {
		f.OnPrepare(rc)
	}
	return f.PrepareErr
}

func (f *Fake) Publish(_ context.Context, rc *engine.Context) (*engine.Release, error) {
	f.record("publish")
	if f.OnPublish != nil {
		f.OnPublish(rc)
	}
	if f.PublishErr != nil {
		return nil, f.PublishErr
	}
	return rc.NextRelease, nil
}

func (f *Fake) AddChannel(_ context.Context, rc *engine.Context) (*engine.Release, error) {
	f.record("addChannel")
	return rc.NextRelease, nil
}

func (f *Fake) Success(_ context.Context, _ *engine.Context) error {
	f.record("success")
	return f.SuccessErr
}

func (f *Fake) Fail(_ context.Context, _ *engine.Context, stageErr error) error {
	f.mu.Lock()
	f.calls = append(f.calls, "fail")
	f.failWith = append(f.failWith, stageErr)
	f.mu.Unlock()
	return nil
}
