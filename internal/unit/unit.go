// Package unit defines the Unit record, the orchestrator's per-component
// bookkeeping: identity, manifest, resolved dependencies and options, and
// the write-once release result shared with dependent units' tasks.
package unit

import (
	"sync"

	"github.com/vk/multirelease/internal/engine"
	"github.com/vk/multirelease/internal/manifest"
	"github.com/vk/multirelease/internal/options"
)

// Unit is one releasable component in a multirelease run.
type Unit struct {
	// Name is the unique unit identity; Dir its filesystem location
	// relative to the workspace root.
	Name string
	Dir  string

	// Manifest is the unit's parsed manifest. Its dependency maps are the
	// staging area for version rewrites.
	Manifest *manifest.Manifest

	// DeclaredDeps is the merged dependency-name set from the manifest.
	// LocalDeps is the subset resolving to other units in this run; it is
	// written once by graph linking before any task starts and read-only
	// afterwards.
	DeclaredDeps []string
	LocalDeps    []string

	// Options is the per-unit resolved configuration.
	Options options.Options

	mu     sync.RWMutex
	result *Result
}

// Status is a unit result's terminal state.
type Status int

const (
	// StatusPending means the unit's task has not completed yet. A pending
	// result is never observable through Result(); dependents gate on the
	// synchronizer's completion signal first.
	StatusPending Status = iota
	// StatusSkipped means the pipeline ran and decided no release was
	// warranted.
	StatusSkipped
	// StatusReleased means the pipeline published a release.
	StatusReleased
	// StatusFailed means the pipeline errored.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusReleased:
		return "released"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Result is the terminal outcome of one unit's pipeline.
type Result struct {
	Status  Status
	Outcome *engine.Outcome // non-nil iff Status == StatusReleased
	Err     error           // non-nil iff Status == StatusFailed
}

// Released reports whether the result carries a published release.
func (r Result) Released() bool { return r.Status == StatusReleased }

// SetResult records the unit's terminal result. The first write wins; later
// writes are ignored and reported as false. This keeps the result
// single-assignment even though both the intercepted success/fail stages and
// the task's finalizer may attempt the write.
func (u *Unit) SetResult(r Result) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.result != nil {
		return false
	}
	u.result = &r
	return true
}

// Result returns the recorded result, or ok=false while the unit is still
// pending.
func (u *Unit) Result() (Result, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.result == nil {
		return Result{}, false
	}
	return *u.result, true
}
