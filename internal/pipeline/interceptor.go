// Package pipeline wraps each unit's release-engine stage set so the
// single-unit protocol runs unmodified while the cross-unit contract is
// enforced transparently: dependency-result gating before analysis,
// release propagation, manifest range rewrites before prepare, and
// serialized checkpoints when a sequential mode is on.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/multirelease/internal/engine"
	"github.com/vk/multirelease/internal/syncbus"
	"github.com/vk/multirelease/internal/unit"
	"github.com/vk/multirelease/internal/version"
)

const (
	// SignalInit serializes verifyConditions across units under
	// sequential-init, so external-service validations do not collide.
	SignalInit = "verify-conditions"
	// SignalPrepare serializes prepare across units under
	// sequential-prepare.
	SignalPrepare = "prepare"
)

// Interceptor builds intercepted stage sets. One instance is shared by all
// unit tasks of a run; it owns the synchronizer bus they coordinate on.
type Interceptor struct {
	bus   *syncbus.Bus
	units map[string]*unit.Unit
}

// NewInterceptor creates the factory for a run over the given unit set.
func NewInterceptor(bus *syncbus.Bus, units []*unit.Unit) *Interceptor {
	byName := make(map[string]*unit.Unit, len(units))
	for _, u := range units {
		byName[u.Name] = u
	}
	return &Interceptor{bus: bus, units: byName}
}

// Stages wraps the engine's stage set for one unit.
func (i *Interceptor) Stages(u *unit.Unit, inner engine.Stages) engine.Stages {
	return &intercepted{icept: i, u: u, inner: inner}
}

// Finalize records the unit's terminal result from the engine invocation and
// announces completion on the bus. It is the task's safety net: the
// intercepted success and fail stages already record released/failed
// outcomes, but a skipped pipeline returns before either runs. Both the
// result write and the completion announcement are idempotent.
func (i *Interceptor) Finalize(u *unit.Unit, out *engine.Outcome, err error) {
	switch {
	case err != nil:
		u.SetResult(unit.Result{Status: unit.StatusFailed, Err: &UnitError{Unit: u.Name, Err: err}})
	case out == nil:
		u.SetResult(unit.Result{Status: unit.StatusSkipped})
	default:
		u.SetResult(unit.Result{Status: unit.StatusReleased, Outcome: out})
	}
	i.bus.Complete(u.Name)
}

// EnsureUnitTag forces the unit name into a tag template so tags from
// different units never collide in a shared history. A template already
// containing ${name} passes through unchanged.
func EnsureUnitTag(format string) string {
	if strings.Contains(format, "${name}") {
		return format
	}
	return "${name}@" + format
}

// UnitError is the per-unit error kind: the unit's underlying engine
// invocation failed. It never aborts sibling tasks; dependents observe it
// through the gated result read.
type UnitError struct {
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %q: release pipeline failed: %v", e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// intercepted is the per-unit decorator around an engine's stage set.
type intercepted struct {
	icept *Interceptor
	u     *unit.Unit
	inner engine.Stages
}

var _ engine.Stages = (*intercepted)(nil)

func (s *intercepted) VerifyConditions(ctx context.Context, rc *engine.Context) error {
	if s.u.Options.SequentialInit {
		if err := s.icept.bus.Await(ctx, SignalInit, s.u.Name); err != nil {
			return err
		}
		defer func() {
			if err := s.icept.bus.Release(SignalInit, s.u.Name); err != nil {
				rc.Logger.Warn("Could not release init signal.", "error", err)
			}
		}()
	}
	return s.inner.VerifyConditions(ctx, rc)
}

func (s *intercepted) AnalyzeCommits(ctx context.Context, rc *engine.Context) (version.Type, error) {
	// Dependency-result gating applies in every mode; version propagation
	// is incorrect without it.
	for _, dep := range s.u.LocalDeps {
		if err := s.icept.bus.AwaitCompletion(ctx, dep); err != nil {
			return version.None, err
		}
	}

	own, err := s.inner.AnalyzeCommits(ctx, rc)
	if err != nil {
		return version.None, err
	}
	return s.icept.propagate(rc, s.u, own)
}

func (s *intercepted) GenerateNotes(ctx context.Context, rc *engine.Context) (string, error) {
	return s.inner.GenerateNotes(ctx, rc)
}

func (s *intercepted) Prepare(ctx context.Context, rc *engine.Context) error {
	if s.u.Options.SequentialPrepare {
		if err := s.icept.bus.Await(ctx, SignalPrepare, s.u.Name); err != nil {
			return err
		}
		defer func() {
			if err := s.icept.bus.Release(SignalPrepare, s.u.Name); err != nil {
				rc.Logger.Warn("Could not release prepare signal.", "error", err)
			}
		}()
	}

	if err := s.icept.rewriteRanges(rc, s.u); err != nil {
		return err
	}
	return s.inner.Prepare(ctx, rc)
}

func (s *intercepted) Publish(ctx context.Context, rc *engine.Context) (*engine.Release, error) {
	return s.inner.Publish(ctx, rc)
}

func (s *intercepted) AddChannel(ctx context.Context, rc *engine.Context) (*engine.Release, error) {
	return s.inner.AddChannel(ctx, rc)
}

func (s *intercepted) Success(ctx context.Context, rc *engine.Context) error {
	if err := s.inner.Success(ctx, rc); err != nil {
		return err
	}
	out := &engine.Outcome{
		LastRelease: rc.LastRelease,
		NextRelease: rc.NextRelease,
		Commits:     rc.Commits,
	}
	if rc.NextRelease != nil {
		out.Releases = []engine.Release{*rc.NextRelease}
	}
	// Record before announcing, so a gated dependent always observes the
	// result once its wait returns.
	s.u.SetResult(unit.Result{Status: unit.StatusReleased, Outcome: out})
	s.icept.bus.Complete(s.u.Name)
	return nil
}

func (s *intercepted) Fail(ctx context.Context, rc *engine.Context, stageErr error) error {
	failErr := s.inner.Fail(ctx, rc, stageErr)
	s.u.SetResult(unit.Result{Status: unit.StatusFailed, Err: &UnitError{Unit: s.u.Name, Err: stageErr}})
	s.icept.bus.Complete(s.u.Name)
	return failErr
}
