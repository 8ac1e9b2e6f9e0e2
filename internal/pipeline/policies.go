package pipeline

import (
	"fmt"

	"github.com/vk/multirelease/internal/engine"
	"github.com/vk/multirelease/internal/options"
	"github.com/vk/multirelease/internal/unit"
	"github.com/vk/multirelease/internal/version"
)

// propagate applies the dependency-release policy: when local dependencies
// released, the unit's effective release is the higher of its own commit
// analysis and the type forced by policy. Multiple triggering dependencies
// resolve to the highest magnitude. A failed dependency is handled per the
// on-fail policy before any propagation.
func (i *Interceptor) propagate(rc *engine.Context, u *unit.Unit, own version.Type) (version.Type, error) {
	triggered := version.None

	for _, depName := range u.LocalDeps {
		dep, ok := i.units[depName]
		if !ok {
			return version.None, fmt.Errorf("local dependency %q is not part of this run", depName)
		}
		res, ok := dep.Result()
		if !ok {
			// The completion gate ran before us, so a pending dependency
			// here is a synchronization bug, not a user error.
			return version.None, fmt.Errorf("dependency %q completed without a recorded result", depName)
		}

		if res.Status == unit.StatusFailed {
			switch u.Options.DepsOnFail {
			case options.FailProceed:
				rc.Logger.Warn("Dependency failed; proceeding per policy.", "dependency", depName)
				continue
			case options.FailFail:
				return version.None, fmt.Errorf("dependency %q failed: %w", depName, res.Err)
			default: // options.FailSkip
				rc.Logger.Warn("Dependency failed; skipping release per policy.", "dependency", depName)
				return version.None, nil
			}
		}

		if !res.Released() {
			continue
		}

		depType := res.Outcome.NextRelease.Type
		switch u.Options.DepsRelease {
		case options.ReleasePatch:
			triggered = version.Max(triggered, version.Patch)
		case options.ReleaseMinor:
			triggered = version.Max(triggered, version.Minor)
		case options.ReleaseMajor:
			triggered = version.Max(triggered, version.Major)
		case options.ReleaseInherit:
			triggered = version.Max(triggered, depType)
		}
		rc.Logger.Debug("Dependency released.", "dependency", depName, "dep_type", depType, "triggered", triggered)
	}

	return version.Max(own, triggered), nil
}

// rewriteRanges applies the dependency-bump policy to the unit's in-memory
// manifest before the engine's prepare stage writes it out. Only ranges for
// released local dependencies are touched.
func (i *Interceptor) rewriteRanges(rc *engine.Context, u *unit.Unit) error {
	if u.Manifest == nil {
		return nil
	}
	if u.Options.DepsBump == options.BumpInherit {
		// The ecosystem's own range semantics take care of it.
		return nil
	}

	for _, depName := range u.LocalDeps {
		dep, ok := i.units[depName]
		if !ok {
			continue
		}
		res, ok := dep.Result()
		if !ok || !res.Released() {
			continue
		}
		newVersion := res.Outcome.NextRelease.Version

		switch u.Options.DepsBump {
		case options.BumpOverride:
			if u.Manifest.SetRange(depName, newVersion) {
				rc.Logger.Info("Pinned dependency range.", "dependency", depName, "version", newVersion)
			}
		case options.BumpSatisfy:
			rng, declared := u.Manifest.Range(depName)
			if !declared || version.Satisfies(rng, newVersion) {
				continue
			}
			caret := "^" + newVersion
			u.Manifest.SetRange(depName, caret)
			rc.Logger.Info("Widened dependency range.", "dependency", depName, "range", caret)
		}
	}
	return nil
}
