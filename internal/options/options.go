// Package options resolves the layered run configuration. Three layers are
// merged per unit, with later layers winning: the global options block, the
// matching per-unit blocks, and the command-line flags. Resolution happens
// once, before any pipeline is constructed.
package options

import (
	"fmt"

	"dario.cat/mergo"
)

// BumpPolicy controls how a unit's declared range for a released local
// dependency is rewritten during prepare.
type BumpPolicy string

const (
	// BumpOverride pins the range to the exact new version.
	BumpOverride BumpPolicy = "override"
	// BumpSatisfy rewrites the range only if the new version would
	// otherwise fall outside it.
	BumpSatisfy BumpPolicy = "satisfy"
	// BumpInherit leaves the declared range untouched.
	BumpInherit BumpPolicy = "inherit"
)

// ReleasePolicy controls the release forced onto a unit when one of its
// local dependencies releases.
type ReleasePolicy string

const (
	ReleasePatch   ReleasePolicy = "patch"
	ReleaseMinor   ReleasePolicy = "minor"
	ReleaseMajor   ReleasePolicy = "major"
	ReleaseInherit ReleasePolicy = "inherit"
)

// FailPolicy controls what a unit does when a local dependency's pipeline
// failed outright (not just "no release").
type FailPolicy string

const (
	// FailSkip skips the unit's own release. This is the default.
	FailSkip FailPolicy = "skip"
	// FailProceed ignores the failed dependency and releases as if it had
	// not released.
	FailProceed FailPolicy = "proceed"
	// FailFail fails the unit's own pipeline.
	FailFail FailPolicy = "fail"
)

// DefaultTagFormat embeds the unit name so tags from different units never
// collide in a shared history.
const DefaultTagFormat = "${name}@${version}"

// Options is the fully resolved configuration for one unit's pipeline.
type Options struct {
	SequentialInit    bool
	SequentialPrepare bool
	DepsBump          BumpPolicy
	DepsRelease       ReleasePolicy
	DepsOnFail        FailPolicy
	TagFormat         string
	DryRun            bool
}

// Default returns the options used when no layer overrides a field.
func Default() Options {
	return Options{
		DepsBump:    BumpOverride,
		DepsRelease: ReleasePatch,
		DepsOnFail:  FailSkip,
		TagFormat:   DefaultTagFormat,
	}
}

// Overrides is one precedence layer. Nil fields fall through to the layer
// below; non-nil fields win over it.
type Overrides struct {
	SequentialInit    *bool
	SequentialPrepare *bool
	DepsBump          *BumpPolicy
	DepsRelease       *ReleasePolicy
	DepsOnFail        *FailPolicy
	TagFormat         *string
	DryRun            *bool
}

// Resolve merges the given layers in increasing precedence order on top of
// the defaults and validates the result. A bad policy value surfaces as a
// *ConfigurationError.
func Resolve(layers ...Overrides) (Options, error) {
	var merged Overrides
	for _, layer := range layers {
		// Only non-nil fields override. WithoutDereference keeps mergo from
		// peeking at pointees, so a *bool holding false still wins.
		if err := mergo.Merge(&merged, layer, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return Options{}, fmt.Errorf("merging option layers: %w", err)
		}
	}

	opts := Default()
	if merged.SequentialInit != nil {
		opts.SequentialInit = *merged.SequentialInit
	}
	if merged.SequentialPrepare != nil {
		opts.SequentialPrepare = *merged.SequentialPrepare
	}
	if merged.DepsBump != nil {
		opts.DepsBump = *merged.DepsBump
	}
	if merged.DepsRelease != nil {
		opts.DepsRelease = *merged.DepsRelease
	}
	if merged.DepsOnFail != nil {
		opts.DepsOnFail = *merged.DepsOnFail
	}
	if merged.TagFormat != nil {
		opts.TagFormat = *merged.TagFormat
	}
	if merged.DryRun != nil {
		opts.DryRun = *merged.DryRun
	}

	if err := opts.validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o Options) validate() error {
	switch o.DepsBump {
	case BumpOverride, BumpSatisfy, BumpInherit:
	default:
		return &ConfigurationError{Field: "deps.bump", Reason: fmt.Sprintf("unknown policy %q", o.DepsBump)}
	}
	switch o.DepsRelease {
	case ReleasePatch, ReleaseMinor, ReleaseMajor, ReleaseInherit:
	default:
		return &ConfigurationError{Field: "deps.release", Reason: fmt.Sprintf("unknown policy %q", o.DepsRelease)}
	}
	switch o.DepsOnFail {
	case FailSkip, FailProceed, FailFail:
	default:
		return &ConfigurationError{Field: "deps.on_fail", Reason: fmt.Sprintf("unknown policy %q", o.DepsOnFail)}
	}
	if o.TagFormat == "" {
		return &ConfigurationError{Field: "tag_format", Reason: "must not be empty"}
	}
	return nil
}

// ConfigurationError is the fatal, pre-run error kind for malformed or
// missing configuration. It aborts the whole run before any task starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}
