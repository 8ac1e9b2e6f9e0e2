// Package version implements the semver arithmetic shared by the release
// propagation and manifest rewrite policies: the patch < minor < major
// lattice, version bumping, and range satisfaction checks.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Type is the magnitude of a release decision.
type Type string

const (
	// None means no release is warranted.
	None Type = ""
	// Patch, Minor and Major follow semver semantics.
	Patch Type = "patch"
	Minor Type = "minor"
	Major Type = "major"
)

var rank = map[Type]int{None: 0, Patch: 1, Minor: 2, Major: 3}

// ParseType validates a release-type string coming from configuration.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := rank[t]; !ok {
		return None, fmt.Errorf("unknown release type %q", s)
	}
	return t, nil
}

// Max returns the higher-magnitude of two release types.
func Max(a, b Type) Type {
	if rank[a] >= rank[b] {
		return a
	}
	return b
}

// InitialVersion is used when a unit has never been released before.
const InitialVersion = "1.0.0"

// Bump applies a release type to a current version string and returns the
// next version. An empty current version yields InitialVersion regardless of
// the bump magnitude, matching the usual first-release convention.
func Bump(current string, t Type) (string, error) {
	if t == None {
		return "", fmt.Errorf("cannot bump with an empty release type")
	}
	if current == "" {
		return InitialVersion, nil
	}
	v, err := semver.NewVersion(current)
	if err != nil {
		return "", fmt.Errorf("invalid current version %q: %w", current, err)
	}
	var next semver.Version
	switch t {
	case Patch:
		next = v.IncPatch()
	case Minor:
		next = v.IncMinor()
	case Major:
		next = v.IncMajor()
	}
	return next.String(), nil
}

// Satisfies reports whether the given version is inside the declared range.
// An unparseable range or version counts as not satisfied so that the
// "satisfy" rewrite policy errs on the side of updating the manifest.
func Satisfies(rangeStr, versionStr string) bool {
	c, err := semver.NewConstraint(rangeStr)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(versionStr)
	if err != nil {
		return false
	}
	return c.Check(v)
}
