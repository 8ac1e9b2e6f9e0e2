// Package manifest models the per-unit manifest file. Two formats are
// supported: package.json for npm-style workspaces and release.yaml for
// everything else. Both expose the same four dependency kinds, which the
// orchestrator merges into one declared-dependency set.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Known manifest file names, probed in this order during discovery.
var FileNames = []string{"package.json", "release.yaml"}

// Manifest is the in-memory form of a unit's manifest. The orchestrator
// mutates the dependency maps when staging version rewrites; the release
// engine is responsible for writing the staged manifest back during prepare.
type Manifest struct {
	Name                 string            `json:"name" yaml:"name"`
	Version              string            `json:"version,omitempty" yaml:"version,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty" yaml:"devDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty" yaml:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty" yaml:"optionalDependencies,omitempty"`

	// path is where the manifest was loaded from. Empty for synthetic
	// manifests built in tests.
	path string
}

// Load reads and parses the manifest at path, dispatching on the file name.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m := &Manifest{}
	switch base := filepath.Base(path); base {
	case "package.json":
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case "release.yaml":
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest file name %q", base)
	}

	if m.Name == "" {
		return nil, fmt.Errorf("manifest %s has no name", path)
	}
	m.path = path
	return m, nil
}

// Path returns the file the manifest was loaded from.
func (m *Manifest) Path() string { return m.path }

// DeclaredNames returns the merged, de-duplicated set of dependency names
// across all four kinds, sorted for deterministic iteration.
func (m *Manifest) DeclaredNames() []string {
	seen := make(map[string]struct{})
	for _, kind := range m.kinds() {
		for name := range kind {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Range returns the declared version range for a dependency. When a name
// appears under several kinds the first match in kind order wins; in
// practice manifests do not declare conflicting ranges for the same name.
func (m *Manifest) Range(name string) (string, bool) {
	for _, kind := range m.kinds() {
		if rng, ok := kind[name]; ok {
			return rng, true
		}
	}
	return "", false
}

// SetRange rewrites the declared range for a dependency in every kind that
// declares it. It reports whether any entry was updated.
func (m *Manifest) SetRange(name, rng string) bool {
	updated := false
	for _, kind := range m.kinds() {
		if _, ok := kind[name]; ok {
			kind[name] = rng
			updated = true
		}
	}
	return updated
}

// Save writes the manifest back to the file it was loaded from, using the
// format implied by the file name.
func (m *Manifest) Save() error {
	if m.path == "" {
		return fmt.Errorf("manifest has no backing file")
	}
	var (
		data []byte
		err  error
	)
	if filepath.Base(m.path) == "package.json" {
		data, err = json.MarshalIndent(m, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	} else {
		data, err = yaml.Marshal(m)
	}
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return os.WriteFile(m.path, data, 0o644)
}

func (m *Manifest) kinds() []map[string]string {
	return []map[string]string{
		m.Dependencies,
		m.DevDependencies,
		m.PeerDependencies,
		m.OptionalDependencies,
	}
}
