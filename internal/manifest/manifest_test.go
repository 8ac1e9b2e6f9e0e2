package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_PackageJSON(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "package.json", `{
		"name": "pkg-a",
		"version": "1.2.0",
		"dependencies": {"left-pad": "^1.0.0", "pkg-b": "^2.0.0"},
		"devDependencies": {"jest": "^29.0.0"},
		"peerDependencies": {"react": ">=17"},
		"optionalDependencies": {"fsevents": "^2.3.0"}
	}`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pkg-a", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, path, m.Path())

	names := m.DeclaredNames()
	assert.Equal(t, []string{"fsevents", "jest", "left-pad", "pkg-b", "react"}, names)
}

func TestLoad_ReleaseYAML(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "release.yaml", `
name: svc-api
version: 0.3.1
dependencies:
  svc-core: "^0.2.0"
devDependencies:
  linter: "1.x"
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "svc-api", m.Name)
	assert.Equal(t, []string{"linter", "svc-core"}, m.DeclaredNames())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "package.json"))
		assert.Error(t, err)
	})

	t.Run("unsupported file name", func(t *testing.T) {
		path := writeManifest(t, "Cargo.toml", `[package]`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "unsupported manifest file name")
	})

	t.Run("missing name", func(t *testing.T) {
		path := writeManifest(t, "package.json", `{"version": "1.0.0"}`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "has no name")
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeManifest(t, "package.json", `{`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestRangeAndSetRange(t *testing.T) {
	t.Parallel()

	m := &Manifest{
		Name:            "pkg-a",
		Dependencies:    map[string]string{"pkg-b": "^1.0.0"},
		DevDependencies: map[string]string{"pkg-b": "^1.0.0", "jest": "^29.0.0"},
	}

	rng, ok := m.Range("pkg-b")
	require.True(t, ok)
	assert.Equal(t, "^1.0.0", rng)

	_, ok = m.Range("absent")
	assert.False(t, ok)

	// SetRange updates every kind declaring the name.
	assert.True(t, m.SetRange("pkg-b", "2.1.0"))
	assert.Equal(t, "2.1.0", m.Dependencies["pkg-b"])
	assert.Equal(t, "2.1.0", m.DevDependencies["pkg-b"])
	assert.Equal(t, "^29.0.0", m.DevDependencies["jest"])

	assert.False(t, m.SetRange("absent", "1.0.0"))
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "package.json", `{
		"name": "pkg-a",
		"version": "1.0.0",
		"dependencies": {"pkg-b": "^1.0.0"}
	}`)

	m, err := Load(path)
	require.NoError(t, err)
	m.SetRange("pkg-b", "1.1.0")
	require.NoError(t, m.Save())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", again.Dependencies["pkg-b"])
}
