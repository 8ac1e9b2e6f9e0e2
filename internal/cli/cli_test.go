package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/multirelease/internal/options"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, "noop", cfg.Engine)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)

	// Untouched flags contribute nothing to the override layer.
	assert.Equal(t, options.Overrides{}, cfg.Flags)
}

func TestParse_RootArgumentAndFlags(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"--engine", "fake",
		"--config", "custom.hcl",
		"--location", "libs/core",
		"--location", "libs/extra",
		"--ignore", "packages/legacy",
		"--sequential-prepare",
		"--deps-release", "inherit",
		"--tag-format", "v${version}",
		"/work/monorepo",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "/work/monorepo", cfg.Root)
	assert.Equal(t, "fake", cfg.Engine)
	assert.Equal(t, "custom.hcl", cfg.ConfigPath)
	assert.Equal(t, []string{"libs/core", "libs/extra"}, cfg.Locations)
	assert.Equal(t, []string{"packages/legacy"}, cfg.Ignore)

	require.NotNil(t, cfg.Flags.SequentialPrepare)
	assert.True(t, *cfg.Flags.SequentialPrepare)
	require.NotNil(t, cfg.Flags.DepsRelease)
	assert.Equal(t, options.ReleaseInherit, *cfg.Flags.DepsRelease)
	require.NotNil(t, cfg.Flags.TagFormat)
	assert.Equal(t, "v${version}", *cfg.Flags.TagFormat)
	assert.Nil(t, cfg.Flags.SequentialInit)
	assert.Nil(t, cfg.Flags.DryRun)
}

func TestParse_ExplicitFalseOverrides(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, _, err := Parse([]string{"--dry-run=false"}, out)
	require.NoError(t, err)

	// An explicit false must land in the layer so it can beat a true from
	// the configuration file.
	require.NotNil(t, cfg.Flags.DryRun)
	assert.False(t, *cfg.Flags.DryRun)
}

func TestParse_InvalidPolicies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
	}{
		{"deps-bump", []string{"--deps-bump", "pin"}},
		{"deps-release", []string{"--deps-release", "huge"}},
		{"deps-on-fail", []string{"--deps-on-fail", "explode"}},
		{"log-format", []string{"--log-format", "xml"}},
		{"log-level", []string{"--log-level", "loud"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := &bytes.Buffer{}
			_, _, err := Parse(tc.args, out)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.name)
		})
	}
}

func TestParse_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	_, shouldExit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_UnknownFlag(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	_, _, err := Parse([]string{"--not-a-flag"}, out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
