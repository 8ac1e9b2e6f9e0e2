// Package hclconf loads the .multirelease.hcl run configuration: the
// workspace layout, the global options block, and per-package overrides.
package hclconf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/multirelease/internal/ctxlog"
)

// DefaultFileName is probed in the workspace root when no --config flag is
// given.
const DefaultFileName = ".multirelease.hcl"

// Load parses the configuration file at path. Expressions in the file may
// reference process environment variables through the `env` map, e.g.
// `dry_run = env["CI"] == ""`.
func Load(ctx context.Context, path string) (*File, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %s", path, diags.Error())
	}

	var file File
	diags = gohcl.DecodeBody(hclFile.Body, evalContext(), &file)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %s", path, diags.Error())
	}

	logger.Debug("Run configuration loaded.", "path", path, "package_blocks", len(file.Packages))
	return &file, nil
}

// LoadIfPresent behaves like Load but treats a missing file as an empty
// configuration, so a workspace can run on flags alone.
func LoadIfPresent(ctx context.Context, path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		ctxlog.FromContext(ctx).Debug("No run configuration file found.", "path", path)
		return &File{}, nil
	}
	return Load(ctx, path)
}

// evalContext exposes the process environment to configuration expressions.
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		envVal = cty.MapVal(env)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}
