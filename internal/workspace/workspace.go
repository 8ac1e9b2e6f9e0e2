// Package workspace discovers the units of a multirelease run: it expands
// the configured package globs under the workspace root, loads each matched
// directory's manifest, and applies the ignore list.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vk/multirelease/internal/ctxlog"
	"github.com/vk/multirelease/internal/manifest"
	"github.com/vk/multirelease/internal/options"
	"github.com/vk/multirelease/internal/unit"
)

// Config tells Discover where to look. Either Locations (explicit unit
// directories, relative to Root) or Packages (doublestar globs over Root)
// must be supplied.
type Config struct {
	Root      string
	Packages  []string
	Locations []string
	Ignore    []string
}

// Discover loads every unit in the workspace. Units come back sorted by
// name; duplicate unit names across directories are an error.
func Discover(ctx context.Context, cfg Config) ([]*unit.Unit, error) {
	logger := ctxlog.FromContext(ctx)

	if len(cfg.Locations) == 0 && len(cfg.Packages) == 0 {
		return nil, &options.ConfigurationError{
			Reason: "no package globs and no explicit unit locations were supplied",
		}
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}

	dirs, err := candidateDirs(root, cfg)
	if err != nil {
		return nil, err
	}

	var units []*unit.Unit
	byName := make(map[string]string) // name -> dir, for duplicate detection
	for _, dir := range dirs {
		m, found, err := loadManifest(filepath.Join(root, dir))
		if err != nil {
			return nil, err
		}
		if !found {
			logger.Debug("Directory has no manifest, skipping.", "dir", dir)
			continue
		}
		if prev, dup := byName[m.Name]; dup {
			return nil, &options.ConfigurationError{
				Reason: fmt.Sprintf("unit name %q declared in both %s and %s", m.Name, prev, dir),
			}
		}
		byName[m.Name] = dir
		units = append(units, &unit.Unit{
			Name:         m.Name,
			Dir:          dir,
			Manifest:     m,
			DeclaredDeps: m.DeclaredNames(),
		})
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	logger.Info("Workspace discovered.", "units", len(units))
	return units, nil
}

// candidateDirs resolves globs and explicit locations to a sorted, deduped,
// ignore-filtered list of directories relative to root.
func candidateDirs(root string, cfg Config) ([]string, error) {
	seen := make(map[string]struct{})
	var dirs []string

	add := func(rel string) {
		rel = filepath.ToSlash(filepath.Clean(rel))
		if _, ok := seen[rel]; ok {
			return
		}
		seen[rel] = struct{}{}
		dirs = append(dirs, rel)
	}

	fsys := os.DirFS(root)
	for _, pattern := range cfg.Packages {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, &options.ConfigurationError{
				Field:  "workspace.packages",
				Reason: fmt.Sprintf("bad glob %q: %v", pattern, err),
			}
		}
		for _, match := range matches {
			info, err := os.Stat(filepath.Join(root, match))
			if err != nil || !info.IsDir() {
				continue
			}
			add(match)
		}
	}

	for _, loc := range cfg.Locations {
		info, err := os.Stat(filepath.Join(root, loc))
		if err != nil {
			return nil, &options.ConfigurationError{
				Reason: fmt.Sprintf("unit location %q: %v", loc, err),
			}
		}
		if !info.IsDir() {
			return nil, &options.ConfigurationError{
				Reason: fmt.Sprintf("unit location %q is not a directory", loc),
			}
		}
		add(loc)
	}

	filtered := dirs[:0]
	for _, dir := range dirs {
		if ignored(dir, cfg.Ignore) {
			continue
		}
		filtered = append(filtered, dir)
	}
	sort.Strings(filtered)
	return filtered, nil
}

func ignored(dir string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, dir); err == nil && ok {
			return true
		}
	}
	return false
}

// loadManifest probes the known manifest file names in order.
func loadManifest(dir string) (*manifest.Manifest, bool, error) {
	for _, name := range manifest.FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := manifest.Load(path)
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	}
	return nil, false, nil
}
