package graph

import (
	"context"
	"sort"

	"github.com/vk/multirelease/internal/ctxlog"
	"github.com/vk/multirelease/internal/unit"
)

// Link resolves every unit's declared dependency names against the set of
// unit names in this run. Matches become local dependencies, written onto
// the unit records; unmatched names are external packages and stay untouched
// in the manifests. Absence of a match is never an error.
func Link(ctx context.Context, units []*unit.Unit) *Graph {
	logger := ctxlog.FromContext(ctx)

	g := New()
	byName := make(map[string]*unit.Unit, len(units))
	for _, u := range units {
		g.AddNode(u.Name)
		byName[u.Name] = u
	}

	for _, u := range units {
		seen := make(map[string]struct{})
		var local []string
		for _, dep := range u.DeclaredDeps {
			if dep == u.Name {
				continue
			}
			if _, isLocal := byName[dep]; !isLocal {
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			local = append(local, dep)
			// Linking within the loaded name set cannot fail.
			_ = g.AddEdge(dep, u.Name)
		}
		sort.Strings(local)
		u.LocalDeps = local
		if len(local) > 0 {
			logger.Debug("Linked local dependencies.", "unit", u.Name, "deps", local)
		}
	}

	return g
}
