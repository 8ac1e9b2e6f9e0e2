// Package graph builds and validates the local-dependency graph of a
// multirelease run. Edges point from a dependency to its dependents, so a
// cycle means two units each (transitively) wait on the other.
package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is the directed dependency graph over unit names. All operations
// are safe for concurrent use, though in practice the graph is built once
// before any unit task starts.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

type node struct {
	id         string
	deps       map[string]*node
	dependents map[string]*node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode registers a unit name. Adding an existing name is a no-op.
func (g *Graph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge records that toID depends on fromID. Self-edges and edges touching
// unknown nodes are rejected.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("unit %q cannot depend on itself", fromID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("unknown dependency unit %q", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("unknown dependent unit %q", toID)
	}

	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Dependencies returns the sorted names the given unit depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown unit %q", id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted names depending on the given unit.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown unit %q", id)
	}
	return sortedKeys(n.dependents), nil
}

// HasCycle runs a depth-first search with the usual three-color scheme and
// returns a *CycleError naming a unit on the first cycle found, or nil for
// an acyclic graph.
func (g *Graph) HasCycle() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		white = iota // unvisited
		gray         // on the current stack
		black        // fully explored
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(n *node) error
	visit = func(n *node) error {
		switch color[n.id] {
		case black:
			return nil
		case gray:
			return &CycleError{Unit: n.id}
		}
		color[n.id] = gray
		// Deterministic traversal keeps the reported unit stable.
		for _, id := range sortedKeys(n.dependents) {
			if err := visit(n.dependents[id]); err != nil {
				return err
			}
		}
		color[n.id] = black
		return nil
	}

	for _, id := range sortedKeys(g.nodes) {
		if color[id] == white {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// CycleError is the fatal, pre-run error kind raised when sequential-prepare
// is requested on a cyclic graph. The dependency-wait gate would deadlock,
// so the run aborts before any pipeline starts.
type CycleError struct {
	Unit string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected involving unit %q", e.Unit)
}

func sortedKeys(m map[string]*node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
