// Package graph models the intra-workspace dependency graph and its
// topological traversal. Packages are held in an arena indexed by small
// integer handles; adjacency lists are keyed by handle so identity lookups
// happen once, at build time.
package graph

import (
	"fmt"
	"sort"

	"github.com/aretw0/caravel/pkg/domain"
)

// Graph is a directed acyclic graph over workspace packages. An edge A->B
// means A depends on B.
type Graph struct {
	pkgs       []domain.Package
	index      map[string]int
	deps       [][]int // handle -> handles of its dependencies
	dependents [][]int // reverse edges
	order      []int   // topological, dependencies before dependents
}

// Build constructs the graph from the workspace packages. It fails with a
// *domain.CycleError if the dependency relation cycles, and with a plain
// error if a package depends on a name not present in the workspace.
func Build(pkgs []domain.Package) (*Graph, error) {
	// Sort the arena by name up front so every traversal below is
	// deterministic without further tie-breaking.
	arena := make([]domain.Package, len(pkgs))
	copy(arena, pkgs)
	sort.Slice(arena, func(i, j int) bool { return arena[i].Name < arena[j].Name })

	g := &Graph{
		pkgs:       arena,
		index:      make(map[string]int, len(arena)),
		deps:       make([][]int, len(arena)),
		dependents: make([][]int, len(arena)),
	}
	for i, p := range arena {
		if _, dup := g.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate package name %q", p.Name)
		}
		g.index[p.Name] = i
	}

	for i, p := range arena {
		seen := make(map[int]bool, len(p.Dependencies))
		for _, dep := range p.Dependencies {
			j, ok := g.index[dep]
			if !ok {
				return nil, fmt.Errorf("package %q depends on unknown package %q", p.Name, dep)
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			g.deps[i] = append(g.deps[i], j)
			g.dependents[j] = append(g.dependents[j], i)
		}
		sort.Ints(g.deps[i])
	}
	for i := range g.dependents {
		sort.Ints(g.dependents[i])
	}

	if err := g.sortTopologically(); err != nil {
		return nil, err
	}
	return g, nil
}

// sortTopologically runs one depth-first traversal with a recursion-stack
// set, producing a dependencies-first order and catching cycles.
func (g *Graph) sortTopologically() error {
	const (
		white = 0 // unvisited
		grey  = 1 // on the recursion stack
		black = 2 // done
	)
	color := make([]int, len(g.pkgs))
	stack := make([]int, 0, len(g.pkgs))
	order := make([]int, 0, len(g.pkgs))

	var visit func(i int) *domain.CycleError
	visit = func(i int) *domain.CycleError {
		color[i] = grey
		stack = append(stack, i)
		for _, j := range g.deps[i] {
			switch color[j] {
			case grey:
				// Walk the stack forward from where the cycle entered so
				// the report follows the edges.
				start := len(stack) - 1
				for start > 0 && stack[start] != j {
					start--
				}
				cycle := make([]string, 0, len(stack)-start+1)
				for _, k := range stack[start:] {
					cycle = append(cycle, g.pkgs[k].Name)
				}
				cycle = append(cycle, g.pkgs[j].Name)
				return &domain.CycleError{Cycle: cycle}
			case white:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		order = append(order, i)
		return nil
	}

	for i := range g.pkgs {
		if color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	g.order = order
	return nil
}

// Len returns the number of packages.
func (g *Graph) Len() int { return len(g.pkgs) }

// Packages returns the arena in name order.
func (g *Graph) Packages() []domain.Package {
	out := make([]domain.Package, len(g.pkgs))
	copy(out, g.pkgs)
	return out
}

// Package looks up a package by name.
func (g *Graph) Package(name string) (domain.Package, bool) {
	i, ok := g.index[name]
	if !ok {
		return domain.Package{}, false
	}
	return g.pkgs[i], true
}

// TopologicalOrder returns the packages with every dependency before its
// dependents. Ties are broken by package name, so the order is stable
// across runs.
func (g *Graph) TopologicalOrder() []domain.Package {
	out := make([]domain.Package, 0, len(g.order))
	for _, i := range g.order {
		out = append(out, g.pkgs[i])
	}
	return out
}

// DependentsOf returns the names of packages that directly depend on name.
func (g *Graph) DependentsOf(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.dependents[i]))
	for _, j := range g.dependents[i] {
		out = append(out, g.pkgs[j].Name)
	}
	return out
}

// TransitiveDependentsOf returns every package that depends on name,
// directly or through intermediaries, in name order.
func (g *Graph) TransitiveDependentsOf(name string) []string {
	start, ok := g.index[name]
	if !ok {
		return nil
	}
	seen := make(map[int]bool)
	queue := []int{start}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, j := range g.dependents[i] {
			if !seen[j] {
				seen[j] = true
				queue = append(queue, j)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for j := range seen {
		out = append(out, g.pkgs[j].Name)
	}
	sort.Strings(out)
	return out
}

// DependenciesOf returns the names of the direct dependencies of name.
func (g *Graph) DependenciesOf(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.deps[i]))
	for _, j := range g.deps[i] {
		out = append(out, g.pkgs[j].Name)
	}
	return out
}
