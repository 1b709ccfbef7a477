// Package depgraph builds the dependency graph of an application's products,
// sorts it, and plans which products a build covers and in which order.
package depgraph

import (
	"github.com/platformbuild/pbuild/prodinfo"
)

// Graph maps product names to the names of their dependencies. Nodes keep
// the order they were added in, which is the natural iteration order of the
// graph. Dependency lists keep their order and duplicates.
type Graph struct {
	order []string
	edges map[string][]string
}

// New makes an empty graph.
func New() *Graph {
	return &Graph{edges: make(map[string][]string)}
}

// Add adds a node with its dependencies. Adding an existing node replaces
// its dependencies but keeps its position.
func (g *Graph) Add(name string, deps ...string) {
	if _, ok := g.edges[name]; !ok {
		g.order = append(g.order, name)
	}
	g.edges[name] = append([]string(nil), deps...)
}

// Has reports whether name is a node of the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.edges[name]
	return ok
}

// Nodes returns the nodes in natural order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Deps returns the dependencies of a node. It is nil for names that are not
// nodes of the graph.
func (g *Graph) Deps(name string) []string { return g.edges[name] }

// Referrers returns the nodes that list name as a dependency, in natural
// order.
func (g *Graph) Referrers(name string) []string {
	var refs []string
	for _, n := range g.order {
		for _, dep := range g.edges[n] {
			if dep == name {
				refs = append(refs, n)
				break
			}
		}
	}
	return refs
}

// Build makes the graph of the given products. Each product's edges are its
// runtime dependencies, followed by its build-time dependencies when
// withBuildDeps is set. Dependencies that are not among the products are
// kept as edges to unknown nodes.
func Build(products []*prodinfo.Product, withBuildDeps bool) *Graph {
	g := New()
	for _, p := range products {
		deps := append([]string(nil), p.Depends...)
		if withBuildDeps {
			deps = append(deps, p.BuildDepends...)
		}
		g.Add(p.Name, deps...)
	}
	return g
}
