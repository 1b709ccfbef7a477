package depgraph

import (
	"slices"
)

// grow returns list with s appended. It never writes into the backing array
// of list, so callers further up the recursion keep their own copy.
func grow(list []string, s string) []string {
	return append(list[:len(list):len(list)], s)
}

// DescendantsOf returns start followed by every node reachable from it,
// each once, in depth-first first-visit order. Names that are not nodes of
// the graph have no dependencies.
func DescendantsOf(g *Graph, start string) []string {
	return descendants(g, start, nil)
}

func descendants(g *Graph, node string, visited []string) []string {
	visited = grow(visited, node)
	for _, dep := range g.Deps(node) {
		if !slices.Contains(visited, dep) {
			visited = descendants(g, dep, visited)
		}
	}
	return visited
}

// PathExists looks for a path from start to any of targets, and returns it,
// start and the reached target included. It returns nil if there is none.
func PathExists(g *Graph, start string, targets []string) []string {
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}
	return pathTo(g, start, set, nil)
}

func pathTo(g *Graph, node string, targets map[string]struct{}, path []string) []string {
	path = grow(path, node)
	if _, ok := targets[node]; ok {
		return path
	}
	for _, dep := range g.Deps(node) {
		if slices.Contains(path, dep) {
			continue // loops back onto this path
		}
		if found := pathTo(g, dep, targets, path); found != nil {
			return found
		}
	}
	return nil
}

// TopoSort sorts start and its dependencies in depth-first post-order and
// appends them to sorted. Nodes already in sorted are not sorted again.
// Nodes in visited but not yet in sorted are being sorted; reaching one of
// them again is a cycle.
//
// The returned slices never share a backing array with the ones passed in.
func TopoSort(g *Graph, start string, visited, sorted []string) (
	[]string, []string, error,
) {
	if !g.Has(start) {
		return nil, nil, &MissingProductError{
			Name:      start,
			Referrers: g.Referrers(start),
		}
	}

	visited = grow(visited, start)
	for _, dep := range g.Deps(start) {
		if slices.Contains(sorted, dep) {
			continue
		}
		if slices.Contains(visited, dep) {
			return nil, nil, &CycleError{Node: dep, From: start}
		}

		var err error
		visited, sorted, err = TopoSort(g, dep, visited, sorted)
		if err != nil {
			return nil, nil, err
		}
	}
	return visited, grow(sorted, start), nil
}

// TopoSortAll sorts the whole graph, seeding the sort from every node that
// is not visited yet, in natural order.
func TopoSortAll(g *Graph) ([]string, error) {
	var visited, sorted []string
	for _, n := range g.order {
		if slices.Contains(visited, n) {
			continue
		}
		var err error
		visited, sorted, err = TopoSort(g, n, visited, sorted)
		if err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
