package depgraph

// PlanOptions selects how a build request is expanded. Fathers are the
// transitive dependencies of a product, children the products that
// transitively depend on it.
type PlanOptions struct {
	WithFathers  bool
	WithChildren bool
}

// Plan is the ordered list of products a build covers.
type Plan struct {
	// Order lists the selected products, each after all of its
	// dependencies.
	Order []string

	// DependAll maps each selected product to all of its transitive
	// dependencies.
	DependAll map[string][]string
}

// NewPlan expands requested with opts over the full application graph g,
// and orders the selection by the topological order of the whole graph.
// A missing product or a cycle anywhere in g fails the plan.
func NewPlan(g *Graph, requested []string, opts PlanOptions) (*Plan, error) {
	selected := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !selected[name] {
			selected[name] = true
			names = append(names, name)
		}
	}

	for _, name := range requested {
		if !g.Has(name) {
			return nil, &MissingProductError{
				Name:      name,
				Referrers: g.Referrers(name),
			}
		}
		add(name)
	}

	if opts.WithFathers {
		for _, name := range requested {
			for _, dep := range DescendantsOf(g, name) {
				add(dep)
			}
		}
	}

	if opts.WithChildren {
		targets := append([]string(nil), names...)
		for _, n := range g.order {
			if selected[n] {
				continue
			}
			if PathExists(g, n, targets) != nil {
				add(n)
			}
		}
	}

	all, err := TopoSortAll(g)
	if err != nil {
		return nil, err
	}

	plan := &Plan{DependAll: make(map[string][]string)}
	for _, n := range all {
		if !selected[n] {
			continue
		}
		plan.Order = append(plan.Order, n)
		plan.DependAll[n] = DescendantsOf(g, n)[1:]
	}
	return plan, nil
}
