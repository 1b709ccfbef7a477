package compile

import (
	"github.com/platformbuild/pbuild/depgraph"
	"github.com/platformbuild/pbuild/prodinfo"
)

// PlanProducts returns the products to build for the requested names, in
// build order, each with its transitive dependencies attached. No names
// request every product of the application. It also returns the full
// graph of the application, with build-time dependencies.
func PlanProducts(app *prodinfo.Application, requested []string, opts *Options) (
	[]*prodinfo.Product, *depgraph.Graph, error,
) {
	if len(requested) == 0 {
		requested = app.Names()
	}
	if _, err := app.Products(requested); err != nil {
		return nil, nil, err
	}

	g := depgraph.Build(app.All(), true)
	plan, err := depgraph.NewPlan(g, requested, depgraph.PlanOptions{
		WithFathers:  opts.WithFathers,
		WithChildren: opts.WithChildren,
	})
	if err != nil {
		return nil, nil, err
	}

	products, err := app.Products(plan.Order)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range products {
		p.DependAll = plan.DependAll[p.Name]
	}
	return products, g, nil
}
