package depgraph

import (
	"testing"

	"errors"
	"reflect"

	"github.com/platformbuild/pbuild/prodinfo"
)

func TestBuild(t *testing.T) {
	products := []*prodinfo.Product{
		{Name: "python", Depends: []string{"zlib"}, BuildDepends: []string{"gcc", "zlib"}},
		{Name: "zlib", BuildDepends: []string{"gcc"}},
		{Name: "numpy", Depends: []string{"python", "blas"}},
	}

	runtime := Build(products, false)
	if got, want := runtime.Nodes(), []string{"python", "zlib", "numpy"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got nodes %v, want %v", got, want)
	}
	if got, want := runtime.Deps("python"), []string{"zlib"}; !reflect.DeepEqual(got, want) {
		t.Errorf("runtime python deps got %v, want %v", got, want)
	}
	if got := runtime.Deps("zlib"); len(got) != 0 {
		t.Errorf("runtime zlib deps got %v, want none", got)
	}

	full := Build(products, true)
	if got, want := full.Deps("python"), []string{"zlib", "gcc", "zlib"}; !reflect.DeepEqual(got, want) {
		t.Errorf("full python deps got %v, want %v", got, want)
	}
	if full.Has("blas") || full.Has("gcc") {
		t.Errorf("unknown dependencies became nodes: %v", full.Nodes())
	}

	// Build must not alias the product's dependency lists.
	full.Deps("numpy")[0] = "changed"
	if products[2].Depends[0] != "python" {
		t.Errorf("graph edges alias product dependencies")
	}
}

func chain() *Graph {
	return graphOf(
		node{"A", []string{"B"}},
		node{"B", []string{"C"}},
		node{"C", nil},
	)
}

func TestNewPlan(t *testing.T) {
	platform := graphOf(
		node{"numpy", []string{"python", "blas"}},
		node{"python", []string{"zlib", "openssl"}},
		node{"blas", nil},
		node{"zlib", nil},
		node{"openssl", []string{"zlib"}},
		node{"scipy", []string{"numpy"}},
		node{"doc", nil},
	)

	for _, test := range []struct {
		name      string
		g         *Graph
		requested []string
		opts      PlanOptions
		want      []string
	}{{
		name:      "chain with fathers",
		g:         chain(),
		requested: []string{"A"},
		opts:      PlanOptions{WithFathers: true},
		want:      []string{"C", "B", "A"},
	}, {
		name:      "chain alone",
		g:         chain(),
		requested: []string{"A"},
		want:      []string{"A"},
	}, {
		name:      "chain with children",
		g:         chain(),
		requested: []string{"C"},
		opts:      PlanOptions{WithChildren: true},
		want:      []string{"C", "B", "A"},
	}, {
		name:      "requested order does not matter",
		g:         platform,
		requested: []string{"numpy", "zlib", "python"},
		want:      []string{"zlib", "python", "numpy"},
	}, {
		name:      "fathers",
		g:         platform,
		requested: []string{"python"},
		opts:      PlanOptions{WithFathers: true},
		want:      []string{"zlib", "openssl", "python"},
	}, {
		name:      "children",
		g:         platform,
		requested: []string{"openssl"},
		opts:      PlanOptions{WithChildren: true},
		want:      []string{"openssl", "python", "numpy", "scipy"},
	}, {
		name:      "fathers and children",
		g:         platform,
		requested: []string{"python"},
		opts:      PlanOptions{WithFathers: true, WithChildren: true},
		want:      []string{"zlib", "openssl", "python", "numpy", "scipy"},
	}, {
		name:      "duplicates",
		g:         platform,
		requested: []string{"doc", "doc"},
		want:      []string{"doc"},
	}, {
		name:      "nothing",
		g:         platform,
		requested: nil,
		want:      nil,
	}} {
		t.Run(test.name, func(t *testing.T) {
			plan, err := NewPlan(test.g, test.requested, test.opts)
			if err != nil {
				t.Fatalf("plan: %v", err)
			}
			if !reflect.DeepEqual(plan.Order, test.want) {
				t.Errorf("got %v, want %v", plan.Order, test.want)
			}
		})
	}
}

func TestNewPlan_closedUnderFathers(t *testing.T) {
	g := diamond()
	plan, err := NewPlan(g, []string{"top"}, PlanOptions{WithFathers: true})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	in := make(map[string]bool)
	for _, n := range plan.Order {
		in[n] = true
	}
	for _, n := range plan.Order {
		for _, dep := range g.Deps(n) {
			if !in[dep] {
				t.Errorf("%q depends on %q, which is not planned", n, dep)
			}
		}
	}
	restricted := New()
	for _, n := range plan.Order {
		restricted.Add(n, g.Deps(n)...)
	}
	checkTopoOrder(t, restricted, plan.Order)

	if in["alone"] {
		t.Errorf("unrelated product is planned: %v", plan.Order)
	}
}

func TestNewPlan_dependAll(t *testing.T) {
	plan, err := NewPlan(diamond(), []string{"top", "left"}, PlanOptions{})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	want := map[string][]string{
		"left": {"base"},
		"top":  {"left", "base", "right", "extra"},
	}
	if !reflect.DeepEqual(plan.DependAll, want) {
		t.Errorf("got %v, want %v", plan.DependAll, want)
	}
}

func TestNewPlan_errors(t *testing.T) {
	cyclic := graphOf(
		node{"A", []string{"B"}},
		node{"B", []string{"A"}},
		node{"C", nil},
	)
	var cycle *CycleError
	_, err := NewPlan(cyclic, []string{"C"}, PlanOptions{})
	if !errors.As(err, &cycle) {
		t.Errorf("cycle outside the selection: got %v, want a cycle error", err)
	}

	broken := graphOf(
		node{"A", []string{"Z"}},
		node{"B", nil},
	)
	var missing *MissingProductError
	_, err = NewPlan(broken, []string{"B"}, PlanOptions{})
	if !errors.As(err, &missing) || missing.Name != "Z" {
		t.Errorf("missing outside the selection: got %v, want Z missing", err)
	}

	_, err = NewPlan(chain(), []string{"D"}, PlanOptions{})
	if !errors.As(err, &missing) || missing.Name != "D" {
		t.Errorf("unknown request: got %v, want D missing", err)
	}
}
