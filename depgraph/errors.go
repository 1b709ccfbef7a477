package depgraph

import (
	"fmt"
	"strings"
)

// MissingProductError is returned when a product is referenced but not
// defined in the graph.
type MissingProductError struct {
	Name string

	// Referrers are the products that depend on Name.
	Referrers []string
}

func (e *MissingProductError) Error() string {
	if len(e.Referrers) == 0 {
		return fmt.Sprintf("product %q is not defined", e.Name)
	}
	return fmt.Sprintf(
		"product %q is not defined, but is a dependency of: %s",
		e.Name, strings.Join(e.Referrers, ", "),
	)
}

// CycleError is returned when sorting reaches Node again from From while
// Node is still being sorted.
type CycleError struct {
	Node string
	From string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf(
		"dependency cycle: %q depends on %q, which depends back on it",
		e.From, e.Node,
	)
}
