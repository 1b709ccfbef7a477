package compile

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Result is the outcome of the pipeline of one product.
type Result struct {
	Product string
	State   State

	// Label names the failed step of a product in state KO.
	Label string

	// Missing lists the dependencies that were not installed.
	Missing []string

	// Installed is what a show run found.
	Installed bool

	Duration time.Duration
}

// Failed reports whether the product failed.
func (r *Result) Failed() bool { return r.State == StateKO }

func (r *Result) String() string {
	if !r.Failed() {
		return fmt.Sprintf("%s: %s", r.Product, r.State)
	}
	if len(r.Missing) > 0 {
		return fmt.Sprintf(
			"%s: %s (missing: %s)",
			r.Product, r.Label, strings.Join(r.Missing, ", "),
		)
	}
	return fmt.Sprintf("%s: %s", r.Product, r.Label)
}

// Report collects the results of a run.
type Report struct {
	// Planned is the number of products in the plan.
	Planned int

	// Results are in build order. Products after a stop on first failure
	// have no result.
	Results []*Result

	// Stopped is set when the run ended before the end of the plan, on the
	// first failure or on cancellation.
	Stopped bool
}

func (r *Report) add(res *Result) { r.Results = append(r.Results, res) }

// Failures returns the results of the failed products, in build order.
func (r *Report) Failures() []*Result {
	var failed []*Result
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Succeeded returns the number of products that did not fail.
func (r *Report) Succeeded() int {
	return len(r.Results) - len(r.Failures())
}

// ExitCode is 0 when every planned product succeeded, 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Succeeded() == r.Planned {
		return 0
	}
	return 1
}

// Summary writes the tally line and the failing products.
func (r *Report) Summary(w io.Writer) {
	fmt.Fprintf(w, "%d / %d products succeeded\n", r.Succeeded(), r.Planned)
	if failed := r.Failures(); len(failed) > 0 {
		fmt.Fprintln(w, "failed products:")
		for _, res := range failed {
			fmt.Fprintf(w, "  %s\n", res)
		}
	}
	if r.Stopped {
		fmt.Fprintf(w, "run stopped, %d products not built\n", r.Planned-len(r.Results))
	}
}
