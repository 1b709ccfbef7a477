// Package compile builds the planned products of an application one after
// the other, and reports which of them succeeded.
package compile

// Options are the choices of a compile run.
type Options struct {
	// Force rebuilds products that are already installed, after cleaning
	// their build dir.
	Force bool

	// Update rebuilds products whose sources are newer than their install,
	// and the products depending on something rebuilt before them.
	Update bool

	// WithFathers adds the transitive dependencies of the requested
	// products to the plan.
	WithFathers bool

	// WithChildren adds the products that transitively depend on the
	// selection to the plan.
	WithChildren bool

	// CleanAll cleans the build and install dirs before building.
	CleanAll bool

	// CleanInstall cleans the install dir before building.
	CleanInstall bool

	MakeFlags string

	// Show only reports whether products are installed.
	Show bool

	StopFirstFail bool

	// Check runs the self tests of built products.
	Check bool

	// CleanBuildAfter removes the build dir of products built successfully.
	CleanBuildAfter bool
}
