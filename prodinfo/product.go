// Package prodinfo loads the application file and serves the per-product
// records the dependency graph and the compile pipeline work on.
package prodinfo

// BuildMethod is how a product is built from its sources.
type BuildMethod string

// Supported build methods.
const (
	BuildNone      BuildMethod = "none"
	BuildAutotools BuildMethod = "autotools"
	BuildCMake     BuildMethod = "cmake"
	BuildScript    BuildMethod = "script"
)

func parseBuildMethod(s string) (BuildMethod, bool) {
	switch BuildMethod(s) {
	case "":
		return BuildNone, true
	case BuildNone, BuildAutotools, BuildCMake, BuildScript:
		return BuildMethod(s), true
	}
	return "", false
}

// Property keys and values read from the product's properties map.
const (
	PropCompilation      = "compilation"
	PropIsMPI            = "is_mpi"
	PropHasGUI           = "has_gui"
	PropSingleInstallDir = "single_install_dir"
	PropPipInstallDir    = "pip_install_dir"

	yes = "yes"
	no  = "no"
)

// Product is the resolved record of one product of the application.
type Product struct {
	Name    string
	Version string

	// Depends lists the runtime dependencies, in configuration order.
	Depends []string

	// BuildDepends lists the dependencies only needed at build time.
	BuildDepends []string

	Source Source
	Build  BuildMethod

	// Script is the absolute path of the build script of script products.
	Script string

	ConfigureOptions []string
	CMakeOptions     []string

	Properties map[string]string

	SourceDir  string
	BuildDir   string
	InstallDir string

	// DependAll is every transitive dependency of the product. It is attached
	// by the build planner.
	DependAll []string

	singleDir bool
}

// TestProperty reports whether property key is set to value.
func (p *Product) TestProperty(key, value string) bool {
	v, ok := p.Properties[key]
	return ok && v == value
}

// Compiles reports whether the product takes part in compilation at all.
func (p *Product) Compiles() bool { return !p.TestProperty(PropCompilation, no) }

// IsNative reports whether the product is provided by the system.
func (p *Product) IsNative() bool {
	_, ok := p.Source.(*NativeSource)
	return ok
}

// IsFixed reports whether the product is prebuilt at a fixed path.
func (p *Product) IsFixed() bool {
	_, ok := p.Source.(*FixedSource)
	return ok
}

// IsVCS reports whether sources come from a version control system.
func (p *Product) IsVCS() bool {
	_, ok := p.Source.(*VCSSource)
	return ok
}

// IsPip reports whether the product is installed by pip.
func (p *Product) IsPip() bool {
	_, ok := p.Source.(*PipSource)
	return ok
}

// HasScript reports whether the product is built by its own script.
func (p *Product) HasScript() bool { return p.Build == BuildScript }

// IsAutotools reports whether the product uses configure and make.
func (p *Product) IsAutotools() bool { return p.Build == BuildAutotools }

// IsCMake reports whether the product uses cmake and make.
func (p *Product) IsCMake() bool { return p.Build == BuildCMake }

// IsMPI reports whether the product is built against MPI.
func (p *Product) IsMPI() bool { return p.TestProperty(PropIsMPI, yes) }

// HasGUI reports whether the product ships a GUI.
func (p *Product) HasGUI() bool { return p.TestProperty(PropHasGUI, yes) }

// InSingleInstallDir reports whether the product installs into the directory
// shared by the application's single-install-dir products.
func (p *Product) InSingleInstallDir() bool { return p.singleDir }

// PipIntoPython reports whether pip installs the product into the
// application's python interpreter instead of its own install dir.
func (p *Product) PipIntoPython() bool {
	return p.IsPip() && p.TestProperty(PropPipInstallDir, "python")
}

// SharedInstall reports whether the product's installed state cannot be
// derived from its install directory, because other products install there
// too. Such install directories are never removed on failure.
func (p *Product) SharedInstall() bool {
	return p.InSingleInstallDir() || p.PipIntoPython()
}
