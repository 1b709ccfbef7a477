package compile

// State is a step of the pipeline of one product.
type State string

// Pipeline states, in the order a product goes through them.
const (
	StateSkipNotCompilable State = "SKIP_NOT_COMPILABLE"
	StateSkipNative        State = "SKIP_NATIVE"
	StateSkipFixed         State = "SKIP_FIXED"

	StateClean                 State = "CLEAN"
	StateCheckSource           State = "CHECK_SOURCE"
	StateCheckAlreadyInstalled State = "CHECK_ALREADY_INSTALLED"
	StateCheckDependencies     State = "CHECK_DEPENDENCIES"
	StateBuild                 State = "BUILD"
	StatePostInstallCheck      State = "POST_INSTALL_CHECK"
	StateUnitTest              State = "UNIT_TEST"

	StateOK               State = "OK"
	StateKO               State = "KO"
	StateAlreadyInstalled State = "ALREADY_INSTALLED"
	StateShow             State = "SHOW"
)

// Terminal reports whether the pipeline of a product ends in the state.
func (s State) Terminal() bool {
	switch s {
	case StateSkipNotCompilable, StateSkipNative, StateSkipFixed,
		StateOK, StateKO, StateAlreadyInstalled, StateShow:
		return true
	}
	return false
}

// Labels of the step a product failed at.
const (
	LabelSources      = "SOURCES"
	LabelDependencies = "DEPENDENCIES"
	LabelConfigure    = "CONFIGURE"
	LabelMake         = "MAKE"
	LabelMakeInstall  = "MAKE INSTALL"
	LabelScript       = "SCRIPT"
	LabelPip          = "PIP"
	LabelNoInstallDir = "NO INSTALL DIR"
	LabelRecord       = "RECORD"
	LabelCheck        = "CHECK"
)
