package pbuild

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/platformbuild/pbuild/compile"
	"github.com/platformbuild/pbuild/prodinfo"
	"github.com/platformbuild/pbuild/subcmd"
)

// historyFile is where compile runs are recorded, under the workdir.
var historyFile = filepath.Join(".pbuild", "history.db")

// appFlags select the application and its products.
type appFlags struct {
	app      string
	workdir  string
	products string
}

func (f *appFlags) register(set *flag.FlagSet) {
	set.StringVar(&f.app, "app", "",
		"Application file; defaults to $"+envApp+".")
	set.StringVar(&f.workdir, "workdir", "",
		"Workdir overriding the one of the application file; "+
			"defaults to $"+envWorkdir+".")
}

func (f *appFlags) registerProducts(set *flag.FlagSet) {
	set.StringVar(&f.products, "products", "",
		"Comma separated products; empty means all products.")
}

// names returns the requested product names.
func (f *appFlags) names() []string {
	var names []string
	for _, name := range strings.Split(f.products, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

var errNoApp = errors.New("no application file, use -app or $" + envApp)

func (f *appFlags) load(env *subcmd.Env) (*prodinfo.Application, error) {
	file := f.app
	if file == "" {
		file = env.Get(envApp)
	}
	if file == "" {
		return nil, errNoApp
	}
	workdir := f.workdir
	if workdir == "" {
		workdir = env.Get(envWorkdir)
	}
	return prodinfo.LoadApplication(file, workdir)
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	set := flag.NewFlagSet("pbuild "+name, flag.ContinueOnError)
	set.SetOutput(out)
	return set
}

func parseFlags(set *flag.FlagSet, args []string) error {
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", set.Args())
	}
	return nil
}

// historyFlag is the -history flag. It is unset by default, which records
// into the workdir; set to an empty path it disables recording.
type historyFlag struct {
	path string
	set  bool
}

func (f *historyFlag) String() string { return f.path }

func (f *historyFlag) Set(v string) error {
	f.path, f.set = v, true
	return nil
}

func (f *historyFlag) file(app *prodinfo.Application) string {
	if f.set {
		return f.path
	}
	return filepath.Join(app.Workdir, historyFile)
}

type compileConfig struct {
	appFlags
	opts    compile.Options
	history historyFlag
}

func parseCompileConfig(args []string, out io.Writer) (*compileConfig, error) {
	set := newFlagSet("compile", out)
	cfg := new(compileConfig)
	cfg.register(set)
	cfg.registerProducts(set)

	o := &cfg.opts
	set.BoolVar(&o.Force, "force", false,
		"Rebuild products that are already installed.")
	set.BoolVar(&o.Update, "update", false,
		"Rebuild products with newer sources, and their dependents.")
	set.BoolVar(&o.WithFathers, "with_fathers", false,
		"Also build the dependencies of the products.")
	set.BoolVar(&o.WithChildren, "with_children", false,
		"Also build the products depending on the products.")
	set.BoolVar(&o.CleanAll, "clean_all", false,
		"Clean build and install dirs before building.")
	set.BoolVar(&o.CleanInstall, "clean_install", false,
		"Clean install dirs before building.")
	set.StringVar(&o.MakeFlags, "make_flags", "",
		"Flags for make; a number N means -jN.")
	set.BoolVar(&o.Show, "show", false,
		"Only show whether products are installed.")
	set.BoolVar(&o.StopFirstFail, "stop_first_fail", false,
		"Stop at the first product that fails.")
	set.BoolVar(&o.Check, "check", false,
		"Run the self tests of built products.")
	set.BoolVar(&o.CleanBuildAfter, "clean_build_after", false,
		"Remove the build dir of products built successfully.")
	set.Var(&cfg.history, "history",
		"History database; defaults to <workdir>/"+historyFile+
			", empty disables recording.")

	if err := parseFlags(set, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

type prepareConfig struct {
	appFlags
	withFathers bool
	force       bool
}

func parsePrepareConfig(args []string, out io.Writer) (*prepareConfig, error) {
	set := newFlagSet("prepare", out)
	cfg := new(prepareConfig)
	cfg.register(set)
	cfg.registerProducts(set)
	set.BoolVar(&cfg.withFathers, "with_fathers", false,
		"Also prepare the dependencies of the products.")
	set.BoolVar(&cfg.force, "force", false,
		"Fetch sources again even when present.")

	if err := parseFlags(set, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

type depsConfig struct {
	appFlags
	withFathers  bool
	withChildren bool
}

func parseDepsConfig(args []string, out io.Writer) (*depsConfig, error) {
	set := newFlagSet("deps", out)
	cfg := new(depsConfig)
	cfg.register(set)
	cfg.registerProducts(set)
	set.BoolVar(&cfg.withFathers, "with_fathers", false,
		"Add the dependencies of the products.")
	set.BoolVar(&cfg.withChildren, "with_children", false,
		"Add the products depending on the products.")

	if err := parseFlags(set, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

type historyConfig struct {
	appFlags
	n       int
	run     int64
	clear   bool
	history historyFlag
}

func parseHistoryConfig(args []string, out io.Writer) (*historyConfig, error) {
	set := newFlagSet("history", out)
	cfg := new(historyConfig)
	cfg.register(set)
	set.IntVar(&cfg.n, "n", 10, "Number of runs to print.")
	set.Int64Var(&cfg.run, "run", 0,
		"Print every product result of this run instead of the last runs.")
	set.BoolVar(&cfg.clear, "clear", false, "Remove all recorded runs.")
	set.Var(&cfg.history, "history",
		"History database; defaults to <workdir>/"+historyFile+".")

	if err := parseFlags(set, args); err != nil {
		return nil, err
	}
	if cfg.n <= 0 {
		return nil, fmt.Errorf("-n must be positive, got %d", cfg.n)
	}
	if cfg.run < 0 {
		return nil, fmt.Errorf("-run must be positive, got %d", cfg.run)
	}
	if cfg.clear && cfg.run != 0 {
		return nil, errors.New("-clear and -run are exclusive")
	}
	return cfg, nil
}
