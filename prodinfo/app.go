package prodinfo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platformbuild/pbuild/errutil"
)

// Directories under the workdir.
const (
	SourcesDir = "SOURCES"
	BuildDir   = "BUILD"
	InstallDir = "INSTALL"
	LogsDir    = "LOGS"
)

// PythonProduct is the product whose interpreter receives pip packages
// installed with pip_install_dir: python.
const PythonProduct = "python"

type appFile struct {
	Name                 string         `yaml:"name"`
	Workdir              string         `yaml:"workdir"`
	ArchiveDir           string         `yaml:"archive_dir"`
	Pip                  bool           `yaml:"pip"`
	SingleInstallDir     bool           `yaml:"single_install_dir"`
	SingleInstallDirName string         `yaml:"single_install_dir_name"`
	PythonMajor          int            `yaml:"python_major"`
	Products             []*productFile `yaml:"products"`
}

type productFile struct {
	Name             string            `yaml:"name"`
	Version          string            `yaml:"version"`
	Source           sourceFile        `yaml:"source"`
	Build            string            `yaml:"build"`
	Script           string            `yaml:"script"`
	ConfigureOptions []string          `yaml:"configure_options"`
	CMakeOptions     []string          `yaml:"cmake_options"`
	Depends          []string          `yaml:"depends"`
	BuildDepends     []string          `yaml:"build_depends"`
	Properties       map[string]string `yaml:"properties"`
}

// Application is the product store of one application file. Products keep
// the order they are declared in.
type Application struct {
	Name string

	// Workdir holds the SOURCES, BUILD, INSTALL and LOGS directories.
	Workdir string

	// ArchiveDir is where archives and pip wheels are downloaded to.
	ArchiveDir string

	// Pip is the application-wide pip property. Pip products are only
	// installed with pip when it is set.
	Pip bool

	SingleInstallDir     bool
	SingleInstallDirName string

	PythonMajor int

	products []*Product
	byName   map[string]*Product
}

// LoadApplication reads and validates an application file. A non-empty
// workdir overrides the one of the file. Relative paths in the file are
// relative to the file's directory.
func LoadApplication(path, workdir string) (*Application, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read application file: %w", err)
	}

	f := new(appFile)
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("decode application file %q: %w", path, err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("abs path of %q: %w", path, err)
	}

	if workdir == "" {
		workdir = f.Workdir
	}
	app, err := newApplication(f, base, workdir)
	if err != nil {
		return nil, errutil.Wrapf(err, "application %q", path)
	}
	return app, nil
}

func absUnder(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func newApplication(f *appFile, base, workdir string) (*Application, error) {
	if workdir == "" {
		workdir = "."
	}
	app := &Application{
		Name:                 f.Name,
		Workdir:              absUnder(base, workdir),
		ArchiveDir:           absUnder(base, f.ArchiveDir),
		Pip:                  f.Pip,
		SingleInstallDir:     f.SingleInstallDir,
		SingleInstallDirName: f.SingleInstallDirName,
		PythonMajor:          f.PythonMajor,
		byName:               make(map[string]*Product),
	}
	if app.ArchiveDir == "" {
		app.ArchiveDir = filepath.Join(app.Workdir, "ARCHIVES")
	}
	if app.SingleInstallDirName == "" {
		app.SingleInstallDirName = "common"
	}
	if app.PythonMajor == 0 {
		app.PythonMajor = 3
	}

	errs := new(errutil.List)
	for i, pf := range f.Products {
		if pf.Name == "" {
			errs.Addf("product #%d has no name", i)
			continue
		}
		if _, dup := app.byName[pf.Name]; dup {
			errs.Addf("product %q is declared twice", pf.Name)
			continue
		}

		p, err := newProduct(pf, base)
		if err != nil {
			errs.Add(errutil.Wrapf(err, "product %q", pf.Name))
			continue
		}
		p.singleDir = app.SingleInstallDir &&
			p.TestProperty(PropSingleInstallDir, yes)

		app.products = append(app.products, p)
		app.byName[p.Name] = p
	}

	for _, p := range app.products {
		if p.PipIntoPython() {
			if _, ok := app.byName[PythonProduct]; !ok {
				errs.Addf(
					"product %q installs into python, "+
						"but the application has no python product",
					p.Name,
				)
			}
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	for _, p := range app.products {
		app.resolvePaths(p)
	}
	return app, nil
}

func newProduct(f *productFile, base string) (*Product, error) {
	src, err := f.Source.source()
	if err != nil {
		return nil, err
	}
	switch s := src.(type) {
	case *FixedSource:
		s.Path = absUnder(base, s.Path)
	case *DirSource:
		s.Path = absUnder(base, s.Path)
	case *ArchiveSource:
		if !isRemoteURL(s.URL) {
			s.URL = absUnder(base, s.URL)
		}
	}

	build, ok := parseBuildMethod(f.Build)
	if !ok {
		return nil, fmt.Errorf("unknown build method %q", f.Build)
	}
	if build == BuildScript && f.Script == "" {
		return nil, fmt.Errorf("script build needs a script")
	}

	return &Product{
		Name:             f.Name,
		Version:          strings.TrimSpace(f.Version),
		Depends:          f.Depends,
		BuildDepends:     f.BuildDepends,
		Source:           src,
		Build:            build,
		Script:           absUnder(base, f.Script),
		ConfigureOptions: f.ConfigureOptions,
		CMakeOptions:     f.CMakeOptions,
		Properties:       f.Properties,
	}, nil
}

func isRemoteURL(u string) bool {
	return strings.HasPrefix(u, "s3://") || strings.HasPrefix(u, "oci://")
}

func (a *Application) installDir(p *Product) string {
	switch s := p.Source.(type) {
	case *NativeSource:
		return ""
	case *FixedSource:
		return s.Path
	}

	if p.PipIntoPython() {
		if py, ok := a.byName[PythonProduct]; ok && py != p {
			return a.installDir(py)
		}
	}
	if p.InSingleInstallDir() {
		return filepath.Join(a.Workdir, InstallDir, a.SingleInstallDirName)
	}
	return filepath.Join(a.Workdir, InstallDir, p.Name)
}

func (a *Application) resolvePaths(p *Product) {
	p.InstallDir = a.installDir(p)
	switch p.Source.(type) {
	case *NativeSource, *FixedSource:
		p.SourceDir = ""
		p.BuildDir = ""
	default:
		p.SourceDir = filepath.Join(a.Workdir, SourcesDir, p.Name)
		p.BuildDir = filepath.Join(a.Workdir, BuildDir, p.Name)
	}
}

// Refresh re-resolves the paths of the product. The pipeline calls it after
// removing an install directory.
func (a *Application) Refresh(p *Product) { a.resolvePaths(p) }

// Names returns the names of all products, in declaration order.
func (a *Application) Names() []string {
	names := make([]string, len(a.products))
	for i, p := range a.products {
		names[i] = p.Name
	}
	return names
}

// All returns every product, in declaration order.
func (a *Application) All() []*Product { return a.products }

// Product returns the product of the given name.
func (a *Application) Product(name string) (*Product, bool) {
	p, ok := a.byName[name]
	return p, ok
}

// Products returns the products of the given names, in the given order.
// Unknown names are reported together.
func (a *Application) Products(names []string) ([]*Product, error) {
	var ps []*Product
	errs := new(errutil.List)
	for _, name := range names {
		p, ok := a.byName[name]
		if !ok {
			errs.Addf("product %q is not in application %q", name, a.Name)
			continue
		}
		ps = append(ps, p)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return ps, nil
}

// LogFile is where the subprocess output of the product goes.
func (a *Application) LogFile(p *Product) string {
	return filepath.Join(a.Workdir, LogsDir, p.Name+".log")
}

// WheelsDir is where pip wheels are downloaded to.
func (a *Application) WheelsDir() string {
	return filepath.Join(a.ArchiveDir, "wheels")
}
