package procdrv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/platformbuild/pbuild/prodinfo"
)

// DefaultPip is the pip command used when the driver sets none.
const DefaultPip = "pip3"

// Driver turns the build steps of a product into commands and runs them.
// Every step returns the exit code of its command, 0 for success.
type Driver struct {
	Runner Runner

	// Out receives the output of every command, each preceded by its
	// command line.
	Out io.Writer

	// Env is added to the environment of every command.
	Env []string

	// MakeFlags are passed to make. A bare number N means -jN.
	MakeFlags string

	// Pip is the pip command. Empty means DefaultPip.
	Pip string
}

func (d *Driver) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *Driver) pip() string {
	if d.Pip == "" {
		return DefaultPip
	}
	return d.Pip
}

func (d *Driver) command(dir, name string, args ...string) *Command {
	return &Command{
		Name:   name,
		Args:   args,
		Dir:    dir,
		Env:    d.Env,
		Stdout: d.out(),
	}
}

func (d *Driver) run(ctx context.Context, cmd *Command) int {
	fmt.Fprintf(d.out(), "+ %s\n", cmd)
	code, err := d.Runner.Run(ctx, cmd)
	if err != nil {
		fmt.Fprintf(d.out(), "%s: %v\n", cmd.Name, err)
		if code == 0 {
			code = -1
		}
	}
	return code
}

func (d *Driver) inBuildDir(ctx context.Context, p *prodinfo.Product, cmd *Command) int {
	if err := os.MkdirAll(p.BuildDir, 0755); err != nil {
		fmt.Fprintf(d.out(), "make build dir: %v\n", err)
		return -1
	}
	return d.run(ctx, cmd)
}

// MakeArgs returns the make arguments of the flags string.
func MakeArgs(flags string) []string {
	fields := strings.Fields(flags)
	if len(fields) == 1 {
		if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
			return []string{"-j" + fields[0]}
		}
	}
	return fields
}

// Configure configures an autotools or cmake product in its build dir.
func (d *Driver) Configure(ctx context.Context, p *prodinfo.Product) int {
	var cmd *Command
	switch p.Build {
	case prodinfo.BuildAutotools:
		args := append([]string{"--prefix=" + p.InstallDir}, p.ConfigureOptions...)
		cmd = d.command(p.BuildDir, filepath.Join(p.SourceDir, "configure"), args...)
	case prodinfo.BuildCMake:
		args := []string{p.SourceDir, "-DCMAKE_INSTALL_PREFIX=" + p.InstallDir}
		args = append(args, p.CMakeOptions...)
		cmd = d.command(p.BuildDir, "cmake", args...)
	default:
		fmt.Fprintf(d.out(), "%s: nothing to configure for build %q\n", p.Name, p.Build)
		return 0
	}
	return d.inBuildDir(ctx, p, cmd)
}

// Make runs make in the product's build dir.
func (d *Driver) Make(ctx context.Context, p *prodinfo.Product) int {
	return d.inBuildDir(ctx, p, d.command(p.BuildDir, "make", MakeArgs(d.MakeFlags)...))
}

// MakeInstall runs make install in the product's build dir.
func (d *Driver) MakeInstall(ctx context.Context, p *prodinfo.Product) int {
	return d.inBuildDir(ctx, p, d.command(p.BuildDir, "make", "install"))
}

// Script runs the product's build script with bash in its build dir. The
// script finds its directories and make flags in the environment.
func (d *Driver) Script(ctx context.Context, p *prodinfo.Product) int {
	cmd := d.command(p.BuildDir, "bash", p.Script)
	cmd.Env = append(d.Env[:len(d.Env):len(d.Env)],
		"SOURCE_DIR="+p.SourceDir,
		"BUILD_DIR="+p.BuildDir,
		"INSTALL_DIR="+p.InstallDir,
		"MAKE_FLAGS="+d.MakeFlags,
		"PRODUCT_NAME="+p.Name,
		"PRODUCT_VERSION="+p.Version,
	)
	return d.inBuildDir(ctx, p, cmd)
}

// Check runs the self tests of a built product: make check for autotools,
// make test for cmake. Other products have no tests.
func (d *Driver) Check(ctx context.Context, p *prodinfo.Product) int {
	switch p.Build {
	case prodinfo.BuildAutotools:
		return d.run(ctx, d.command(p.BuildDir, "make", "check"))
	case prodinfo.BuildCMake:
		return d.run(ctx, d.command(p.BuildDir, "make", "test"))
	}
	fmt.Fprintf(d.out(), "%s: no tests for build %q\n", p.Name, p.Build)
	return 0
}

// PipVersion returns the major version of pip.
func (d *Driver) PipVersion(ctx context.Context) (int, error) {
	cmd := d.command("", d.pip(), "--version")
	out, err := d.Runner.Output(ctx, cmd)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", cmd, err)
	}
	return parsePipVersion(out)
}

// parsePipVersion reads the major version out of "pip 23.0.1 from ...".
func parsePipVersion(out string) (int, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "pip" {
		return 0, fmt.Errorf("unexpected pip version output %q", out)
	}
	major, _, _ := strings.Cut(fields[1], ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0, fmt.Errorf("parse pip version %q: %w", fields[1], err)
	}
	return n, nil
}

func pipRequirement(p *prodinfo.Product) string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "==" + p.Version
}

// PipDownload downloads the wheel of the product into dir.
func (d *Driver) PipDownload(ctx context.Context, p *prodinfo.Product, dir string) int {
	return d.run(ctx, d.command(
		"", d.pip(), "download",
		"--no-deps", "--only-binary=:all:",
		"--dest", dir,
		pipRequirement(p),
	))
}

// PipInstallOptions are the choices of a pip install.
type PipInstallOptions struct {
	// WheelsDir holds the downloaded wheels.
	WheelsDir string

	// BuildFlag and BuildDir give pip its working dir, with --build for
	// old pips and --cache-dir for newer ones.
	BuildFlag string
	BuildDir  string

	// Target installs into this dir instead of the interpreter's
	// site-packages when set.
	Target string
}

// PipInstall installs the product's wheel, without reaching the index.
func (d *Driver) PipInstall(ctx context.Context, p *prodinfo.Product, opts *PipInstallOptions) int {
	args := []string{
		"install", "--no-deps", "--disable-pip-version-check",
		"--no-index", "--find-links", opts.WheelsDir,
	}
	if opts.BuildFlag != "" {
		args = append(args, opts.BuildFlag, opts.BuildDir)
	}
	if opts.Target != "" {
		args = append(args, "--target", opts.Target)
	}
	args = append(args, pipRequirement(p))
	return d.run(ctx, d.command("", d.pip(), args...))
}
