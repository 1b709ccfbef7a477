package compile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/platformbuild/pbuild/procdrv"
	"github.com/platformbuild/pbuild/prodinfo"
)

// opensslProduct must be installed before pip can reach package indexes.
const opensslProduct = "openssl"

// build runs the build steps of the product and returns the label of the
// step that failed, or an empty string.
func (p *Pipeline) build(ctx context.Context, prod *prodinfo.Product, d *procdrv.Driver) string {
	switch {
	case prod.IsPip():
		return p.buildPip(ctx, prod, d)
	case prod.HasScript():
		p.logf("%s: SCRIPT %s", prod.Name, prod.Script)
		if code := d.Script(ctx, prod); code != 0 {
			return LabelScript
		}
		return ""
	case prod.IsAutotools(), prod.IsCMake():
		return p.buildMake(ctx, prod, d)
	}
	p.logf("%s: no build method, nothing to build", prod.Name)
	return ""
}

func (p *Pipeline) buildMake(ctx context.Context, prod *prodinfo.Product, d *procdrv.Driver) string {
	for _, step := range []struct {
		label string
		run   func(context.Context, *prodinfo.Product) int
	}{
		{LabelConfigure, d.Configure},
		{LabelMake, d.Make},
		{LabelMakeInstall, d.MakeInstall},
	} {
		p.logf("%s: %s", prod.Name, step.label)
		if code := step.run(ctx, prod); code != 0 {
			p.logf("%s: %s exited with %d", prod.Name, step.label, code)
			return step.label
		}
	}
	return ""
}

// pipBuildFlag returns the flag that gives pip its working dir. Pip 21
// dropped --build, so the choice keys on the major version of pip itself,
// not on the python version.
func pipBuildFlag(major int) string {
	if major < 21 {
		return "--build"
	}
	return "--cache-dir"
}

// SitePackages is where pip installs a product that has its own install
// dir.
func SitePackages(app *prodinfo.Application, prod *prodinfo.Product) string {
	return filepath.Join(
		prod.InstallDir, "lib",
		fmt.Sprintf("python%d", app.PythonMajor), "site-packages",
	)
}

func (p *Pipeline) buildPip(ctx context.Context, prod *prodinfo.Product, d *procdrv.Driver) string {
	p.logf("%s: %s", prod.Name, LabelPip)
	if !p.App.Pip {
		p.logf("%s: the application does not use pip", prod.Name)
		return LabelPip
	}
	if ssl, ok := p.App.Product(opensslProduct); ok {
		if !prodinfo.CheckInstallation(ctx, ssl, p.Probe) {
			p.logf("%s: %s is not installed, pip cannot work", prod.Name, opensslProduct)
			return LabelPip
		}
	}

	wheels := p.App.WheelsDir()
	if err := os.MkdirAll(wheels, 0755); err != nil {
		p.logf("%s: make wheels dir: %v", prod.Name, err)
		return LabelPip
	}
	if code := d.PipDownload(ctx, prod, wheels); code != 0 {
		p.logf("%s: wheel download exited with %d, using %s as is", prod.Name, code, wheels)
	}

	major, err := d.PipVersion(ctx)
	if err != nil {
		p.logf("%s: %v", prod.Name, err)
		return LabelPip
	}
	opts := &procdrv.PipInstallOptions{
		WheelsDir: wheels,
		BuildFlag: pipBuildFlag(major),
		BuildDir:  prod.BuildDir,
	}
	if !prod.PipIntoPython() {
		opts.Target = SitePackages(p.App, prod)
	}
	if code := d.PipInstall(ctx, prod, opts); code != 0 {
		p.logf("%s: pip install exited with %d", prod.Name, code)
		return LabelPip
	}
	return ""
}
