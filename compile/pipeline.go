package compile

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/platformbuild/pbuild/depgraph"
	"github.com/platformbuild/pbuild/fetch"
	"github.com/platformbuild/pbuild/procdrv"
	"github.com/platformbuild/pbuild/prodinfo"
)

// Pipeline builds products one at a time.
type Pipeline struct {
	App    *prodinfo.Application
	Runner procdrv.Runner

	// Probe answers for the packages of native products.
	Probe prodinfo.SystemProbe

	// Envs is the environment build commands start from. Nil means the
	// environment of the process.
	Envs procdrv.Envs

	// Logger logs every state a product goes through. Nil means the
	// standard logger.
	Logger *log.Logger

	Options *Options

	// Graph is the full graph of the application. Update runs need it to
	// find the products depending on a rebuilt one.
	Graph *depgraph.Graph

	// Pip is the pip command. Empty means procdrv.DefaultPip.
	Pip string

	// updated are the products an update run cleaned for a rebuild.
	updated []string
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (p *Pipeline) enter(prod *prodinfo.Product, s State) {
	p.logf("%s: %s", prod.Name, s)
}

func (p *Pipeline) opts() *Options {
	if p.Options == nil {
		return &Options{}
	}
	return p.Options
}

// Run builds the products in order. Products must come in build order
// with their transitive dependencies attached, as PlanProducts returns
// them.
func (p *Pipeline) Run(ctx context.Context, plan []*prodinfo.Product) *Report {
	report := &Report{Planned: len(plan)}
	for _, prod := range plan {
		if err := ctx.Err(); err != nil {
			p.logf("run cancelled: %v", err)
			report.Stopped = true
			break
		}

		start := time.Now()
		res := p.runProduct(ctx, prod)
		res.Duration = time.Since(start)
		report.add(res)

		if res.Failed() && p.opts().StopFirstFail {
			p.logf("%s failed, stopping", prod.Name)
			report.Stopped = len(report.Results) < len(plan)
			break
		}
	}
	return report
}

func (p *Pipeline) finish(prod *prodinfo.Product, res *Result, s State) *Result {
	res.State = s
	p.enter(prod, s)
	return res
}

func (p *Pipeline) fail(prod *prodinfo.Product, res *Result, label string) *Result {
	res.State = StateKO
	res.Label = label
	p.logf("%s: %s at %s", prod.Name, StateKO, label)
	return res
}

func (p *Pipeline) runProduct(ctx context.Context, prod *prodinfo.Product) *Result {
	res := &Result{Product: prod.Name}
	opts := p.opts()

	switch {
	case !prod.Compiles():
		return p.finish(prod, res, StateSkipNotCompilable)
	case prod.IsNative():
		return p.finish(prod, res, StateSkipNative)
	case prod.IsFixed():
		if _, err := os.Stat(prod.InstallDir); err != nil {
			p.logf("%s: warning: fixed path %s is missing", prod.Name, prod.InstallDir)
		}
		return p.finish(prod, res, StateSkipFixed)
	}

	if !opts.Show {
		p.clean(prod)

		if !prod.IsPip() {
			p.enter(prod, StateCheckSource)
			if !prodinfo.CheckSource(prod) {
				p.logf("%s: no sources in %s", prod.Name, prod.SourceDir)
				return p.fail(prod, res, LabelSources)
			}
		}
	}

	if !opts.Force {
		p.enter(prod, StateCheckAlreadyInstalled)
		if prodinfo.CheckInstallation(ctx, prod, p.Probe) {
			res.Installed = true
			if opts.Show {
				return p.finish(prod, res, StateShow)
			}
			return p.finish(prod, res, StateAlreadyInstalled)
		}
	}

	if opts.Show {
		res.Installed = prodinfo.CheckInstallation(ctx, prod, p.Probe)
		if !res.Installed {
			p.logf("%s: not installed", prod.Name)
		}
		return p.finish(prod, res, StateShow)
	}

	p.enter(prod, StateCheckDependencies)
	if missing := p.missingDeps(ctx, prod); len(missing) > 0 {
		res.Missing = missing
		return p.fail(prod, res, LabelDependencies)
	}

	out, closeLog := p.openLog(prod)
	defer closeLog()
	tail := procdrv.NewTailWriter(0)
	d := &procdrv.Driver{
		Runner:    p.Runner,
		Out:       io.MultiWriter(out, tail),
		Env:       procdrv.BuildEnv(p.envs(), p.deps(prod)),
		MakeFlags: opts.MakeFlags,
		Pip:       p.Pip,
	}

	p.enter(prod, StateBuild)
	if label := p.build(ctx, prod, d); label != "" {
		p.printTail(prod, tail)
		p.cleanAfterFailure(prod)
		return p.fail(prod, res, label)
	}

	p.enter(prod, StatePostInstallCheck)
	if _, err := os.Stat(prod.InstallDir); err != nil {
		p.logf("%s: install dir %s is missing after the build", prod.Name, prod.InstallDir)
		p.cleanAfterFailure(prod)
		return p.fail(prod, res, LabelNoInstallDir)
	}
	if err := p.writeRecord(prod); err != nil {
		p.logf("%s: %v", prod.Name, err)
		p.cleanAfterFailure(prod)
		return p.fail(prod, res, LabelRecord)
	}
	if opts.Check {
		p.enter(prod, StateUnitTest)
		if code := d.Check(ctx, prod); code != 0 {
			p.printTail(prod, tail)
			return p.fail(prod, res, LabelCheck)
		}
	}

	if opts.CleanBuildAfter {
		p.logf("%s: removing build dir %s", prod.Name, prod.BuildDir)
		if err := os.RemoveAll(prod.BuildDir); err != nil {
			p.logf("%s: remove build dir: %v", prod.Name, err)
		}
	}
	return p.finish(prod, res, StateOK)
}

func (p *Pipeline) envs() procdrv.Envs {
	if p.Envs == nil {
		return procdrv.OSEnvs{}
	}
	return p.Envs
}

func (p *Pipeline) deps(prod *prodinfo.Product) []*prodinfo.Product {
	var deps []*prodinfo.Product
	for _, name := range prod.DependAll {
		if dep, ok := p.App.Product(name); ok {
			deps = append(deps, dep)
		}
	}
	return deps
}

// missingDeps returns the transitive dependencies that are not installed.
func (p *Pipeline) missingDeps(ctx context.Context, prod *prodinfo.Product) []string {
	var missing []string
	for _, name := range prod.DependAll {
		dep, ok := p.App.Product(name)
		if !ok || !dep.Compiles() {
			continue
		}
		if !prodinfo.CheckInstallation(ctx, dep, p.Probe) {
			missing = append(missing, name)
		}
	}
	return missing
}

// openLog opens the log file of the product. The build still runs when
// the log cannot be opened, with its output only kept in the tail.
func (p *Pipeline) openLog(prod *prodinfo.Product) (io.Writer, func()) {
	f := p.App.LogFile(prod)
	if err := os.MkdirAll(filepath.Dir(f), 0755); err != nil {
		p.logf("%s: make log dir: %v", prod.Name, err)
		return io.Discard, func() {}
	}
	w, err := os.Create(f)
	if err != nil {
		p.logf("%s: create log file: %v", prod.Name, err)
		return io.Discard, func() {}
	}
	p.logf("%s: logging to %s", prod.Name, f)
	return w, func() { w.Close() }
}

func (p *Pipeline) printTail(prod *prodinfo.Product, tail *procdrv.TailWriter) {
	if s := tail.String(); s != "" {
		p.logf("%s: last output:\n%s", prod.Name, s)
	}
}

func (p *Pipeline) writeRecord(prod *prodinfo.Product) error {
	rev := ""
	if prod.IsVCS() {
		rev = fetch.Revision(prod.SourceDir)
	}
	return prodinfo.WriteRecord(prod, p.App.NewRecord(prod, rev))
}
