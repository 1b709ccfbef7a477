package compile

import (
	"os"

	"github.com/platformbuild/pbuild/depgraph"
	"github.com/platformbuild/pbuild/prodinfo"
)

// clean removes what the options ask to rebuild before the product's
// build.
func (p *Pipeline) clean(prod *prodinfo.Product) {
	opts := p.opts()

	var build, install bool
	if opts.CleanAll {
		build, install = true, true
	} else {
		install = opts.CleanInstall
		build = opts.Force
	}
	if opts.Update && p.outdated(prod) {
		p.updated = append(p.updated, prod.Name)
		build, install = true, true
	}
	if !build && !install {
		return
	}

	p.enter(prod, StateClean)
	if build && prod.BuildDir != "" {
		p.logf("%s: removing build dir %s", prod.Name, prod.BuildDir)
		if err := os.RemoveAll(prod.BuildDir); err != nil {
			p.logf("%s: remove build dir: %v", prod.Name, err)
		}
	}
	if install {
		p.removeInstall(prod)
	}
}

// outdated reports whether an update run rebuilds the product: it depends
// on a product marked for update earlier in the run, or its sources are
// newer than its install. Marked products count whether or not their
// rebuild succeeded, since their install is gone either way.
func (p *Pipeline) outdated(prod *prodinfo.Product) bool {
	if p.Graph != nil && len(p.updated) > 0 {
		if path := depgraph.PathExists(p.Graph, prod.Name, p.updated); path != nil {
			p.logf("%s: rebuilding, depends on updated %s", prod.Name, path[len(path)-1])
			return true
		}
	}

	installed, err := os.Stat(prod.InstallDir)
	if err != nil {
		return false
	}
	sources, err := os.Stat(prod.SourceDir)
	if err != nil {
		return false
	}
	if installed.ModTime().Before(sources.ModTime()) {
		p.logf("%s: rebuilding, sources are newer than the install", prod.Name)
		return true
	}
	return false
}

// removeInstall removes the install of the product. Shared install dirs
// only lose the product's record.
func (p *Pipeline) removeInstall(prod *prodinfo.Product) {
	if prod.InstallDir == "" {
		return
	}
	if prod.SharedInstall() {
		p.logf("%s: removing build record from shared %s", prod.Name, prod.InstallDir)
		if err := prodinfo.RemoveRecord(prod); err != nil {
			p.logf("%s: remove build record: %v", prod.Name, err)
		}
	} else {
		p.logf("%s: removing install dir %s", prod.Name, prod.InstallDir)
		if err := os.RemoveAll(prod.InstallDir); err != nil {
			p.logf("%s: remove install dir: %v", prod.Name, err)
		}
	}
	p.App.Refresh(prod)
}

// cleanAfterFailure removes a partial install. Shared install dirs are
// left alone.
func (p *Pipeline) cleanAfterFailure(prod *prodinfo.Product) {
	if prod.SharedInstall() || prod.InstallDir == "" {
		return
	}
	p.logf("%s: removing partial install %s", prod.Name, prod.InstallDir)
	if err := os.RemoveAll(prod.InstallDir); err != nil {
		p.logf("%s: remove install dir: %v", prod.Name, err)
	}
}
