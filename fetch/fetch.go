// Package fetch prepares the source directories of products: it clones
// repositories, unpacks archives, copies directories and downloads wheels.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/platformbuild/pbuild/procdrv"
	"github.com/platformbuild/pbuild/prodinfo"
)

// Fetcher fills the source directories of products.
type Fetcher struct {
	App    *prodinfo.Application
	Runner procdrv.Runner

	// Out receives the output of external tools and clone progress.
	Out io.Writer

	// Logger logs what is fetched. Nil means the standard logger.
	Logger *log.Logger

	// Force refetches sources that are already present.
	Force bool

	// S3 makes the client for s3:// archives. Nil means the default AWS
	// configuration.
	S3 func(ctx context.Context) (S3Client, error)

	// Pull fetches the image of oci:// archives. Nil means pulling from the
	// registry with the default keychain.
	Pull ImagePuller
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.Logger != nil {
		f.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (f *Fetcher) out() io.Writer {
	if f.Out == nil {
		return os.Stdout
	}
	return f.Out
}

// Fetch fills the source directory of the product. Sources that are
// already present are kept unless the fetcher forces refetching.
func (f *Fetcher) Fetch(ctx context.Context, p *prodinfo.Product) error {
	switch p.Source.(type) {
	case *prodinfo.NativeSource, *prodinfo.FixedSource:
		f.logf("%s: %s product, nothing to fetch", p.Name, p.Source.Method())
		return nil
	case *prodinfo.PipSource:
		return f.fetchPip(ctx, p)
	}

	if prodinfo.CheckSource(p) {
		if !f.Force {
			f.logf("%s: sources already in %s", p.Name, p.SourceDir)
			return nil
		}
		f.logf("%s: removing %s", p.Name, p.SourceDir)
	}
	if err := os.RemoveAll(p.SourceDir); err != nil {
		return fmt.Errorf("clear source dir of %q: %w", p.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(p.SourceDir), 0755); err != nil {
		return fmt.Errorf("make sources dir: %w", err)
	}

	var err error
	switch s := p.Source.(type) {
	case *prodinfo.VCSSource:
		err = f.fetchVCS(ctx, p, s)
	case *prodinfo.ArchiveSource:
		err = f.fetchArchive(ctx, p, s)
	case *prodinfo.DirSource:
		f.logf("%s: copying %s", p.Name, s.Path)
		err = copyDir(s.Path, p.SourceDir)
	default:
		err = fmt.Errorf("unsupported source %q", p.Source.Method())
	}
	if err != nil {
		os.RemoveAll(p.SourceDir)
		return fmt.Errorf("fetch %q: %w", p.Name, err)
	}
	return nil
}

func (f *Fetcher) fetchVCS(ctx context.Context, p *prodinfo.Product, s *prodinfo.VCSSource) error {
	switch s.VCS {
	case prodinfo.VCSGit:
		f.logf("%s: cloning %s at %q", p.Name, s.Repo, s.Tag)
		return cloneGit(ctx, s, p.SourceDir, f.out())
	case prodinfo.VCSSvn:
		f.logf("%s: checking out %s", p.Name, s.Repo)
		return f.run(ctx, svnCheckout(s, p.SourceDir))
	case prodinfo.VCSCvs:
		f.logf("%s: checking out %s from %s", p.Name, s.Module, s.Repo)
		return f.run(ctx, cvsCheckout(s, p.SourceDir))
	}
	return fmt.Errorf("unsupported vcs %q", s.VCS)
}

func (f *Fetcher) run(ctx context.Context, cmd *procdrv.Command) error {
	cmd.Stdout = f.out()
	code, err := f.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	if code != 0 {
		return fmt.Errorf("%q exited with %d", cmd, code)
	}
	return nil
}

func (f *Fetcher) fetchPip(ctx context.Context, p *prodinfo.Product) error {
	dir := f.App.WheelsDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("make wheels dir: %w", err)
	}
	f.logf("%s: downloading wheel into %s", p.Name, dir)
	d := &procdrv.Driver{Runner: f.Runner, Out: f.out()}
	if code := d.PipDownload(ctx, p, dir); code != 0 {
		return fmt.Errorf("download wheel of %q: pip exited with %d", p.Name, code)
	}
	return nil
}
