package prodinfo

import (
	"context"
	"log"
	"os"
)

// SystemProbe answers whether a system package is installed.
type SystemProbe interface {
	PackageInstalled(ctx context.Context, name string) bool
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// CheckInstallation reports whether the product is installed. Native
// products ask the probe for each of their packages, fixed products need
// their path, and all others need a build record with the configured
// version.
func CheckInstallation(ctx context.Context, p *Product, probe SystemProbe) bool {
	switch s := p.Source.(type) {
	case *NativeSource:
		for _, pkg := range s.Packages {
			if probe == nil || !probe.PackageInstalled(ctx, pkg) {
				return false
			}
		}
		return true
	case *FixedSource:
		return exists(s.Path)
	}

	if p.InstallDir == "" {
		return false
	}
	r, err := ReadRecord(p)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("product %q: %v", p.Name, err)
		}
		return false
	}
	return SameVersion(r.Version, p.Version)
}

// CheckSource reports whether the sources of the product are present.
// Products that are not built from sources always pass.
func CheckSource(p *Product) bool {
	switch p.Source.(type) {
	case *NativeSource, *FixedSource, *PipSource:
		return true
	}
	entries, err := os.ReadDir(p.SourceDir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}
