package procdrv

import (
	"context"
	"io"
	"os/exec"
	"strings"
)

// Package managers a PackageProbe can query.
const (
	ManagerRPM  = "rpm"
	ManagerDpkg = "dpkg"
)

// PackageProbe asks the system package manager whether packages are
// installed.
type PackageProbe struct {
	Runner  Runner
	Manager string
}

// NewPackageProbe makes a probe for the package manager found on the
// system. It prefers dpkg when both are present.
func NewPackageProbe(r Runner) *PackageProbe {
	manager := ManagerRPM
	if _, err := exec.LookPath("dpkg-query"); err == nil {
		manager = ManagerDpkg
	}
	return &PackageProbe{Runner: r, Manager: manager}
}

// dpkgInstalled is the status dpkg-query prints for an installed package.
// Removed packages keep a status, such as "deinstall ok config-files".
const dpkgInstalled = "install ok installed"

// PackageInstalled reports whether the package is installed.
func (p *PackageProbe) PackageInstalled(ctx context.Context, name string) bool {
	if p.Manager == ManagerDpkg {
		status, err := p.Runner.Output(ctx, &Command{
			Name: "dpkg-query",
			Args: []string{"-W", "-f=${Status}", name},
		})
		return err == nil && strings.TrimSpace(status) == dpkgInstalled
	}
	code, err := p.Runner.Run(ctx, &Command{
		Name:   "rpm",
		Args:   []string{"-q", name},
		Stdout: io.Discard,
	})
	return err == nil && code == 0
}
