package fetch

import (
	"path/filepath"

	"github.com/platformbuild/pbuild/procdrv"
	"github.com/platformbuild/pbuild/prodinfo"
)

func svnCheckout(s *prodinfo.VCSSource, dir string) *procdrv.Command {
	args := []string{"checkout", "--non-interactive", "--quiet"}
	if s.Tag != "" {
		args = append(args, "-r", s.Tag)
	}
	args = append(args, s.Repo, dir)
	return &procdrv.Command{Name: "svn", Args: args}
}

// cvsCheckout checks out the module from the parent of dir, as cvs only
// takes a relative directory to check out into.
func cvsCheckout(s *prodinfo.VCSSource, dir string) *procdrv.Command {
	args := []string{"-Q", "-d", s.Repo, "checkout"}
	if s.Tag != "" {
		args = append(args, "-r", s.Tag)
	}
	args = append(args, "-d", filepath.Base(dir), s.Module)
	return &procdrv.Command{
		Name: "cvs",
		Args: args,
		Dir:  filepath.Dir(dir),
	}
}
