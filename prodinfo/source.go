package prodinfo

import (
	"fmt"
)

// Source describes where the product comes from. It is one of *NativeSource,
// *FixedSource, *VCSSource, *ArchiveSource, *DirSource or *PipSource.
type Source interface {
	// Method is the get method name as written in the application file.
	Method() string

	isSource()
}

// NativeSource is a product provided by the system package manager.
type NativeSource struct {
	// Packages are the system packages that must be present.
	Packages []string
}

// FixedSource is a product prebuilt outside the workspace.
type FixedSource struct {
	Path string
}

// VCSMethod is a version control system.
type VCSMethod string

// Supported version control systems.
const (
	VCSGit VCSMethod = "git"
	VCSSvn VCSMethod = "svn"
	VCSCvs VCSMethod = "cvs"
)

// VCSSource is a product checked out from a repository.
type VCSSource struct {
	VCS    VCSMethod
	Repo   string
	Tag    string
	Module string // cvs module
	Depth  int    // git clone depth, 0 for full history
}

// ArchiveSource is a product unpacked from an archive. URL is a local path,
// an s3://bucket/key URL or an oci://registry/repo:tag reference.
type ArchiveSource struct {
	URL string
}

// DirSource is a product copied from a local directory.
type DirSource struct {
	Path string
}

// PipSource is a python package installed with pip from a wheel.
type PipSource struct{}

func (*NativeSource) Method() string  { return "native" }
func (*FixedSource) Method() string   { return "fixed" }
func (s *VCSSource) Method() string   { return string(s.VCS) }
func (*ArchiveSource) Method() string { return "archive" }
func (*DirSource) Method() string     { return "dir" }
func (*PipSource) Method() string     { return "pip" }

func (*NativeSource) isSource()  {}
func (*FixedSource) isSource()   {}
func (*VCSSource) isSource()     {}
func (*ArchiveSource) isSource() {}
func (*DirSource) isSource()     {}
func (*PipSource) isSource()     {}

type sourceFile struct {
	Method   string   `yaml:"method"`
	Repo     string   `yaml:"repo,omitempty"`
	Tag      string   `yaml:"tag,omitempty"`
	Module   string   `yaml:"module,omitempty"`
	Depth    int      `yaml:"depth,omitempty"`
	URL      string   `yaml:"url,omitempty"`
	Path     string   `yaml:"path,omitempty"`
	Packages []string `yaml:"packages,omitempty"`
}

func (f *sourceFile) source() (Source, error) {
	switch f.Method {
	case "native":
		return &NativeSource{Packages: f.Packages}, nil
	case "fixed":
		if f.Path == "" {
			return nil, fmt.Errorf("fixed source needs a path")
		}
		return &FixedSource{Path: f.Path}, nil
	case "git", "svn":
		if f.Repo == "" {
			return nil, fmt.Errorf("%s source needs a repo", f.Method)
		}
		return &VCSSource{
			VCS:   VCSMethod(f.Method),
			Repo:  f.Repo,
			Tag:   f.Tag,
			Depth: f.Depth,
		}, nil
	case "cvs":
		if f.Repo == "" || f.Module == "" {
			return nil, fmt.Errorf("cvs source needs a repo and a module")
		}
		return &VCSSource{
			VCS:    VCSCvs,
			Repo:   f.Repo,
			Tag:    f.Tag,
			Module: f.Module,
		}, nil
	case "archive":
		if f.URL == "" {
			return nil, fmt.Errorf("archive source needs a url")
		}
		return &ArchiveSource{URL: f.URL}, nil
	case "dir":
		if f.Path == "" {
			return nil, fmt.Errorf("dir source needs a path")
		}
		return &DirSource{Path: f.Path}, nil
	case "pip":
		return &PipSource{}, nil
	case "":
		return nil, fmt.Errorf("source method is missing")
	}
	return nil, fmt.Errorf("unknown source method %q", f.Method)
}
