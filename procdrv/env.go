package procdrv

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/platformbuild/pbuild/prodinfo"
)

// Envs looks up environment variables.
type Envs interface {
	// Lookup returns the value of the environment variable named by the key.
	// If the variable is not present, it returns false.
	Lookup(string) (string, bool)
}

// OSEnvs looks up the environment of the current process.
type OSEnvs struct{}

// Lookup looks up the environment variable with os.LookupEnv.
func (OSEnvs) Lookup(name string) (string, bool) { return os.LookupEnv(name) }

// RootDirVar is the variable holding the install dir of a product, for
// example ZLIB_ROOT_DIR or PY_YAML_ROOT_DIR for py-yaml.
func RootDirVar(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return strings.ToUpper(r.Replace(name)) + "_ROOT_DIR"
}

type pathList struct {
	dirs []string
	seen map[string]bool
}

func (l *pathList) add(dir string) {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if !l.seen[dir] {
		l.seen[dir] = true
		l.dirs = append(l.dirs, dir)
	}
}

func (l *pathList) prependTo(envs Envs, key string) string {
	dirs := l.dirs
	if old, ok := envs.Lookup(key); ok && old != "" {
		dirs = append(dirs[:len(dirs):len(dirs)], old)
	}
	return key + "=" + strings.Join(dirs, string(os.PathListSeparator))
}

// BuildEnv returns the variables a build of a product sees on top of the
// current environment, given its installed dependencies: a root dir
// variable per dependency, and the dependencies' dirs in front of the
// search paths.
func BuildEnv(envs Envs, deps []*prodinfo.Product) []string {
	var env []string
	paths := map[string]*pathList{
		"PATH":              {},
		"LD_LIBRARY_PATH":   {},
		"CMAKE_PREFIX_PATH": {},
		"PKG_CONFIG_PATH":   {},
	}

	for _, dep := range deps {
		dir := dep.InstallDir
		if dir == "" {
			continue
		}
		env = append(env, RootDirVar(dep.Name)+"="+dir)
		paths["PATH"].add(filepath.Join(dir, "bin"))
		paths["LD_LIBRARY_PATH"].add(filepath.Join(dir, "lib"))
		paths["CMAKE_PREFIX_PATH"].add(dir)
		paths["PKG_CONFIG_PATH"].add(filepath.Join(dir, "lib", "pkgconfig"))
	}

	for _, key := range []string{
		"PATH", "LD_LIBRARY_PATH", "CMAKE_PREFIX_PATH", "PKG_CONFIG_PATH",
	} {
		if l := paths[key]; len(l.dirs) > 0 {
			env = append(env, l.prependTo(envs, key))
		}
	}
	return env
}
