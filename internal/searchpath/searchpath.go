// Package searchpath provides the library-search-directory collaborator:
// the ordered set of directories the path resolver probes for shared
// libraries.
package searchpath

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

// EnvVar is the environment variable holding a list-separated set of extra
// library directories, in the style of LD_LIBRARY_PATH.
const EnvVar = "PLUGINHOST_LIBRARY_PATH"

// Provider yields the ordered library search directories. Order matters:
// earlier directories represent the currently preferred installation layout.
type Provider interface {
	Dirs() []string
}

// EnvProvider derives search directories from the process environment:
// first the EnvVar entries, then any explicitly configured extras, and
// finally the per-user default directory.
type EnvProvider struct {
	// Extra directories appended after the environment-provided ones,
	// typically from a -lib-path flag.
	Extra []string
}

// Dirs implements Provider. The environment is re-read on every call so a
// long-lived process observes installation changes.
func (p *EnvProvider) Dirs() []string {
	var dirs []string
	if v := os.Getenv(EnvVar); v != "" {
		dirs = append(dirs, filepath.SplitList(v)...)
	}
	dirs = append(dirs, p.Extra...)
	if home, err := homedir.Dir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".pluginhost", "lib"))
	}
	return dirs
}

// StaticProvider is a fixed directory list, useful for tests and for
// embedding applications that manage their own layout.
type StaticProvider []string

// Dirs implements Provider.
func (p StaticProvider) Dirs() []string { return p }
