package libpath

import (
	"path/filepath"
	"runtime"

	"github.com/vk/pluginhost/internal/searchpath"
)

// DecoratedName returns the platform's conventional shared-library filename
// for a logical library name.
func DecoratedName(library string) string {
	switch runtime.GOOS {
	case "windows":
		return library + ".dll"
	case "darwin":
		return "lib" + library + ".dylib"
	default:
		return "lib" + library + ".so"
	}
}

// Strategy generates the candidate absolute paths one installation layout
// would place a library at. Strategies must not touch the filesystem; the
// resolver owns the existence check.
type Strategy interface {
	Candidates(library, pkg string) []string
}

// SearchPathStrategy generates one candidate per centrally registered
// library directory. This is the preferred, centralized layout.
type SearchPathStrategy struct {
	Provider searchpath.Provider
}

// Candidates implements Strategy.
func (s *SearchPathStrategy) Candidates(library, _ string) []string {
	name := DecoratedName(library)
	var out []string
	for _, dir := range s.Provider.Dirs() {
		out = append(out, filepath.Join(dir, name))
	}
	return out
}

// PackageLibStrategy generates the legacy per-package candidate
// `<package root>/lib/<decorated name>`. PackageRoot maps a package
// identifier to its root directory; packages it does not know yield no
// candidates.
type PackageLibStrategy struct {
	PackageRoot func(pkg string) (string, bool)
}

// Candidates implements Strategy.
func (s *PackageLibStrategy) Candidates(library, pkg string) []string {
	root, ok := s.PackageRoot(pkg)
	if !ok {
		return nil
	}
	return []string{filepath.Join(root, "lib", DecoratedName(library))}
}
