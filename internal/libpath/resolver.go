package libpath

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/pluginhost/internal/ctxlog"
	"github.com/vk/pluginhost/internal/fsutil"
)

// NotFoundError reports that no candidate path existed for a library. Tried
// lists every candidate in the order the strategies produced them, which is
// what operators need to debug installation layout drift.
type NotFoundError struct {
	Library string
	Package string
	Tried   []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("library %q of package %q not found; tried: %s",
		e.Library, e.Package, strings.Join(e.Tried, ", "))
}

// Resolver resolves library names to absolute paths by walking its
// strategies in order. Resolution is deliberately uncached: installation
// state can change while the process runs, so every call re-walks the
// candidates.
type Resolver struct {
	strategies []Strategy
	exists     func(string) bool
}

// NewResolver creates a Resolver trying the given strategies in order. A nil
// exists function defaults to an os.Stat based check.
func NewResolver(exists func(string) bool, strategies ...Strategy) *Resolver {
	if exists == nil {
		exists = fsutil.Exists
	}
	return &Resolver{strategies: strategies, exists: exists}
}

// Append adds a site-specific strategy after the existing ones.
func (r *Resolver) Append(s Strategy) {
	r.strategies = append(r.strategies, s)
}

// Resolve returns the first existing candidate path for the library, or a
// *NotFoundError naming every candidate tried.
func (r *Resolver) Resolve(ctx context.Context, library, pkg string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	var tried []string
	for _, strategy := range r.strategies {
		for _, candidate := range strategy.Candidates(library, pkg) {
			if r.exists(candidate) {
				logger.Debug("Resolved library path.", "library", library, "package", pkg, "path", candidate)
				return candidate, nil
			}
			tried = append(tried, candidate)
		}
	}

	logger.Debug("No candidate path existed for library.", "library", library, "package", pkg, "tried", tried)
	return "", &NotFoundError{Library: library, Package: pkg, Tried: tried}
}
