package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vk/pluginhost/internal/ctxlog"
	"github.com/vk/pluginhost/internal/manifest"
)

// UnknownClassError reports a lookup of a qualified name the registry does
// not know. The message lists every declared name so a misspelling is
// obvious from the error alone.
type UnknownClassError struct {
	Name  string
	Known []string
}

func (e *UnknownClassError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("class %q is not declared in any loaded manifest, and no classes are declared at all", e.Name)
	}
	return fmt.Sprintf("class %q is not declared in any loaded manifest; declared classes are: %s",
		e.Name, strings.Join(e.Known, ", "))
}

// Registry holds the current descriptor map for one package and base
// capability type. All query operations are safe for concurrent use with
// Refresh.
type Registry struct {
	src      manifest.Source
	pkg      string
	baseType string

	mu      sync.RWMutex
	classes map[string]manifest.Record
}

// New creates an empty Registry for the given package and base capability.
// Call Refresh to perform the initial manifest scan.
func New(src manifest.Source, pkg, baseType string) *Registry {
	return &Registry{
		src:      src,
		pkg:      pkg,
		baseType: baseType,
		classes:  make(map[string]manifest.Record),
	}
}

// BaseType returns the base capability type this registry was built for.
func (r *Registry) BaseType() string { return r.baseType }

// Package returns the package identifier this registry scans.
func (r *Registry) Package() string { return r.pkg }

// Refresh re-queries the manifest source and atomically replaces the
// descriptor map. On a source failure the previous map is retained and a
// *manifest.SourceError is returned; callers must know discovery failed
// rather than silently see zero plugins. Duplicate qualified names resolve
// last-write-wins in the deterministic order the source yields records.
func (r *Registry) Refresh(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	records, err := r.src.Declared(ctx, r.pkg, r.baseType)
	if err != nil {
		var srcErr *manifest.SourceError
		if !errors.As(err, &srcErr) {
			err = &manifest.SourceError{Package: r.pkg, Err: err}
		}
		return err
	}

	next := make(map[string]manifest.Record, len(records))
	for _, rec := range records {
		if prev, ok := next[rec.Name]; ok {
			logger.Warn("Duplicate class declaration; later manifest wins.",
				"class", rec.Name, "kept", rec.ManifestPath, "overridden", prev.ManifestPath)
		}
		next[rec.Name] = rec
	}

	r.mu.Lock()
	r.classes = next
	r.mu.Unlock()

	logger.Info("Registry refreshed.", "package", r.pkg, "base", r.baseType, "classes", len(next))
	return nil
}

// Declared returns the sorted qualified names currently in the registry.
// The order is stable across repeated calls without an intervening Refresh.
func (r *Registry) Declared() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsAvailable reports whether the qualified name is currently declared.
func (r *Registry) IsAvailable(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[name]
	return ok
}

// Describe returns the descriptor for the qualified name, or an
// *UnknownClassError carrying the currently declared names.
func (r *Registry) Describe(name string) (manifest.Record, error) {
	r.mu.RLock()
	rec, ok := r.classes[name]
	r.mu.RUnlock()
	if !ok {
		return manifest.Record{}, &UnknownClassError{Name: name, Known: r.Declared()}
	}
	return rec, nil
}

// Libraries returns the sorted distinct logical library names across the
// current descriptor map.
func (r *Registry) Libraries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var libs []string
	for _, rec := range r.classes {
		if _, ok := seen[rec.Library]; ok {
			continue
		}
		seen[rec.Library] = struct{}{}
		libs = append(libs, rec.Library)
	}
	sort.Strings(libs)
	return libs
}
