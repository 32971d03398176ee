package host

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/pluginhost/internal/ctxlog"
	"github.com/vk/pluginhost/internal/libpath"
	"github.com/vk/pluginhost/internal/lifecycle"
	"github.com/vk/pluginhost/internal/manifest"
	"github.com/vk/pluginhost/internal/registry"
)

// InstantiationError reports that the factory call inside a loaded library
// failed, returned nil, or produced an instance of the wrong capability.
type InstantiationError struct {
	Name string
	Type string
	Err  error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate class %q (type %q): %v", e.Name, e.Type, e.Err)
}

func (e *InstantiationError) Unwrap() error { return e.Err }

// Host creates instances of one base capability T from manifest-declared
// plugin libraries. All operations are safe for concurrent use.
type Host[T any] struct {
	reg      *registry.Registry
	resolver *libpath.Resolver
	mgr      *lifecycle.Manager
}

// New creates a Host over an already constructed registry, resolver, and
// lifecycle manager.
func New[T any](reg *registry.Registry, resolver *libpath.Resolver, mgr *lifecycle.Manager) *Host[T] {
	return &Host[T]{reg: reg, resolver: resolver, mgr: mgr}
}

// Refresh re-scans the manifest source. Instances created before a refresh
// are unaffected: they hold claims on library records, not descriptors.
func (h *Host[T]) Refresh(ctx context.Context) error {
	return h.reg.Refresh(ctx)
}

// Declared returns the sorted qualified names of all declared classes.
func (h *Host[T]) Declared() []string { return h.reg.Declared() }

// IsAvailable reports whether the qualified name is declared.
func (h *Host[T]) IsAvailable(name string) bool { return h.reg.IsAvailable(name) }

// Describe returns the full descriptor for a declared class.
func (h *Host[T]) Describe(name string) (manifest.Record, error) {
	return h.reg.Describe(name)
}

// RegisteredLibraries returns the distinct logical library names declared
// across the current registry.
func (h *Host[T]) RegisteredLibraries() []string { return h.reg.Libraries() }

// ShortName strips the package prefix from a qualified name.
func (h *Host[T]) ShortName(name string) string { return manifest.ShortName(name) }

// ClassLibraryPath resolves, without loading anything, the on-disk library
// path that would provide the named class.
func (h *Host[T]) ClassLibraryPath(ctx context.Context, name string) (string, error) {
	desc, err := h.reg.Describe(name)
	if err != nil {
		return "", err
	}
	return h.resolver.Resolve(ctx, desc.Library, desc.Package)
}

// IsLoaded reports whether the library providing the named class is
// currently loaded. Unknown or unresolvable classes report false.
func (h *Host[T]) IsLoaded(ctx context.Context, name string) bool {
	path, err := h.ClassLibraryPath(ctx, name)
	if err != nil {
		return false
	}
	return h.mgr.IsLoaded(path)
}

// LoadedPaths returns the sorted set of currently loaded library paths.
func (h *Host[T]) LoadedPaths() []string { return h.mgr.LoadedPaths() }

// LoadLibraryForClass adds an explicit claim on the library providing the
// named class, loading it if necessary. Each successful call must be paired
// with exactly one UnloadLibraryForClass.
func (h *Host[T]) LoadLibraryForClass(ctx context.Context, name string) error {
	path, err := h.ClassLibraryPath(ctx, name)
	if err != nil {
		return err
	}
	if _, err := h.mgr.Acquire(ctx, path); err != nil {
		return err
	}
	return nil
}

// UnloadLibraryForClass drops one claim on the library providing the named
// class and returns the number of claims remaining. The library is
// physically unloaded when the count reaches zero.
func (h *Host[T]) UnloadLibraryForClass(ctx context.Context, name string) (int, error) {
	path, err := h.ClassLibraryPath(ctx, name)
	if err != nil {
		return 0, err
	}
	return h.mgr.Release(ctx, path)
}

// instantiate performs the shared creation steps: descriptor lookup, path
// resolution, library acquisition, and the factory call. On any failure
// after acquisition the fresh claim is released again, so no refcount ever
// leaks on an error path.
func (h *Host[T]) instantiate(ctx context.Context, name string) (T, string, error) {
	logger := ctxlog.FromContext(ctx)
	var zero T

	desc, err := h.reg.Describe(name)
	if err != nil {
		return zero, "", err
	}

	path, err := h.resolver.Resolve(ctx, desc.Library, desc.Package)
	if err != nil {
		return zero, "", err
	}

	if _, err := h.mgr.Acquire(ctx, path); err != nil {
		return zero, "", err
	}

	lib, ok := h.mgr.Library(path)
	if !ok {
		// Unreachable while we hold the claim just acquired; guard anyway.
		h.releaseAfterFailure(ctx, path)
		return zero, "", &InstantiationError{Name: name, Type: desc.Type, Err: fmt.Errorf("library %s not loaded", path)}
	}

	raw, err := lib.Instantiate(desc.Type)
	if err != nil {
		h.releaseAfterFailure(ctx, path)
		return zero, "", &InstantiationError{Name: name, Type: desc.Type, Err: err}
	}

	instance, ok := raw.(T)
	if !ok {
		h.releaseAfterFailure(ctx, path)
		return zero, "", &InstantiationError{Name: name, Type: desc.Type,
			Err: fmt.Errorf("instance of type %T does not implement the requested base capability", raw)}
	}

	logger.Debug("Instance created.", "class", name, "type", desc.Type, "library", path)
	return instance, path, nil
}

// releaseAfterFailure undoes a just-acquired claim on an instantiation
// failure path. A release error here is secondary to the failure being
// reported, so it is only logged.
func (h *Host[T]) releaseAfterFailure(ctx context.Context, path string) {
	if _, err := h.mgr.Release(ctx, path); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to release library claim after instantiation failure.",
			"path", path, "error", err)
	}
}

// CreateManaged creates an instance of the named class wrapped in a Handle
// that releases the owning library's claim when closed.
func (h *Host[T]) CreateManaged(ctx context.Context, name string) (*Handle[T], error) {
	instance, path, err := h.instantiate(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Handle[T]{host: h, instance: instance, path: path, id: uuid.NewString()}, nil
}

// CreateUnmanaged creates a raw instance of the named class. The caller owns
// the instance and is obligated to redeem the returned token exactly once
// when discarding it; a forgotten token permanently leaks one claim on the
// owning library.
func (h *Host[T]) CreateUnmanaged(ctx context.Context, name string) (T, *ReleaseToken, error) {
	instance, path, err := h.instantiate(ctx, name)
	if err != nil {
		var zero T
		return zero, nil, err
	}
	return instance, &ReleaseToken{Name: name, path: path, id: uuid.NewString()}, nil
}

// ReleaseUnmanaged redeems a token from CreateUnmanaged, dropping the
// library claim the unmanaged instance held. Redeeming a token twice fails
// with *lifecycle.NotLoadedError.
func (h *Host[T]) ReleaseUnmanaged(ctx context.Context, token *ReleaseToken) (int, error) {
	if token.released.Swap(true) {
		return 0, &lifecycle.NotLoadedError{Path: token.path}
	}
	ctxlog.FromContext(ctx).Debug("Unmanaged instance released.", "class", token.Name, "instance_id", token.id)
	return h.mgr.Release(ctx, token.path)
}
