package host

import (
	"context"
	"sync/atomic"

	"github.com/vk/pluginhost/internal/ctxlog"
	"github.com/vk/pluginhost/internal/lifecycle"
)

// Handle is a managed instance: closing it releases the claim it holds on
// the owning library, unloading the library if that was the last claim.
type Handle[T any] struct {
	host     *Host[T]
	instance T
	path     string
	id       string
	closed   atomic.Bool
}

// Instance returns the wrapped plugin instance. It must not be used after
// Close.
func (h *Handle[T]) Instance() T { return h.instance }

// ID returns the unique identifier assigned to this instance, for log
// correlation.
func (h *Handle[T]) ID() string { return h.id }

// LibraryPath returns the resolved path of the library the instance came
// from.
func (h *Handle[T]) LibraryPath() string { return h.path }

// Close releases the handle's library claim. Closing an already closed
// handle fails with *lifecycle.NotLoadedError, mirroring a double release.
func (h *Handle[T]) Close(ctx context.Context) error {
	if h.closed.Swap(true) {
		return &lifecycle.NotLoadedError{Path: h.path}
	}
	ctxlog.FromContext(ctx).Debug("Managed instance closed.", "instance_id", h.id, "library", h.path)
	_, err := h.host.mgr.Release(ctx, h.path)
	return err
}

// ReleaseToken is the release obligation paired with an unmanaged instance.
// It must be redeemed through Host.ReleaseUnmanaged exactly once.
type ReleaseToken struct {
	// Name is the qualified class name the instance was created from.
	Name string

	path     string
	id       string
	released atomic.Bool
}

// ID returns the unique identifier assigned to the unmanaged instance.
func (t *ReleaseToken) ID() string { return t.id }

// LibraryPath returns the resolved path of the owning library.
func (t *ReleaseToken) LibraryPath() string { return t.path }
