package lifecycle

import "fmt"

// LoadError reports that physically opening a library failed. The record is
// left Unloaded and may be retried.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load library %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// UnloadError reports that physically closing a library failed after its
// last claim was released. The record is still reset to Unloaded with a zero
// refcount so the next acquire retries the load.
type UnloadError struct {
	Path string
	Err  error
}

func (e *UnloadError) Error() string {
	return fmt.Sprintf("failed to unload library %s: %v", e.Path, e.Err)
}

func (e *UnloadError) Unwrap() error { return e.Err }

// NotLoadedError reports a release without a matching acquire. This is a
// programming error on the caller's side and is surfaced, never ignored.
type NotLoadedError struct {
	Path string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("library %s has no outstanding claim to release", e.Path)
}
