//go:build !(linux || darwin || freebsd)

package dynload

import "fmt"

// GoLoader loads libraries built with `go build -buildmode=plugin`. Go
// plugins are not available on this platform.
type GoLoader struct{}

// Open implements Loader.
func (GoLoader) Open(path string) (Library, error) {
	return nil, fmt.Errorf("cannot open %s: go plugins are not supported on this platform", path)
}
