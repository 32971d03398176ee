//go:build linux || darwin || freebsd

package dynload

import (
	"fmt"
	"plugin"
)

// GoLoader loads libraries built with `go build -buildmode=plugin`.
type GoLoader struct{}

// Open implements Loader. The plugin must export FactoriesSymbol as either
// a `map[string]func() any` value or a pointer to one.
func (GoLoader) Open(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin %s: %w", path, err)
	}

	sym, err := p.Lookup(FactoriesSymbol)
	if err != nil {
		return nil, fmt.Errorf("lookup %s in %s: %w", FactoriesSymbol, path, err)
	}

	var factories map[string]func() any
	switch v := sym.(type) {
	case map[string]func() any:
		factories = v
	case *map[string]func() any:
		factories = *v
	default:
		return nil, fmt.Errorf("symbol %s in %s has type %T, want map[string]func() any", FactoriesSymbol, path, sym)
	}

	return &goLibrary{path: path, factories: factories}, nil
}

type goLibrary struct {
	path      string
	factories map[string]func() any
}

// Instantiate implements Library.
func (l *goLibrary) Instantiate(typeName string) (any, error) {
	factory, ok := l.factories[typeName]
	if !ok {
		return nil, fmt.Errorf("library %s exports no factory for type %q", l.path, typeName)
	}
	instance := factory()
	if instance == nil {
		return nil, fmt.Errorf("factory for type %q in %s returned nil", typeName, l.path)
	}
	return instance, nil
}

// Close implements Library. The Go runtime never unloads a plugin once it is
// opened, so closing is a no-op here; the refcount machinery above this
// layer behaves identically either way.
func (l *goLibrary) Close() error { return nil }
