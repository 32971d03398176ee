// Package dynloadtest provides an in-memory fake of the dynload collaborator
// for tests. The fake records every physical open and close so tests can
// assert on the exact call sequence the lifecycle machinery produced.
package dynloadtest

import (
	"fmt"
	"sync"

	"github.com/vk/pluginhost/internal/dynload"
)

// FakeLoader is a dynload.Loader serving factories from memory.
type FakeLoader struct {
	mu        sync.Mutex
	factories map[string]map[string]func() any
	openErr   map[string]error
	closeErr  map[string]error
	opens     []string
	closes    []string
}

// NewFakeLoader creates an empty FakeLoader.
func NewFakeLoader() *FakeLoader {
	return &FakeLoader{
		factories: make(map[string]map[string]func() any),
		openErr:   make(map[string]error),
		closeErr:  make(map[string]error),
	}
}

// AddLibrary registers a loadable library at path with the given factory map.
func (l *FakeLoader) AddLibrary(path string, factories map[string]func() any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[path] = factories
}

// FailOpen makes every subsequent Open of path fail with err.
func (l *FakeLoader) FailOpen(path string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.openErr[path] = err
}

// FailClose makes every subsequent Close of the library at path fail with
// err. Passing nil clears the failure again.
func (l *FakeLoader) FailClose(path string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.closeErr, path)
		return
	}
	l.closeErr[path] = err
}

// Open implements dynload.Loader.
func (l *FakeLoader) Open(path string) (dynload.Library, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.openErr[path]; err != nil {
		return nil, err
	}
	factories, ok := l.factories[path]
	if !ok {
		return nil, fmt.Errorf("no such library: %s", path)
	}
	l.opens = append(l.opens, path)
	return &fakeLibrary{loader: l, path: path, factories: factories}, nil
}

// Opens returns the paths physically opened, in order.
func (l *FakeLoader) Opens() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.opens...)
}

// Closes returns the paths physically closed, in order.
func (l *FakeLoader) Closes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.closes...)
}

// OpenCount returns how many times path was physically opened.
func (l *FakeLoader) OpenCount(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.opens {
		if p == path {
			n++
		}
	}
	return n
}

// CloseCount returns how many times path was physically closed.
func (l *FakeLoader) CloseCount(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.closes {
		if p == path {
			n++
		}
	}
	return n
}

type fakeLibrary struct {
	loader    *FakeLoader
	path      string
	factories map[string]func() any
}

// Instantiate implements dynload.Library.
func (f *fakeLibrary) Instantiate(typeName string) (any, error) {
	factory, ok := f.factories[typeName]
	if !ok {
		return nil, fmt.Errorf("library %s exports no factory for type %q", f.path, typeName)
	}
	instance := factory()
	if instance == nil {
		return nil, fmt.Errorf("factory for type %q in %s returned nil", typeName, f.path)
	}
	return instance, nil
}

// Close implements dynload.Library.
func (f *fakeLibrary) Close() error {
	f.loader.mu.Lock()
	defer f.loader.mu.Unlock()
	if err := f.loader.closeErr[f.path]; err != nil {
		return err
	}
	f.loader.closes = append(f.loader.closes, f.path)
	return nil
}
