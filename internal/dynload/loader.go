// Package dynload defines the dynamic symbol loader collaborator: the one
// crossing point where the host calls into a runtime-loaded library to
// create instances. The lifecycle manager drives Open and Close; everything
// above it only sees the Library interface.
package dynload

// FactoriesSymbol is the exported symbol a plugin library must provide. Its
// value must be a `map[string]func() any` keyed by implementation type name.
const FactoriesSymbol = "PluginFactories"

// Library is an open dynamic library. Instantiate creates an instance of
// the named implementation type, transferring ownership to the caller.
type Library interface {
	Instantiate(typeName string) (any, error)
	Close() error
}

// Loader opens dynamic libraries by absolute path.
type Loader interface {
	Open(path string) (Library, error)
}
