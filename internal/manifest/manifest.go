package manifest

import (
	"context"
	"fmt"
)

// Record is one declared plugin implementation as discovered from a manifest.
type Record struct {
	// Name is the globally unique qualified name, conventionally
	// "<package>/<short name>".
	Name string

	// Type identifies the concrete implementation type inside the library.
	Type string

	// Base identifies the capability type the implementation provides.
	Base string

	// Description is free-form human text from the manifest.
	Description string

	// Package is the identifier of the package declaring the entry.
	Package string

	// Library is the logical library name, without path or platform extension.
	Library string

	// ManifestPath is the path of the manifest file the record came from,
	// retained for diagnostics.
	ManifestPath string

	// Metadata holds any free-form key/value pairs the manifest attached.
	Metadata map[string]string
}

// ShortName returns the record's name with the package prefix stripped.
func (r Record) ShortName() string {
	return ShortName(r.Name)
}

// ShortName strips the package prefix from a qualified name. Names without
// a prefix are returned unchanged.
func ShortName(qualified string) string {
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '/' {
			return qualified[i+1:]
		}
	}
	return qualified
}

// Source enumerates the plugin declarations of a package.
type Source interface {
	// Declared returns every record of the given package whose declared base
	// capability matches baseType. An empty baseType matches all records.
	Declared(ctx context.Context, pkg, baseType string) ([]Record, error)
}

// SourceError reports that manifest discovery itself failed. Callers must
// treat it as fatal to the refresh that triggered it; prior registry state
// stays valid.
type SourceError struct {
	Package string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("manifest discovery for package %q failed: %v", e.Package, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
