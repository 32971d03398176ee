// Package manifest defines the format-agnostic plugin declaration model:
// the Record type produced by manifest discovery and the Source interface
// a concrete manifest backend must implement.
//
// The core of the system never parses a manifest format itself. Concrete
// implementations, such as the HCL one in the `hclmanifest` package, are
// injected wherever a Source is required.
package manifest
