// Package hclmanifest provides the concrete HCL implementation of the
// manifest.Source interface. It scans a package's manifest root for
// `*.plugin.hcl` files and translates their `library`/`class` blocks into
// format-agnostic manifest records.
package hclmanifest
