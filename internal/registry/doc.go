// Package registry maintains the qualified-name -> descriptor mapping for
// one base capability. It is populated from a manifest source and can be
// refreshed at runtime; the descriptor map is replaced wholesale and
// atomically on refresh, so concurrent readers never observe a partially
// rebuilt registry.
package registry
