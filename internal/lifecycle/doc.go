// Package lifecycle owns the set of loaded dynamic libraries and their
// reference counts. It guarantees that for any given path there is at most
// one physical load outstanding, that open/close calls strictly alternate,
// and that a library is never closed while any claim on it remains.
//
// A claim is either an explicit load request or a live instance created from
// the library; both are counted identically. The invariant between calls is
// `state == Loaded <=> refcount > 0`.
package lifecycle
