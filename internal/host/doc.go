// Package host ties the registry, path resolver, lifecycle manager, and
// dynamic symbol loader together into the instance-creation facade. A
// Host[T] produces instances of a single base capability T, either wrapped
// in a managed Handle whose close releases the owning library's claim, or
// raw with an explicit ReleaseToken the caller must redeem exactly once.
package host
