// Package libpath resolves a logical library name to the absolute path of
// the shared object providing it. A single logical library may legitimately
// be installed under more than one layout convention in the same deployment,
// so resolution walks an ordered list of candidate-generation strategies and
// returns the first candidate that exists on disk.
package libpath
