// Package store provides fragment content stores.
//
// A store answers two questions and nothing more: "what is the raw text
// at this canonical path?" and "which path carries this metadata id?".
// Both answers model absence as a value. A store NEVER returns an error
// for missing content - absence is an expected, recoverable condition
// that the composer degrades to an empty fragment plus a diagnostic.
//
// Three implementations:
//
//   - FS: a directory tree of .md fragment files (the authoring format)
//   - Bundle: a packed SQLite file produced by Pack (the distribution
//     format)
//   - Memory: an in-memory map (tests and programmatic fragment sets)
//
// All three enumerate fragments in sorted path order, which is what
// makes id resolution deterministic: the first match in that order wins
// and the rest are reported as duplicates.
package store
