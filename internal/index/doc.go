// Package index implements a generic, persistable, multi-key search index.
//
// An Index owns a dense id -> location list and one Scheme per indexed
// attribute. Each KeyScheme keeps a sorted map from a coerced key value to
// the set of ids holding it (equality and range queries) plus a word map
// from every run of words in the value to the same id sets (contains
// queries).
//
// Queries never mutate the canonical index. Where returns a Query that reads
// the shared buckets and keeps a private Selected-Id Set; every operation
// intersects that selection with its match set, so chained calls are AND.
//
// Insertion and Import must not be mixed within one generation: Reset
// starts a fresh generation with ids renumbered from zero.
package index
