// Package datastore holds the initial contents of every bound collection.
//
// The store has a single-phase lifecycle: Define once, then Seed any number
// of times. It is never mutated after Define; live state belongs to the
// weave engine. A second Define fails with ALREADY_INITIALIZED and the first
// value is kept, so the UI cannot be reseeded after it has diverged.
//
// Initial state may come from Go values, or from CUE, YAML or JSON files
// via LoadFile.
package datastore
