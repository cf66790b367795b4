package xmatch

import "context"

// Searcher is a client for a single positional-query protocol (cone search, SIA, SSA, TAP, ...).
// Searchers used with a parallel dispatcher must be safe for concurrent use.
type Searcher interface {
	// Search returns the records within radius degrees of (ra, dec). The returned Table may be nil
	// if nothing was found, though an empty Table with the correct Schema is preferred.
	Search(ctx context.Context, ra float64, dec float64, radius float64) (Table, error)
	// RaColumnIndex returns the index of the right ascension column in a result Schema, or -1 if unknown
	RaColumnIndex(result Schema) int
	// DecColumnIndex returns the index of the declination column in a result Schema, or -1 if unknown
	DecColumnIndex(result Schema) int
}

// Coverage is an admission-control oracle, used to avoid submitting queries which cannot produce results.
// Overlaps must never return false for a disc which truly intersects covered sky.
type Coverage interface {
	// Init prepares this Coverage for use, and may perform network or file I/O.
	// It is idempotent and safe to call concurrently.
	Init(ctx context.Context) error
	// Overlaps returns false only if the disc can be proven to miss all covered sky
	Overlaps(ra float64, dec float64, radius float64) bool
}
