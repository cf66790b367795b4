package util

import (
	"context"
	"fmt"

	"github.com/go-sif/xmatch"
)

// SearchFunc performs a single cone search
type SearchFunc func(ctx context.Context, ra float64, dec float64, radius float64) (xmatch.Table, error)

// SafeSearch wraps a Searcher such that panics are recovered and nice error messages are constructed
func SafeSearch(searcher xmatch.Searcher) SearchFunc {
	return func(ctx context.Context, ra float64, dec float64, radius float64) (result xmatch.Table, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = nil
				if anErr, ok := r.(error); ok {
					err = fmt.Errorf("Search Panic: %w\nCone: (%f, %f, %f)\n%s", anErr, ra, dec, radius, GetTrace())
				} else {
					err = fmt.Errorf("Search Panic: %v\nCone: (%f, %f, %f)\n%s", r, ra, dec, radius, GetTrace())
				}
			}
		}()
		result, err = searcher.Search(ctx, ra, dec, radius)
		return
	}
}

// SafeOverlaps evaluates coverage.Overlaps, treating a panic as an overlap.
// A nil Coverage overlaps everything.
func SafeOverlaps(coverage xmatch.Coverage, ra float64, dec float64, radius float64) (overlaps bool, panicked error) {
	if coverage == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			overlaps = true
			panicked = fmt.Errorf("Coverage Panic: %v\nCone: (%f, %f, %f)", r, ra, dec, radius)
		}
	}()
	return coverage.Overlaps(ra, dec, radius), nil
}
