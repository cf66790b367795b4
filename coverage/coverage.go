// Package coverage provides admission control for cone searches. A Coverage may report an
// overlap for a disc which misses all covered sky, but never the reverse: whenever a
// Coverage cannot decide, it reports an overlap.
package coverage

import (
	"context"

	"github.com/go-sif/xmatch"
)

type full struct{}

// Full produces a Coverage which overlaps every disc
func Full() xmatch.Coverage {
	return full{}
}

func (full) Init(ctx context.Context) error {
	return nil
}

func (full) Overlaps(ra float64, dec float64, radius float64) bool {
	return true
}

// Tiler maps discs onto the tiles of a hierarchical sky tessellation, such as HEALPix.
// DiscTiles must return every tile at the given order which the disc touches, and may return more.
type Tiler interface {
	DiscTiles(order int, ra float64, dec float64, radius float64) ([]uint64, error)
}

// Tiles is a Coverage defined by a set of covered tiles at a single order
type Tiles struct {
	order int
	tiles map[uint64]struct{}
	tiler Tiler
}

// NewTiles produces a Coverage from the covered tiles at one order of tiler's tessellation
func NewTiles(order int, tiles []uint64, tiler Tiler) *Tiles {
	set := make(map[uint64]struct{}, len(tiles))
	for _, tile := range tiles {
		set[tile] = struct{}{}
	}
	return &Tiles{order: order, tiles: set, tiler: tiler}
}

// Init has nothing to do for Tiles
func (t *Tiles) Init(ctx context.Context) error {
	return nil
}

// Overlaps returns false only if none of the tiles touched by the disc is covered.
// If the Tiler fails, the disc is assumed to overlap.
func (t *Tiles) Overlaps(ra float64, dec float64, radius float64) bool {
	if len(t.tiles) == 0 {
		return false
	}
	touched, err := t.tiler.DiscTiles(t.order, ra, dec, radius)
	if err != nil {
		return true
	}
	for _, tile := range touched {
		if _, ok := t.tiles[tile]; ok {
			return true
		}
	}
	return false
}

// NumTiles returns the number of covered tiles
func (t *Tiles) NumTiles() int {
	return len(t.tiles)
}
