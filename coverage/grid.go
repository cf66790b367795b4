package coverage

import (
	"fmt"
	"math"

	"github.com/go-sif/xmatch/internal/sky"
)

// GridTiler is a Tiler over an equirectangular grid. At order k, the sky is divided into
// cells 90/2^k degrees on a side: 4*2^k columns of right ascension and 2*2^k bands of
// declination, numbered band*columns + column starting from ra 0, dec -90.
// It needs no external tessellation library, at the cost of coarse cells near the poles.
type GridTiler struct{}

// MaxGridOrder is the finest order supported by GridTiler
const MaxGridOrder = 20

// CellSize returns the side of a cell at the given order, in degrees
func (GridTiler) CellSize(order int) float64 {
	return 90 / math.Ldexp(1, order)
}

// Tile returns the cell containing a position
func (g GridTiler) Tile(order int, ra float64, dec float64) uint64 {
	cell := g.CellSize(order)
	nRa := int64(4) << uint(order)
	nDec := int64(2) << uint(order)
	col := int64(math.Floor(sky.NormalizeRa(ra) / cell))
	if col >= nRa {
		col = nRa - 1
	}
	band := int64(math.Floor((dec + 90) / cell))
	if band < 0 {
		band = 0
	} else if band >= nDec {
		band = nDec - 1
	}
	return uint64(band*nRa + col)
}

// DiscTiles returns the cells which intersect the bounding box of a disc
func (g GridTiler) DiscTiles(order int, ra float64, dec float64, radius float64) ([]uint64, error) {
	if order < 0 || order > MaxGridOrder {
		return nil, fmt.Errorf("Grid order %d must be between 0 and %d", order, MaxGridOrder)
	}
	if !sky.ValidPosition(ra, dec) || math.IsNaN(radius) || radius < 0 {
		return nil, fmt.Errorf("Invalid disc (%f, %f, %f)", ra, dec, radius)
	}
	cell := g.CellSize(order)
	nRa := int64(4) << uint(order)
	nDec := int64(2) << uint(order)
	minDec := math.Max(-90, dec-radius)
	maxDec := math.Min(90, dec+radius)
	minBand := int64(math.Floor((minDec + 90) / cell))
	maxBand := int64(math.Floor((maxDec + 90) / cell))
	if maxBand >= nDec {
		maxBand = nDec - 1
	}

	// ra half-width of the disc; the whole circle if the disc contains a pole
	allRa := minDec <= -90 || maxDec >= 90
	var halfWidth float64
	if !allRa {
		s := math.Sin(radius*math.Pi/180) / math.Cos(dec*math.Pi/180)
		if s >= 1 {
			allRa = true
		} else {
			halfWidth = math.Asin(s)*180/math.Pi + 1e-9
		}
	}
	var minCol, maxCol int64
	if allRa || 2*halfWidth >= 360 {
		minCol, maxCol = 0, nRa-1
	} else {
		minCol = int64(math.Floor((ra - halfWidth) / cell))
		maxCol = int64(math.Floor((ra + halfWidth) / cell))
		if maxCol-minCol >= nRa {
			minCol, maxCol = 0, nRa-1
		}
	}

	tiles := make([]uint64, 0, (maxBand-minBand+1)*(maxCol-minCol+1))
	for band := minBand; band <= maxBand; band++ {
		for c := minCol; c <= maxCol; c++ {
			col := ((c % nRa) + nRa) % nRa
			tiles = append(tiles, uint64(band*nRa+col))
		}
	}
	return tiles, nil
}
