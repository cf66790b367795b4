package cone

import (
	"math"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/internal/sky"
)

// Match is a single row of a search result, with its angular distance from the search position.
// Distance is NaN if the row's position is unknown.
type Match struct {
	Row      []xmatch.Value
	Distance float64
}

// Score computes the distance of each result row from (ra, dec), reading positions from
// columns raIdx and decIdx. Negative column indices leave every distance unknown.
func Score(rows [][]xmatch.Value, raIdx int, decIdx int, ra float64, dec float64) []Match {
	matches := make([]Match, len(rows))
	for i, row := range rows {
		matches[i] = Match{Row: row, Distance: math.NaN()}
		if raIdx < 0 || decIdx < 0 || raIdx >= len(row) || decIdx >= len(row) {
			continue
		}
		rra, okRa := xmatch.ToFloat64(row[raIdx])
		rdec, okDec := xmatch.ToFloat64(row[decIdx])
		if okRa && okDec {
			matches[i].Distance = sky.Separation(ra, dec, rra, rdec)
		}
	}
	return matches
}

// WithinRadius drops the matches which lie further than radius from the search position.
// Matches of unknown distance are kept.
func WithinRadius(matches []Match, radius float64) []Match {
	kept := make([]Match, 0, len(matches))
	for _, m := range matches {
		if math.IsNaN(m.Distance) || m.Distance <= radius {
			kept = append(kept, m)
		}
	}
	return kept
}

// BestOnly keeps only the nearest match. If no distance is known, the first match is kept.
func BestOnly(matches []Match) []Match {
	if len(matches) == 0 {
		return matches
	}
	best := 0
	for i, m := range matches {
		if math.IsNaN(m.Distance) {
			continue
		}
		if math.IsNaN(matches[best].Distance) || m.Distance < matches[best].Distance {
			best = i
		}
	}
	return matches[best : best+1]
}
