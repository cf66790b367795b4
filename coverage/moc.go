package coverage

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-sif/xmatch"
	"github.com/tidwall/gjson"
)

// MOC is a multi-order coverage map: for each order, the covered tiles at that order
type MOC map[int][]uint64

// ParseMOCJSON parses the JSON serialization of a MOC, e.g. {"3":[1,2,3],"4":[64]}
func ParseMOCJSON(data []byte) (MOC, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("MOC is not valid JSON")
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("MOC JSON must be an object mapping orders to tile lists")
	}
	moc := make(MOC)
	var err error
	parsed.ForEach(func(key, value gjson.Result) bool {
		order, convErr := strconv.Atoi(key.String())
		if convErr != nil || order < 0 {
			err = fmt.Errorf("MOC order %q is not a non-negative integer", key.String())
			return false
		}
		if !value.IsArray() {
			err = fmt.Errorf("MOC order %d must map to an array of tiles", order)
			return false
		}
		for _, tile := range value.Array() {
			if tile.Type != gjson.Number {
				err = fmt.Errorf("MOC order %d contains a non-numeric tile %s", order, tile.Raw)
				return false
			}
			moc[order] = append(moc[order], tile.Uint())
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return moc, nil
}

// Orders returns the orders present in this MOC, in increasing order
func (m MOC) Orders() []int {
	orders := make([]int, 0, len(m))
	for order := range m {
		orders = append(orders, order)
	}
	sort.Ints(orders)
	return orders
}

// NumTiles returns the total number of tiles in this MOC
func (m MOC) NumTiles() int {
	n := 0
	for _, tiles := range m {
		n += len(tiles)
	}
	return n
}

type mocCoverage struct {
	levels []*Tiles
}

// NewMOC produces a Coverage from a MOC
func NewMOC(moc MOC, tiler Tiler) xmatch.Coverage {
	c := &mocCoverage{levels: make([]*Tiles, 0, len(moc))}
	for _, order := range moc.Orders() {
		c.levels = append(c.levels, NewTiles(order, moc[order], tiler))
	}
	return c
}

func (c *mocCoverage) Init(ctx context.Context) error {
	return nil
}

func (c *mocCoverage) Overlaps(ra float64, dec float64, radius float64) bool {
	for _, level := range c.levels {
		if level.Overlaps(ra, dec, radius) {
			return true
		}
	}
	return false
}
