// Package testing provides fakes and helpers for testing code which depends on xmatch.
// It is conventionally imported as xmtest.
package testing

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/internal/sky"
	"github.com/go-sif/xmatch/schema"
	"github.com/go-sif/xmatch/table"
)

// SearchFunc implements a FakeSearcher's searches
type SearchFunc func(ctx context.Context, ra float64, dec float64, radius float64) (xmatch.Table, error)

// FakeSearcher is a Searcher whose behaviour is supplied by a function. It counts its
// invocations, can add a random delay to each, and records the peak number of concurrent searches.
type FakeSearcher struct {
	Fn         SearchFunc
	MaxLatency time.Duration
	calls      int64
	inFlight   int64
	peak       int64
	randLock   sync.Mutex
	rand       *rand.Rand
}

// NewFakeSearcher produces a FakeSearcher which delays each search by up to maxLatency
func NewFakeSearcher(fn SearchFunc, maxLatency time.Duration) *FakeSearcher {
	return &FakeSearcher{Fn: fn, MaxLatency: maxLatency, rand: rand.New(rand.NewSource(1))}
}

// Search invokes Fn after a random delay, returning early if ctx is done
func (s *FakeSearcher) Search(ctx context.Context, ra float64, dec float64, radius float64) (xmatch.Table, error) {
	atomic.AddInt64(&s.calls, 1)
	current := atomic.AddInt64(&s.inFlight, 1)
	defer atomic.AddInt64(&s.inFlight, -1)
	for {
		peak := atomic.LoadInt64(&s.peak)
		if current <= peak || atomic.CompareAndSwapInt64(&s.peak, peak, current) {
			break
		}
	}
	if s.MaxLatency > 0 {
		s.randLock.Lock()
		delay := time.Duration(s.rand.Int63n(int64(s.MaxLatency)))
		s.randLock.Unlock()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Fn(ctx, ra, dec, radius)
}

// RaColumnIndex returns the index of a column named "ra", or -1
func (s *FakeSearcher) RaColumnIndex(result xmatch.Schema) int {
	return columnIndex(result, "ra")
}

// DecColumnIndex returns the index of a column named "dec", or -1
func (s *FakeSearcher) DecColumnIndex(result xmatch.Schema) int {
	return columnIndex(result, "dec")
}

// Calls returns the number of searches performed so far
func (s *FakeSearcher) Calls() int64 {
	return atomic.LoadInt64(&s.calls)
}

// PeakConcurrency returns the greatest number of searches which were ever in progress at once
func (s *FakeSearcher) PeakConcurrency() int64 {
	return atomic.LoadInt64(&s.peak)
}

func columnIndex(s xmatch.Schema, name string) int {
	col, err := s.GetOffset(name)
	if err != nil {
		return -1
	}
	return col.Index()
}

// CatalogSearcher is a Searcher over an in-memory catalog with "ra" and "dec" columns.
// It returns every catalog row within the search radius, plus any rows within Slop degrees beyond it,
// as remote services commonly do.
type CatalogSearcher struct {
	Catalog *table.Memory
	Slop    float64
	raIdx   int
	decIdx  int
}

// NewCatalogSearcher produces a CatalogSearcher
func NewCatalogSearcher(catalog *table.Memory, slop float64) (*CatalogSearcher, error) {
	s := &CatalogSearcher{Catalog: catalog, Slop: slop}
	s.raIdx = columnIndex(catalog.Schema(), "ra")
	s.decIdx = columnIndex(catalog.Schema(), "dec")
	if s.raIdx < 0 || s.decIdx < 0 {
		return nil, fmt.Errorf("Catalog must contain ra and dec columns")
	}
	return s, nil
}

// Search returns the catalog rows within radius+Slop of (ra, dec)
func (s *CatalogSearcher) Search(ctx context.Context, ra float64, dec float64, radius float64) (xmatch.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := table.Empty("result", s.Catalog.Schema(), "")
	for i := int64(0); i < s.Catalog.RowCount(); i++ {
		row, err := s.Catalog.GetRow(i)
		if err != nil {
			return nil, err
		}
		cra, _ := xmatch.ToFloat64(row[s.raIdx])
		cdec, _ := xmatch.ToFloat64(row[s.decIdx])
		if sky.Separation(ra, dec, cra, cdec) <= radius+s.Slop {
			if err := result.AppendRow(row); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// RaColumnIndex returns the index of the catalog's ra column
func (s *CatalogSearcher) RaColumnIndex(result xmatch.Schema) int {
	return columnIndex(result, "ra")
}

// DecColumnIndex returns the index of the catalog's dec column
func (s *CatalogSearcher) DecColumnIndex(result xmatch.Schema) int {
	return columnIndex(result, "dec")
}

// PositionSchema produces a Schema with a string "id" column followed by "ra" and "dec" columns
func PositionSchema() xmatch.Schema {
	s, err := schema.FromColumns(
		xmatch.ColumnInfo{Name: "id", Type: &xmatch.VarStringColumnType{}},
		xmatch.ColumnInfo{Name: "ra", Type: &xmatch.Float64ColumnType{}, UCD: "pos.eq.ra"},
		xmatch.ColumnInfo{Name: "dec", Type: &xmatch.Float64ColumnType{}, UCD: "pos.eq.dec"},
	)
	if err != nil {
		panic(err)
	}
	return s
}
