package coverage

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/internal/sky"
	"github.com/stretchr/testify/require"
)

type point struct{ ra, dec float64 }

// regionTiles returns the grid cells containing a sampled box, and the sample points
func regionTiles(order int, minRa, maxRa, minDec, maxDec, step float64) ([]uint64, []point) {
	var tiler GridTiler
	tiles := make([]uint64, 0)
	points := make([]point, 0)
	for ra := minRa; ra <= maxRa; ra += step {
		for dec := minDec; dec <= maxDec; dec += step {
			points = append(points, point{sky.NormalizeRa(ra), dec})
			tiles = append(tiles, tiler.Tile(order, ra, dec))
		}
	}
	return tiles, points
}

func TestCoverageSoundness(t *testing.T) {
	regions := []struct{ minRa, maxRa, minDec, maxDec float64 }{
		{10, 30, -10, 10},
		{358, 362, 40, 45}, // straddles ra 0
		{0, 20, 85, 89},    // near the pole
	}
	r := rand.New(rand.NewSource(7))
	for _, order := range []int{2, 5} {
		for _, region := range regions {
			tiles, points := regionTiles(order, region.minRa, region.maxRa, region.minDec, region.maxDec, 0.5)
			cov := NewTiles(order, tiles, GridTiler{})
			require.Nil(t, cov.Init(context.Background()))
			for i := 0; i < 300; i++ {
				// discs centred near the region
				p := points[r.Intn(len(points))]
				ra := p.ra + r.Float64()*20 - 10
				dec := p.dec + r.Float64()*20 - 10
				if dec > 90 {
					dec = 90
				} else if dec < -90 {
					dec = -90
				}
				radius := r.Float64() * 8
				intersects := false
				for _, q := range points {
					if sky.Separation(ra, dec, q.ra, q.dec) <= radius {
						intersects = true
						break
					}
				}
				if intersects {
					require.True(t, cov.Overlaps(ra, dec, radius), "disc (%f, %f, %f) at order %d", ra, dec, radius, order)
				}
			}
		}
	}
}

func TestCoverageExcludesDistantDiscs(t *testing.T) {
	tiles, _ := regionTiles(4, 10, 30, -10, 10, 0.5)
	cov := NewTiles(4, tiles, GridTiler{})
	require.True(t, cov.Overlaps(20, 0, 0.1))
	require.False(t, cov.Overlaps(200, 0, 1))
	require.False(t, cov.Overlaps(20, 60, 1))
	// an invalid disc cannot be tiled, so it is assumed to overlap
	require.True(t, cov.Overlaps(200, 95, 1))
}

func TestFull(t *testing.T) {
	require.True(t, Full().Overlaps(0, 0, 0))
}

func TestParseMOCJSON(t *testing.T) {
	moc, err := ParseMOCJSON([]byte(`{"1":[3,4],"2":[100]}`))
	require.Nil(t, err)
	require.Equal(t, []int{1, 2}, moc.Orders())
	require.Equal(t, []uint64{3, 4}, moc[1])
	require.Equal(t, 3, moc.NumTiles())

	for _, bad := range []string{`[1,2]`, `{"x":[1]}`, `{"1":5}`, `{"1":["a"]}`, `{"1":[1]`} {
		_, err := ParseMOCJSON([]byte(bad))
		require.NotNil(t, err, bad)
	}
}

func TestMOCCoverage(t *testing.T) {
	var g GridTiler
	moc := MOC{
		1: {g.Tile(1, 100, 10)},
		6: {g.Tile(6, 300, -40)},
	}
	cov := NewMOC(moc, g)
	require.True(t, cov.Overlaps(100, 10, 0.01))
	require.True(t, cov.Overlaps(300, -40, 0.01))
	require.False(t, cov.Overlaps(200, -40, 0.01))
}

type countingLoader struct {
	calls int32
	err   error
}

func (l *countingLoader) load(ctx context.Context) (xmatch.Coverage, error) {
	atomic.AddInt32(&l.calls, 1)
	if l.err != nil {
		return nil, l.err
	}
	return NewTiles(0, []uint64{0}, GridTiler{}), nil
}

func TestLazyLoadsOnce(t *testing.T) {
	loader := &countingLoader{}
	cov := Lazy("test", loader.load)
	// before Init, everything overlaps
	require.True(t, cov.Overlaps(200, 0, 1))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.Nil(t, cov.Init(context.Background()))
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, atomic.LoadInt32(&loader.calls))
	require.True(t, cov.Ready())
	require.False(t, cov.Overlaps(200, 0, 1))
}

func TestLazyFailureAssumesOverlap(t *testing.T) {
	loader := &countingLoader{err: fmt.Errorf("unreachable")}
	cov := Lazy("test", loader.load)
	require.NotNil(t, cov.Init(context.Background()))
	require.NotNil(t, cov.Init(context.Background()))
	require.EqualValues(t, 1, atomic.LoadInt32(&loader.calls))
	require.False(t, cov.Ready())
	require.True(t, cov.Overlaps(200, 0, 1))
}

func TestLazyCancelledInitIsRetried(t *testing.T) {
	loader := &countingLoader{err: fmt.Errorf("interrupted")}
	cov := Lazy("test", loader.load)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NotNil(t, cov.Init(ctx))
	loader.err = nil
	require.Nil(t, cov.Init(context.Background()))
	require.EqualValues(t, 2, atomic.LoadInt32(&loader.calls))
}

type panickyCoverage struct{}

func (panickyCoverage) Init(ctx context.Context) error { return nil }
func (panickyCoverage) Overlaps(ra float64, dec float64, radius float64) bool {
	panic("bad tile")
}

func TestLazyRecoversPanics(t *testing.T) {
	cov := Lazy("test", func(ctx context.Context) (xmatch.Coverage, error) {
		return panickyCoverage{}, nil
	})
	require.Nil(t, cov.Init(context.Background()))
	require.True(t, cov.Overlaps(0, 0, 1))
}

func TestFootprintCacheSingleFetch(t *testing.T) {
	var fetches int32
	fetch := func(ctx context.Context, url string) ([]byte, error) {
		atomic.AddInt32(&fetches, 1)
		return []byte(`{"0":[1]}`), nil
	}
	cache := NewFootprintCache(&CacheOptions{MaxEntries: 2})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			moc, err := cache.Get(context.Background(), "a", fetch)
			require.Nil(t, err)
			require.Equal(t, []uint64{1}, moc[0])
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, atomic.LoadInt32(&fetches))

	// LRU eviction
	_, err := cache.Get(context.Background(), "b", fetch)
	require.Nil(t, err)
	_, err = cache.Get(context.Background(), "a", fetch)
	require.Nil(t, err)
	_, err = cache.Get(context.Background(), "c", fetch)
	require.Nil(t, err)
	require.Equal(t, 2, cache.Len())
	require.False(t, cache.Evict("b"))
	require.True(t, cache.Evict("a"))
	cache.Purge()
	require.Equal(t, 0, cache.Len())
}

func TestFootprintCacheFetchError(t *testing.T) {
	cache := NewFootprintCache(nil)
	_, err := cache.Get(context.Background(), "a", func(ctx context.Context, url string) ([]byte, error) {
		return nil, fmt.Errorf("timeout")
	})
	require.NotNil(t, err)
	require.Equal(t, 0, cache.Len())
}

func TestRemoteOverHTTP(t *testing.T) {
	var g GridTiler
	body := fmt.Sprintf(`{"3":[%d]}`, g.Tile(3, 50, 50))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moc.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	cache := NewFootprintCache(nil)
	cov := Remote(server.URL+"/moc.json", cache, HTTPFetch(server.Client()), g)
	require.Nil(t, cov.Init(context.Background()))
	require.True(t, cov.Overlaps(50, 50, 0.1))
	require.False(t, cov.Overlaps(230, -50, 0.1))
	require.Equal(t, 1, cache.Len())

	missing := Remote(server.URL+"/missing.json", cache, HTTPFetch(server.Client()), g)
	require.NotNil(t, missing.Init(context.Background()))
	require.True(t, missing.Overlaps(230, -50, 0.1))
}
