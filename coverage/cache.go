package coverage

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/docker/docker/pkg/locker"
	"github.com/go-sif/xmatch/logging"
	"golang.org/x/sync/semaphore"
)

// Fetcher retrieves the serialized footprint found at a URL
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// CacheOptions configures a FootprintCache
type CacheOptions struct {
	MaxEntries           int // maximum number of footprints held. Defaults to 64.
	MaxConcurrentFetches int // maximum number of footprints fetched at once. Defaults to 4.
}

func ensureDefaultCacheOptionsValues(opts *CacheOptions) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 64
	}
	if opts.MaxConcurrentFetches <= 0 {
		opts.MaxConcurrentFetches = 4
	}
}

type cachedFootprint struct {
	url string
	moc MOC
}

// FootprintCache is a bounded LRU cache of parsed footprints, keyed by URL.
// Concurrent requests for the same URL result in a single fetch.
type FootprintCache struct {
	opts    CacheOptions
	fetches *semaphore.Weighted
	ulocks  *locker.Locker
	lock    sync.Mutex
	entries map[string]*list.Element
	recent  *list.List // back is oldest, front is newest
	logger  *logging.Logger
}

// NewFootprintCache produces an empty FootprintCache
func NewFootprintCache(opts *CacheOptions) *FootprintCache {
	o := CacheOptions{}
	if opts != nil {
		o = *opts
	}
	ensureDefaultCacheOptionsValues(&o)
	return &FootprintCache{
		opts:    o,
		fetches: semaphore.NewWeighted(int64(o.MaxConcurrentFetches)),
		ulocks:  locker.New(),
		entries: make(map[string]*list.Element),
		recent:  list.New(),
		logger:  logging.For("coverage"),
	}
}

// Get returns the footprint at url, fetching and parsing it with fetch if it is not cached
func (c *FootprintCache) Get(ctx context.Context, url string, fetch Fetcher) (MOC, error) {
	if moc, ok := c.lookup(url); ok {
		return moc, nil
	}
	c.ulocks.Lock(url)
	defer c.ulocks.Unlock(url)
	// another caller may have loaded it while we waited
	if moc, ok := c.lookup(url); ok {
		return moc, nil
	}
	if err := c.fetches.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	data, err := fetch(ctx, url)
	c.fetches.Release(1)
	if err != nil {
		return nil, fmt.Errorf("Unable to fetch footprint %s: %w", url, err)
	}
	moc, err := ParseMOCJSON(data)
	if err != nil {
		return nil, fmt.Errorf("Unable to parse footprint %s: %w", url, err)
	}
	c.add(url, moc)
	c.logger.Debug().Str("url", url).Int("tiles", moc.NumTiles()).Msg("Cached footprint")
	return moc, nil
}

func (c *FootprintCache) lookup(url string) (MOC, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	c.recent.MoveToFront(e)
	return e.Value.(*cachedFootprint).moc, true
}

func (c *FootprintCache) add(url string, moc MOC) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries[url] = c.recent.PushFront(&cachedFootprint{url: url, moc: moc})
	for c.recent.Len() > c.opts.MaxEntries {
		oldest := c.recent.Back()
		c.recent.Remove(oldest)
		delete(c.entries, oldest.Value.(*cachedFootprint).url)
	}
}

// Evict removes the footprint at url, returning true if it was cached
func (c *FootprintCache) Evict(url string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	e, ok := c.entries[url]
	if ok {
		c.recent.Remove(e)
		delete(c.entries, url)
	}
	return ok
}

// Purge removes every footprint
func (c *FootprintCache) Purge() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries = make(map[string]*list.Element)
	c.recent.Init()
}

// Len returns the number of cached footprints
func (c *FootprintCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.recent.Len()
}
