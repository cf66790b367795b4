package rowstore

import (
	"container/list"
)

// pageCache is an LRU cache of decoded pages, keyed by page number
type pageCache struct {
	maxPages int
	pmap     map[int]*list.Element
	recent   *list.List // back is oldest, front is newest
}

type cachedPage struct {
	key  int
	rows [][]interface{}
}

func newPageCache(maxPages int) *pageCache {
	if maxPages < 1 {
		maxPages = 1
	}
	return &pageCache{
		maxPages: maxPages,
		pmap:     make(map[int]*list.Element),
		recent:   list.New(),
	}
}

// get returns the decoded page, if present, and marks it as recently used
func (c *pageCache) get(key int) ([][]interface{}, bool) {
	e, ok := c.pmap[key]
	if !ok {
		return nil, false
	}
	c.recent.MoveToFront(e)
	return e.Value.(*cachedPage).rows, true
}

// add inserts a decoded page, evicting the least recently used page if the cache is full
func (c *pageCache) add(key int, rows [][]interface{}) {
	if e, ok := c.pmap[key]; ok {
		e.Value.(*cachedPage).rows = rows
		c.recent.MoveToFront(e)
		return
	}
	c.pmap[key] = c.recent.PushFront(&cachedPage{key: key, rows: rows})
	if c.recent.Len() > c.maxPages {
		oldest := c.recent.Back()
		c.recent.Remove(oldest)
		delete(c.pmap, oldest.Value.(*cachedPage).key)
	}
}

func (c *pageCache) len() int {
	return c.recent.Len()
}

func (c *pageCache) purge() {
	c.pmap = make(map[int]*list.Element)
	c.recent.Init()
}
