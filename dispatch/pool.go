package dispatch

import (
	"container/heap"

	"github.com/go-sif/xmatch"
)

// resultHeap is a min-heap of QueryResults, ordered by Index
type resultHeap []*xmatch.QueryResult

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return h[i].Index < h[j].Index }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x interface{}) {
	*h = append(*h, x.(*xmatch.QueryResult))
}

func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// resultPool holds completed QueryResults until the consumer is ready for them.
// It is not synchronized.
type resultPool struct {
	items resultHeap
	max   int64
}

func newResultPool(capacity int) *resultPool {
	return &resultPool{items: make(resultHeap, 0, capacity)}
}

func (p *resultPool) len() int {
	return p.items.Len()
}

// maxIndex returns the greatest Index in the pool, or -1 if it is empty
func (p *resultPool) maxIndex() int64 {
	if p.items.Len() == 0 {
		return -1
	}
	return p.max
}

func (p *resultPool) push(r *xmatch.QueryResult) {
	if p.items.Len() == 0 || r.Index > p.max {
		p.max = r.Index
	}
	heap.Push(&p.items, r)
}

// peekIndex returns the least Index in the pool, or -1 if it is empty
func (p *resultPool) peekIndex() int64 {
	if p.items.Len() == 0 {
		return -1
	}
	return p.items[0].Index
}

func (p *resultPool) pop() *xmatch.QueryResult {
	return heap.Pop(&p.items).(*xmatch.QueryResult)
}
