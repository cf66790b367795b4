package stats

import (
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
)

// RunStatistics contains statistics about a running match. All counters are safe for concurrent update.
type RunStatistics struct {
	runID            string
	startTime        time.Time
	totalRuntime     int64
	finished         int32
	queriesSubmitted int64
	queriesSearched  int64
	queriesSkipped   int64
	queriesEmpty     int64
	queriesFailed    int64
	blocks           int64
	rowsReceived     int64
}

// Start begins statistics tracking for a new run. If runID is empty, a random one is generated.
func Start(runID string) *RunStatistics {
	if len(runID) == 0 {
		runID = NewRunID()
	}
	return &RunStatistics{
		runID:     runID,
		startTime: time.Now(),
	}
}

// NewRunID generates a unique identifier for a run
func NewRunID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// the random source failed; fall back to a time-based identifier
		return time.Now().UTC().Format("20060102T150405.000000000")
	}
	return id.String()
}

// Finish completes statistics tracking. Subsequent calls have no effect.
func (rs *RunStatistics) Finish() {
	if atomic.CompareAndSwapInt32(&rs.finished, 0, 1) {
		atomic.StoreInt64(&rs.totalRuntime, time.Since(rs.startTime).Nanoseconds())
	}
}

// QuerySubmitted tracks a query which has been pulled from the input
func (rs *RunStatistics) QuerySubmitted() {
	atomic.AddInt64(&rs.queriesSubmitted, 1)
}

// QuerySearched tracks a query which resulted in a search. empty is true if the search found nothing.
func (rs *RunStatistics) QuerySearched(empty bool) {
	atomic.AddInt64(&rs.queriesSearched, 1)
	if empty {
		atomic.AddInt64(&rs.queriesEmpty, 1)
	}
}

// QuerySkipped tracks a query which was not searched because it could not overlap the coverage
func (rs *RunStatistics) QuerySkipped() {
	atomic.AddInt64(&rs.queriesSkipped, 1)
}

// QueryFailed tracks a failed search whose error was ignored
func (rs *RunStatistics) QueryFailed() {
	atomic.AddInt64(&rs.queriesFailed, 1)
}

// BlockSubmitted tracks an upload block
func (rs *RunStatistics) BlockSubmitted() {
	atomic.AddInt64(&rs.blocks, 1)
}

// RowsReceived tracks raw result rows
func (rs *RunStatistics) RowsReceived(n int64) {
	atomic.AddInt64(&rs.rowsReceived, n)
}

// GetRunID returns the unique identifier of the run
func (rs *RunStatistics) GetRunID() string {
	return rs.runID
}

// GetStartTime returns the start time of the run
func (rs *RunStatistics) GetStartTime() time.Time {
	return rs.startTime
}

// GetRuntime returns the running time of the run, or its total runtime once finished
func (rs *RunStatistics) GetRuntime() time.Duration {
	if atomic.LoadInt32(&rs.finished) == 1 {
		return time.Duration(atomic.LoadInt64(&rs.totalRuntime))
	}
	return time.Since(rs.startTime)
}

// GetNumQueriesSubmitted returns the number of queries which have been pulled from the input so far
func (rs *RunStatistics) GetNumQueriesSubmitted() int64 {
	return atomic.LoadInt64(&rs.queriesSubmitted)
}

// GetNumQueriesSearched returns the number of queries which resulted in a search
func (rs *RunStatistics) GetNumQueriesSearched() int64 {
	return atomic.LoadInt64(&rs.queriesSearched)
}

// GetNumQueriesEmpty returns the number of searches which found nothing
func (rs *RunStatistics) GetNumQueriesEmpty() int64 {
	return atomic.LoadInt64(&rs.queriesEmpty)
}

// GetNumQueriesSkipped returns the number of queries skipped because of coverage
func (rs *RunStatistics) GetNumQueriesSkipped() int64 {
	return atomic.LoadInt64(&rs.queriesSkipped)
}

// GetNumQueriesFailed returns the number of failed searches which were ignored
func (rs *RunStatistics) GetNumQueriesFailed() int64 {
	return atomic.LoadInt64(&rs.queriesFailed)
}

// GetNumBlocks returns the number of upload blocks submitted so far
func (rs *RunStatistics) GetNumBlocks() int64 {
	return atomic.LoadInt64(&rs.blocks)
}

// GetNumRowsReceived returns the number of raw result rows received so far
func (rs *RunStatistics) GetNumRowsReceived() int64 {
	return atomic.LoadInt64(&rs.rowsReceived)
}
