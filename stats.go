package xmatch

import "time"

// RunStatistics facilitates the retrieval of statistics about a running match
type RunStatistics interface {
	// GetRunID returns the unique identifier of the run, as it appears in log messages
	GetRunID() string
	// GetStartTime returns the start time of the run
	GetStartTime() time.Time
	// GetRuntime returns the running time of the run, or its total runtime once finished
	GetRuntime() time.Duration
	// GetNumQueriesSubmitted returns the number of queries which have been pulled from the input so far
	GetNumQueriesSubmitted() int64
	// GetNumQueriesSearched returns the number of queries which resulted in a search
	GetNumQueriesSearched() int64
	// GetNumQueriesSkipped returns the number of queries skipped because they could not overlap the Coverage
	GetNumQueriesSkipped() int64
	// GetNumQueriesFailed returns the number of failed searches which were ignored by the error policy
	GetNumQueriesFailed() int64
	// GetNumBlocks returns the number of upload blocks which have been submitted
	GetNumBlocks() int64
	// GetNumRowsReceived returns the number of raw result rows which have been received
	GetNumRowsReceived() int64
}
