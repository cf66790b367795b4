package xmatch

import "context"

// RowMapper is a bijection between row indices and opaque identifiers,
// used to re-associate rows with results after a network round-trip.
type RowMapper[I any] interface {
	ToID(rowIndex int64) I // ToID produces the identifier for a row index
	ToIndex(id I) int64    // ToIndex recovers the row index from an identifier produced by ToID
}

// MapperFactory produces a RowMapper whose identifiers are offset by offset rows
type MapperFactory[I any] func(offset int64) RowMapper[I]

// RawSink receives the raw result of a bulk upload match
type RawSink interface {
	AcceptMetadata(schema Schema) error // AcceptMetadata declares the Schema of the rows which will follow
	AcceptRow(row []Value) error        // AcceptRow accepts a single raw result row
	EndRows() error                     // EndRows indicates that no more rows will be accepted
}

// UploadMatcher is a client for a single bulk cross-match service, which accepts many positions at once
type UploadMatcher[I any] interface {
	// StreamRawResult uploads all queries from qs, writing raw result rows to sink. Row identifiers are
	// produced with mapper. A negative maxrec is unbounded. truncated is true iff the result was cut short.
	StreamRawResult(ctx context.Context, qs QuerySequence, sink RawSink, mapper RowMapper[I], maxrec int64) (truncated bool, err error)
	// CreateOutputTable joins a raw result with the upload Table it was produced from
	CreateOutputTable(raw RandomAccessTable, upload RandomAccessTable, mapper RowMapper[I]) (Table, error)
	// ColumnPlan describes how raw result columns map to output columns
	ColumnPlan(raw Schema, upload Schema) ColumnPlan
}

// SourceRef locates the source of an output column. Non-negative values are columns of a raw
// match result, and negative values -(uploadCol+1) are columns of the upload Table.
type SourceRef int

// RawColumn produces a SourceRef for a column of a raw match result
func RawColumn(idx int) SourceRef {
	return SourceRef(idx)
}

// UploadColumn produces a SourceRef for a column of an upload Table
func UploadColumn(idx int) SourceRef {
	return SourceRef(-(idx + 1))
}

// IsUpload returns true iff this SourceRef refers to a column of the upload Table
func (r SourceRef) IsUpload() bool {
	return r < 0
}

// Index returns the column index within the raw result or upload Table
func (r SourceRef) Index() int {
	if r < 0 {
		return int(-r) - 1
	}
	return int(r)
}

// ColumnPlan describes, for a raw match result, which output column comes from which source column
type ColumnPlan interface {
	OutputColumnCount() int      // OutputColumnCount returns the total number of output columns
	Locate(outCol int) SourceRef // Locate returns the source of an output column
	IDColumnIndex() int          // IDColumnIndex returns the raw column holding row identifiers, or -1
	ScoreColumnIndex() int       // ScoreColumnIndex returns the raw column holding the match score, or -1
}

// FindMode determines which pairs are retained by a bulk match
type FindMode int

const (
	// FindAll retains all matches
	FindAll FindMode = iota
	// FindBest retains the best match for each input row
	FindBest
	// FindBestRemote retains the best match for each remote row
	FindBestRemote
	// FindBestBoth retains only pairs which are the best match for both their input and remote rows
	FindBestBoth
)

// RemoteUnique returns true iff this FindMode requires each remote row to appear at most once
func (m FindMode) RemoteUnique() bool {
	return m == FindBestRemote || m == FindBestBoth
}

// String returns a textual representation of this FindMode
func (m FindMode) String() string {
	switch m {
	case FindBest:
		return "best"
	case FindBestRemote:
		return "best-remote"
	case FindBestBoth:
		return "best-both"
	default:
		return "all"
	}
}

// Block is one contiguous slice of a large input Table, submitted in a single bulk upload
type Block struct {
	StartRow int64
	Size     int
}
