package xmatch

// ConeQuery is a single positional query derived from one row of an input Table.
// Ra, Dec and Radius are in degrees. A NaN Ra or Dec indicates that the row has no usable position.
type ConeQuery struct {
	RowIndex int64   // RowIndex is the index of the originating row within its input Table
	Ra       float64 // Ra is the right ascension of the cone centre
	Dec      float64 // Dec is the declination of the cone centre
	Radius   float64 // Radius is the cone radius
	Row      []Value // Row holds the cells of the originating row
}

// Query is a ConeQuery which has been assigned a position in a dispatched sequence.
// Index is the sole ordering key for downstream consumers.
type Query struct {
	Index int64
	ConeQuery
}

// QueryResult is the outcome of a single Query. Result is nil if the
// Query was skipped (outside coverage) or the search legitimately found nothing.
type QueryResult struct {
	Query
	Result Table
}

// QuerySequence is an iterator over ConeQueries, typically read from the rows of an input Table
type QuerySequence interface {
	// NextQuery returns the next ConeQuery, or an errors.NoMoreQueriesError once the sequence is exhausted
	NextQuery() (*ConeQuery, error)
	Close() error
}

// QueryFactory produces a fresh QuerySequence over the rows of a Table
type QueryFactory func(t Table) (QuerySequence, error)

// ResultIterator produces QueryResults in strictly increasing Query Index order
type ResultIterator interface {
	// NextResult blocks until the next QueryResult is available, returning an
	// errors.NoMoreResultsError once all queries have been resolved
	NextResult() (*QueryResult, error)
	Close() error
}
