package xmatch

// Value is the content of a single cell in a Table. A nil Value is a blank cell.
type Value = interface{}

// MessageParam is the name of the Table parameter used to carry diagnostic messages,
// e.g. to explain why a result Table has no rows.
const MessageParam = "Message"

// Table is a named, ordered collection of rows sharing a Schema.
// Tables are not necessarily re-readable: RowIterator may only be
// callable once for Tables which are streamed.
type Table interface {
	Name() string                      // Name returns the name of this Table
	Schema() Schema                    // Schema returns the Schema of the rows in this Table
	Params() map[string]string         // Params returns table-level metadata, such as the MessageParam
	RowIterator() (RowIterator, error) // RowIterator returns an iterator over the rows of this Table
}

// A RandomAccessTable is a Table which knows its size and can produce any row on demand
type RandomAccessTable interface {
	Table
	RowCount() int64                        // RowCount returns the number of rows in this Table
	GetRow(rowIndex int64) ([]Value, error) // GetRow retrieves a specific row from this Table
}

// RowIterator is a generalized interface for iterating over rows, regardless of where they come from
type RowIterator interface {
	// NextRow returns the next row, or an errors.NoMoreRowsError once the iterator is exhausted
	NextRow() ([]Value, error)
	Close() error
}
