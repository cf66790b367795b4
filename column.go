package xmatch

// Column describes the position and metadata of a
// single field within the rows of a Table.
type Column interface {
	Clone() Column         // Clone returns a copy of this Column
	Index() int            // Index returns the index of this Column within a Schema
	SetIndex(newIndex int) // Modifies the Index of this Column within a Schema
	Name() string          // Name returns the name of this Column
	Type() ColumnType      // Type returns the ColumnType of this Column
	Description() string   // Description returns a free-text description of this Column, possibly empty
	UCD() string           // UCD returns the Unified Content Descriptor of this Column, possibly empty
}

// ColumnInfo is the information required to define a new Column within a Schema
type ColumnInfo struct {
	Name        string
	Type        ColumnType
	Description string
	UCD         string
}
