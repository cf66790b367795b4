package xmatch

// Schema is an ordered mapping from column names to Columns.
// It allows one to obtain Columns by name or index,
// define new columns, rename columns, etc.
type Schema interface {
	Equals(otherSchema Schema) error
	Clone() Schema
	NumColumns() int
	GetColumn(idx int) Column
	GetOffset(colName string) (offset Column, err error)
	HasColumn(colName string) bool
	CreateColumn(info ColumnInfo) (newSchema Schema, err error)
	RenameColumn(oldName string, newName string) (newSchema Schema, err error)
	ColumnNames() []string
	ColumnTypes() []ColumnType
	ForEachColumn(fn func(name string, col Column) error) error
}
