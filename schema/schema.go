package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-sif/xmatch"
)

// column describes the position and metadata of a field in a row
type column struct {
	idx         int
	name        string
	colType     xmatch.ColumnType
	description string
	ucd         string
}

// Clone returns a copy of this Column
func (c *column) Clone() xmatch.Column {
	return &column{c.idx, c.name, c.colType, c.description, c.ucd}
}

// Index returns the index of this Column within a Schema
func (c *column) Index() int {
	return c.idx
}

// SetIndex modifies the index of this Column within a Schema
func (c *column) SetIndex(newIndex int) {
	c.idx = newIndex
}

// Name returns the name of this Column
func (c *column) Name() string {
	return c.name
}

// Type returns the ColumnType of this Column
func (c *column) Type() xmatch.ColumnType {
	return c.colType
}

// Description returns the description of this Column
func (c *column) Description() string {
	return c.description
}

// UCD returns the Unified Content Descriptor of this Column
func (c *column) UCD() string {
	return c.ucd
}

// Info returns the ColumnInfo from which an identical Column could be created
func Info(c xmatch.Column) xmatch.ColumnInfo {
	return xmatch.ColumnInfo{Name: c.Name(), Type: c.Type(), Description: c.Description(), UCD: c.UCD()}
}

// schema is an ordered mapping from column names to Columns.
// Column names are unique within a schema.
type schema struct {
	columns []*column
	byName  map[string]*column
}

// CreateSchema is a factory for Schemas
func CreateSchema() xmatch.Schema {
	return &schema{
		columns: make([]*column, 0),
		byName:  make(map[string]*column),
	}
}

// FromColumns creates a Schema containing the given columns, in order
func FromColumns(infos ...xmatch.ColumnInfo) (xmatch.Schema, error) {
	s := CreateSchema()
	for _, info := range infos {
		if _, err := s.CreateColumn(info); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Equals returns nil iff this and another Schema are equivalent, or an error describing the difference
func (s *schema) Equals(otherSchema xmatch.Schema) error {
	if s.NumColumns() != otherSchema.NumColumns() {
		return fmt.Errorf("Schemas have unequal numbers of columns")
	}
	for i, col := range s.columns {
		other := otherSchema.GetColumn(i)
		if col.Name() != other.Name() {
			return fmt.Errorf("Column %d names %s and %s do not match", i, col.Name(), other.Name())
		}
		if reflect.TypeOf(col.Type()) != reflect.TypeOf(other.Type()) {
			return fmt.Errorf("Column %s types do not match", col.Name())
		}
	}
	return nil
}

// Clone returns a copy of this Schema
func (s *schema) Clone() xmatch.Schema {
	newSchema := &schema{
		columns: make([]*column, len(s.columns)),
		byName:  make(map[string]*column, len(s.columns)),
	}
	for i, col := range s.columns {
		c := col.Clone().(*column)
		newSchema.columns[i] = c
		newSchema.byName[c.name] = c
	}
	return newSchema
}

// NumColumns returns the number of columns in this Schema
func (s *schema) NumColumns() int {
	return len(s.columns)
}

// GetColumn returns the Column at a particular index, or nil if there is none
func (s *schema) GetColumn(idx int) xmatch.Column {
	if idx < 0 || idx >= len(s.columns) {
		return nil
	}
	return s.columns[idx]
}

// GetOffset returns the Column with a particular name
func (s *schema) GetOffset(colName string) (offset xmatch.Column, err error) {
	col, ok := s.byName[colName]
	if !ok {
		return nil, fmt.Errorf("Schema does not contain column with name %s", colName)
	}
	return col, nil
}

// HasColumn returns true iff this schema contains a column with the given name
func (s *schema) HasColumn(colName string) bool {
	_, ok := s.byName[colName]
	return ok
}

// CreateColumn appends a new column to the Schema
func (s *schema) CreateColumn(info xmatch.ColumnInfo) (newSchema xmatch.Schema, err error) {
	if len(strings.TrimSpace(info.Name)) == 0 {
		return nil, fmt.Errorf("Column name cannot be empty")
	}
	if _, exists := s.byName[info.Name]; exists {
		return nil, fmt.Errorf("Schema already contains column with name %s", info.Name)
	}
	col := &column{
		idx:         len(s.columns),
		name:        info.Name,
		colType:     info.Type,
		description: info.Description,
		ucd:         info.UCD,
	}
	s.columns = append(s.columns, col)
	s.byName[info.Name] = col
	return s, nil
}

// RenameColumn renames a column within the Schema
func (s *schema) RenameColumn(oldName string, newName string) (newSchema xmatch.Schema, err error) {
	col, ok := s.byName[oldName]
	if !ok {
		return nil, fmt.Errorf("Schema does not contain column with name %s", oldName)
	}
	if oldName == newName {
		return s, nil
	}
	if _, exists := s.byName[newName]; exists {
		return nil, fmt.Errorf("Schema already contains column with name %s", newName)
	}
	delete(s.byName, oldName)
	col.name = newName
	s.byName[newName] = col
	return s, nil
}

// ColumnNames returns the names in the schema, in index order
func (s *schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, col := range s.columns {
		names[i] = col.name
	}
	return names
}

// ColumnTypes returns the types in the schema, in index order
func (s *schema) ColumnTypes() []xmatch.ColumnType {
	types := make([]xmatch.ColumnType, len(s.columns))
	for i, col := range s.columns {
		types[i] = col.colType
	}
	return types
}

// ForEachColumn iterates over the columns in this Schema, in index order
func (s *schema) ForEachColumn(fn func(name string, col xmatch.Column) error) error {
	for _, col := range s.columns {
		if err := fn(col.name, col); err != nil {
			return err
		}
	}
	return nil
}

// Select produces a new Schema containing the columns of s at the given indices, in the given order
func Select(s xmatch.Schema, indices []int) (xmatch.Schema, error) {
	out := CreateSchema()
	for _, idx := range indices {
		col := s.GetColumn(idx)
		if col == nil {
			return nil, fmt.Errorf("Schema has no column at index %d", idx)
		}
		if _, err := out.CreateColumn(Info(col)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Concat produces a new Schema containing the columns of all the given Schemas, in order.
// Column names must already be unique across the Schemas (see FixColumns).
func Concat(schemas ...xmatch.Schema) (xmatch.Schema, error) {
	out := CreateSchema()
	for _, s := range schemas {
		err := s.ForEachColumn(func(name string, col xmatch.Column) error {
			_, err := out.CreateColumn(Info(col))
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
