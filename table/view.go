package table

import (
	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
)

// view presents the rows of a RandomAccessTable under a different name and Schema
type view struct {
	xmatch.RandomAccessTable
	name   string
	schema xmatch.Schema
}

// WithSchema presents t under a new name and Schema, e.g. after its columns have been renamed.
// The new Schema must have the same number of columns as the old one.
func WithSchema(t xmatch.RandomAccessTable, name string, schema xmatch.Schema) (xmatch.RandomAccessTable, error) {
	if schema.NumColumns() != t.Schema().NumColumns() {
		return nil, errors.IncompatibleSchemaError{Expected: t.Schema().NumColumns(), Actual: schema.NumColumns()}
	}
	return &view{RandomAccessTable: t, name: name, schema: schema}, nil
}

func (v *view) Name() string {
	return v.name
}

func (v *view) Schema() xmatch.Schema {
	return v.schema
}

func (v *view) RowIterator() (xmatch.RowIterator, error) {
	return Iterate(v), nil
}

type named struct {
	xmatch.Table
	name string
}

type namedRandomAccess struct {
	xmatch.RandomAccessTable
	name string
}

// Named presents t under a new name. Random access is preserved.
func Named(t xmatch.Table, name string) xmatch.Table {
	if rat, ok := t.(xmatch.RandomAccessTable); ok {
		return &namedRandomAccess{RandomAccessTable: rat, name: name}
	}
	return &named{Table: t, name: name}
}

func (n *named) Name() string {
	return n.name
}

func (n *namedRandomAccess) Name() string {
	return n.name
}
