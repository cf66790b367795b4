package upload

import (
	"fmt"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/schema"
	"github.com/go-sif/xmatch/table"
)

// planTable is a lazily-joined RandomAccessTable, whose rows are assembled from a raw
// match result and the upload Table it was produced from, according to a ColumnPlan
type planTable[I any] struct {
	name   string
	schema xmatch.Schema
	params map[string]string
	raw    xmatch.RandomAccessTable
	upload xmatch.RandomAccessTable
	mapper xmatch.RowMapper[I]
	plan   xmatch.ColumnPlan
}

// JoinByPlan joins each row of raw with the row of upload whose identifier it echoes.
// Output columns are laid out by plan, and renamed where necessary to keep names unique.
// Rows whose identifier is blank or unknown have blank upload cells.
func JoinByPlan[I any](raw xmatch.RandomAccessTable, upload xmatch.RandomAccessTable, mapper xmatch.RowMapper[I], plan xmatch.ColumnPlan, name string) (xmatch.RandomAccessTable, error) {
	out := schema.CreateSchema()
	for c := 0; c < plan.OutputColumnCount(); c++ {
		ref := plan.Locate(c)
		src := raw.Schema()
		if ref.IsUpload() {
			src = upload.Schema()
		}
		col := src.GetColumn(ref.Index())
		if col == nil {
			return nil, fmt.Errorf("Output column %d refers to missing source column %d", c, ref.Index())
		}
		if _, err := schema.AppendUnique(out, schema.Info(col)); err != nil {
			return nil, err
		}
	}
	return &planTable[I]{
		name:   name,
		schema: out,
		params: make(map[string]string),
		raw:    raw,
		upload: upload,
		mapper: mapper,
		plan:   plan,
	}, nil
}

func (t *planTable[I]) Name() string {
	return t.name
}

func (t *planTable[I]) SetName(name string) {
	t.name = name
}

func (t *planTable[I]) Schema() xmatch.Schema {
	return t.schema
}

func (t *planTable[I]) Params() map[string]string {
	return t.params
}

func (t *planTable[I]) RowCount() int64 {
	return t.raw.RowCount()
}

func (t *planTable[I]) GetRow(rowIndex int64) ([]xmatch.Value, error) {
	rawRow, err := t.raw.GetRow(rowIndex)
	if err != nil {
		return nil, err
	}
	uploadRow, err := t.uploadRow(rawRow)
	if err != nil {
		return nil, err
	}
	row := make([]xmatch.Value, t.plan.OutputColumnCount())
	for c := range row {
		ref := t.plan.Locate(c)
		if !ref.IsUpload() {
			row[c] = rawRow[ref.Index()]
		} else if uploadRow != nil {
			row[c] = uploadRow[ref.Index()]
		}
	}
	return row, nil
}

func (t *planTable[I]) RowIterator() (xmatch.RowIterator, error) {
	return table.Iterate(t), nil
}

// uploadRow finds the upload row echoed by rawRow, or nil if there is none
func (t *planTable[I]) uploadRow(rawRow []xmatch.Value) ([]xmatch.Value, error) {
	idCol := t.plan.IDColumnIndex()
	if idCol < 0 || idCol >= len(rawRow) {
		return nil, nil
	}
	id, ok := convertID[I](rawRow[idCol])
	if !ok {
		return nil, nil
	}
	idx := t.mapper.ToIndex(id)
	if idx < 0 || idx >= t.upload.RowCount() {
		return nil, nil
	}
	return t.upload.GetRow(idx)
}

// convertID converts an identifier cell, as echoed by a remote service, to the identifier type of a RowMapper
func convertID[I any](v xmatch.Value) (id I, ok bool) {
	if v == nil {
		return id, false
	}
	if direct, isID := v.(I); isID {
		return direct, true
	}
	switch p := any(&id).(type) {
	case *int64:
		f, ok := xmatch.ToFloat64(v)
		if !ok {
			return id, false
		}
		*p = int64(f)
	case *int32:
		f, ok := xmatch.ToFloat64(v)
		if !ok {
			return id, false
		}
		*p = int32(f)
	case *string:
		*p = fmt.Sprint(v)
	default:
		return id, false
	}
	return id, true
}
