// Package table provides in-memory and streamed implementations of xmatch.Table,
// together with the QuerySequences which read cone positions from their rows.
package table

import (
	"fmt"
	"sync"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
)

// Memory is a RandomAccessTable whose rows are held in memory
type Memory struct {
	name   string
	schema xmatch.Schema
	params map[string]string
	lock   sync.RWMutex
	rows   [][]xmatch.Value
}

// New creates a Memory Table. Every row must have exactly one cell per column of schema.
func New(name string, schema xmatch.Schema, rows [][]xmatch.Value) (*Memory, error) {
	t := &Memory{
		name:   name,
		schema: schema,
		params: make(map[string]string),
		rows:   make([][]xmatch.Value, 0, len(rows)),
	}
	for _, row := range rows {
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Empty creates a zero-row Table which carries a diagnostic message
func Empty(name string, schema xmatch.Schema, message string) *Memory {
	t := &Memory{
		name:   name,
		schema: schema,
		params: make(map[string]string),
		rows:   make([][]xmatch.Value, 0),
	}
	if len(message) > 0 {
		t.params[xmatch.MessageParam] = message
	}
	return t
}

// Collect reads every row of t into a new Memory Table
func Collect(t xmatch.Table) (*Memory, error) {
	out := Empty(t.Name(), t.Schema(), "")
	for k, v := range t.Params() {
		out.params[k] = v
	}
	iter, err := t.RowIterator()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for {
		row, err := iter.NextRow()
		if _, ok := err.(errors.NoMoreRowsError); ok {
			break
		} else if err != nil {
			return nil, err
		}
		if err = out.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Name returns the name of this Table
func (t *Memory) Name() string {
	return t.name
}

// SetName renames this Table
func (t *Memory) SetName(name string) {
	t.name = name
}

// Schema returns the Schema of this Table
func (t *Memory) Schema() xmatch.Schema {
	return t.schema
}

// Params returns the table-level metadata of this Table
func (t *Memory) Params() map[string]string {
	return t.params
}

// SetParam sets a table-level metadata value
func (t *Memory) SetParam(key string, value string) {
	t.params[key] = value
}

// AppendRow adds a row to the end of this Table
func (t *Memory) AppendRow(row []xmatch.Value) error {
	if len(row) != t.schema.NumColumns() {
		return errors.IncompatibleRowError{Expected: t.schema.NumColumns(), Actual: len(row)}
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.rows = append(t.rows, row)
	return nil
}

// RowCount returns the number of rows in this Table
func (t *Memory) RowCount() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return int64(len(t.rows))
}

// GetRow retrieves a specific row from this Table
func (t *Memory) GetRow(rowIndex int64) ([]xmatch.Value, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if rowIndex < 0 || rowIndex >= int64(len(t.rows)) {
		return nil, errors.RowIndexError{Index: rowIndex, Count: int64(len(t.rows))}
	}
	return t.rows[rowIndex], nil
}

// RowIterator returns an iterator over the rows of this Table. It may be called any number of times.
func (t *Memory) RowIterator() (xmatch.RowIterator, error) {
	return Iterate(t), nil
}

// Iterate produces a RowIterator over any RandomAccessTable, using GetRow
func Iterate(t xmatch.RandomAccessTable) xmatch.RowIterator {
	return &randomAccessIterator{table: t}
}

type randomAccessIterator struct {
	table  xmatch.RandomAccessTable
	next   int64
	closed bool
}

func (i *randomAccessIterator) NextRow() ([]xmatch.Value, error) {
	if i.closed || i.next >= i.table.RowCount() {
		return nil, errors.NoMoreRowsError{}
	}
	row, err := i.table.GetRow(i.next)
	if err != nil {
		return nil, err
	}
	i.next++
	return row, nil
}

func (i *randomAccessIterator) Close() error {
	i.closed = true
	return nil
}

// Stream is a single-pass Table whose rows are produced on demand
type Stream struct {
	name   string
	schema xmatch.Schema
	params map[string]string
	lock   sync.Mutex
	iter   xmatch.RowIterator
}

// NewStream creates a single-pass Table over iter. RowIterator may only be called once.
func NewStream(name string, schema xmatch.Schema, params map[string]string, iter xmatch.RowIterator) *Stream {
	if params == nil {
		params = make(map[string]string)
	}
	return &Stream{name: name, schema: schema, params: params, iter: iter}
}

// Name returns the name of this Table
func (t *Stream) Name() string {
	return t.name
}

// SetName renames this Table
func (t *Stream) SetName(name string) {
	t.name = name
}

// Schema returns the Schema of this Table
func (t *Stream) Schema() xmatch.Schema {
	return t.schema
}

// Params returns the table-level metadata of this Table
func (t *Stream) Params() map[string]string {
	return t.params
}

// RowIterator hands over the underlying iterator. Subsequent calls return an error.
func (t *Stream) RowIterator() (xmatch.RowIterator, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.iter == nil {
		return nil, fmt.Errorf("Table %s is a stream which has already been consumed", t.name)
	}
	iter := t.iter
	t.iter = nil
	return iter, nil
}

// FuncIterator adapts a pair of functions to the RowIterator interface.
// A nil CloseFn is permitted.
type FuncIterator struct {
	NextFn  func() ([]xmatch.Value, error)
	CloseFn func() error
}

// NextRow returns the next row
func (f *FuncIterator) NextRow() ([]xmatch.Value, error) {
	return f.NextFn()
}

// Close releases any resources held by the iterator
func (f *FuncIterator) Close() error {
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}
