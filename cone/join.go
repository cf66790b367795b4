// Package cone joins the per-row results of cone searches onto the rows of the input table.
package cone

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/dispatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/internal/config"
	"github.com/go-sif/xmatch/internal/rowstore"
	"github.com/go-sif/xmatch/logging"
	"github.com/go-sif/xmatch/schema"
	"github.com/go-sif/xmatch/table"
)

// NoSchemaMessage is attached to the output when no search ever revealed the result columns
const NoSchemaMessage = "No successful searches - can't determine output columns"

// Options configures a Join
type Options struct {
	// CopyColumns names the input columns copied into each output row. nil copies every input column.
	CopyColumns []string `validate:"dive,required"`
	// IncludeBlanks produces an output row, with blank result cells, for every query with no matches
	IncludeBlanks bool
	// BestOnly keeps only the nearest match for each query
	BestOnly bool
	// StrictDistance drops matches which lie outside the search radius
	StrictDistance bool
	// DistanceColumn, if set, names an output column holding the distance of each match in degrees
	DistanceColumn string
	// InputFix and ResultFix deduplicate the names of the copied input columns and the result columns
	InputFix  schema.FixAction
	ResultFix schema.FixAction
	// Name of the output Table. Defaults to "xmatch".
	Name string
}

func ensureDefaultOptionsValues(opts *Options) {
	if len(opts.Name) == 0 {
		opts.Name = "xmatch"
	}
}

// Join consumes QueryResults in order and produces the joined output rows.
// The output Schema is established by the first non-nil result.
type Join struct {
	results     xmatch.ResultIterator
	searcher    xmatch.Searcher
	opts        Options
	copyIdx     []int
	copySchema  xmatch.Schema
	outSchema   xmatch.Schema
	resultWidth int
	raIdx       int
	decIdx      int
	pending     [][]xmatch.Value // copied cells of blank rows received before the Schema was known
	buffered    [][]xmatch.Value // output rows ready to be returned
	done        bool
	closeOnce   sync.Once
	logger      *logging.Logger
}

// NewJoin produces a Join over results, which must be in Index order, for queries read from
// rows with inputSchema
func NewJoin(results xmatch.ResultIterator, inputSchema xmatch.Schema, searcher xmatch.Searcher, opts *Options) (*Join, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	ensureDefaultOptionsValues(&o)
	if err := config.Validate(&o); err != nil {
		return nil, err
	}
	var copyIdx []int
	if o.CopyColumns == nil {
		copyIdx = make([]int, inputSchema.NumColumns())
		for i := range copyIdx {
			copyIdx[i] = i
		}
	} else {
		copyIdx = make([]int, len(o.CopyColumns))
		for i, name := range o.CopyColumns {
			col, err := inputSchema.GetOffset(name)
			if err != nil {
				return nil, err
			}
			copyIdx[i] = col.Index()
		}
	}
	copySchema, err := schema.Select(inputSchema, copyIdx)
	if err != nil {
		return nil, err
	}
	return &Join{
		results:    results,
		searcher:   searcher,
		opts:       o,
		copyIdx:    copyIdx,
		copySchema: copySchema,
		raIdx:      -1,
		decIdx:     -1,
		pending:    make([][]xmatch.Value, 0),
		buffered:   make([][]xmatch.Value, 0),
		logger:     logging.For("cone"),
	}, nil
}

// Stream produces the output as a single-pass Table. It reads results until the output Schema
// is known, so it blocks until the first successful search completes.
// If the results end before any Schema is established, and no blank rows are pending,
// the output is an empty Table whose Params carry NoSchemaMessage.
func (j *Join) Stream() (xmatch.Table, error) {
	for j.outSchema == nil && !j.done {
		if err := j.advance(); err != nil {
			j.Close()
			return nil, err
		}
	}
	if j.outSchema == nil {
		if len(j.pending) == 0 {
			j.logger.Warn().Msg(NoSchemaMessage)
			return table.Empty(j.opts.Name, j.copySchema, NoSchemaMessage), j.Close()
		}
		// every query was blank: the output is the copied input columns alone
		if err := j.latch(schema.CreateSchema()); err != nil {
			return nil, err
		}
	}
	iter := &table.FuncIterator{NextFn: j.nextRow, CloseFn: j.Close}
	return table.NewStream(j.opts.Name, j.outSchema, nil, iter), nil
}

// Collect reads the whole output into a random-access Table, and closes the Join
func (j *Join) Collect(ctx context.Context) (xmatch.RandomAccessTable, error) {
	defer j.Close()
	stream, err := j.Stream()
	if err != nil {
		return nil, err
	}
	store, err := rowstore.New(&rowstore.Options{Name: j.opts.Name})
	if err != nil {
		return nil, err
	}
	for k, v := range stream.Params() {
		store.Params()[k] = v
	}
	if err := store.AcceptMetadata(stream.Schema()); err != nil {
		return nil, err
	}
	iter, err := stream.RowIterator()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.InterruptedError{Cause: err}
		}
		row, err := iter.NextRow()
		if _, ok := err.(errors.NoMoreRowsError); ok {
			break
		} else if err != nil {
			return nil, err
		}
		if err := store.AcceptRow(row); err != nil {
			return nil, err
		}
	}
	if err := store.EndRows(); err != nil {
		return nil, err
	}
	return store, nil
}

// Close closes the underlying ResultIterator
func (j *Join) Close() error {
	var err error
	j.closeOnce.Do(func() {
		err = j.results.Close()
	})
	return err
}

func (j *Join) nextRow() ([]xmatch.Value, error) {
	for len(j.buffered) == 0 {
		if j.done {
			return nil, errors.NoMoreRowsError{}
		}
		if err := j.advance(); err != nil {
			return nil, err
		}
	}
	row := j.buffered[0]
	j.buffered[0] = nil
	j.buffered = j.buffered[1:]
	return row, nil
}

// advance consumes a single QueryResult
func (j *Join) advance() error {
	res, err := j.results.NextResult()
	if _, ok := err.(errors.NoMoreResultsError); ok {
		j.done = true
		return nil
	} else if err != nil {
		return err
	}
	return j.accept(res)
}

func (j *Join) accept(res *xmatch.QueryResult) error {
	copied := j.copyCells(res.Row)
	if res.Result == nil {
		if !j.opts.IncludeBlanks {
			return nil
		}
		if j.outSchema == nil {
			j.pending = append(j.pending, copied)
		} else {
			j.buffered = append(j.buffered, j.blankRow(copied))
		}
		return nil
	}
	resultSchema := res.Result.Schema()
	if j.outSchema == nil {
		if err := j.latch(resultSchema); err != nil {
			return err
		}
		j.raIdx = j.searcher.RaColumnIndex(resultSchema)
		j.decIdx = j.searcher.DecColumnIndex(resultSchema)
		if (j.opts.BestOnly || j.opts.StrictDistance || len(j.opts.DistanceColumn) > 0) && (j.raIdx < 0 || j.decIdx < 0) {
			j.logger.Warn().Msg("Result position columns are unknown; distances cannot be computed")
		}
	} else if resultSchema.NumColumns() != j.resultWidth {
		return errors.IncompatibleSchemaError{Expected: j.resultWidth, Actual: resultSchema.NumColumns()}
	}

	rows, err := readRows(res.Result)
	if err != nil {
		return fmt.Errorf("Unable to read result of query %d: %w", res.Index, err)
	}
	matches := Score(rows, j.raIdx, j.decIdx, res.Ra, res.Dec)
	if j.opts.StrictDistance {
		matches = WithinRadius(matches, res.Radius)
	}
	if j.opts.BestOnly {
		matches = BestOnly(matches)
	}
	if len(matches) == 0 && j.opts.IncludeBlanks {
		j.buffered = append(j.buffered, j.blankRow(copied))
		return nil
	}
	for _, m := range matches {
		if len(m.Row) != j.resultWidth {
			return errors.IncompatibleRowError{Expected: j.resultWidth, Actual: len(m.Row)}
		}
		out := make([]xmatch.Value, 0, j.outSchema.NumColumns())
		out = append(out, copied...)
		out = append(out, m.Row...)
		if len(j.opts.DistanceColumn) > 0 {
			if math.IsNaN(m.Distance) {
				out = append(out, nil)
			} else {
				out = append(out, m.Distance)
			}
		}
		j.buffered = append(j.buffered, out)
	}
	return nil
}

// latch establishes the output Schema from the Schema of the first result, and flushes pending blank rows
func (j *Join) latch(resultSchema xmatch.Schema) error {
	j.resultWidth = resultSchema.NumColumns()
	schemas := []xmatch.Schema{j.copySchema, resultSchema}
	actions := []schema.FixAction{j.opts.InputFix, j.opts.ResultFix}
	if len(j.opts.DistanceColumn) > 0 {
		distSchema, err := schema.FromColumns(xmatch.ColumnInfo{
			Name:        j.opts.DistanceColumn,
			Type:        &xmatch.Float64ColumnType{},
			Description: "Distance from the search position, in degrees",
			UCD:         "pos.angDistance",
		})
		if err != nil {
			return err
		}
		schemas = append(schemas, distSchema)
		actions = append(actions, schema.NoFix())
	}
	fixed, err := schema.FixColumns(schemas, actions)
	if err != nil {
		return err
	}
	out, err := schema.Concat(fixed...)
	if err != nil {
		return err
	}
	j.outSchema = out
	j.logger.Debug().Strs("columns", out.ColumnNames()).Msg("Established output schema")
	for _, copied := range j.pending {
		j.buffered = append(j.buffered, j.blankRow(copied))
	}
	j.pending = nil
	return nil
}

func (j *Join) copyCells(row []xmatch.Value) []xmatch.Value {
	copied := make([]xmatch.Value, len(j.copyIdx))
	for i, idx := range j.copyIdx {
		if idx < len(row) {
			copied[i] = row[idx]
		}
	}
	return copied
}

// blankRow produces an output row with the given copied cells and blank result cells
func (j *Join) blankRow(copied []xmatch.Value) []xmatch.Value {
	out := make([]xmatch.Value, j.outSchema.NumColumns())
	copy(out, copied)
	return out
}

func readRows(t xmatch.Table) ([][]xmatch.Value, error) {
	iter, err := t.RowIterator()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	rows := make([][]xmatch.Value, 0)
	for {
		row, err := iter.NextRow()
		if _, ok := err.(errors.NoMoreRowsError); ok {
			return rows, nil
		} else if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// MatchTable reads queries from in, searches them with searcher, and joins the results onto the input rows.
// The returned Join must be closed, either directly or by closing the RowIterator of its Stream.
func MatchTable(ctx context.Context, in xmatch.Table, queries xmatch.QueryFactory, searcher xmatch.Searcher, dopts *dispatch.Options, copts *Options) (*Join, error) {
	seq, err := queries(in)
	if err != nil {
		return nil, err
	}
	d, err := dispatch.New(ctx, seq, searcher, dopts)
	if err != nil {
		seq.Close()
		return nil, err
	}
	join, err := NewJoin(d, in.Schema(), searcher, copts)
	if err != nil {
		d.Close()
		return nil, err
	}
	return join, nil
}
