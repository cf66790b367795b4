// Package upload drives bulk cross-match services, which accept a whole table of positions
// per request, over inputs larger than a single request may carry.
package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/internal/config"
	"github.com/go-sif/xmatch/internal/rowstore"
	"github.com/go-sif/xmatch/internal/stats"
	"github.com/go-sif/xmatch/logging"
	"github.com/go-sif/xmatch/schema"
	"github.com/go-sif/xmatch/table"
)

// EmptyInputMessage is attached to the output when the input Table has no rows
const EmptyInputMessage = "Input table is empty"

// NoResultMessage is attached to the output when the matcher never declared its result columns
const NoResultMessage = "No result metadata received - can't determine output columns"

// Options configures a BlockUploader
type Options struct {
	BlockSize   int              `validate:"min=1"` // maximum number of input rows per upload. Defaults to 50000.
	MaxRec      int64            // maximum number of result rows over all blocks. Unbounded if <= 0.
	Find        xmatch.FindMode  // the pairs retained by the matcher
	InputFix    schema.FixAction // renaming applied to input columns which clash with result columns
	RawFix      schema.FixAction // renaming applied to result columns which clash with input columns
	Name        string           // name of the output Table. Defaults to "xmatch".
	Compression string           `validate:"oneof=lz4 zstd none"` // compression of buffered result pages. Defaults to "lz4".
	RunID       string           // identifies the run in log messages. Generated if empty.
}

func ensureDefaultOptionsValues(opts *Options) {
	if opts.BlockSize == 0 {
		opts.BlockSize = 50000
	}
	if len(opts.Name) == 0 {
		opts.Name = "xmatch"
	}
	if len(opts.Compression) == 0 {
		opts.Compression = "lz4"
	}
	if len(opts.RunID) == 0 {
		opts.RunID = stats.NewRunID()
	}
}

// BlockReport describes the outcome of a single block
type BlockReport struct {
	Block     xmatch.Block
	Rows      int64 // result rows received for this block
	Truncated bool  // true iff the matcher cut this block's result short
}

// Report describes the outcome of a BlockUploader run
type Report struct {
	RunID     string
	Blocks    []BlockReport
	TotalRows int64
	Truncated bool // true iff any block was truncated, or blocks were left unsubmitted because of MaxRec
	Stats     xmatch.RunStatistics
}

// BlockUploader splits an input Table into blocks of bounded size, and drives an UploadMatcher
// once per block, accumulating the raw results of all blocks into a single output Table
type BlockUploader[I any] struct {
	matcher xmatch.UploadMatcher[I]
	factory xmatch.MapperFactory[I]
	opts    Options
}

// NewBlockUploader creates a BlockUploader
func NewBlockUploader[I any](matcher xmatch.UploadMatcher[I], factory xmatch.MapperFactory[I], opts *Options) (*BlockUploader[I], error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	ensureDefaultOptionsValues(&o)
	if err := config.Validate(&o); err != nil {
		return nil, err
	}
	return &BlockUploader[I]{matcher: matcher, factory: factory, opts: o}, nil
}

// Run matches every row of in. Blocks are submitted one after another, reading queries
// through a single cursor produced by queries. A failure of any block fails the whole run.
func (u *BlockUploader[I]) Run(ctx context.Context, in xmatch.RandomAccessTable, queries xmatch.QueryFactory) (xmatch.Table, *Report, error) {
	rs := stats.Start(u.opts.RunID)
	logger := logging.For("upload").With().Str("run", u.opts.RunID).Logger()
	report := &Report{RunID: u.opts.RunID, Blocks: make([]BlockReport, 0), Stats: rs}
	defer rs.Finish()

	numRows := in.RowCount()
	if numRows == 0 {
		logger.Info().Msg(EmptyInputMessage)
		return table.Empty(u.opts.Name, schema.CreateSchema(), EmptyInputMessage), report, nil
	}
	blockSize := int64(u.opts.BlockSize)
	numBlocks := (numRows + blockSize - 1) / blockSize
	if numBlocks > 1 && u.opts.Find.RemoteUnique() {
		logger.Warn().
			Str("find", u.opts.Find.String()).
			Int64("blocks", numBlocks).
			Msg("Remote rows are only unique within each block; a remote row may appear once per block")
	}

	store, err := rowstore.New(&rowstore.Options{Name: u.opts.Name, Compression: u.opts.Compression})
	if err != nil {
		return nil, report, err
	}
	seq, err := queries(in)
	if err != nil {
		return nil, report, err
	}
	defer seq.Close()
	cursor := &sharedCursor{seq: seq}

	for bi := int64(0); bi < numBlocks && !cursor.isExhausted(); bi++ {
		maxrec := int64(-1)
		if u.opts.MaxRec > 0 {
			maxrec = u.opts.MaxRec - report.TotalRows
			if maxrec <= 0 {
				logger.Info().Int64("maxrec", u.opts.MaxRec).Int64("blocks_skipped", numBlocks-bi).Msg("Row limit reached")
				report.Truncated = true
				break
			}
		}
		block := xmatch.Block{StartRow: bi * blockSize, Size: u.opts.BlockSize}
		if remaining := numRows - block.StartRow; remaining < blockSize {
			block.Size = int(remaining)
		}
		br, err := u.runBlock(ctx, cursor, block, store, maxrec)
		if err != nil {
			return nil, report, fmt.Errorf("Block %d (rows %d-%d) failed: %w", bi, block.StartRow, block.StartRow+int64(block.Size)-1, err)
		}
		rs.BlockSubmitted()
		rs.RowsReceived(br.Rows)
		report.Blocks = append(report.Blocks, br)
		report.TotalRows += br.Rows
		report.Truncated = report.Truncated || br.Truncated
		logger.Debug().
			Int64("block", bi).
			Int("size", block.Size).
			Int64("rows", br.Rows).
			Bool("truncated", br.Truncated).
			Msg("Block complete")
	}
	if err := store.EndRows(); err != nil {
		return nil, report, err
	}
	logger.Info().
		Int("blocks", len(report.Blocks)).
		Int64("rows", report.TotalRows).
		Bool("truncated", report.Truncated).
		Msg("Upload match complete")

	if !store.HasSchema() {
		logger.Warn().Msg(NoResultMessage)
		return table.Empty(u.opts.Name, schema.CreateSchema(), NoResultMessage), report, nil
	}
	out, err := u.createOutput(store, in, &logger)
	if err != nil {
		return nil, report, err
	}
	return out, report, nil
}

// runBlock submits a single block, then skips any of its queries which the matcher did not consume
func (u *BlockUploader[I]) runBlock(ctx context.Context, cursor *sharedCursor, block xmatch.Block, store *rowstore.Store, maxrec int64) (BlockReport, error) {
	view := cursor.block(block)
	sink := &blockSink{store: store}
	mapper := u.factory(block.StartRow)
	truncated, err := u.matcher.StreamRawResult(ctx, view, sink, mapper, maxrec)
	if err != nil {
		return BlockReport{}, err
	}
	if err := view.drain(); err != nil {
		return BlockReport{}, err
	}
	return BlockReport{Block: block, Rows: sink.rows, Truncated: truncated}, nil
}

// createOutput renames clashing columns and hands the accumulated raw result to the matcher.
// Input columns keep precedence, unless they clash with a raw column which the matcher's
// ColumnPlan locates by name (the row identifier or score), in which case raw columns do.
func (u *BlockUploader[I]) createOutput(store *rowstore.Store, in xmatch.RandomAccessTable, logger *logging.Logger) (xmatch.Table, error) {
	plan := u.matcher.ColumnPlan(store.Schema(), in.Schema())
	rawFirst := false
	for _, idx := range []int{plan.IDColumnIndex(), plan.ScoreColumnIndex()} {
		if idx < 0 || idx >= store.Schema().NumColumns() {
			continue
		}
		name := store.Schema().GetColumn(idx).Name()
		for _, inName := range in.Schema().ColumnNames() {
			if schema.NamesClash(name, inName) {
				logger.Warn().Str("column", name).Msg("Input column clashes with a raw result column located by name; renaming input columns first")
				rawFirst = true
			}
		}
	}
	var fixed []xmatch.Schema
	var err error
	if rawFirst {
		fixed, err = schema.FixColumns(
			[]xmatch.Schema{store.Schema(), in.Schema()},
			[]schema.FixAction{u.opts.RawFix, u.opts.InputFix},
		)
		if err == nil {
			fixed[0], fixed[1] = fixed[1], fixed[0]
		}
	} else {
		fixed, err = schema.FixColumns(
			[]xmatch.Schema{in.Schema(), store.Schema()},
			[]schema.FixAction{u.opts.InputFix, u.opts.RawFix},
		)
	}
	if err != nil {
		return nil, err
	}
	inView, err := table.WithSchema(in, in.Name(), fixed[0])
	if err != nil {
		return nil, err
	}
	rawView, err := table.WithSchema(store, store.Name(), fixed[1])
	if err != nil {
		return nil, err
	}
	out, err := u.matcher.CreateOutputTable(rawView, inView, u.factory(0))
	if err != nil {
		return nil, err
	}
	if renamable, ok := out.(interface{ SetName(string) }); ok {
		renamable.SetName(u.opts.Name)
		return out, nil
	}
	return table.Named(out, u.opts.Name), nil
}

// sharedCursor is the single query cursor read by every block
type sharedCursor struct {
	lock      sync.Mutex
	seq       xmatch.QuerySequence
	exhausted bool
}

func (c *sharedCursor) isExhausted() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.exhausted
}

func (c *sharedCursor) block(b xmatch.Block) *blockView {
	return &blockView{cursor: c, block: b}
}

// blockView is a QuerySequence which dispenses at most one block of queries from a sharedCursor.
// RowIndex is reported relative to the start of the block.
type blockView struct {
	cursor    *sharedCursor
	block     xmatch.Block
	dispensed int
	done      bool
}

func (v *blockView) NextQuery() (*xmatch.ConeQuery, error) {
	v.cursor.lock.Lock()
	defer v.cursor.lock.Unlock()
	if v.done || v.dispensed >= v.block.Size || v.cursor.exhausted {
		return nil, errors.NoMoreQueriesError{}
	}
	q, err := v.cursor.seq.NextQuery()
	if _, ok := err.(errors.NoMoreQueriesError); ok {
		v.cursor.exhausted = true
		return nil, err
	} else if err != nil {
		return nil, err
	}
	v.dispensed++
	local := *q
	local.RowIndex = q.RowIndex - v.block.StartRow
	return &local, nil
}

// Close ends this block; the shared cursor stays open for the next one
func (v *blockView) Close() error {
	v.cursor.lock.Lock()
	defer v.cursor.lock.Unlock()
	v.done = true
	return nil
}

// drain consumes the queries of this block which were not read by the matcher,
// so that the next block starts at its first row
func (v *blockView) drain() error {
	v.cursor.lock.Lock()
	defer v.cursor.lock.Unlock()
	for v.dispensed < v.block.Size && !v.cursor.exhausted {
		_, err := v.cursor.seq.NextQuery()
		if _, ok := err.(errors.NoMoreQueriesError); ok {
			v.cursor.exhausted = true
			return nil
		} else if err != nil {
			return err
		}
		v.dispensed++
	}
	v.done = true
	return nil
}

// blockSink forwards a block's raw result into the shared store, counting rows.
// EndRows is left to the BlockUploader, which ends the store once every block is complete.
type blockSink struct {
	store *rowstore.Store
	rows  int64
}

func (s *blockSink) AcceptMetadata(schema xmatch.Schema) error {
	return s.store.AcceptMetadata(schema)
}

func (s *blockSink) AcceptRow(row []xmatch.Value) error {
	if err := s.store.AcceptRow(row); err != nil {
		return err
	}
	s.rows++
	return nil
}

func (s *blockSink) EndRows() error {
	return nil
}
