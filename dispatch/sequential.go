package dispatch

import (
	"context"
	"sync"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/internal/stats"
	"github.com/go-sif/xmatch/logging"
)

// Sequential resolves one query at a time, in input order, on the caller's goroutine
type Sequential struct {
	ctx       context.Context
	cancel    context.CancelFunc
	seq       xmatch.QuerySequence
	r         *resolver
	stats     *stats.RunStatistics
	logger    *logging.Logger
	next      int64
	done      bool
	err       error
	closeOnce sync.Once
}

// NewSequential produces a dispatcher which performs each search only when the
// corresponding result is requested
func NewSequential(ctx context.Context, seq xmatch.QuerySequence, searcher xmatch.Searcher, opts *Options) (*Sequential, error) {
	o, err := prepareOptions(opts)
	if err != nil {
		return nil, err
	}
	rs := stats.Start(o.RunID)
	logger := logging.For("dispatch").With().Str("run", rs.GetRunID()).Str("mode", "sequential").Logger()
	cctx, cancel := context.WithCancel(ctx)
	return &Sequential{
		ctx:    cctx,
		cancel: cancel,
		seq:    seq,
		r:      newResolver(searcher, o, rs, &logger),
		stats:  rs,
		logger: &logger,
	}, nil
}

// NextResult resolves the next query
func (d *Sequential) NextResult() (*xmatch.QueryResult, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.done {
		return nil, errors.NoMoreResultsError{}
	}
	if err := d.ctx.Err(); err != nil {
		d.err = errors.InterruptedError{Cause: err}
		return nil, d.err
	}
	d.r.initCoverage(d.ctx)
	cq, err := d.seq.NextQuery()
	if _, ok := err.(errors.NoMoreQueriesError); ok {
		d.done = true
		d.finish()
		return nil, errors.NoMoreResultsError{}
	} else if err != nil {
		d.err = err
		return nil, err
	}
	d.stats.QuerySubmitted()
	q := xmatch.Query{Index: d.next, ConeQuery: *cq}
	d.next++
	res, err := d.r.resolve(d.ctx, q, false)
	if err != nil {
		d.err = err
		d.logger.Error().Err(err).Int64("index", q.Index).Msg("Search failed")
		return nil, err
	}
	return res, nil
}

// Close stops the dispatcher and closes the underlying QuerySequence
func (d *Sequential) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.cancel()
		err = d.seq.Close()
		d.stats.Finish()
	})
	return err
}

// Stats returns statistics about this dispatcher's run
func (d *Sequential) Stats() xmatch.RunStatistics {
	return d.stats
}

func (d *Sequential) finish() {
	d.stats.Finish()
	logSummary(d.logger, d.stats)
}
