package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/internal/sky"
	"github.com/go-sif/xmatch/internal/stats"
	"github.com/go-sif/xmatch/logging"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// capacityFactor determines the soft capacity of the result pool, relative to the parallelism
const capacityFactor = 3

// Parallel resolves queries with a fixed pool of worker goroutines, returning results in input order.
//
// Workers pull queries from the shared QuerySequence under a lock, which also assigns each query
// its Index, and then search outside of the lock. Completed results wait in a pool ordered by
// Index until the consumer asks for them. A worker whose result would grow the pool beyond its
// soft capacity waits, unless its result precedes the latest result in the pool: the result the
// consumer is waiting for can therefore always be inserted.
type Parallel struct {
	ctx       context.Context
	cancel    context.CancelFunc
	seq       xmatch.QuerySequence
	r         *resolver
	stats     *stats.RunStatistics
	logger    *logging.Logger
	capacity  int
	group     *errgroup.Group
	closeOnce sync.Once
	closeErr  error

	// guarded by pullLock
	pullLock  sync.Mutex
	nextIndex int64
	exhausted bool
	forced    bool

	// guarded by lock
	lock     sync.Mutex
	cond     *sync.Cond
	pool     *resultPool
	expected int64
	running  int
	err      error
	closed   bool
	finished bool
}

// NewParallel starts opts.Parallelism workers, which begin searching immediately
func NewParallel(ctx context.Context, seq xmatch.QuerySequence, searcher xmatch.Searcher, opts *Options) (*Parallel, error) {
	o, err := prepareOptions(opts)
	if err != nil {
		return nil, err
	}
	rs := stats.Start(o.RunID)
	logger := logging.For("dispatch").With().Str("run", rs.GetRunID()).Str("mode", "parallel").Logger()
	cctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(cctx)
	d := &Parallel{
		ctx:      gctx,
		cancel:   cancel,
		seq:      seq,
		r:        newResolver(searcher, o, rs, &logger),
		stats:    rs,
		logger:   &logger,
		capacity: capacityFactor * o.Parallelism,
		group:    group,
		pool:     newResultPool(capacityFactor * o.Parallelism),
		running:  o.Parallelism,
	}
	d.cond = sync.NewCond(&d.lock)
	logger.Debug().Int("parallelism", o.Parallelism).Msg("Starting workers")
	for i := 0; i < o.Parallelism; i++ {
		workerID := i
		group.Go(func() error {
			return d.work(workerID)
		})
	}
	return d, nil
}

// work is the loop of a single worker: pull, resolve, submit
func (d *Parallel) work(workerID int) error {
	defer d.workerFinished()
	d.r.initCoverage(d.ctx)
	searched := 0
	for {
		q, force, err := d.pull()
		if _, ok := err.(errors.NoMoreQueriesError); ok {
			d.logger.Trace().Int("worker", workerID).Int("queries", searched).Msg("Worker finished")
			return nil
		} else if err != nil {
			d.fail(err)
			return err
		}
		res, err := d.r.resolve(d.ctx, *q, force)
		if err != nil {
			d.fail(err)
			return err
		}
		searched++
		if !d.submit(res) {
			return nil
		}
	}
}

// pull obtains the next query and assigns its Index. force is true for the first query
// with a usable position, which is searched even if it lies outside the coverage, so that
// at least one search reveals the result Schema.
func (d *Parallel) pull() (q *xmatch.Query, force bool, err error) {
	if err := d.ctx.Err(); err != nil {
		return nil, false, errors.InterruptedError{Cause: err}
	}
	d.pullLock.Lock()
	defer d.pullLock.Unlock()
	if d.exhausted {
		return nil, false, errors.NoMoreQueriesError{}
	}
	cq, err := d.seq.NextQuery()
	if _, ok := err.(errors.NoMoreQueriesError); ok {
		d.exhausted = true
		return nil, false, err
	} else if err != nil {
		return nil, false, err
	}
	q = &xmatch.Query{Index: d.nextIndex, ConeQuery: *cq}
	d.nextIndex++
	if !d.forced && sky.ValidPosition(cq.Ra, cq.Dec) {
		d.forced = true
		force = true
	}
	d.stats.QuerySubmitted()
	return q, force, nil
}

// submit adds a result to the pool, waiting while the pool is full and the result is not needed soon.
// It returns false if the dispatcher has been closed or has failed.
func (d *Parallel) submit(res *xmatch.QueryResult) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	for !d.closed && d.err == nil && d.pool.len() >= d.capacity && res.Index > d.pool.maxIndex() {
		d.cond.Wait()
	}
	if d.closed || d.err != nil {
		return false
	}
	d.pool.push(res)
	d.cond.Broadcast()
	return true
}

// fail records the first unrecoverable error and stops all workers
func (d *Parallel) fail(err error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.err == nil && !d.closed {
		d.err = err
		d.logger.Error().Err(err).Msg("Search failed; stopping workers")
	}
	d.cancel()
	d.cond.Broadcast()
}

func (d *Parallel) workerFinished() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.running--
	d.cond.Broadcast()
}

// NextResult blocks until the result of the next query in input order is available
func (d *Parallel) NextResult() (*xmatch.QueryResult, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	for {
		if d.err != nil {
			return nil, d.err
		}
		if d.closed {
			return nil, errors.InterruptedError{Cause: context.Canceled}
		}
		if d.pool.peekIndex() == d.expected {
			res := d.pool.pop()
			d.expected++
			d.cond.Broadcast()
			return res, nil
		}
		if d.running == 0 {
			if d.pool.len() > 0 {
				d.err = fmt.Errorf("Result %d is missing, but %d later results are waiting", d.expected, d.pool.len())
				return nil, d.err
			}
			if !d.finished {
				d.finished = true
				d.cancel()
				d.stats.Finish()
				logSummary(d.logger, d.stats)
			}
			return nil, errors.NoMoreResultsError{}
		}
		d.cond.Wait()
	}
}

// Close stops all workers, closes the underlying QuerySequence and waits for the workers to exit
func (d *Parallel) Close() error {
	d.closeOnce.Do(func() {
		d.lock.Lock()
		d.closed = true
		d.cancel()
		d.cond.Broadcast()
		d.lock.Unlock()

		var errs *multierror.Error
		if err := d.seq.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := d.group.Wait(); err != nil {
			if _, ok := err.(errors.InterruptedError); !ok {
				d.logger.Debug().Err(err).Msg("Worker stopped with an error")
			}
		}
		d.stats.Finish()
		d.closeErr = errs.ErrorOrNil()
	})
	return d.closeErr
}

// Stats returns statistics about this dispatcher's run
func (d *Parallel) Stats() xmatch.RunStatistics {
	return d.stats
}
