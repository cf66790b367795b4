package dispatch

import (
	"context"
	"sync"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errpolicy"
	"github.com/go-sif/xmatch/internal/sky"
	"github.com/go-sif/xmatch/internal/stats"
	"github.com/go-sif/xmatch/internal/util"
	"github.com/go-sif/xmatch/logging"
)

// resolver turns a single Query into a QueryResult
type resolver struct {
	search   util.SearchFunc
	policy   errpolicy.Policy
	coverage xmatch.Coverage
	initOnce sync.Once
	stats    *stats.RunStatistics
	logger   *logging.Logger
}

func newResolver(searcher xmatch.Searcher, opts Options, rs *stats.RunStatistics, logger *logging.Logger) *resolver {
	return &resolver{
		search:   util.SafeSearch(searcher),
		policy:   opts.Policy,
		coverage: opts.Coverage,
		stats:    rs,
		logger:   logger,
	}
}

// initCoverage initializes the Coverage once. If that fails, coverage is disabled.
func (r *resolver) initCoverage(ctx context.Context) {
	r.initOnce.Do(func() {
		if err := r.coverage.Init(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("Coverage initialization failed; all queries will be searched")
			r.coverage = nil
		}
	})
}

// resolve performs a Query. If force is true, the search goes ahead regardless of coverage.
func (r *resolver) resolve(ctx context.Context, q xmatch.Query, force bool) (*xmatch.QueryResult, error) {
	res := &xmatch.QueryResult{Query: q}
	if !sky.ValidPosition(q.Ra, q.Dec) {
		r.stats.QuerySkipped()
		r.logger.Trace().Int64("index", q.Index).Msg("Skipping query without a position")
		return res, nil
	}
	if !force {
		overlaps, panicked := util.SafeOverlaps(r.coverage, q.Ra, q.Dec, q.Radius)
		if panicked != nil {
			r.logger.Warn().Err(panicked).Msg("Coverage evaluation failed; assuming overlap")
		}
		if !overlaps {
			r.stats.QuerySkipped()
			r.logger.Trace().Int64("index", q.Index).Msg("Skipping query outside coverage")
			return res, nil
		}
	}
	failed := false
	result, err := r.policy.Execute(ctx, func(ctx context.Context) (xmatch.Table, error) {
		t, err := r.search(ctx, q.Ra, q.Dec, q.Radius)
		failed = err != nil
		return t, err
	})
	if err != nil {
		return nil, err
	}
	if failed && r.policy.Ignores() {
		r.stats.QueryFailed()
	}
	r.stats.QuerySearched(isEmpty(result))
	res.Result = result
	return res, nil
}

func isEmpty(t xmatch.Table) bool {
	if t == nil {
		return true
	}
	if rat, ok := t.(xmatch.RandomAccessTable); ok {
		return rat.RowCount() == 0
	}
	return false
}

// logSummary reports the statistics of a finished run
func logSummary(logger *logging.Logger, rs *stats.RunStatistics) {
	logger.Info().
		Int64("submitted", rs.GetNumQueriesSubmitted()).
		Int64("searched", rs.GetNumQueriesSearched()).
		Int64("skipped", rs.GetNumQueriesSkipped()).
		Int64("empty", rs.GetNumQueriesEmpty()).
		Int64("failed", rs.GetNumQueriesFailed()).
		Dur("runtime", rs.GetRuntime()).
		Msg("Dispatch finished")
}
