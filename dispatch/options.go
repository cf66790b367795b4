// Package dispatch executes sequences of cone queries against a Searcher, producing
// results in input order either one at a time or with a pool of concurrent workers.
package dispatch

import (
	"context"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/coverage"
	"github.com/go-sif/xmatch/errpolicy"
	"github.com/go-sif/xmatch/internal/config"
	"github.com/go-sif/xmatch/internal/stats"
)

// Options configures a dispatcher
type Options struct {
	Parallelism int              `validate:"min=1,max=1024"` // number of concurrent searches. Defaults to 1.
	Policy      errpolicy.Policy // handling of failed searches. Defaults to errpolicy.Abort().
	Coverage    xmatch.Coverage  // queries which cannot overlap the Coverage are skipped. Defaults to coverage.Full().
	RunID       string           // identifies the run in log messages. Generated if empty.
}

func ensureDefaultOptionsValues(opts *Options) {
	if opts.Parallelism == 0 {
		opts.Parallelism = 1
	}
	if opts.Coverage == nil {
		opts.Coverage = coverage.Full()
	}
	if len(opts.RunID) == 0 {
		opts.RunID = stats.NewRunID()
	}
}

func prepareOptions(opts *Options) (Options, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	ensureDefaultOptionsValues(&o)
	if err := config.Validate(&o); err != nil {
		return o, err
	}
	return o, nil
}

// OptionsFromEnv reads Options from <prefix>PARALLELISM and <prefix>ERROR_POLICY
func OptionsFromEnv(prefix string) (*Options, error) {
	c := config.New().Prefix(prefix)
	policy, err := errpolicy.Parse(c.Get("ERROR_POLICY", "abort"))
	if err != nil {
		return nil, err
	}
	return &Options{
		Parallelism: c.GetInt("PARALLELISM", 1),
		Policy:      policy,
	}, nil
}

// Dispatcher is a ResultIterator which also reports statistics about its run
type Dispatcher interface {
	xmatch.ResultIterator
	Stats() xmatch.RunStatistics
}

// New produces a Sequential dispatcher if opts.Parallelism is at most 1, and a Parallel one otherwise
func New(ctx context.Context, seq xmatch.QuerySequence, searcher xmatch.Searcher, opts *Options) (Dispatcher, error) {
	if opts == nil || opts.Parallelism <= 1 {
		return NewSequential(ctx, seq, searcher, opts)
	}
	return NewParallel(ctx, seq, searcher, opts)
}
