package coverage

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/internal/util"
	"github.com/go-sif/xmatch/logging"
)

// Loader produces a ready Coverage, possibly performing I/O
type Loader func(ctx context.Context) (xmatch.Coverage, error)

// LazyCoverage defers loading a Coverage until Init is called. Before a successful Init,
// and after a failed one, it overlaps everything.
type LazyCoverage struct {
	name   string
	loader Loader
	lock   sync.Mutex
	done   bool
	err    error
	ready  atomic.Pointer[xmatch.Coverage]
	logger *logging.Logger
}

// Lazy produces a Coverage which is loaded by loader on the first call to Init
func Lazy(name string, loader Loader) *LazyCoverage {
	return &LazyCoverage{
		name:   name,
		loader: loader,
		logger: logging.For("coverage"),
	}
}

// Init loads the Coverage. The first caller performs the load while concurrent callers wait,
// and all callers observe the same outcome. A load interrupted by ctx is not remembered.
func (c *LazyCoverage) Init(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.done {
		return c.err
	}
	cov, err := c.loader(ctx)
	if err == nil {
		err = cov.Init(ctx)
	}
	if err != nil && ctx.Err() != nil {
		return err
	}
	c.done = true
	c.err = err
	if err != nil {
		c.logger.Warn().Err(err).Str("coverage", c.name).Msg("Unable to load coverage; no queries will be skipped")
		return err
	}
	c.ready.Store(&cov)
	c.logger.Debug().Str("coverage", c.name).Msg("Loaded coverage")
	return nil
}

// Overlaps consults the loaded Coverage. It returns true if the Coverage is not loaded,
// or if the loaded Coverage panics.
func (c *LazyCoverage) Overlaps(ra float64, dec float64, radius float64) bool {
	cov := c.ready.Load()
	if cov == nil {
		return true
	}
	overlaps, panicked := util.SafeOverlaps(*cov, ra, dec, radius)
	if panicked != nil {
		c.logger.Warn().Err(panicked).Str("coverage", c.name).Msg("Coverage evaluation failed; assuming overlap")
	}
	return overlaps
}

// Ready returns true iff the Coverage has been loaded successfully
func (c *LazyCoverage) Ready() bool {
	return c.ready.Load() != nil
}
