// Package errpolicy defines how failures of individual remote searches are handled.
package errpolicy

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/internal/util"
	"github.com/go-sif/xmatch/logging"
	"github.com/hashicorp/go-multierror"
)

// Mode identifies the behaviour of a Policy
type Mode int

const (
	// AbortMode propagates errors unchanged
	AbortMode Mode = iota
	// IgnoreMode logs errors and treats the search as having found nothing
	IgnoreMode
	// RetryMode repeats failed searches
	RetryMode
	// AdviceMode propagates errors with their message replaced by advice text
	AdviceMode
)

// Policy is a strategy for handling the failure of a single search. The zero Policy aborts.
type Policy struct {
	Mode     Mode
	Attempts int    // total number of attempts for RetryMode; unbounded if <= 0
	Advice   string // replacement error message for AdviceMode
}

// Abort produces a Policy which propagates errors unchanged
func Abort() Policy {
	return Policy{Mode: AbortMode}
}

// Ignore produces a Policy which logs errors and treats failed searches as having found nothing
func Ignore() Policy {
	return Policy{Mode: IgnoreMode}
}

// Retry produces a Policy which makes at most attempts attempts at each search,
// or retries indefinitely if attempts <= 0. Retries are immediate.
func Retry(attempts int) Policy {
	return Policy{Mode: RetryMode, Attempts: attempts}
}

// WithAdvice produces a Policy which aborts, replacing error messages with advice
func WithAdvice(advice string) Policy {
	return Policy{Mode: AdviceMode, Advice: advice}
}

// Parse produces a Policy from its textual form: "abort", "ignore", "retry" or "retryN"
func Parse(name string) (Policy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case name == "" || name == "abort":
		return Abort(), nil
	case name == "ignore":
		return Ignore(), nil
	case name == "retry":
		return Retry(0), nil
	case strings.HasPrefix(name, "retry"):
		n, err := strconv.Atoi(name[len("retry"):])
		if err != nil || n <= 0 {
			return Policy{}, fmt.Errorf("Malformed retry policy %q (expected e.g. retry3)", name)
		}
		return Retry(n), nil
	default:
		return Policy{}, fmt.Errorf("Unknown error policy %q (expected abort, ignore, retry or retryN)", name)
	}
}

// String returns the textual form of this Policy, as accepted by Parse
func (p Policy) String() string {
	switch p.Mode {
	case IgnoreMode:
		return "ignore"
	case RetryMode:
		if p.Attempts <= 0 {
			return "retry"
		}
		return fmt.Sprintf("retry%d", p.Attempts)
	case AdviceMode:
		return "advice"
	default:
		return "abort"
	}
}

// SearchFunc is a single search invocation
type SearchFunc func(ctx context.Context) (xmatch.Table, error)

// Execute invokes fn according to this Policy. ctx is checked immediately before and after
// every invocation, and an errors.InterruptedError is returned once it is done.
func (p Policy) Execute(ctx context.Context, fn SearchFunc) (xmatch.Table, error) {
	switch p.Mode {
	case IgnoreMode:
		result, err := invoke(ctx, fn)
		if err != nil {
			if _, ok := err.(errors.InterruptedError); ok {
				return nil, err
			}
			logging.For("errpolicy").Warn().Err(err).Msg("Ignoring failed search")
			return nil, nil
		}
		return result, nil
	case RetryMode:
		return p.retry(ctx, fn)
	case AdviceMode:
		result, err := invoke(ctx, fn)
		if err != nil {
			if _, ok := err.(errors.InterruptedError); ok {
				return nil, err
			}
			return nil, errors.AdviceError{Advice: p.Advice, Cause: err}
		}
		return result, nil
	default:
		return invoke(ctx, fn)
	}
}

// Ignores returns true iff this Policy swallows errors
func (p Policy) Ignores() bool {
	return p.Mode == IgnoreMode
}

func (p Policy) retry(ctx context.Context, fn SearchFunc) (xmatch.Table, error) {
	var all *multierror.Error
	logger := logging.For("errpolicy")
	for attempt := 1; ; attempt++ {
		result, err := invoke(ctx, fn)
		if err == nil {
			return result, nil
		}
		if _, ok := err.(errors.InterruptedError); ok {
			return nil, err
		}
		all = multierror.Append(all, err)
		all.ErrorFormat = util.FormatMultiError
		if p.Attempts > 0 && attempt >= p.Attempts {
			return nil, errors.RetryExhaustedError{Attempts: attempt, Last: err, All: all.ErrorOrNil()}
		}
		logger.Debug().Err(err).Int("attempt", attempt).Msg("Retrying failed search")
	}
}

// invoke calls fn, checking ctx before and after
func invoke(ctx context.Context, fn SearchFunc) (xmatch.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.InterruptedError{Cause: err}
	}
	result, err := fn(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.InterruptedError{Cause: ctxErr}
	}
	return result, err
}
