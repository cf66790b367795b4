package errpolicy

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/schema"
	"github.com/go-sif/xmatch/table"
	"github.com/stretchr/testify/require"
)

func alwaysFails(calls *int) SearchFunc {
	return func(ctx context.Context) (xmatch.Table, error) {
		*calls++
		return nil, fmt.Errorf("failure %d", *calls)
	}
}

func succeedsOn(attempt int, calls *int) SearchFunc {
	return func(ctx context.Context) (xmatch.Table, error) {
		*calls++
		if *calls < attempt {
			return nil, fmt.Errorf("failure %d", *calls)
		}
		return table.Empty("result", schema.CreateSchema(), ""), nil
	}
}

func TestRetryTerminatesAfterExactlyNAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(3).Execute(context.Background(), alwaysFails(&calls))
	require.Equal(t, 3, calls)
	var exhausted errors.RetryExhaustedError
	require.True(t, goerrors.As(err, &exhausted))
	require.Equal(t, 3, exhausted.Attempts)
	require.Equal(t, "failure 3", goerrors.Unwrap(err).Error())
	require.Contains(t, exhausted.All.Error(), "failure 1")
	require.Contains(t, exhausted.All.Error(), "failure 2")
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	result, err := Retry(3).Execute(context.Background(), succeedsOn(2, &calls))
	require.Nil(t, err)
	require.NotNil(t, result)
	require.Equal(t, 2, calls)
}

// Retries are immediate: there is no backoff between attempts.
func TestRetryUnboundedHasNoBackoff(t *testing.T) {
	calls := 0
	result, err := Retry(0).Execute(context.Background(), succeedsOn(50, &calls))
	require.Nil(t, err)
	require.NotNil(t, result)
	require.Equal(t, 50, calls)
}

func TestRetryObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(0).Execute(ctx, func(ctx context.Context) (xmatch.Table, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		return nil, fmt.Errorf("failure")
	})
	require.IsType(t, errors.InterruptedError{}, err)
	require.True(t, goerrors.Is(err, context.Canceled))
	require.Equal(t, 3, calls)
}

func TestAbortPropagatesUnchanged(t *testing.T) {
	cause := fmt.Errorf("no route to host")
	_, err := Abort().Execute(context.Background(), func(ctx context.Context) (xmatch.Table, error) {
		return nil, cause
	})
	require.Equal(t, cause, err)
}

func TestIgnoreSwallows(t *testing.T) {
	calls := 0
	result, err := Ignore().Execute(context.Background(), alwaysFails(&calls))
	require.Nil(t, err)
	require.Nil(t, result)
	require.Equal(t, 1, calls)
}

func TestAdviceRewritesMessage(t *testing.T) {
	cause := fmt.Errorf("HTTP 503")
	_, err := WithAdvice("Service unavailable: try again later").Execute(context.Background(), func(ctx context.Context) (xmatch.Table, error) {
		return nil, cause
	})
	require.Equal(t, "Service unavailable: try again later", err.Error())
	require.True(t, goerrors.Is(err, cause))
}

func TestCancelledBeforeInvocation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, p := range []Policy{Abort(), Ignore(), Retry(3), WithAdvice("x")} {
		calls := 0
		_, err := p.Execute(ctx, alwaysFails(&calls))
		require.IsType(t, errors.InterruptedError{}, err, p.String())
		require.Equal(t, 0, calls)
	}
}

func TestParse(t *testing.T) {
	for name, expected := range map[string]Policy{
		"abort":  Abort(),
		"":       Abort(),
		"ignore": Ignore(),
		"retry":  Retry(0),
		"Retry5": Retry(5),
	} {
		p, err := Parse(name)
		require.Nil(t, err)
		require.Equal(t, expected, p)
	}
	for _, bad := range []string{"retry0", "retryx", "explode"} {
		_, err := Parse(bad)
		require.NotNil(t, err)
	}
	require.Equal(t, "retry5", Retry(5).String())
}
