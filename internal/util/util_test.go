package util

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sif/xmatch"
	"github.com/stretchr/testify/require"
)

type panickySearcher struct {
	value interface{}
}

func (p *panickySearcher) Search(ctx context.Context, ra float64, dec float64, radius float64) (xmatch.Table, error) {
	panic(p.value)
}

func (p *panickySearcher) RaColumnIndex(result xmatch.Schema) int  { return -1 }
func (p *panickySearcher) DecColumnIndex(result xmatch.Schema) int { return -1 }

type panickyCoverage struct{}

func (panickyCoverage) Init(ctx context.Context) error { return nil }
func (panickyCoverage) Overlaps(ra float64, dec float64, radius float64) bool {
	panic("no tiles")
}

func TestSafeSearchRecoversErrors(t *testing.T) {
	cause := fmt.Errorf("boom")
	result, err := SafeSearch(&panickySearcher{value: cause})(context.Background(), 1, 2, 3)
	require.Nil(t, result)
	require.True(t, errors.Is(err, cause))
}

func TestSafeSearchRecoversValues(t *testing.T) {
	_, err := SafeSearch(&panickySearcher{value: 42})(context.Background(), 1, 2, 3)
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "Search Panic: 42")
}

func TestSafeOverlaps(t *testing.T) {
	overlaps, err := SafeOverlaps(panickyCoverage{}, 1, 2, 3)
	require.True(t, overlaps)
	require.NotNil(t, err)
	overlaps, err = SafeOverlaps(nil, 1, 2, 3)
	require.True(t, overlaps)
	require.Nil(t, err)
}
