package cone

import (
	"context"
	"testing"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/dispatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/schema"
	"github.com/go-sif/xmatch/table"
	xmtest "github.com/go-sif/xmatch/testing"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fixedResults is a ResultIterator over a prepared list of results
type fixedResults struct {
	results []*xmatch.QueryResult
	next    int
	closed  bool
}

func (f *fixedResults) NextResult() (*xmatch.QueryResult, error) {
	if f.next >= len(f.results) {
		return nil, errors.NoMoreResultsError{}
	}
	res := f.results[f.next]
	f.next++
	return res, nil
}

func (f *fixedResults) Close() error {
	f.closed = true
	return nil
}

func inputSchema(t *testing.T) xmatch.Schema {
	return xmtest.PositionSchema()
}

func resultTable(t *testing.T, rows ...[]xmatch.Value) xmatch.Table {
	s, err := schema.FromColumns(
		xmatch.ColumnInfo{Name: "ra", Type: &xmatch.Float64ColumnType{}},
		xmatch.ColumnInfo{Name: "dec", Type: &xmatch.Float64ColumnType{}},
	)
	require.Nil(t, err)
	tbl, err := table.New("result", s, rows)
	require.Nil(t, err)
	return tbl
}

func queryResult(index int64, ra float64, dec float64, radius float64, result xmatch.Table) *xmatch.QueryResult {
	return &xmatch.QueryResult{
		Query: xmatch.Query{
			Index: index,
			ConeQuery: xmatch.ConeQuery{
				RowIndex: index,
				Ra:       ra,
				Dec:      dec,
				Radius:   radius,
				Row:      []xmatch.Value{"src", ra, dec},
			},
		},
		Result: result,
	}
}

func TestDeferredBlanks(t *testing.T) {
	results := &fixedResults{results: []*xmatch.QueryResult{
		queryResult(0, 1, 1, 0.1, nil),
		queryResult(1, 2, 2, 0.1, nil),
		queryResult(2, 3, 3, 0.1, resultTable(t, []xmatch.Value{3.01, 3.0})),
	}}
	join, err := NewJoin(results, inputSchema(t), &xmtest.FakeSearcher{}, &Options{
		IncludeBlanks: true,
		InputFix:      schema.NoFix(),
		ResultFix:     schema.RenameDuplicates("_2"),
	})
	require.Nil(t, err)
	out, err := join.Stream()
	require.Nil(t, err)
	require.Equal(t, []string{"id", "ra", "dec", "ra_2", "dec_2"}, out.Schema().ColumnNames())
	rows := xmtest.Rows(t, out)
	require.Len(t, rows, 3)
	require.Equal(t, []xmatch.Value{"src", 1.0, 1.0, nil, nil}, rows[0])
	require.Equal(t, []xmatch.Value{"src", 2.0, 2.0, nil, nil}, rows[1])
	require.Equal(t, []xmatch.Value{"src", 3.0, 3.0, 3.01, 3.0}, rows[2])
	require.True(t, results.closed)
}

func TestBlanksOmittedByDefault(t *testing.T) {
	results := &fixedResults{results: []*xmatch.QueryResult{
		queryResult(0, 1, 1, 0.1, nil),
		queryResult(1, 2, 2, 0.1, resultTable(t)),
		queryResult(2, 3, 3, 0.1, resultTable(t, []xmatch.Value{3.0, 3.0})),
	}}
	join, err := NewJoin(results, inputSchema(t), &xmtest.FakeSearcher{}, &Options{CopyColumns: []string{"id"}})
	require.Nil(t, err)
	out, err := join.Stream()
	require.Nil(t, err)
	require.Equal(t, []string{"id", "ra", "dec"}, out.Schema().ColumnNames())
	rows := xmtest.Rows(t, out)
	require.Len(t, rows, 1)
}

func TestEmptyResultWithBlanks(t *testing.T) {
	results := &fixedResults{results: []*xmatch.QueryResult{
		queryResult(0, 1, 1, 0.1, resultTable(t)),
		queryResult(1, 2, 2, 0.1, nil),
	}}
	join, err := NewJoin(results, inputSchema(t), &xmtest.FakeSearcher{}, &Options{
		CopyColumns:   []string{"id"},
		IncludeBlanks: true,
	})
	require.Nil(t, err)
	out, err := join.Stream()
	require.Nil(t, err)
	rows := xmtest.Rows(t, out)
	require.Equal(t, [][]xmatch.Value{{"src", nil, nil}, {"src", nil, nil}}, rows)
}

func TestInconsistentSchema(t *testing.T) {
	other, err := schema.FromColumns(xmatch.ColumnInfo{Name: "x", Type: &xmatch.Float64ColumnType{}})
	require.Nil(t, err)
	otherTable, err := table.New("other", other, [][]xmatch.Value{{1.0}})
	require.Nil(t, err)
	results := &fixedResults{results: []*xmatch.QueryResult{
		queryResult(0, 1, 1, 0.1, resultTable(t, []xmatch.Value{1.0, 1.0})),
		queryResult(1, 2, 2, 0.1, otherTable),
	}}
	join, err := NewJoin(results, inputSchema(t), &xmtest.FakeSearcher{}, nil)
	require.Nil(t, err)
	out, err := join.Stream()
	require.Nil(t, err)
	iter, err := out.RowIterator()
	require.Nil(t, err)
	defer iter.Close()
	_, err = iter.NextRow()
	require.Nil(t, err)
	_, err = iter.NextRow()
	require.Equal(t, errors.IncompatibleSchemaError{Expected: 2, Actual: 1}, err)
}

func TestNoSchemaEstablished(t *testing.T) {
	results := &fixedResults{results: []*xmatch.QueryResult{
		queryResult(0, 1, 1, 0.1, nil),
		queryResult(1, 2, 2, 0.1, nil),
	}}
	join, err := NewJoin(results, inputSchema(t), &xmtest.FakeSearcher{}, &Options{Name: "nothing"})
	require.Nil(t, err)
	out, err := join.Stream()
	require.Nil(t, err)
	require.Equal(t, "nothing", out.Name())
	require.Equal(t, NoSchemaMessage, out.Params()[xmatch.MessageParam])
	require.Empty(t, xmtest.Rows(t, out))
	require.True(t, results.closed)
}

func TestAllBlankUsesInputColumns(t *testing.T) {
	results := &fixedResults{results: []*xmatch.QueryResult{
		queryResult(0, 1, 1, 0.1, nil),
	}}
	join, err := NewJoin(results, inputSchema(t), &xmtest.FakeSearcher{}, &Options{IncludeBlanks: true})
	require.Nil(t, err)
	out, err := join.Stream()
	require.Nil(t, err)
	require.Equal(t, []string{"id", "ra", "dec"}, out.Schema().ColumnNames())
	require.Len(t, xmtest.Rows(t, out), 1)
}

func TestBestOnlyAndStrictDistance(t *testing.T) {
	results := &fixedResults{results: []*xmatch.QueryResult{
		queryResult(0, 10, 0, 0.5, resultTable(t,
			[]xmatch.Value{10.4, 0.0},
			[]xmatch.Value{10.1, 0.0},
			[]xmatch.Value{10.3, 0.0},
			[]xmatch.Value{10.7, 0.0},
		)),
	}}
	join, err := NewJoin(results, inputSchema(t), &xmtest.FakeSearcher{}, &Options{
		CopyColumns:    []string{"id"},
		StrictDistance: true,
		DistanceColumn: "dist",
	})
	require.Nil(t, err)
	out, err := join.Stream()
	require.Nil(t, err)
	require.Equal(t, []string{"id", "ra", "dec", "dist"}, out.Schema().ColumnNames())
	rows := xmtest.Rows(t, out)
	require.Len(t, rows, 3)

	results.next = 0
	join, err = NewJoin(results, inputSchema(t), &xmtest.FakeSearcher{}, &Options{
		CopyColumns: []string{"id"},
		BestOnly:    true,
	})
	require.Nil(t, err)
	out, err = join.Stream()
	require.Nil(t, err)
	rows = xmtest.Rows(t, out)
	require.Len(t, rows, 1)
	require.Equal(t, 10.1, rows[0][1])
}

func TestUnknownCopyColumn(t *testing.T) {
	_, err := NewJoin(&fixedResults{}, inputSchema(t), &xmtest.FakeSearcher{}, &Options{CopyColumns: []string{"mag"}})
	require.NotNil(t, err)
}

func TestMatchEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)
	in := xmtest.PositionTable(t, "input", "in", 50)
	catalog := xmtest.PositionTable(t, "catalog", "cat", 100)
	searcher, err := xmtest.NewCatalogSearcher(catalog, 0.005)
	require.Nil(t, err)
	queries := table.Queries(table.QueryColumns{Ra: "ra", Dec: "dec", Radius: 0.001})
	for _, parallelism := range []int{1, 4} {
		join, err := MatchTable(context.Background(), in, queries, searcher,
			&dispatch.Options{Parallelism: parallelism},
			&Options{
				StrictDistance: true,
				DistanceColumn: "dist",
				InputFix:       schema.RenameAll("_in"),
				ResultFix:      schema.RenameAll("_cat"),
			})
		require.Nil(t, err)
		out, err := join.Collect(context.Background())
		require.Nil(t, err)
		require.Equal(t, []string{"id_in", "ra_in", "dec_in", "id_cat", "ra_cat", "dec_cat", "dist"}, out.Schema().ColumnNames())
		require.EqualValues(t, 50, out.RowCount())
		for i := int64(0); i < out.RowCount(); i++ {
			row, err := out.GetRow(i)
			require.Nil(t, err)
			// the input and catalog share positions, so each row matches its namesake
			require.Equal(t, row[0].(string)[2:], row[3].(string)[3:])
			require.InDelta(t, 0, row[6], 1e-9)
		}
	}
}
