package table

import (
	"math"
	"testing"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/schema"
	"github.com/stretchr/testify/require"
)

func positionSchema(t *testing.T) xmatch.Schema {
	s, err := schema.FromColumns(
		xmatch.ColumnInfo{Name: "id", Type: &xmatch.VarStringColumnType{}},
		xmatch.ColumnInfo{Name: "ra", Type: &xmatch.Float64ColumnType{}},
		xmatch.ColumnInfo{Name: "dec", Type: &xmatch.Float64ColumnType{}},
		xmatch.ColumnInfo{Name: "r", Type: &xmatch.Float64ColumnType{}},
	)
	require.Nil(t, err)
	return s
}

func TestMemoryTable(t *testing.T) {
	tbl, err := New("input", positionSchema(t), [][]xmatch.Value{
		{"a", 10.0, 20.0, 1.0},
		{"b", 11.0, 21.0, 2.0},
	})
	require.Nil(t, err)
	require.EqualValues(t, 2, tbl.RowCount())
	row, err := tbl.GetRow(1)
	require.Nil(t, err)
	require.Equal(t, "b", row[0])
	_, err = tbl.GetRow(2)
	require.IsType(t, errors.RowIndexError{}, err)
	require.NotNil(t, tbl.AppendRow([]xmatch.Value{"c"}))

	// memory tables can be iterated repeatedly
	for i := 0; i < 2; i++ {
		iter, err := tbl.RowIterator()
		require.Nil(t, err)
		count := 0
		for {
			_, err := iter.NextRow()
			if _, ok := err.(errors.NoMoreRowsError); ok {
				break
			}
			require.Nil(t, err)
			count++
		}
		require.Equal(t, 2, count)
		require.Nil(t, iter.Close())
	}
}

func TestStreamSinglePass(t *testing.T) {
	mem, err := New("input", positionSchema(t), [][]xmatch.Value{{"a", 1.0, 2.0, 3.0}})
	require.Nil(t, err)
	iter, err := mem.RowIterator()
	require.Nil(t, err)
	stream := NewStream("s", mem.Schema(), nil, iter)
	collected, err := Collect(stream)
	require.Nil(t, err)
	require.EqualValues(t, 1, collected.RowCount())
	_, err = stream.RowIterator()
	require.NotNil(t, err)
}

func TestWithSchema(t *testing.T) {
	mem, err := New("input", positionSchema(t), [][]xmatch.Value{{"a", 1.0, 2.0, 3.0}})
	require.Nil(t, err)
	renamed := mem.Schema().Clone()
	_, err = renamed.RenameColumn("ra", "ra_1")
	require.Nil(t, err)
	v, err := WithSchema(mem, "renamed", renamed)
	require.Nil(t, err)
	require.Equal(t, "renamed", v.Name())
	require.True(t, v.Schema().HasColumn("ra_1"))
	require.True(t, mem.Schema().HasColumn("ra"))
	row, err := v.GetRow(0)
	require.Nil(t, err)
	require.Equal(t, 1.0, row[1])

	narrow, err := schema.Select(mem.Schema(), []int{0})
	require.Nil(t, err)
	_, err = WithSchema(mem, "bad", narrow)
	require.NotNil(t, err)
}

func TestQueriesFixedRadius(t *testing.T) {
	mem, err := New("input", positionSchema(t), [][]xmatch.Value{
		{"a", 10.0, 20.0, 1.0},
		{"b", nil, 21.0, 2.0},
		{"c", "12.5", int32(-5), 3.0},
	})
	require.Nil(t, err)
	qs, err := Queries(QueryColumns{Ra: "ra", Dec: "dec", Radius: 0.01})(mem)
	require.Nil(t, err)
	defer qs.Close()

	q, err := qs.NextQuery()
	require.Nil(t, err)
	require.EqualValues(t, 0, q.RowIndex)
	require.Equal(t, 10.0, q.Ra)
	require.Equal(t, 0.01, q.Radius)

	q, err = qs.NextQuery()
	require.Nil(t, err)
	require.EqualValues(t, 1, q.RowIndex)
	require.True(t, math.IsNaN(q.Ra))

	q, err = qs.NextQuery()
	require.Nil(t, err)
	require.Equal(t, 12.5, q.Ra)
	require.Equal(t, -5.0, q.Dec)
	require.Equal(t, "c", q.Row[0])

	_, err = qs.NextQuery()
	require.IsType(t, errors.NoMoreQueriesError{}, err)
}

func TestQueriesRadiusColumn(t *testing.T) {
	mem, err := New("input", positionSchema(t), [][]xmatch.Value{{"a", 10.0, 20.0, 36.0}})
	require.Nil(t, err)
	qs, err := Queries(QueryColumns{Ra: "ra", Dec: "dec", RadiusColumn: "r", RadiusScale: 1.0 / 3600})(mem)
	require.Nil(t, err)
	q, err := qs.NextQuery()
	require.Nil(t, err)
	require.InDelta(t, 0.01, q.Radius, 1e-12)
	require.Nil(t, qs.Close())
	_, err = qs.NextQuery()
	require.IsType(t, errors.NoMoreQueriesError{}, err)
}

func TestQueriesMissingColumn(t *testing.T) {
	mem, err := New("input", positionSchema(t), nil)
	require.Nil(t, err)
	_, err = Queries(QueryColumns{Ra: "RAJ2000", Dec: "dec", Radius: 1})(mem)
	require.NotNil(t, err)
	_, err = Queries(QueryColumns{Ra: "ra", Dec: "dec", Radius: -1})(mem)
	require.NotNil(t, err)
}

func TestNamed(t *testing.T) {
	mem, err := New("input", positionSchema(t), nil)
	require.Nil(t, err)
	n := Named(mem, "renamed")
	require.Equal(t, "renamed", n.Name())
	_, ok := n.(xmatch.RandomAccessTable)
	require.True(t, ok)
	require.Equal(t, "input", mem.Name())
}
