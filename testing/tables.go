package testing

import (
	"fmt"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/table"
	"github.com/stretchr/testify/require"
)

// PositionTable produces a Memory table with PositionSchema and numRows rows, named
// prefix0, prefix1, ..., placed 0.01 degrees apart along the equator starting at ra 10
func PositionTable(t require.TestingT, name string, prefix string, numRows int) *table.Memory {
	rows := make([][]xmatch.Value, numRows)
	for i := range rows {
		rows[i] = []xmatch.Value{fmt.Sprintf("%s%d", prefix, i), 10 + 0.01*float64(i), 0.0}
	}
	tbl, err := table.New(name, PositionSchema(), rows)
	require.Nil(t, err)
	return tbl
}

// Rows reads every row of a Table
func Rows(t require.TestingT, tbl xmatch.Table) [][]xmatch.Value {
	iter, err := tbl.RowIterator()
	require.Nil(t, err)
	defer iter.Close()
	rows := make([][]xmatch.Value, 0)
	for {
		row, err := iter.NextRow()
		if _, ok := err.(errors.NoMoreRowsError); ok {
			return rows
		}
		require.Nil(t, err)
		rows = append(rows, row)
	}
}

// DrainResults reads every result from a ResultIterator, stopping at the first error
func DrainResults(iter xmatch.ResultIterator) ([]*xmatch.QueryResult, error) {
	results := make([]*xmatch.QueryResult, 0)
	for {
		res, err := iter.NextResult()
		if _, ok := err.(errors.NoMoreResultsError); ok {
			return results, nil
		} else if err != nil {
			return results, err
		}
		results = append(results, res)
	}
}
