package table

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
)

// QueryColumns identifies the cells of an input row which hold a cone position.
// Ra and Dec are in degrees. If RadiusColumn is empty, Radius is used for every row.
// Otherwise the radius is read from RadiusColumn and multiplied by RadiusScale
// (e.g. 1/3600 for a column in arcseconds); a zero RadiusScale means 1.
type QueryColumns struct {
	Ra           string
	Dec          string
	Radius       float64
	RadiusColumn string
	RadiusScale  float64
}

// Queries produces a QueryFactory which reads ConeQueries from the rows of a Table.
// Rows with blank or non-numeric positions produce ConeQueries with NaN coordinates.
func Queries(cols QueryColumns) xmatch.QueryFactory {
	return func(t xmatch.Table) (xmatch.QuerySequence, error) {
		s := t.Schema()
		raCol, err := s.GetOffset(cols.Ra)
		if err != nil {
			return nil, err
		}
		decCol, err := s.GetOffset(cols.Dec)
		if err != nil {
			return nil, err
		}
		radiusIdx := -1
		if len(cols.RadiusColumn) > 0 {
			radiusCol, err := s.GetOffset(cols.RadiusColumn)
			if err != nil {
				return nil, err
			}
			radiusIdx = radiusCol.Index()
		} else if cols.Radius < 0 || math.IsNaN(cols.Radius) {
			return nil, fmt.Errorf("Cone radius %f must be a non-negative number", cols.Radius)
		}
		scale := cols.RadiusScale
		if scale == 0 {
			scale = 1
		}
		iter, err := t.RowIterator()
		if err != nil {
			return nil, err
		}
		return &rowQuerySequence{
			iter:      iter,
			raIdx:     raCol.Index(),
			decIdx:    decCol.Index(),
			radiusIdx: radiusIdx,
			radius:    cols.Radius,
			scale:     scale,
		}, nil
	}
}

// rowQuerySequence reads one ConeQuery per row of a RowIterator
type rowQuerySequence struct {
	lock      sync.Mutex
	iter      xmatch.RowIterator
	next      int64
	raIdx     int
	decIdx    int
	radiusIdx int
	radius    float64
	scale     float64
	closed    bool
}

func (q *rowQuerySequence) NextQuery() (*xmatch.ConeQuery, error) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.closed {
		return nil, errors.NoMoreQueriesError{}
	}
	row, err := q.iter.NextRow()
	if _, ok := err.(errors.NoMoreRowsError); ok {
		return nil, errors.NoMoreQueriesError{}
	} else if err != nil {
		return nil, err
	}
	query := &xmatch.ConeQuery{
		RowIndex: q.next,
		Ra:       cellToFloat(row, q.raIdx),
		Dec:      cellToFloat(row, q.decIdx),
		Radius:   q.radius,
		Row:      row,
	}
	if q.radiusIdx >= 0 {
		query.Radius = cellToFloat(row, q.radiusIdx) * q.scale
	}
	q.next++
	return query, nil
}

func (q *rowQuerySequence) Close() error {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	return q.iter.Close()
}

func cellToFloat(row []xmatch.Value, idx int) float64 {
	if idx >= len(row) {
		return math.NaN()
	}
	f, ok := xmatch.ToFloat64(row[idx])
	if !ok {
		return math.NaN()
	}
	return f
}

// FromQueries produces a QuerySequence over a fixed list of ConeQueries. It is mostly useful in tests.
func FromQueries(queries ...xmatch.ConeQuery) xmatch.QuerySequence {
	return &sliceQuerySequence{queries: queries}
}

type sliceQuerySequence struct {
	lock    sync.Mutex
	queries []xmatch.ConeQuery
	next    int
	closed  bool
}

func (q *sliceQuerySequence) NextQuery() (*xmatch.ConeQuery, error) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.closed || q.next >= len(q.queries) {
		return nil, errors.NoMoreQueriesError{}
	}
	query := q.queries[q.next]
	q.next++
	return &query, nil
}

func (q *sliceQuerySequence) Close() error {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.closed = true
	return nil
}
