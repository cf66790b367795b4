package upload

import (
	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/logging"
)

// PlanOptions describes the well-known columns of a raw match result
type PlanOptions struct {
	IDColumn       string // name of the raw column echoing uploaded row identifiers. Defaults to "__rowid".
	DistanceColumn string // name of the raw column holding the match distance. Defaults to "angDist".
	EchoedColumns  int    // number of uploaded columns echoed in an Xmatch result. Defaults to 3 (id, ra, dec).
	RemoteFirst    bool   // true if an Xmatch result lists remote columns before the echoed upload columns
}

func ensureDefaultPlanOptionsValues(opts *PlanOptions) {
	if len(opts.IDColumn) == 0 {
		opts.IDColumn = "__rowid"
	}
	if len(opts.DistanceColumn) == 0 {
		opts.DistanceColumn = "angDist"
	}
	if opts.EchoedColumns <= 0 {
		opts.EchoedColumns = 3
	}
}

// plan is an immutable ColumnPlan
type plan struct {
	refs     []xmatch.SourceRef
	idCol    int
	scoreCol int
}

func (p *plan) OutputColumnCount() int {
	return len(p.refs)
}

func (p *plan) Locate(outCol int) xmatch.SourceRef {
	return p.refs[outCol]
}

func (p *plan) IDColumnIndex() int {
	return p.idCol
}

func (p *plan) ScoreColumnIndex() int {
	return p.scoreCol
}

// NewXmatchPlan describes the results of a service which returns, for each pair, the match distance,
// the echoed columns of the uploaded table and the columns of the remote table:
//
//	[distance, echoed upload columns..., remote columns...]
//
// or, with RemoteFirst, [distance, remote columns..., echoed upload columns...].
// The output is every column of the upload Table, then the remote columns, then the distance.
func NewXmatchPlan(raw xmatch.Schema, upload xmatch.Schema, opts *PlanOptions) xmatch.ColumnPlan {
	o := PlanOptions{}
	if opts != nil {
		o = *opts
	}
	ensureDefaultPlanOptionsValues(&o)
	logger := logging.For("upload")
	n := raw.NumColumns()
	echoed := o.EchoedColumns
	if echoed > n-1 {
		logger.Warn().Int("columns", n).Int("echoed", echoed).Msg("Raw result is narrower than expected")
		echoed = n - 1
		if echoed < 0 {
			echoed = 0
		}
	}
	echoStart, remoteStart := 1, 1+echoed
	if o.RemoteFirst {
		remoteStart, echoStart = 1, n-echoed
	}
	numRemote := n - 1 - echoed
	if numRemote < 0 {
		numRemote = 0
	}

	p := &plan{
		refs:     make([]xmatch.SourceRef, 0, upload.NumColumns()+numRemote+1),
		idCol:    -1,
		scoreCol: -1,
	}
	for i := 0; i < upload.NumColumns(); i++ {
		p.refs = append(p.refs, xmatch.UploadColumn(i))
	}
	for i := 0; i < numRemote; i++ {
		p.refs = append(p.refs, xmatch.RawColumn(remoteStart+i))
	}
	if n > 0 {
		p.refs = append(p.refs, xmatch.RawColumn(0))
		p.scoreCol = scoreColumn(raw, 0, o.DistanceColumn, logger)
	}
	for i := echoStart; i < echoStart+echoed; i++ {
		if raw.GetColumn(i).Name() == o.IDColumn {
			p.idCol = i
		}
	}
	if p.idCol < 0 {
		logger.Warn().Str("column", o.IDColumn).Msg("Row identifier column is missing from the raw result; upload columns will be blank")
	}
	return p
}

// NewTapPlan describes the results of a service which returns, for each pair, the uploaded row identifier,
// the columns of the remote table, and optionally the match distance:
//
//	[id, remote columns..., distance?]
//
// The output is every column of the upload Table, then the remote columns, then the distance if present.
func NewTapPlan(raw xmatch.Schema, upload xmatch.Schema, opts *PlanOptions) xmatch.ColumnPlan {
	o := PlanOptions{}
	if opts != nil {
		o = *opts
	}
	ensureDefaultPlanOptionsValues(&o)
	logger := logging.For("upload")
	n := raw.NumColumns()
	p := &plan{
		refs:     make([]xmatch.SourceRef, 0, upload.NumColumns()+n),
		idCol:    -1,
		scoreCol: -1,
	}
	for i := 0; i < upload.NumColumns(); i++ {
		p.refs = append(p.refs, xmatch.UploadColumn(i))
	}
	if n == 0 {
		logger.Warn().Msg("Raw result has no columns")
		return p
	}
	remoteStart := 0
	if raw.GetColumn(0).Name() == o.IDColumn {
		p.idCol = 0
		remoteStart = 1
	} else {
		logger.Warn().Str("column", o.IDColumn).Str("found", raw.GetColumn(0).Name()).
			Msg("First raw column is not the row identifier; upload columns will be blank")
	}
	remoteEnd := n
	if last := n - 1; last >= remoteStart && raw.GetColumn(last).Name() == o.DistanceColumn {
		p.scoreCol = scoreColumn(raw, last, o.DistanceColumn, logger)
		remoteEnd = last
	} else {
		logger.Warn().Str("column", o.DistanceColumn).Msg("Raw result has no distance column")
	}
	for i := remoteStart; i < remoteEnd; i++ {
		p.refs = append(p.refs, xmatch.RawColumn(i))
	}
	if remoteEnd < n {
		p.refs = append(p.refs, xmatch.RawColumn(remoteEnd))
	}
	return p
}

// scoreColumn returns idx if column idx of raw is a numeric column with the expected name, and -1 otherwise
func scoreColumn(raw xmatch.Schema, idx int, name string, logger *logging.Logger) int {
	col := raw.GetColumn(idx)
	if col.Name() != name {
		logger.Warn().Str("column", name).Str("found", col.Name()).Msg("Distance column is missing from the raw result")
		return -1
	}
	if !xmatch.IsNumeric(col.Type()) {
		logger.Warn().Str("column", name).Msg("Distance column is not numeric")
		return -1
	}
	return idx
}
