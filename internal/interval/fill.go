package interval

import (
	"fmt"
	"time"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/pkg/types"
)

// Defaults supplies the cell values used for synthesized rows, keyed by
// column name. Columns without an entry fall back to the zero value of
// their declared type (or null when the column is nullable).
type Defaults map[string]types.Value

func defaultCell(col types.ColumnSpec, defaults Defaults) types.Value {
	if v, ok := defaults[col.Name]; ok {
		return v
	}
	if col.Nullable {
		return types.Null(col.Type)
	}
	switch col.Type {
	case types.FloatType:
		return types.Float(0)
	case types.IntegerType:
		return types.Integer(0)
	case types.BooleanType:
		return types.Boolean(false)
	case types.StringType:
		return types.String("")
	default:
		return types.Null(col.Type)
	}
}

// Fill synthesizes the rows missing from the table's index, one per absent
// slot, at exactly after + k*period. Every synthesized row takes the
// caller's defaults and has the schema's estimation-indicator column forced
// to true; a schema without one refuses the fill rather than fabricating
// unflagged data. Existing rows are never touched, only copied through.
//
// The returned table satisfies VerifyIndex with zero gaps. Calling Fill
// with an empty gap list returns an unmodified clone.
func Fill(policy Policy, table *types.Table, gaps []Gap, defaults Defaults) (*types.Table, error) {
	schema := table.Schema

	estimateCol, ok := schema.EstimateColumn()
	if !ok {
		return nil, gferrors.NewIndexError(gferrors.CodeNoEstimateColumn,
			"schema declares no estimation-indicator column; refusing to synthesize rows")
	}

	if len(gaps) == 0 {
		return table.Clone(), nil
	}
	if !table.Indexed() {
		return nil, gferrors.NewIndexError(gferrors.CodeIndexMissing,
			"cannot fill gaps in a table without a timestamp index")
	}

	// Gap positions index into the existing rows; walk them in order and
	// splice synthesized runs in as we copy.
	byPosition := make(map[int]Gap, len(gaps))
	for _, g := range gaps {
		if g.AfterIndex < 0 || g.AfterIndex >= len(table.Index) {
			return nil, gferrors.NewIndexError(gferrors.CodeGapDetected,
				fmt.Sprintf("gap location %d is outside the index", g.AfterIndex))
		}
		byPosition[g.AfterIndex] = g
	}

	filled := types.NewTable(schema)
	filled.Index = make([]types.Timestamp, 0, len(table.Rows))
	filled.Rows = make([]types.Row, 0, len(table.Rows))

	for i, row := range table.Rows {
		filled.AppendIndexedRow(table.Index[i], row.Clone())

		g, present := byPosition[i]
		if !present {
			continue
		}
		for k := 1; k <= g.MissingCount; k++ {
			at := g.After.Add(time.Duration(k) * policy.Period)
			synthesized := make(types.Row, len(schema.Columns))
			for _, col := range schema.Columns {
				synthesized[col.Name] = defaultCell(col, defaults)
			}
			synthesized[estimateCol] = types.Boolean(true)
			filled.AppendIndexedRow(at, synthesized)
		}
	}

	if report := VerifyIndex(policy, filled.Index); !report.GapFree() {
		return nil, gferrors.NewInternalError(
			fmt.Sprintf("fill left %d gaps behind", len(report.Gaps)), nil)
	}

	return filled, nil
}
