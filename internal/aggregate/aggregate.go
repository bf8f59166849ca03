// Package aggregate sums aligned periodic tables. The superposition rule:
// at every index slot, the aggregate of each numeric column is the sum of
// that column across all inputs, and the estimation indicator is tainted
// whenever any contributor was estimated.
package aggregate

import (
	"fmt"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/internal/interval"
	"github.com/gridframe/gridframe/internal/validate"
	"github.com/gridframe/gridframe/pkg/types"
)

// BoolCombine decides how boolean columns merge across inputs.
type BoolCombine int

const (
	// BoolOr taints the aggregate when any input is true. This is the
	// default for estimation indicators.
	BoolOr BoolCombine = iota

	// BoolAnd keeps the aggregate true only when every input is true.
	BoolAnd
)

// Options tunes aggregation behavior.
type Options struct {
	// Booleans selects the combine rule for boolean columns (default BoolOr).
	Booleans BoolCombine
}

// SumAligned sums the input tables element-wise. All inputs must share the
// given schema, be individually valid, and carry identical indexes under
// the policy; misaligned inputs fail with INDEX_MISMATCH. The output is
// re-validated and re-verified before being returned: since the inputs were
// valid, any failure there is a bug in the aggregator itself and surfaces
// as AGGREGATION_INVARIANT_BROKEN.
func SumAligned(tables []*types.Table, schema *types.Schema, policy interval.Policy, opts Options) (*types.Table, error) {
	if len(tables) == 0 {
		return nil, gferrors.NewAggregationError(gferrors.CodeIndexMismatch,
			"no input tables to aggregate")
	}

	base := tables[0]
	if !base.Indexed() {
		return nil, gferrors.NewAggregationError(gferrors.CodeIndexMismatch,
			"input tables must carry a timestamp index")
	}

	for n, table := range tables {
		if table.Schema.Fingerprint() != schema.Fingerprint() {
			return nil, gferrors.NewAggregationError(gferrors.CodeIndexMismatch,
				fmt.Sprintf("input %d is bound to a different schema", n))
		}
		if !table.Indexed() || len(table.Index) != len(base.Index) {
			return nil, gferrors.NewAggregationError(gferrors.CodeIndexMismatch,
				fmt.Sprintf("input %d has %d index entries, want %d", n, len(table.Index), len(base.Index)))
		}
		for i, ts := range table.Index {
			if !ts.Equal(base.Index[i]) || ts.Zoned != base.Index[i].Zoned {
				return nil, gferrors.NewAggregationError(gferrors.CodeIndexMismatch,
					fmt.Sprintf("input %d diverges from the shared index at position %d", n, i))
			}
		}
	}

	out := types.NewTable(schema)
	out.Index = make([]types.Timestamp, len(base.Index))
	copy(out.Index, base.Index)
	out.Rows = make([]types.Row, 0, len(base.Rows))

	for i := range base.Rows {
		row := make(types.Row, len(schema.Columns))
		for _, col := range schema.Columns {
			merged, err := mergeColumn(tables, i, col, opts)
			if err != nil {
				return nil, err
			}
			row[col.Name] = merged
		}
		out.Rows = append(out.Rows, row)
	}

	// Inputs were individually valid, so the sum must be too. Anything
	// else is an internal invariant violation, not caller error.
	if result := validate.Validate(schema, out); !result.OK() {
		return nil, gferrors.Wrap(gferrors.ErrCategoryAggregation,
			gferrors.CodeAggregationInvariantBroken,
			"aggregated table failed schema validation", result)
	}
	if report := interval.VerifyIndex(policy, out.Index); !report.OK() {
		return nil, gferrors.NewAggregationError(gferrors.CodeAggregationInvariantBroken,
			"aggregated table failed index verification")
	}

	return out, nil
}

// mergeColumn folds one column across all inputs at row position i.
func mergeColumn(tables []*types.Table, i int, col types.ColumnSpec, opts Options) (types.Value, error) {
	switch col.Type {
	case types.FloatType:
		sum := 0.0
		null := true
		for _, table := range tables {
			v := table.Rows[i][col.Name]
			if v.IsNull() {
				continue
			}
			sum += v.FloatVal()
			null = false
		}
		if null {
			return types.Null(col.Type), nil
		}
		return types.Float(sum), nil

	case types.IntegerType:
		var sum int64
		null := true
		for _, table := range tables {
			v := table.Rows[i][col.Name]
			if v.IsNull() {
				continue
			}
			sum += v.IntVal()
			null = false
		}
		if null {
			return types.Null(col.Type), nil
		}
		return types.Integer(sum), nil

	case types.BooleanType:
		combined := opts.Booleans == BoolAnd
		null := true
		for _, table := range tables {
			v := table.Rows[i][col.Name]
			if v.IsNull() {
				continue
			}
			null = false
			switch opts.Booleans {
			case BoolAnd:
				combined = combined && v.BoolVal()
			default:
				combined = combined || v.BoolVal()
			}
		}
		if null {
			return types.Null(col.Type), nil
		}
		return types.Boolean(combined), nil

	default:
		// Strings and timestamps have no additive meaning: they must
		// agree across inputs and are carried through.
		first := tables[0].Rows[i][col.Name]
		for n := 1; n < len(tables); n++ {
			if !tables[n].Rows[i][col.Name].Equal(first) {
				return types.Value{}, gferrors.NewAggregationError(gferrors.CodeIndexMismatch,
					fmt.Sprintf("column %q disagrees across inputs at row %d", col.Name, i))
			}
		}
		return first, nil
	}
}
