package interval

import (
	"fmt"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/pkg/types"
)

// VerifyIndex checks an ordered index against the policy. It records:
//
//   - a NOT_MONOTONIC fault at every position whose value is not strictly
//     greater than its predecessor,
//   - a TIMEZONE_MISSING fault at every unzoned value when the policy
//     requires explicit offsets,
//   - a Gap wherever the spacing to the successor is not exactly one
//     period.
//
// Gap detection only runs over monotonic stretches; a non-monotonic index
// has no meaningful slot grid, so positions already faulted are skipped.
func VerifyIndex(policy Policy, index []types.Timestamp) Report {
	report := Report{ActualCount: len(index)}

	if len(index) == 0 {
		return report
	}

	monotonic := true
	for i, ts := range index {
		if policy.TimezoneRequired && !ts.Zoned {
			report.Faults = append(report.Faults, &Fault{
				Code:     gferrors.CodeTimezoneMissing,
				Position: i,
				Value:    ts,
				Message:  "index value lacks an explicit timezone offset",
			})
		}
		if i > 0 && !index[i-1].Before(ts) {
			monotonic = false
			report.Faults = append(report.Faults, &Fault{
				Code:     gferrors.CodeNotMonotonic,
				Position: i,
				Value:    ts,
				Message:  fmt.Sprintf("value does not increase past %s", index[i-1]),
			})
		}
	}

	first, last := index[0], index[len(index)-1]
	report.ExpectedCount = int(last.Sub(first)/policy.Period) + 1

	if !monotonic {
		return report
	}

	for i := 0; i < len(index)-1; i++ {
		delta := index[i+1].Sub(index[i])
		if delta == policy.Period {
			continue
		}
		if delta > policy.Period && delta%policy.Period == 0 {
			report.Gaps = append(report.Gaps, Gap{
				AfterIndex:   i,
				After:        index[i],
				MissingCount: int(delta/policy.Period) - 1,
			})
			continue
		}
		// Off-grid spacing: the successor is not a whole number of
		// periods away, so no count of synthesized slots can repair it.
		report.Faults = append(report.Faults, &Fault{
			Code:     gferrors.CodeNotMonotonic,
			Position: i + 1,
			Value:    index[i+1],
			Message:  fmt.Sprintf("spacing %s is not a multiple of the period %s", delta, policy.Period),
		})
	}

	return report
}

// VerifyTable runs VerifyIndex over a table's index. Positional tables fail
// immediately: a periodic policy is meaningless without timestamps.
func VerifyTable(policy Policy, table *types.Table) (Report, error) {
	if !table.Indexed() {
		return Report{}, gferrors.NewIndexError(gferrors.CodeIndexMissing,
			"table has no timestamp index to verify")
	}
	return VerifyIndex(policy, table.Index), nil
}
