// Package interval models fixed-period time indexes: verifying that an
// index is monotonic, timezone-consistent and gap-free, and synthesizing
// estimated rows for the gaps it is not.
package interval

import (
	"fmt"
	"time"

	"github.com/gridframe/gridframe/pkg/types"
)

// Policy declares the sampling contract for a periodic table: a fixed
// positive period and whether index values must carry an explicit UTC
// offset.
type Policy struct {
	Period           time.Duration `json:"period" yaml:"period"`
	TimezoneRequired bool          `json:"timezone_required" yaml:"timezone_required"`
}

// NewPolicy builds a policy, rejecting non-positive periods.
func NewPolicy(period time.Duration, timezoneRequired bool) (Policy, error) {
	if period <= 0 {
		return Policy{}, fmt.Errorf("interval period must be positive, got %s", period)
	}
	return Policy{Period: period, TimezoneRequired: timezoneRequired}, nil
}

// Gap is a run of missing slots, located after the index position
// AfterIndex (whose timestamp is After). MissingCount slots of exactly one
// period each are absent before the next present value.
type Gap struct {
	AfterIndex   int
	After        types.Timestamp
	MissingCount int
}

// Fault is a non-gap index violation at a specific position.
type Fault struct {
	Code     string
	Position int
	Value    types.Timestamp
	Message  string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("index position %d (%s): %s", f.Position, f.Value, f.Message)
}

// Report is the exhaustive verdict on an index: every fault and every gap,
// not just the first, so a gap filler can target locations precisely
// without re-scanning.
type Report struct {
	Faults        []*Fault
	Gaps          []Gap
	ExpectedCount int
	ActualCount   int
}

// OK reports whether the index satisfies the policy completely.
func (r Report) OK() bool { return len(r.Faults) == 0 && len(r.Gaps) == 0 }

// GapFree reports whether no gaps were found; faults may still be present.
func (r Report) GapFree() bool { return len(r.Gaps) == 0 }

// MissingTotal returns the number of absent slots across all gaps.
func (r Report) MissingTotal() int {
	total := 0
	for _, g := range r.Gaps {
		total += g.MissingCount
	}
	return total
}
