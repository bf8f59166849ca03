// Package container wraps a schema-bound table behind a validation state
// machine. Persistence is gated by state: a container may only be exported
// or persisted after its current contents have passed validation.
package container

import (
	"fmt"
	"sync"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/internal/interval"
	"github.com/gridframe/gridframe/internal/validate"
	"github.com/gridframe/gridframe/pkg/types"
)

// State is the container's validation state.
type State int

const (
	// Empty means no table is held yet.
	Empty State = iota

	// Candidate means a table is held but not yet validated, or has been
	// mutated since its last validation.
	Candidate

	// Clean means the held table passed validation and may be persisted.
	Clean

	// Dirty means validation failed; the candidate data is retained so the
	// caller can inspect the violations and retry.
	Dirty
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Candidate:
		return "candidate"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Container owns one table and the schema (plus optional periodic index
// policy) that define it. It cycles Candidate -> Clean/Dirty -> Candidate
// for its whole lifetime; there is no terminal state.
//
// A single container serializes its own mutations with a mutex
// (single-writer); a Clean container's exported table is a deep copy, so
// concurrent readers need no coordination.
type Container struct {
	mu sync.Mutex

	schema *types.Schema
	policy *interval.Policy

	table      *types.Table
	state      State
	violations validate.Result
	report     interval.Report
}

// New creates an empty container bound to schema. policy may be nil for
// positional (non-periodic) tables.
func New(schema *types.Schema, policy *interval.Policy) *Container {
	return &Container{schema: schema, policy: policy, state: Empty}
}

// Schema returns the schema the container enforces.
func (c *Container) Schema() *types.Schema { return c.schema }

// State returns the current validation state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load replaces the held table with a raw candidate. Whatever state the
// container was in, it becomes Candidate: raw data is never trusted as
// pre-validated, including data read back from the store.
func (c *Container) Load(raw *types.Table) error {
	if raw == nil {
		return gferrors.NewContainerError(gferrors.CodeEmptyContainer, "cannot load a nil table")
	}
	if err := raw.CheckShape(); err != nil {
		return gferrors.NewContainerError(gferrors.CodeEmptyContainer, err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = raw.Clone()
	c.table.Schema = c.schema
	c.state = Candidate
	c.violations = nil
	c.report = interval.Report{}
	return nil
}

// Validate runs schema validation and, when a policy is configured, index
// verification over the candidate table. It moves the container to Clean
// when everything passes and to Dirty otherwise; Dirty keeps the candidate
// data and records every violation for inspection.
func (c *Container) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Empty {
		return gferrors.NewContainerError(gferrors.CodeEmptyContainer, "no table loaded")
	}

	c.violations = validate.Validate(c.schema, c.table)
	c.report = interval.Report{}

	// A table governed by a periodic policy must carry a timestamp index;
	// positional rows fail verification outright.
	var indexErr error
	if c.policy != nil {
		c.report, indexErr = interval.VerifyTable(*c.policy, c.table)
	}

	if !c.violations.OK() || indexErr != nil || !c.report.OK() {
		c.state = Dirty
		if c.violations.OK() && indexErr != nil {
			return indexErr
		}
		return c.invalidErrLocked()
	}

	c.state = Clean
	return nil
}

// invalidErrLocked builds the error describing why validation failed.
func (c *Container) invalidErrLocked() error {
	if !c.violations.OK() {
		return c.violations.Err()
	}
	if len(c.report.Faults) > 0 {
		f := c.report.Faults[0]
		return gferrors.Wrap(gferrors.ErrCategoryIndex, f.Code,
			fmt.Sprintf("index verification failed with %d faults", len(c.report.Faults)), f)
	}
	return gferrors.NewIndexError(gferrors.CodeGapDetected,
		fmt.Sprintf("index has %d gaps (%d missing slots)", len(c.report.Gaps), c.report.MissingTotal()))
}

// Append adds a row (indexed when ts is non-nil) to the candidate table.
// Any mutation of a Clean container demotes it to Candidate: it must be
// re-validated before the next persist.
func (c *Container) Append(ts *types.Timestamp, row types.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Empty {
		c.table = types.NewTable(c.schema)
	}
	if ts != nil {
		c.table.AppendIndexedRow(*ts, row.Clone())
	} else {
		c.table.AppendRow(row.Clone())
	}
	c.state = Candidate
	return nil
}

// UpdateRow replaces the values of an existing row in place.
func (c *Container) UpdateRow(rowIndex int, row types.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Empty {
		return gferrors.NewContainerError(gferrors.CodeEmptyContainer, "no table loaded")
	}
	if rowIndex < 0 || rowIndex >= len(c.table.Rows) {
		return gferrors.NewContainerError(gferrors.CodeEmptyContainer,
			fmt.Sprintf("row %d out of range (%d rows)", rowIndex, len(c.table.Rows)))
	}
	c.table.Rows[rowIndex] = row.Clone()
	c.state = Candidate
	return nil
}

// IsClean reports whether the container may be persisted.
func (c *Container) IsClean() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Clean
}

// Violations returns the schema violations recorded by the last Validate.
func (c *Container) Violations() validate.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violations
}

// IndexReport returns the index verification report from the last Validate.
// Only meaningful when a policy is configured.
func (c *Container) IndexReport() interval.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

// Export returns a deep copy of the validated table. It refuses from any
// state but Clean so callers can never observe half-validated data.
func (c *Container) Export() (*types.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Clean {
		return nil, gferrors.NewContainerError(gferrors.CodeNotValidated,
			fmt.Sprintf("export requires a clean container, state is %s", c.state))
	}
	return c.table.Clone(), nil
}

// FillGaps runs the gap filler over the candidate table using the gaps
// recorded by the last Validate, then leaves the container in Candidate for
// re-validation.
func (c *Container) FillGaps(defaults interval.Defaults) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Empty {
		return gferrors.NewContainerError(gferrors.CodeEmptyContainer, "no table loaded")
	}
	if c.policy == nil {
		return gferrors.NewIndexError(gferrors.CodeGapDetected,
			"container has no periodic index policy")
	}

	filled, err := interval.Fill(*c.policy, c.table, c.report.Gaps, defaults)
	if err != nil {
		return err
	}
	c.table = filled
	c.state = Candidate
	return nil
}

// Persister is the collaborator-facing persistence contract. The container
// never reaches into storage itself; it hands a validated table to the
// collaborator and insists on being Clean first.
type Persister interface {
	Persist(table *types.Table) error
}

// Persist hands the validated table to p. From any state but Clean it fails
// with NOT_VALIDATED and performs no I/O. A persistence failure does not
// change the container's state: it remains Clean so the caller can retry
// without re-validating.
func (c *Container) Persist(p Persister) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Clean {
		return gferrors.NewContainerError(gferrors.CodeNotValidated,
			fmt.Sprintf("persist requires a clean container, state is %s", c.state))
	}
	return p.Persist(c.table.Clone())
}
