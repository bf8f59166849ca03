package container

import (
	"errors"
	"testing"
	"time"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/internal/interval"
	"github.com/gridframe/gridframe/pkg/types"
)

var baseTime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func meterSchema(t *testing.T) *types.Schema {
	t.Helper()
	schema, err := types.NewSchema([]types.ColumnSpec{
		{Name: "kw", Type: types.FloatType},
		{Name: "is_estimate", Type: types.BooleanType, Estimate: true},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema
}

func quarterHour(t *testing.T) *interval.Policy {
	t.Helper()
	policy, err := interval.NewPolicy(15*time.Minute, true)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return &policy
}

func meterRow(kw float64) types.Row {
	return types.Row{
		"kw":          types.Float(kw),
		"is_estimate": types.Boolean(false),
	}
}

func slot(i int) types.Timestamp {
	return types.ZonedTime(baseTime.Add(time.Duration(i) * 15 * time.Minute))
}

// recordingPersister captures the table it is handed and optionally fails.
type recordingPersister struct {
	persisted *types.Table
	err       error
}

func (p *recordingPersister) Persist(table *types.Table) error {
	if p.err != nil {
		return p.err
	}
	p.persisted = table
	return nil
}

func TestContainer_EmptyRefusesEverything(t *testing.T) {
	c := New(meterSchema(t), quarterHour(t))

	if got := c.State(); got != Empty {
		t.Fatalf("initial state = %s, want empty", got)
	}
	if err := c.Validate(); gferrors.GetCode(err) != gferrors.CodeEmptyContainer {
		t.Errorf("Validate on empty: %v", err)
	}
	if _, err := c.Export(); gferrors.GetCode(err) != gferrors.CodeNotValidated {
		t.Errorf("Export on empty: %v", err)
	}
	if err := c.Persist(&recordingPersister{}); gferrors.GetCode(err) != gferrors.CodeNotValidated {
		t.Errorf("Persist on empty: %v", err)
	}
}

func TestContainer_ValidateToClean(t *testing.T) {
	c := New(meterSchema(t), quarterHour(t))
	for i := 0; i < 3; i++ {
		ts := slot(i)
		if err := c.Append(&ts, meterRow(float64(i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if got := c.State(); got != Candidate {
		t.Fatalf("state after append = %s, want candidate", got)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !c.IsClean() {
		t.Fatal("container should be clean after successful validation")
	}

	exported, err := c.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exported.NumRows() != 3 {
		t.Errorf("exported %d rows, want 3", exported.NumRows())
	}

	// The export is a deep copy.
	exported.Rows[0]["kw"] = types.Float(99)
	again, err := c.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got := again.Rows[0]["kw"].FloatVal(); got != 0 {
		t.Error("export shares row storage with the container")
	}
}

func TestContainer_ValidateToDirtyKeepsData(t *testing.T) {
	c := New(meterSchema(t), nil)
	if err := c.Append(nil, types.Row{"kw": types.String("oops")}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := c.Validate(); err == nil {
		t.Fatal("validation should fail")
	}
	if got := c.State(); got != Dirty {
		t.Fatalf("state = %s, want dirty", got)
	}

	violations := c.Violations()
	if violations.OK() {
		t.Fatal("dirty container must retain its violations")
	}

	// Repair in place, then re-validate.
	if err := c.UpdateRow(0, meterRow(1.0)); err != nil {
		t.Fatalf("UpdateRow: %v", err)
	}
	if got := c.State(); got != Candidate {
		t.Fatalf("state after repair = %s, want candidate", got)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("re-validate after repair: %v", err)
	}
	if !c.IsClean() {
		t.Error("repaired container should validate clean")
	}
}

func TestContainer_MutationDemotesClean(t *testing.T) {
	c := New(meterSchema(t), quarterHour(t))
	ts := slot(0)
	if err := c.Append(&ts, meterRow(1.0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	next := slot(1)
	if err := c.Append(&next, meterRow(2.0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := c.State(); got != Candidate {
		t.Fatalf("state after mutating clean = %s, want candidate", got)
	}
	if err := c.Persist(&recordingPersister{}); gferrors.GetCode(err) != gferrors.CodeNotValidated {
		t.Errorf("Persist after mutation: %v", err)
	}
}

func TestContainer_PersistCleanOnly(t *testing.T) {
	c := New(meterSchema(t), quarterHour(t))
	ts := slot(0)
	if err := c.Append(&ts, meterRow(1.0)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	p := &recordingPersister{}
	if err := c.Persist(p); err == nil {
		t.Fatal("persist before validation must fail")
	}
	if p.persisted != nil {
		t.Fatal("persister was invoked before validation")
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := c.Persist(p); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if p.persisted == nil || p.persisted.NumRows() != 1 {
		t.Fatal("persister did not receive the validated table")
	}
}

func TestContainer_PersistFailureLeavesClean(t *testing.T) {
	c := New(meterSchema(t), quarterHour(t))
	ts := slot(0)
	if err := c.Append(&ts, meterRow(1.0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	boom := errors.New("object store unreachable")
	if err := c.Persist(&recordingPersister{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("Persist error = %v, want the persister's failure", err)
	}
	if !c.IsClean() {
		t.Error("a failed persist must leave the container clean for retry")
	}
	if err := c.Persist(&recordingPersister{}); err != nil {
		t.Errorf("retry after failed persist: %v", err)
	}
}

func TestContainer_LoadNeverTrustsInput(t *testing.T) {
	schema := meterSchema(t)
	c := New(schema, quarterHour(t))

	raw := types.NewTable(schema)
	raw.AppendIndexedRow(slot(0), meterRow(1.0))

	if err := c.Load(raw); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.State(); got != Candidate {
		t.Fatalf("state after load = %s, want candidate", got)
	}

	// Loading over a clean container also drops back to candidate.
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := c.Load(raw); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := c.State(); got != Candidate {
		t.Fatalf("state after reload = %s, want candidate", got)
	}

	// The container took a copy of the raw table.
	raw.Rows[0]["kw"] = types.Float(42)
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	exported, err := c.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got := exported.Rows[0]["kw"].FloatVal(); got != 1.0 {
		t.Error("container shares storage with the loaded table")
	}
}

func TestContainer_LoadRejectsBadShape(t *testing.T) {
	schema := meterSchema(t)
	c := New(schema, nil)

	if err := c.Load(nil); err == nil {
		t.Error("nil table must be rejected")
	}

	raw := types.NewTable(schema)
	raw.Index = append(raw.Index, slot(0))
	if err := c.Load(raw); err == nil {
		t.Error("index/row length mismatch must be rejected")
	}
}

func TestContainer_GapDetectionAndFill(t *testing.T) {
	c := New(meterSchema(t), quarterHour(t))
	for _, i := range []int{0, 1, 3} {
		ts := slot(i)
		if err := c.Append(&ts, meterRow(float64(i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	err := c.Validate()
	if err == nil {
		t.Fatal("gapped index should fail validation")
	}
	if gferrors.GetCode(err) != gferrors.CodeGapDetected {
		t.Fatalf("code = %s, want %s", gferrors.GetCode(err), gferrors.CodeGapDetected)
	}
	if got := c.State(); got != Dirty {
		t.Fatalf("state = %s, want dirty", got)
	}
	report := c.IndexReport()
	if len(report.Gaps) != 1 || report.Gaps[0].MissingCount != 1 {
		t.Fatalf("report gaps = %+v, want one single-slot gap", report.Gaps)
	}

	if err := c.FillGaps(nil); err != nil {
		t.Fatalf("FillGaps: %v", err)
	}
	if got := c.State(); got != Candidate {
		t.Fatalf("state after fill = %s, want candidate", got)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate after fill: %v", err)
	}

	exported, err := c.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exported.NumRows() != 4 {
		t.Fatalf("filled table has %d rows, want 4", exported.NumRows())
	}
	if got := exported.Rows[2]["is_estimate"].BoolVal(); !got {
		t.Error("synthesized row must carry the estimation indicator")
	}
}

func TestContainer_PositionalRowsFailPeriodicPolicy(t *testing.T) {
	c := New(meterSchema(t), quarterHour(t))
	for i := 0; i < 2; i++ {
		if err := c.Append(nil, meterRow(float64(i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	err := c.Validate()
	if err == nil {
		t.Fatal("an index-less table must not validate under a periodic policy")
	}
	if gferrors.GetCode(err) != gferrors.CodeIndexMissing {
		t.Errorf("code = %s, want %s", gferrors.GetCode(err), gferrors.CodeIndexMissing)
	}
	if got := c.State(); got != Dirty {
		t.Fatalf("state = %s, want dirty", got)
	}

	p := &recordingPersister{}
	if err := c.Persist(p); gferrors.GetCode(err) != gferrors.CodeNotValidated {
		t.Errorf("Persist: %v", err)
	}
	if p.persisted != nil {
		t.Error("persister was invoked for an unverifiable table")
	}

	// Re-loading the same rows with timestamps repairs the container.
	table := types.NewTable(c.Schema())
	for i := 0; i < 2; i++ {
		table.AppendIndexedRow(slot(i), meterRow(float64(i)))
	}
	if err := c.Load(table); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate indexed rows: %v", err)
	}
	if !c.IsClean() {
		t.Error("indexed table should validate clean")
	}
}

func TestContainer_TimezonePolicyEnforced(t *testing.T) {
	c := New(meterSchema(t), quarterHour(t))
	ts := types.NaiveTime(baseTime)
	if err := c.Append(&ts, meterRow(1.0)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	err := c.Validate()
	if err == nil {
		t.Fatal("unzoned index value should fail under a timezone-required policy")
	}
	if gferrors.GetCode(err) != gferrors.CodeTimezoneMissing {
		t.Errorf("code = %s, want %s", gferrors.GetCode(err), gferrors.CodeTimezoneMissing)
	}
}

func TestContainer_FillGapsRequiresPolicy(t *testing.T) {
	c := New(meterSchema(t), nil)
	if err := c.Append(nil, meterRow(1.0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := c.FillGaps(nil); err == nil {
		t.Error("fill without a periodic policy must be refused")
	}
}
