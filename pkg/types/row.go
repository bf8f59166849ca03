package types

import "fmt"

// Row maps column names to typed cells. A valid row's key set equals its
// schema's column set exactly; the validator enforces that, not the type.
type Row map[string]Value

// Clone returns a shallow copy of the row (values are immutable).
func (r Row) Clone() Row {
	cp := make(Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Table is an ordered sequence of rows sharing one schema. Periodic tables
// carry a parallel timestamp index; positional tables leave Index nil.
type Table struct {
	Schema *Schema
	Index  []Timestamp
	Rows   []Row
}

// NewTable returns an empty table bound to schema.
func NewTable(schema *Schema) *Table {
	return &Table{Schema: schema}
}

// Indexed reports whether the table carries a timestamp index.
func (t *Table) Indexed() bool { return t.Index != nil }

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// AppendRow adds a positional row.
func (t *Table) AppendRow(row Row) {
	t.Rows = append(t.Rows, row)
}

// AppendIndexedRow adds a row at the given timestamp.
func (t *Table) AppendIndexedRow(ts Timestamp, row Row) {
	t.Index = append(t.Index, ts)
	t.Rows = append(t.Rows, row)
}

// Clone deep-copies the rows and index. The schema is shared; it is
// immutable by contract.
func (t *Table) Clone() *Table {
	cp := &Table{Schema: t.Schema}
	if t.Index != nil {
		cp.Index = make([]Timestamp, len(t.Index))
		copy(cp.Index, t.Index)
	}
	cp.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		cp.Rows[i] = row.Clone()
	}
	return cp
}

// CheckShape verifies the index/rows length invariant. It guards internal
// construction paths; schema conformance is the validator's job.
func (t *Table) CheckShape() error {
	if t.Index != nil && len(t.Index) != len(t.Rows) {
		return fmt.Errorf("index has %d entries for %d rows", len(t.Index), len(t.Rows))
	}
	return nil
}
