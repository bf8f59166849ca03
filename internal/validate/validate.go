// Package validate checks tables against their declared schemas.
package validate

import (
	"fmt"
	"sort"
	"strings"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/pkg/types"
)

// Violation describes one schema violation found in a table. Code is one of
// the validation codes from the errors package.
type Violation struct {
	Code     string
	RowIndex int
	Column   string
	Expected string
	Actual   string
	Message  string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("row %d, column %q: %s", v.RowIndex, v.Column, v.Message)
}

// Result is the full set of violations found in one pass. Empty means the
// table conforms.
type Result []*Violation

// OK reports whether no violations were found.
func (r Result) OK() bool { return len(r) == 0 }

func (r Result) Error() string {
	if len(r) == 0 {
		return "no validation errors"
	}
	if len(r) == 1 {
		return r[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(r)))
	for i, v := range r {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("  - ")
		sb.WriteString(v.Error())
	}
	return sb.String()
}

// Err converts the result to a structured error, or nil when it is clean.
func (r Result) Err() error {
	if len(r) == 0 {
		return nil
	}
	return gferrors.Wrap(gferrors.ErrCategoryValidation, r[0].Code, "table does not conform to schema", r)
}

// SchemaValidator validates tables against a declared schema.
type SchemaValidator struct {
	schema *types.Schema
}

// NewSchemaValidator creates a validator bound to schema.
func NewSchemaValidator(schema *types.Schema) *SchemaValidator {
	return &SchemaValidator{schema: schema}
}

// ValidateRow validates a single row. It checks the exact column set, the
// runtime type tag of every cell, and nullability, collecting every
// violation rather than stopping at the first.
func (v *SchemaValidator) ValidateRow(row types.Row, rowIndex int) []*Violation {
	var violations []*Violation

	for _, col := range v.schema.Columns {
		val, present := row[col.Name]
		if !present {
			violations = append(violations, &Violation{
				Code:     gferrors.CodeColumnMismatch,
				RowIndex: rowIndex,
				Column:   col.Name,
				Expected: col.Type.String(),
				Message:  "column is missing",
			})
			continue
		}

		if val.IsNull() {
			if !col.Nullable {
				violations = append(violations, &Violation{
					Code:     gferrors.CodeNullNotAllowed,
					RowIndex: rowIndex,
					Column:   col.Name,
					Expected: col.Type.String(),
					Actual:   "null",
					Message:  "null value in non-nullable column",
				})
			}
			continue
		}

		if val.Type != col.Type {
			violations = append(violations, &Violation{
				Code:     gferrors.CodeTypeMismatch,
				RowIndex: rowIndex,
				Column:   col.Name,
				Expected: col.Type.String(),
				Actual:   val.Type.String(),
				Message:  fmt.Sprintf("expected %s, got %s", col.Type, val.Type),
			})
		}
	}

	// Extra columns not declared by the schema. Sorted so reports are
	// deterministic across runs.
	var extras []string
	for name := range row {
		if _, declared := v.schema.Column(name); !declared {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		violations = append(violations, &Violation{
			Code:     gferrors.CodeColumnMismatch,
			RowIndex: rowIndex,
			Column:   name,
			Actual:   row[name].Type.String(),
			Message:  "column is not declared by the schema",
		})
	}

	return violations
}

// Validate checks every row of the table. It is a pure function of its
// inputs; an empty table passes as long as the schema itself is well formed,
// since structure rather than content is being checked.
func (v *SchemaValidator) Validate(table *types.Table) Result {
	var all Result
	for i, row := range table.Rows {
		all = append(all, v.ValidateRow(row, i)...)
	}
	return all
}

// Validate is the package-level convenience: one call, one verdict.
func Validate(schema *types.Schema, table *types.Table) Result {
	return NewSchemaValidator(schema).Validate(table)
}
