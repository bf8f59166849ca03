package types

import (
	"encoding/json"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// ColumnSpec defines a single column in a schema.
type ColumnSpec struct {
	// Name is the column name, unique within a schema
	Name string `json:"name"`

	// Type is the declared value type: float, integer, boolean, string, timestamp
	Type ValueType `json:"type"`

	// Nullable indicates whether cells in this column may be null
	Nullable bool `json:"nullable"`

	// Estimate marks this column as the estimation indicator. At most one
	// column per schema may carry it; it must be a non-nullable boolean.
	Estimate bool `json:"estimate,omitempty"`
}

// Schema is an immutable, ordered set of column specs. Schemas are shared by
// reference across containers and must never be mutated after NewSchema
// returns; every accessor is read-only.
type Schema struct {
	// Version tracks schema evolution for stored templates
	Version int `json:"version"`

	// Columns defines the columns, in declaration order
	Columns []ColumnSpec `json:"columns"`

	index map[string]int
}

// NewSchema validates the column specs and builds a schema. It fails on an
// empty column list, empty or duplicate names, or a malformed estimate
// column (non-boolean or nullable), and on more than one estimate column.
func NewSchema(columns []ColumnSpec) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("schema must have at least one column")
	}

	index := make(map[string]int, len(columns))
	estimateSeen := false

	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column name cannot be empty")
		}
		if _, dup := index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column name: %s", col.Name)
		}
		index[col.Name] = i

		if col.Estimate {
			if estimateSeen {
				return nil, fmt.Errorf("schema may declare at most one estimate column")
			}
			if col.Type != BooleanType {
				return nil, fmt.Errorf("estimate column %q must be boolean, got %s", col.Name, col.Type)
			}
			if col.Nullable {
				return nil, fmt.Errorf("estimate column %q cannot be nullable", col.Name)
			}
			estimateSeen = true
		}
	}

	cols := make([]ColumnSpec, len(columns))
	copy(cols, columns)

	return &Schema{Version: 1, Columns: cols, index: index}, nil
}

// Column returns the spec for name, or false when the schema has no such
// column.
func (s *Schema) Column(name string) (ColumnSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return ColumnSpec{}, false
	}
	return s.Columns[i], true
}

// EstimateColumn returns the name of the estimation-indicator column, or
// false when the schema declares none.
func (s *Schema) EstimateColumn() (string, bool) {
	for _, col := range s.Columns {
		if col.Estimate {
			return col.Name, true
		}
	}
	return "", false
}

// ColumnNames returns the declared names in order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Fingerprint returns a stable 128-bit digest of the column layout. Two
// schemas with identical columns share a fingerprint regardless of version;
// the catalog uses it for template identity.
func (s *Schema) Fingerprint() string {
	h := murmur3.New128()
	for _, col := range s.Columns {
		fmt.Fprintf(h, "%s\x00%s\x00%t\x00%t\x1e", col.Name, col.Type, col.Nullable, col.Estimate)
	}
	h1, h2 := h.Sum128()
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// MarshalJSON encodes version and columns.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Version int          `json:"version"`
		Columns []ColumnSpec `json:"columns"`
	}{s.Version, s.Columns})
}

// UnmarshalJSON decodes and re-validates a schema, rebuilding the name
// index. Stored templates pass through here, so a corrupt template fails
// loudly instead of yielding a half-built schema.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw struct {
		Version int          `json:"version"`
		Columns []ColumnSpec `json:"columns"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := NewSchema(raw.Columns)
	if err != nil {
		return err
	}
	built.Version = raw.Version
	if built.Version == 0 {
		built.Version = 1
	}
	*s = *built
	return nil
}
