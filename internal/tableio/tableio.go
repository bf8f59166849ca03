// Package tableio converts tables to and from their JSON interchange form:
// an optional index of timestamp strings plus a list of row objects. The
// CLI reads and writes this form directly; the store wraps it in a
// versioned, compressed blob.
package tableio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gridframe/gridframe/pkg/types"
)

// Payload is the JSON shape of one table.
type Payload struct {
	Index []string                 `json:"index,omitempty"`
	Rows  []map[string]interface{} `json:"rows"`
}

// ToPayload converts a table to its interchange form.
func ToPayload(table *types.Table) (*Payload, error) {
	p := &Payload{Rows: make([]map[string]interface{}, len(table.Rows))}

	if table.Indexed() {
		p.Index = make([]string, len(table.Index))
		for i, ts := range table.Index {
			p.Index[i] = ts.String()
		}
	}

	for i, row := range table.Rows {
		cells := make(map[string]interface{}, len(row))
		for name, v := range row {
			raw, err := v.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, name, err)
			}
			cells[name] = json.RawMessage(raw)
		}
		p.Rows[i] = cells
	}
	return p, nil
}

// FromPayload builds a raw table bound to schema. Cell values carry
// best-effort type tags for the validator to check; nothing here decides
// conformance.
func FromPayload(schema *types.Schema, p *Payload) (*types.Table, error) {
	if p.Index != nil && len(p.Index) != len(p.Rows) {
		return nil, fmt.Errorf("index has %d entries for %d rows", len(p.Index), len(p.Rows))
	}

	table := types.NewTable(schema)
	if p.Index != nil {
		table.Index = make([]types.Timestamp, len(p.Index))
		for i, s := range p.Index {
			ts, err := types.ParseTimestamp(s)
			if err != nil {
				return nil, fmt.Errorf("index entry %d: %w", i, err)
			}
			table.Index[i] = ts
		}
	}

	for i, cells := range p.Rows {
		row := make(types.Row, len(cells))
		for name, raw := range cells {
			declared := types.StringType
			if col, ok := schema.Column(name); ok {
				declared = col.Type
			}
			v, err := types.DecodeRaw(declared, raw)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, name, err)
			}
			row[name] = v
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ReadTable decodes a JSON table from r.
func ReadTable(schema *types.Schema, r io.Reader) (*types.Table, error) {
	var p Payload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode table JSON: %w", err)
	}
	return FromPayload(schema, &p)
}

// WriteTable encodes a table as indented JSON to w.
func WriteTable(table *types.Table, w io.Writer) error {
	p, err := ToPayload(table)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
