// Package types provides the core data types for Gridframe.
package types

import (
	"encoding/json"
	"fmt"
)

// ValueType identifies the declared type of a column's values.
type ValueType int

const (
	FloatType ValueType = iota
	IntegerType
	BooleanType
	StringType
	TimestampType
)

// String returns the lowercase name used in schema JSON and error messages.
func (t ValueType) String() string {
	switch t {
	case FloatType:
		return "float"
	case IntegerType:
		return "integer"
	case BooleanType:
		return "boolean"
	case StringType:
		return "string"
	case TimestampType:
		return "timestamp"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// ParseValueType converts a schema JSON type name to a ValueType.
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case "float":
		return FloatType, nil
	case "integer":
		return IntegerType, nil
	case "boolean":
		return BooleanType, nil
	case "string":
		return StringType, nil
	case "timestamp":
		return TimestampType, nil
	default:
		return 0, fmt.Errorf("unknown value type %q", s)
	}
}

// MarshalJSON encodes the type as its name.
func (t ValueType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a type name.
func (t *ValueType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseValueType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value is a single typed cell. The Type tag is carried at runtime and is
// checked against the owning column's declared type during validation; no
// reflection is involved.
type Value struct {
	Type ValueType
	Null bool

	f float64
	i int64
	b bool
	s string
	t Timestamp
}

// Float returns a non-null float value.
func Float(v float64) Value { return Value{Type: FloatType, f: v} }

// Integer returns a non-null integer value.
func Integer(v int64) Value { return Value{Type: IntegerType, i: v} }

// Boolean returns a non-null boolean value.
func Boolean(v bool) Value { return Value{Type: BooleanType, b: v} }

// String returns a non-null string value.
func String(v string) Value { return Value{Type: StringType, s: v} }

// Time returns a non-null timestamp value.
func Time(v Timestamp) Value { return Value{Type: TimestampType, t: v} }

// Null returns a null value of the given type.
func Null(t ValueType) Value { return Value{Type: t, Null: true} }

// FloatVal returns the float payload. Only meaningful for non-null FloatType.
func (v Value) FloatVal() float64 { return v.f }

// IntVal returns the integer payload.
func (v Value) IntVal() int64 { return v.i }

// BoolVal returns the boolean payload.
func (v Value) BoolVal() bool { return v.b }

// StringVal returns the string payload.
func (v Value) StringVal() string { return v.s }

// TimeVal returns the timestamp payload.
func (v Value) TimeVal() Timestamp { return v.t }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Null }

// Equal reports whether two values have the same type tag and payload.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.Null != o.Null {
		return false
	}
	if v.Null {
		return true
	}
	switch v.Type {
	case FloatType:
		return v.f == o.f
	case IntegerType:
		return v.i == o.i
	case BooleanType:
		return v.b == o.b
	case StringType:
		return v.s == o.s
	case TimestampType:
		return v.t.Zoned == o.t.Zoned && v.t.Time.Equal(o.t.Time)
	default:
		return false
	}
}

// GoString renders the value for error messages and logs.
func (v Value) GoString() string {
	if v.Null {
		return fmt.Sprintf("null(%s)", v.Type)
	}
	switch v.Type {
	case FloatType:
		return fmt.Sprintf("%g", v.f)
	case IntegerType:
		return fmt.Sprintf("%d", v.i)
	case BooleanType:
		return fmt.Sprintf("%t", v.b)
	case StringType:
		return fmt.Sprintf("%q", v.s)
	case TimestampType:
		return v.t.String()
	default:
		return fmt.Sprintf("Value(%d)", int(v.Type))
	}
}

// MarshalJSON encodes the payload as a bare JSON scalar. Timestamps encode
// as RFC 3339 strings, without offset when the value is unzoned.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Null {
		return []byte("null"), nil
	}
	switch v.Type {
	case FloatType:
		return json.Marshal(v.f)
	case IntegerType:
		return json.Marshal(v.i)
	case BooleanType:
		return json.Marshal(v.b)
	case StringType:
		return json.Marshal(v.s)
	case TimestampType:
		return json.Marshal(v.t.String())
	default:
		return nil, fmt.Errorf("cannot marshal value of type %d", int(v.Type))
	}
}

// DecodeRaw converts a decoded JSON scalar into a Value of the given declared
// type. It is used when loading raw tables from files or the store; type
// mismatches are deliberately preserved as best-effort tags so the validator
// reports them, except where JSON cannot distinguish (all numbers arrive as
// float64, so integral floats are accepted for integer columns).
func DecodeRaw(declared ValueType, raw interface{}) (Value, error) {
	if raw == nil {
		return Null(declared), nil
	}
	switch x := raw.(type) {
	case float64:
		if declared == IntegerType && x == float64(int64(x)) {
			return Integer(int64(x)), nil
		}
		return Float(x), nil
	case bool:
		return Boolean(x), nil
	case string:
		if declared == TimestampType {
			ts, err := ParseTimestamp(x)
			if err == nil {
				return Time(ts), nil
			}
		}
		return String(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("bad number %q: %w", x.String(), err)
		}
		return DecodeRaw(declared, f)
	case json.RawMessage:
		var decoded interface{}
		if err := json.Unmarshal(x, &decoded); err != nil {
			return Value{}, fmt.Errorf("bad raw value: %w", err)
		}
		return DecodeRaw(declared, decoded)
	default:
		return Value{}, fmt.Errorf("unsupported raw value %T", raw)
	}
}
