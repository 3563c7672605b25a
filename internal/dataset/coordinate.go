package dataset

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// DataCoordinate is a concrete assignment of values to a set of dimensions.
// The zero value is the empty coordinate. Coordinates are immutable.
type DataCoordinate struct {
	names  []string
	values map[string]cty.Value
}

// NewDataCoordinate builds a coordinate from a dimension->value mapping. The
// map is copied.
func NewDataCoordinate(values map[string]cty.Value) DataCoordinate {
	c := DataCoordinate{
		names:  make([]string, 0, len(values)),
		values: make(map[string]cty.Value, len(values)),
	}
	for name, v := range values {
		c.names = append(c.names, name)
		c.values[name] = v
	}
	sort.Strings(c.names)
	return c
}

// CoordinateFromCty converts an HCL object or map value into a coordinate.
func CoordinateFromCty(v cty.Value) (DataCoordinate, error) {
	if v.IsNull() {
		return DataCoordinate{}, nil
	}
	if !v.IsKnown() {
		return DataCoordinate{}, fmt.Errorf("data id is not a known value")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return DataCoordinate{}, fmt.Errorf("data id must be an object, got %s", ty.FriendlyName())
	}
	values := make(map[string]cty.Value)
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		if !ev.IsKnown() || ev.IsNull() {
			return DataCoordinate{}, fmt.Errorf("data id value for %q must be a known, non-null value", k.AsString())
		}
		if !ev.Type().IsPrimitiveType() {
			return DataCoordinate{}, fmt.Errorf("data id value for %q must be a string, number or bool, got %s", k.AsString(), ev.Type().FriendlyName())
		}
		values[k.AsString()] = ev
	}
	return NewDataCoordinate(values), nil
}

// CoordinateFromMap converts decoded JSON (or plain Go values) into a coordinate.
func CoordinateFromMap(m map[string]any) (DataCoordinate, error) {
	values := make(map[string]cty.Value, len(m))
	for name, raw := range m {
		v, err := toCty(raw)
		if err != nil {
			return DataCoordinate{}, fmt.Errorf("dimension %q: %w", name, err)
		}
		values[name] = v
	}
	return NewDataCoordinate(values), nil
}

func toCty(raw any) (cty.Value, error) {
	switch v := raw.(type) {
	case string:
		return cty.StringVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case json.Number:
		bf, ok := new(big.Float).SetString(v.String())
		if !ok {
			return cty.NilVal, fmt.Errorf("invalid number %q", v.String())
		}
		return cty.NumberVal(bf), nil
	case cty.Value:
		return v, nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Len returns the number of dimensions in the coordinate.
func (c DataCoordinate) Len() int { return len(c.names) }

// Dimensions returns the sorted dimension names.
func (c DataCoordinate) Dimensions() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Value returns the value for a dimension.
func (c DataCoordinate) Value(name string) (cty.Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Variables returns a copy of the mapping, suitable for an hcl.EvalContext.
func (c DataCoordinate) Variables() map[string]cty.Value {
	out := make(map[string]cty.Value, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Project returns the sub-coordinate restricted to names. Every name must be
// present in c.
func (c DataCoordinate) Project(names []string) (DataCoordinate, error) {
	values := make(map[string]cty.Value, len(names))
	for _, name := range names {
		v, ok := c.values[name]
		if !ok {
			return DataCoordinate{}, fmt.Errorf("dimension %q not present in data id %s", name, c)
		}
		values[name] = v
	}
	return NewDataCoordinate(values), nil
}

// TupleKey renders the values of names, in the given order, as a hashable
// key. It fails if any name is missing.
func (c DataCoordinate) TupleKey(names []string) (string, error) {
	var sb strings.Builder
	for i, name := range names {
		v, ok := c.values[name]
		if !ok {
			return "", fmt.Errorf("dimension %q not present in data id %s", name, c)
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(FormatValue(v))
	}
	return sb.String(), nil
}

// Key is the canonical identity of the coordinate: its sorted (dimension,
// value) pairs.
func (c DataCoordinate) Key() string {
	key, _ := c.TupleKey(c.names)
	return key
}

// Equal reports full mapping equality.
func (c DataCoordinate) Equal(o DataCoordinate) bool {
	return c.Key() == o.Key()
}

func (c DataCoordinate) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(FormatValue(c.values[name]))
	}
	sb.WriteByte('}')
	return sb.String()
}

// AsMap converts the coordinate to plain Go values. Integral numbers become
// int64, other numbers float64.
func (c DataCoordinate) AsMap() map[string]any {
	out := make(map[string]any, len(c.names))
	for _, name := range c.names {
		out[name] = goValue(c.values[name])
	}
	return out
}

// MarshalJSON encodes the coordinate as a JSON object.
func (c DataCoordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.AsMap())
}

func goValue(v cty.Value) any {
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Bool:
		return v.True()
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i
			}
		}
		f, _ := bf.Float64()
		return f
	default:
		return FormatValue(v)
	}
}

// FormatValue renders a primitive value canonically. Strings are quoted so
// that "10" and 10 never collide.
func FormatValue(v cty.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case !v.IsKnown():
		return "?"
	case v.Type() == cty.String:
		return strconv.Quote(v.AsString())
	case v.Type() == cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case v.Type() == cty.Bool:
		return strconv.FormatBool(v.True())
	default:
		return v.GoString()
	}
}
