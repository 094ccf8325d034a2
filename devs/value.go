package devs

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ValueKind tags the variant of a Value, mirroring VLE's closed
// value::Value::type enum (BOOLEAN, INTEGER, DOUBLE, STRING, SET, MAP,
// TUPLE, TABLE, XMLTYPE, NIL, MATRIX).
type ValueKind int

const (
	KindBool ValueKind = iota
	KindInt
	KindDouble
	KindString
	KindNull
	KindXML
	KindTuple
	KindTable
	KindSet
	KindMap
	KindMatrix
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "Boolean"
	case KindInt:
		return "Integer"
	case KindDouble:
		return "Double"
	case KindString:
		return "String"
	case KindNull:
		return "Null"
	case KindXML:
		return "Xml"
	case KindTuple:
		return "Tuple"
	case KindTable:
		return "Table"
	case KindSet:
		return "Set"
	case KindMap:
		return "Map"
	case KindMatrix:
		return "Matrix"
	default:
		return "Unknown"
	}
}

// Value is the closed sum type carried by Event attribute maps and
// produced by Dynamics.Observation. Every concrete variant is deep
// cloneable, per the spec's data model contract.
type Value interface {
	Kind() ValueKind
	Clone() Value
	String() string
}

// BoolValue is the Boolean variant.
type BoolValue bool

func (v BoolValue) Kind() ValueKind { return KindBool }
func (v BoolValue) Clone() Value    { return v }
func (v BoolValue) String() string  { return fmt.Sprintf("%t", bool(v)) }

// IntValue is the Integer variant.
type IntValue int64

func (v IntValue) Kind() ValueKind { return KindInt }
func (v IntValue) Clone() Value    { return v }
func (v IntValue) String() string  { return fmt.Sprintf("%d", int64(v)) }

// DoubleValue is the Double variant. Equality is exact bit representation,
// not tolerance-based — tolerance is a model concern, not the scheduler's.
type DoubleValue float64

func (v DoubleValue) Kind() ValueKind { return KindDouble }
func (v DoubleValue) Clone() Value    { return v }
func (v DoubleValue) String() string  { return fmt.Sprintf("%g", float64(v)) }

// StringValue is the String variant.
type StringValue string

func (v StringValue) Kind() ValueKind { return KindString }
func (v StringValue) Clone() Value    { return v }
func (v StringValue) String() string  { return string(v) }

// NullValue is the singleton Null variant.
type NullValue struct{}

func (v NullValue) Kind() ValueKind { return KindNull }
func (v NullValue) Clone() Value    { return v }
func (v NullValue) String() string  { return "null" }

// XMLValue is the Xml variant — an opaque XML fragment carried as text.
type XMLValue string

func (v XMLValue) Kind() ValueKind { return KindXML }
func (v XMLValue) Clone() Value    { return v }
func (v XMLValue) String() string  { return string(v) }

// TupleValue is a fixed-length ordered vector of doubles.
type TupleValue []float64

func (v TupleValue) Kind() ValueKind { return KindTuple }
func (v TupleValue) Clone() Value {
	c := make(TupleValue, len(v))
	copy(c, v)
	return c
}
func (v TupleValue) String() string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%g", x)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// TableValue is a w×h grid of doubles, row-major.
type TableValue struct {
	Width, Height int
	Data          []float64
}

// NewTableValue builds a TableValue, panicking if Data's length does not
// match width*height.
func NewTableValue(width, height int, data []float64) TableValue {
	if len(data) != width*height {
		panic(fmt.Sprintf("devs: table data length %d does not match %dx%d", len(data), width, height))
	}
	return TableValue{Width: width, Height: height, Data: data}
}

func (v TableValue) Kind() ValueKind { return KindTable }

func (v TableValue) At(x, y int) float64 { return v.Data[y*v.Width+x] }

func (v TableValue) Clone() Value {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return TableValue{Width: v.Width, Height: v.Height, Data: data}
}

func (v TableValue) String() string {
	return fmt.Sprintf("Table(%dx%d)", v.Width, v.Height)
}

// SetValue is an ordered sequence of Values (insertion order preserved).
type SetValue []Value

func (v SetValue) Kind() ValueKind { return KindSet }

func (v SetValue) Clone() Value {
	c := make(SetValue, len(v))
	for i, e := range v {
		c[i] = e.Clone()
	}
	return c
}

func (v SetValue) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MapValue is a keyed mapping with unique keys; iteration order equals
// insertion order, tracked separately from the backing map.
type MapValue struct {
	keys   []string
	values map[string]Value
}

// NewMapValue returns an empty MapValue ready for Set calls.
func NewMapValue() *MapValue {
	return &MapValue{values: make(map[string]Value)}
}

// Set inserts or overwrites key's value, appending key to the iteration
// order only the first time it is seen.
func (m *MapValue) Set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value bound to key, and whether it was present.
func (m *MapValue) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *MapValue) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *MapValue) Kind() ValueKind { return KindMap }

func (m *MapValue) Clone() Value {
	c := NewMapValue()
	for _, k := range m.keys {
		c.Set(k, m.values[k].Clone())
	}
	return c
}

func (m *MapValue) String() string {
	parts := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, m.values[k].String()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MatrixValue is a dense matrix of doubles, backed by gonum's mat.Dense so
// routing, observation, and any future DE/Petri-net extension built on top
// of the kernel gets real linear-algebra operations (Mul, T, ...) rather
// than a hand-rolled 2D slice.
type MatrixValue struct {
	M *mat.Dense
}

// NewMatrixValue wraps a gonum dense matrix as a Value.
func NewMatrixValue(rows, cols int, data []float64) MatrixValue {
	return MatrixValue{M: mat.NewDense(rows, cols, data)}
}

func (v MatrixValue) Kind() ValueKind { return KindMatrix }

func (v MatrixValue) Clone() Value {
	r, c := v.M.Dims()
	cloned := mat.NewDense(r, c, nil)
	cloned.Copy(v.M)
	return MatrixValue{M: cloned}
}

func (v MatrixValue) String() string {
	r, c := v.M.Dims()
	return fmt.Sprintf("Matrix(%dx%d)", r, c)
}

// IsComposite reports whether v is a Map, Set, or Matrix — the variants
// that contain other values or a non-scalar payload.
func IsComposite(v Value) bool {
	switch v.Kind() {
	case KindMap, KindSet, KindMatrix:
		return true
	default:
		return false
	}
}

// CloneAttrs deep-clones an attribute map, used by the coordinator when
// routing a single output event to multiple destination ports (§5: "Value
// payloads are reference-cloned on routing to each destination").
func CloneAttrs(attrs map[string]Value) map[string]Value {
	out := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		out[k] = v.Clone()
	}
	return out
}
