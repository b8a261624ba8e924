package envelope

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
)

// Kind is the top-level type tag carried by an Envelope.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindString
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindComposite:
		return "composite"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Shape distinguishes the structural forms a composite value can take.
// The byte values double as wire tags in the structural encoding.
type Shape byte

const (
	ShapeNone      Shape = 0
	ShapeList      Shape = 'L' // ordered sequence
	ShapeMap       Shape = 'M' // string-keyed mapping
	ShapeRecord    Shape = 'R' // named record with ordered fields
	ShapeExtension Shape = 'X' // caller-supplied Composite
)

func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeMap:
		return "map"
	case ShapeRecord:
		return "record"
	case ShapeExtension:
		return "extension"
	default:
		return "none"
	}
}

// List is an ordered sequence of nested values.
type List []any

// Map is a string-keyed mapping of nested values. It is encoded with keys
// in sorted order so equal maps always produce equal payloads.
type Map map[string]any

// Record is a named structure with ordered fields. Unlike Map it keeps its
// field order and carries a type name, which makes it the closest analogue
// of an object.
type Record struct {
	Name   string
	Fields []Field
}

// Field is a single named member of a Record.
type Field struct {
	Name  string
	Value any
}

// NewRecord creates an empty record with the given type name.
func NewRecord(name string) *Record {
	return &Record{Name: name}
}

// Set adds a field or replaces the value of an existing one.
func (r *Record) Set(name string, value any) *Record {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = value
			return r
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
	return r
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Composite is implemented by caller types that carry their own structural
// encoding. CompositeName identifies the type inside the payload and must be
// stable across releases; decoding looks it up in a Registry.
type Composite interface {
	CompositeName() string
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Value is the closed set of values an Envelope can carry: an int64, a
// float64, a string, or a composite (List, Map, *Record or Composite).
// The zero Value is invalid.
type Value struct {
	kind  Kind
	shape Shape
	v     any
}

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, v: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, v: f} }

// String returns a string value. Strings are byte strings; they need not
// be valid UTF-8.
func String(s string) Value { return Value{kind: KindString, v: s} }

// Bytes returns a string value holding b.
func Bytes(b []byte) Value { return Value{kind: KindString, v: string(b)} }

// Of returns a composite value. c must be a List, Map, *Record or a
// Composite implementation; nested members are validated.
func Of(c any) (Value, error) {
	n, err := normalize(c, 0)
	if err != nil {
		return Value{}, err
	}
	shape := shapeOf(n)
	if shape == ShapeNone {
		return Value{}, fmt.Errorf("%w: %T is not a composite", ErrUnsupportedType, c)
	}
	return Value{kind: KindComposite, shape: shape, v: n}, nil
}

// ValueOf classifies a dynamically typed Go value. Integers of every width
// become Int, floats become Float, strings and byte slices become String,
// and List, Map, Record, []any, map[string]any and Composite values become
// Composite. Everything else, including nil and bare booleans, fails with
// ErrUnsupportedType.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if t.kind == KindInvalid {
			return Value{}, fmt.Errorf("%w: zero Value", ErrUnsupportedType)
		}
		return t, nil
	case *Value:
		if t == nil {
			return Value{}, fmt.Errorf("%w: nil *Value", ErrUnsupportedType)
		}
		return ValueOf(*t)
	case string:
		return String(t), nil
	case []byte:
		return Bytes(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case nil, bool:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}

	if i, ok := toInt64(x); ok {
		return Int(i), nil
	}
	if isUnsignedOverflow(x) {
		return Value{}, fmt.Errorf("%w: %T value overflows int64", ErrUnsupportedType, x)
	}

	return Of(x)
}

// Kind reports the value's type tag.
func (v Value) Kind() Kind { return v.kind }

// Shape reports the composite shape, or ShapeNone for scalars.
func (v Value) Shape() Shape { return v.shape }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) {
	i, ok := v.v.(int64)
	return i, ok && v.kind == KindInt
}

// AsFloat returns the float held by v.
func (v Value) AsFloat() (float64, bool) {
	f, ok := v.v.(float64)
	return f, ok && v.kind == KindFloat
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	s, ok := v.v.(string)
	return s, ok && v.kind == KindString
}

// AsBytes returns a copy of the string held by v as a byte slice.
func (v Value) AsBytes() ([]byte, bool) {
	s, ok := v.AsString()
	if !ok {
		return nil, false
	}
	return []byte(s), true
}

// AsList returns the list held by v.
func (v Value) AsList() (List, bool) {
	l, ok := v.v.(List)
	return l, ok
}

// AsMap returns the map held by v.
func (v Value) AsMap() (Map, bool) {
	m, ok := v.v.(Map)
	return m, ok
}

// AsRecord returns the record held by v.
func (v Value) AsRecord() (*Record, bool) {
	r, ok := v.v.(*Record)
	return r, ok
}

// AsComposite returns the caller-supplied composite held by v.
func (v Value) AsComposite() (Composite, bool) {
	if v.shape != ShapeExtension {
		return nil, false
	}
	c, ok := v.v.(Composite)
	return c, ok
}

// Interface returns the held value as a plain Go value: int64, float64,
// string, List, Map, *Record or Composite.
func (v Value) Interface() any { return v.v }

// Equal reports whether two values have the same kind, shape and deeply
// equal contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.shape != o.shape {
		return false
	}
	return equalNodes(v.v, o.v)
}

// equalNodes compares normalized nodes. NaN equals NaN at any depth and
// nil and empty byte slices are the same value.
func equalNodes(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || (math.IsNaN(x) && math.IsNaN(y)))
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equalNodes(x[i], y[i]) {
				return false
			}
		}
		return true
	case Map:
		y, ok := b.(Map)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, found := y[k]
			if !found || !equalNodes(xv, yv) {
				return false
			}
		}
		return true
	case *Record:
		y, ok := b.(*Record)
		if !ok || x.Name != y.Name || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !equalNodes(x.Fields[i].Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func shapeOf(n any) Shape {
	switch n.(type) {
	case List:
		return ShapeList
	case Map:
		return ShapeMap
	case *Record:
		return ShapeRecord
	case Composite:
		return ShapeExtension
	default:
		return ShapeNone
	}
}

// normalize converts an accepted Go value into its canonical nested form:
// int64, float64, string, []byte, bool, nil, List, Map, *Record or Composite.
func normalize(x any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrUnsupportedType, maxDepth)
	}

	switch t := x.(type) {
	case nil:
		return nil, nil
	case bool, string, int64, float64:
		return t, nil
	case float32:
		return float64(t), nil
	case []byte:
		return append([]byte{}, t...), nil
	case Composite:
		// Checked before the concrete composite shapes so that a named
		// type implementing Composite keeps its own encoding.
		return t, nil
	case List:
		return normalizeList(t, depth)
	case []any:
		return normalizeList(t, depth)
	case Map:
		return normalizeMap(t, depth)
	case map[string]any:
		return normalizeMap(t, depth)
	case Record:
		return normalizeRecord(&t, depth)
	case *Record:
		if t == nil {
			return nil, fmt.Errorf("%w: nil *Record", ErrUnsupportedType)
		}
		return normalizeRecord(t, depth)
	}

	if i, ok := toInt64(x); ok {
		return i, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
}

func normalizeList(l []any, depth int) (any, error) {
	out := make(List, len(l))
	for i, e := range l {
		n, err := normalize(e, depth+1)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func normalizeMap(m map[string]any, depth int) (any, error) {
	out := make(Map, len(m))
	for k, e := range m {
		n, err := normalize(e, depth+1)
		if err != nil {
			return nil, fmt.Errorf("map[%q]: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func normalizeRecord(r *Record, depth int) (any, error) {
	out := &Record{Name: r.Name, Fields: make([]Field, len(r.Fields))}
	seen := make(map[string]struct{}, len(r.Fields))
	for i, f := range r.Fields {
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: record %q has duplicate field %q", ErrUnsupportedType, r.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
		n, err := normalize(f.Value, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", r.Name, f.Name, err)
		}
		out.Fields[i] = Field{Name: f.Name, Value: n}
	}
	return out, nil
}

func toInt64(x any) (int64, bool) {
	switch t := x.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	}
	return 0, false
}

func isUnsignedOverflow(x any) bool {
	switch t := x.(type) {
	case uint:
		return uint64(t) > math.MaxInt64
	case uint64:
		return t > math.MaxInt64
	}
	return false
}
