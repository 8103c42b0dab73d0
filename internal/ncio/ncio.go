package ncio

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDefineOver = errors.New("ncio: define phase is over")
	ErrDefineOpen = errors.New("ncio: still in define phase")
	ErrDimExists  = errors.New("ncio: dimension exists with conflicting length")
	ErrVarExists  = errors.New("ncio: variable already declared")
	ErrNoVar      = errors.New("ncio: no such variable")
)

// Dim is a named dimension. Lengths are fixed at declaration; this package
// does not use the record (unlimited) dimension.
type Dim struct {
	Name string
	Len  int
}

// Dims is an ordered dimension tuple. Order is significant: it is the
// storage order of variables declared over it.
type Dims []Dim

// Names returns the dimension names in order.
func (d Dims) Names() []string {
	names := make([]string, len(d))
	for i, dim := range d {
		names[i] = dim.Name
	}
	return names
}

// Lens returns the dimension lengths in order.
func (d Dims) Lens() []int {
	lens := make([]int, len(d))
	for i, dim := range d {
		lens[i] = dim.Len
	}
	return lens
}

// Size returns the number of elements spanned by the tuple.
func (d Dims) Size() int {
	n := 1
	for _, dim := range d {
		n *= dim.Len
	}
	return n
}

// Equal reports whether two tuples match in names, lengths, and order.
func (d Dims) Equal(o Dims) bool {
	if len(d) != len(o) {
		return false
	}
	for i := range d {
		if d[i] != o[i] {
			return false
		}
	}
	return true
}

func (d Dims) String() string {
	parts := make([]string, len(d))
	for i, dim := range d {
		parts[i] = fmt.Sprintf("%s:%d", dim.Name, dim.Len)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Attrs holds variable or file-level attributes. Values are strings,
// float64s, or numeric slices.
type Attrs map[string]any

// Copy returns a deep copy. Derived metadata must edit a copy, never the
// attribute map it was built from.
func (a Attrs) Copy() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		switch val := v.(type) {
		case []float64:
			out[k] = append([]float64(nil), val...)
		case []float32:
			out[k] = append([]float32(nil), val...)
		case []int32:
			out[k] = append([]int32(nil), val...)
		default:
			out[k] = v
		}
	}
	return out
}

// SortedKeys returns the attribute keys in sorted order, the order in which
// attributes are written to file.
func (a Attrs) SortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AttrString extracts a string-valued attribute.
func AttrString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AttrFloats extracts a numeric attribute as float64s.
func AttrFloats(v any) ([]float64, bool) {
	switch val := v.(type) {
	case []float64:
		return val, true
	case []float32:
		out := make([]float64, len(val))
		for i, x := range val {
			out[i] = float64(x)
		}
		return out, true
	case []int32:
		out := make([]float64, len(val))
		for i, x := range val {
			out[i] = float64(x)
		}
		return out, true
	case float64:
		return []float64{val}, true
	}
	return nil, false
}

// VarDef declares one variable: its name, element type ("f8" unless stated
// otherwise, "f4" and "i4" also supported), dimension names, and attributes.
type VarDef struct {
	Name  string
	Type  string
	Dims  []string
	Attrs Attrs
}

// exemplar returns the typed zero-value slice that tells the cdf header
// which on-disk type to use.
func exemplar(typeName string) any {
	switch typeName {
	case "f4":
		return []float32{0}
	case "i4":
		return []int32{0}
	default:
		return []float64{0}
	}
}

// typeName is the inverse of exemplar, from a typed buffer.
func typeName(buf any) string {
	switch buf.(type) {
	case []float32:
		return "f4"
	case []int32:
		return "i4"
	case []float64:
		return "f8"
	case []int8, []byte:
		return "i1"
	case []int16:
		return "i2"
	}
	return ""
}

// attrValue converts an attribute value to a form the cdf header accepts:
// strings stay strings, scalars become one-element slices.
func attrValue(v any) any {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return []float64{val}
	case float32:
		return []float32{val}
	case int:
		return []int32{int32(val)}
	case int32:
		return []int32{val}
	case []float64, []float32, []int32:
		return val
	}
	return fmt.Sprint(v)
}
