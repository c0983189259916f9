// Package types holds the compiler's small closed data types that sit at
// the boundary with the out-of-scope numeric tensor library: element dtype
// names, value types, variable specifications, and the compile-time
// environment (variable placement). Range specifications for slicing live
// in package expr.
package types

import "fmt"

// TypeName is an opaque identifier for an element dtype. Every expression
// carries exactly one. It is deliberately a small closed enum rather than
// importing the numeric tensor library's own dtype representation: that
// library (strides, storage, actual byte layout) is an external
// collaborator out of this compiler's scope (see SPEC_FULL.md / DESIGN.md).
type TypeName int

const (
	InvalidType TypeName = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
)

var typeNames = map[TypeName]string{
	InvalidType: "invalid",
	Bool:        "bool",
	Int8:        "int8",
	Int16:       "int16",
	Int32:       "int32",
	Int64:       "int64",
	Float32:     "float32",
	Float64:     "float64",
}

func (t TypeName) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TypeName(%d)", int(t))
}

// byteSizes gives the storage footprint of one element, used by the
// planner when sizing memory allocations (byte-size = element-count *
// dtype-size).
var byteSizes = map[TypeName]uint64{
	Bool:    1,
	Int8:    1,
	Int16:   2,
	Int32:   4,
	Int64:   8,
	Float32: 4,
	Float64: 8,
}

// ByteSize returns the number of bytes one element of this type occupies.
func (t TypeName) ByteSize() uint64 {
	return byteSizes[t]
}

// IsFloat reports whether t is a floating-point type.
func (t TypeName) IsFloat() bool {
	return t == Float32 || t == Float64
}

// IsInt reports whether t is an integer type (not bool).
func (t TypeName) IsInt() bool {
	switch t {
	case Int8, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}

// ParseTypeName looks up a dtype by its String() spelling, for config/YAML
// loaders that carry dtypes as plain strings.
func ParseTypeName(s string) (TypeName, bool) {
	for t, name := range typeNames {
		if name == s && t != InvalidType {
			return t, true
		}
	}
	return InvalidType, false
}

// CTypeName returns the C++ spelling of the dtype, used when instantiating
// kernel/host templates.
func (t TypeName) CTypeName() string {
	switch t {
	case Bool:
		return "bool"
	case Int8:
		return "int8_t"
	case Int16:
		return "int16_t"
	case Int32:
		return "int32_t"
	case Int64:
		return "int64_t"
	case Float32:
		return "float"
	case Float64:
		return "double"
	default:
		return "void"
	}
}
