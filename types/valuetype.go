package types

import (
	"fmt"

	"github.com/tscc-project/tscc/sizes"
)

// ValueType bundles the two things shape inference needs to track for an
// expression node: its shape and its element dtype. It lives below the
// expr package (in types, alongside TypeName) so that expr/shapeinference
// can depend on it without creating an import cycle back up to expr.
type ValueType struct {
	Shape sizes.Shape
	DType TypeName
}

// Rank is a convenience accessor.
func (v ValueType) Rank() int { return v.Shape.Rank() }

// IsScalar reports whether the value type has rank 0.
func (v ValueType) IsScalar() bool { return v.Shape.Rank() == 0 }

func (v ValueType) String() string {
	return fmt.Sprintf("%s{%s}", v.DType, v.Shape)
}

// WithShape returns a copy of v with a different shape.
func (v ValueType) WithShape(s sizes.Shape) ValueType {
	return ValueType{Shape: s, DType: v.DType}
}

// WithDType returns a copy of v with a different dtype.
func (v ValueType) WithDType(t TypeName) ValueType {
	return ValueType{Shape: v.Shape, DType: t}
}
