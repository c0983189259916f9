// Package shapeinference calculates the ValueType (shape + dtype) resulting
// from each expression operation and validates its inputs. It mirrors the
// teacher's shapeinference package: elementwise unary/binary ops share a
// general rule, and every other operation gets its own function.
//
// Everything here is pure: given the operand ValueTypes it either returns
// the result ValueType or a compileerr-flavored error. The expr package
// calls these functions once per constructor invocation and never mutates
// their result afterwards.
package shapeinference

import (
	"strconv"

	"github.com/tscc-project/tscc/compileerr"
	"github.com/tscc-project/tscc/internal/optypes"
	"github.com/tscc-project/tscc/internal/utils"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
)

// FloatOnlyOps requires a floating-point dtype: the transcendentals whose
// result is undefined for integers.
var FloatOnlyOps = utils.SetWith(
	optypes.Log, optypes.Log10, optypes.Exp, optypes.Sin, optypes.Cos, optypes.Tan,
	optypes.Asin, optypes.Acos, optypes.Atan, optypes.Sinh, optypes.Cosh, optypes.Tanh,
	optypes.Sqrt, optypes.Ceil, optypes.Floor, optypes.Round, optypes.Truncate,
)

// SignedOnlyOps requires a signed numeric dtype.
var SignedOnlyOps = utils.SetWith(optypes.Negate)

// UnaryOp validates and infers the output ValueType for an elementwise
// unary transcendental. The shape and dtype are unchanged from the
// operand; only the dtype class is checked.
func UnaryOp(op optypes.OpType, operand types.ValueType) (types.ValueType, error) {
	if !optypes.IsElementwiseTranscendental(op) {
		return types.ValueType{}, compileerr.NewRankMismatch(op.String(), "not an elementwise unary op")
	}
	if FloatOnlyOps.Has(op) && !operand.DType.IsFloat() {
		return types.ValueType{}, compileerr.NewShapeMismatch(op.String(),
			"requires a floating-point dtype, got "+operand.DType.String())
	}
	if SignedOnlyOps.Has(op) && operand.DType == types.Bool {
		return types.ValueType{}, compileerr.NewShapeMismatch(op.String(), "requires a numeric dtype, got bool")
	}
	return operand, nil
}

// BinaryOp validates and infers the output ValueType for an elementwise
// binary operation (Add, Subtract, Multiply, Divide, Modulo, Power). The
// caller is expected to have already pad-to-same/broadcast-to-same the
// operand shapes (see expr.autoBroadcast); this function only checks that
// the (now equal) shapes and dtypes agree.
func BinaryOp(op optypes.OpType, lhs, rhs types.ValueType) (types.ValueType, error) {
	if !optypes.IsStandardBinary(op) {
		return types.ValueType{}, compileerr.NewRankMismatch(op.String(), "not an elementwise binary op")
	}
	if lhs.DType != rhs.DType {
		return types.ValueType{}, compileerr.NewShapeMismatch(op.String(),
			"operand dtypes must match, got "+lhs.DType.String()+" and "+rhs.DType.String())
	}
	if !lhs.Shape.EqualUnder(nil, rhs.Shape) {
		return types.ValueType{}, compileerr.NewShapeMismatch(op.String(),
			"operand shapes must match after broadcasting, got "+lhs.Shape.String()+" and "+rhs.Shape.String())
	}
	return lhs, nil
}

// Sum reduces operand to a scalar.
func Sum(operand types.ValueType) (types.ValueType, error) {
	if operand.DType == types.Bool {
		return types.ValueType{}, compileerr.NewShapeMismatch("Sum", "requires a numeric dtype, got bool")
	}
	return types.ValueType{Shape: sizes.Shape{}, DType: operand.DType}, nil
}

// SumAxis reduces a single axis of operand, removing it from the shape.
func SumAxis(operand types.ValueType, axis int) (types.ValueType, error) {
	if operand.DType == types.Bool {
		return types.ValueType{}, compileerr.NewShapeMismatch("SumAxis", "requires a numeric dtype, got bool")
	}
	if axis < 0 || axis >= operand.Rank() {
		return types.ValueType{}, compileerr.NewRankMismatch("SumAxis", "axis out of range")
	}
	out := make(sizes.Shape, 0, operand.Rank()-1)
	for i, dim := range operand.Shape {
		if i == axis {
			continue
		}
		out = append(out, dim)
	}
	return types.ValueType{Shape: out, DType: operand.DType}, nil
}

// Reshape requires operand and newShape to have symbolically equal element
// counts.
func Reshape(operand types.ValueType, newShape sizes.Shape) (types.ValueType, error) {
	from := operand.Shape.NumElements()
	to := newShape.NumElements()
	if !from.EqualUnder(nil, to) {
		return types.ValueType{}, compileerr.NewRankMismatch("Reshape",
			"element counts must match, got "+from.String()+" and "+to.String())
	}
	return types.ValueType{Shape: newShape, DType: operand.DType}, nil
}

// DoBroadcast aligns operand's shape to targetShape, following the
// broadcast rules in sizes.BroadcastToSameShape.
func DoBroadcast(operand types.ValueType, targetShape sizes.Shape) (types.ValueType, error) {
	if _, err := sizes.BroadcastToSameShape(targetShape, operand.Shape, false); err != nil {
		return types.ValueType{}, compileerr.NewShapeMismatch("DoBroadcast", err.Error())
	}
	return types.ValueType{Shape: targetShape, DType: operand.DType}, nil
}

// SwapDim transposes two axes.
func SwapDim(operand types.ValueType, i, j int) (types.ValueType, error) {
	swapped, err := operand.Shape.SwapDim(i, j)
	if err != nil {
		return types.ValueType{}, compileerr.NewRankMismatch("SwapDim", err.Error())
	}
	return types.ValueType{Shape: swapped, DType: operand.DType}, nil
}

// StoreToVar requires operand's shape to equal vs.Shape; the resulting
// ValueType is the empty-shape side-effect sentinel.
func StoreToVar(operand types.ValueType, vs types.VarSpec) (types.ValueType, error) {
	if operand.DType != vs.DType {
		return types.ValueType{}, compileerr.NewShapeMismatch("StoreToVar",
			"variable dtype "+vs.DType.String()+" does not match operand dtype "+operand.DType.String())
	}
	if !operand.Shape.EqualUnder(nil, vs.Shape) {
		return types.ValueType{}, compileerr.NewShapeMismatch("StoreToVar",
			"operand shape "+operand.Shape.String()+" does not match variable shape "+vs.Shape.String())
	}
	return types.ValueType{Shape: sizes.Shape{}, DType: operand.DType}, nil
}

// Dot requires rank (1,1), (2,1) or (2,2) with matching inner dimension.
func Dot(lhs, rhs types.ValueType) (types.ValueType, error) {
	if lhs.DType != rhs.DType {
		return types.ValueType{}, compileerr.NewShapeMismatch("Dot", "operand dtypes must match")
	}
	lr, rr := lhs.Rank(), rhs.Rank()
	switch {
	case lr == 1 && rr == 1:
		if !lhs.Shape[0].EqualUnder(nil, rhs.Shape[0]) {
			return types.ValueType{}, innerDimMismatch(lhs, rhs)
		}
		return types.ValueType{Shape: sizes.Shape{}, DType: lhs.DType}, nil
	case lr == 2 && rr == 1:
		if !lhs.Shape[1].EqualUnder(nil, rhs.Shape[0]) {
			return types.ValueType{}, innerDimMismatch(lhs, rhs)
		}
		return types.ValueType{Shape: sizes.Shape{lhs.Shape[0]}, DType: lhs.DType}, nil
	case lr == 2 && rr == 2:
		if !lhs.Shape[1].EqualUnder(nil, rhs.Shape[0]) {
			return types.ValueType{}, innerDimMismatch(lhs, rhs)
		}
		return types.ValueType{Shape: sizes.Shape{lhs.Shape[0], rhs.Shape[1]}, DType: lhs.DType}, nil
	default:
		return types.ValueType{}, compileerr.NewRankMismatch("Dot",
			"requires rank (1,1), (2,1) or (2,2), got ("+strconv.Itoa(lr)+","+strconv.Itoa(rr)+")")
	}
}

func innerDimMismatch(lhs, rhs types.ValueType) error {
	return compileerr.NewShapeMismatch("Dot", "inner dimensions must match, got shapes "+lhs.Shape.String()+" and "+rhs.Shape.String())
}

// TensorProduct is the outer product: the result shape is the
// concatenation of both operand shapes.
func TensorProduct(lhs, rhs types.ValueType) (types.ValueType, error) {
	if lhs.DType != rhs.DType {
		return types.ValueType{}, compileerr.NewShapeMismatch("TensorProduct", "operand dtypes must match")
	}
	out := make(sizes.Shape, 0, lhs.Rank()+rhs.Rank())
	out = append(out, lhs.Shape...)
	out = append(out, rhs.Shape...)
	return types.ValueType{Shape: out, DType: lhs.DType}, nil
}
