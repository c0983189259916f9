package expr

import (
	"strconv"

	"github.com/tscc-project/tscc/compileerr"
	"github.com/tscc-project/tscc/expr/shapeinference"
	"github.com/tscc-project/tscc/internal/optypes"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
)

// compute is the single dispatch point from an op tag to its shape
// inference rule. Every path that can produce a non-leaf node -- the
// non-leaf constructors, SubstSymSizes's rebuild, Subst's rebuild, and Check's
// re-validation -- goes through this function, so there is exactly one
// place that knows how each OpType's output shape is derived.
func compute(op optypes.OpType, operands []*Expr, a attrs) (types.ValueType, error) {
	switch {
	case optypes.IsElementwiseTranscendental(op):
		return shapeinference.UnaryOp(op, operands[0].vt)
	case optypes.IsStandardBinary(op):
		return shapeinference.BinaryOp(op, operands[0].vt, operands[1].vt)
	}

	switch op {
	case optypes.Identity:
		return types.ValueType{Shape: sizes.Shape{a.size, a.size}, DType: a.dtype}, nil
	case optypes.Zeros:
		return types.ValueType{Shape: a.shape, DType: a.dtype}, nil
	case optypes.ScalarConst:
		return types.ValueType{Shape: sizes.Shape{}, DType: a.dtype}, nil
	case optypes.SizeValue:
		return types.ValueType{Shape: sizes.Shape{}, DType: types.Int64}, nil
	case optypes.Var:
		return types.ValueType{Shape: a.varSpec.Shape, DType: a.varSpec.DType}, nil
	case optypes.Sum:
		return shapeinference.Sum(operands[0].vt)
	case optypes.SumAxis:
		return shapeinference.SumAxis(operands[0].vt, a.axis)
	case optypes.Reshape:
		return shapeinference.Reshape(operands[0].vt, a.shape)
	case optypes.DoBroadcast:
		return shapeinference.DoBroadcast(operands[0].vt, a.shape)
	case optypes.SwapDim:
		return shapeinference.SwapDim(operands[0].vt, a.axis, a.axisJ)
	case optypes.StoreToVar:
		return shapeinference.StoreToVar(operands[0].vt, a.varSpec)
	case optypes.Annotated:
		return operands[0].vt, nil
	case optypes.Dot:
		return shapeinference.Dot(operands[0].vt, operands[1].vt)
	case optypes.TensorProduct:
		return shapeinference.TensorProduct(operands[0].vt, operands[1].vt)
	case optypes.Subtensor:
		return subtensorShape(operands[0].vt, a.ranges)
	case optypes.SetSubtensor:
		return setSubtensorShape(operands[0].vt, operands[1].vt, a.ranges)
	case optypes.Discard:
		if len(operands) == 0 {
			return types.ValueType{}, compileerr.NewUnsupportedOp(op.String(), 1, 0)
		}
		return operands[0].vt, nil
	case optypes.ExtensionOp:
		return computeExtension(a, operands)
	default:
		return types.ValueType{}, compileerr.NewUnsupportedOp(op.String(), -1, len(operands))
	}
}

func subtensorShape(operand types.ValueType, ranges RangeSpec) (types.ValueType, error) {
	if !ranges.IsSimple() {
		return types.ValueType{}, compileerr.NewRankMismatch("Subtensor",
			"range spec must be simple (compile full specs with CompileSlice first)")
	}
	if len(ranges) != operand.Rank() {
		return types.ValueType{}, compileerr.NewRankMismatch("Subtensor",
			"range spec has "+strconv.Itoa(len(ranges))+" entries, operand has rank "+strconv.Itoa(operand.Rank()))
	}
	return types.ValueType{Shape: ranges.resultShape(), DType: operand.DType}, nil
}

func setSubtensorShape(operand, value types.ValueType, ranges RangeSpec) (types.ValueType, error) {
	vt, err := subtensorShape(operand, ranges)
	if err != nil {
		return types.ValueType{}, err
	}
	if vt.DType != value.DType {
		return types.ValueType{}, compileerr.NewShapeMismatch("SetSubtensor",
			"value dtype "+value.DType.String()+" does not match target dtype "+vt.DType.String())
	}
	if !vt.Shape.EqualUnder(nil, value.Shape) {
		return types.ValueType{}, compileerr.NewShapeMismatch("SetSubtensor",
			"value shape "+value.Shape.String()+" does not match range shape "+vt.Shape.String())
	}
	return operand, nil
}

// ExtensionOp is a user-registered operation outside the closed set named
// in the node kind list: a named primitive with a fixed arity and its own
// shape inference rule, threaded through the compiler the same way every
// built-in op is (planning, scheduling and call sequencing all see it as
// just another OpType with attrs.ext set).
type ExtensionOp interface {
	Name() string
	Arity() int
	InferShape(operands []types.ValueType) (types.ValueType, error)
}

func computeExtension(a attrs, operands []*Expr) (types.ValueType, error) {
	if a.ext == nil {
		return types.ValueType{}, compileerr.NewUnsupportedOp("<nil extension op>", 0, len(operands))
	}
	if a.ext.Arity() >= 0 && len(operands) != a.ext.Arity() {
		return types.ValueType{}, compileerr.NewUnsupportedOp(a.ext.Name(), a.ext.Arity(), len(operands))
	}
	vts := make([]types.ValueType, len(operands))
	for i, o := range operands {
		vts[i] = o.vt
	}
	return a.ext.InferShape(vts)
}
