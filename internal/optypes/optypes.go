// Package optypes defines OpType, the tag used to dispatch shape inference,
// planning and code generation across every expression node kind named in
// the data model: leaves, elementwise unaries, binaries and n-ary ops.
package optypes

import "fmt"

// OpType is an enum of every expression node kind the compiler understands.
type OpType int

//go:generate go tool enumer -type=OpType -output=optypes_enumer.go optypes.go

const (
	Invalid OpType = iota

	// Leaves.
	Identity
	Zeros
	ScalarConst
	SizeValue
	Var

	// Elementwise unary transcendentals.
	Negate
	Abs
	Sign
	Log
	Log10
	Exp
	Sin
	Cos
	Tan
	Asin
	Acos
	Atan
	Sinh
	Cosh
	Tanh
	Sqrt
	Ceil
	Floor
	Round
	Truncate

	// Other unaries.
	Sum
	SumAxis
	Reshape
	DoBroadcast
	SwapDim
	Subtensor
	StoreToVar
	Annotated

	// Binaries.
	Add
	Subtract
	Multiply
	Divide
	Modulo
	Power
	Dot
	TensorProduct
	SetSubtensor

	// N-ary.
	Discard
	ExtensionOp

	// Last is kept last; it is a counter/marker, never a real op.
	Last
)

// elementwiseTranscendentals is the set of unary ops that are pure
// elementwise functions of one input, carrying the operand's shape
// unchanged -- see shapeinference.UnaryOp.
var elementwiseTranscendentals = map[OpType]bool{
	Negate: true, Abs: true, Sign: true, Log: true, Log10: true, Exp: true,
	Sin: true, Cos: true, Tan: true, Asin: true, Acos: true, Atan: true,
	Sinh: true, Cosh: true, Tanh: true, Sqrt: true, Ceil: true, Floor: true,
	Round: true, Truncate: true,
}

// IsElementwiseTranscendental reports whether op is one of the pure
// elementwise unary functions (as opposed to Sum, Reshape, etc., which
// change shape or have side effects).
func IsElementwiseTranscendental(op OpType) bool {
	return elementwiseTranscendentals[op]
}

// standardBinaryOps mirrors shapeinference's elementwise binary group: ops
// that pad-to-same then broadcast-to-same their operands.
var standardBinaryOps = map[OpType]bool{
	Add: true, Subtract: true, Multiply: true, Divide: true, Modulo: true, Power: true,
}

// IsStandardBinary reports whether op is an elementwise binary operation.
func IsStandardBinary(op OpType) bool {
	return standardBinaryOps[op]
}

func (op OpType) String() string {
	if name, ok := opTypeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OpType(%d)", int(op))
}
