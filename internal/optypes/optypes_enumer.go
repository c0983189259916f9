// Generated-style lookup table for OpType.String(). The teacher generates
// this with `go tool enumer` (see the go:generate directive in optypes.go);
// this module hand-authors the same shape of table since code generation
// cannot be run in this environment (see DESIGN.md).

package optypes

var opTypeNames = map[OpType]string{
	Invalid:       "Invalid",
	Identity:      "Identity",
	Zeros:         "Zeros",
	ScalarConst:   "ScalarConst",
	SizeValue:     "SizeValue",
	Var:           "Var",
	Negate:        "Negate",
	Abs:           "Abs",
	Sign:          "Sign",
	Log:           "Log",
	Log10:         "Log10",
	Exp:           "Exp",
	Sin:           "Sin",
	Cos:           "Cos",
	Tan:           "Tan",
	Asin:          "Asin",
	Acos:          "Acos",
	Atan:          "Atan",
	Sinh:          "Sinh",
	Cosh:          "Cosh",
	Tanh:          "Tanh",
	Sqrt:          "Sqrt",
	Ceil:          "Ceil",
	Floor:         "Floor",
	Round:         "Round",
	Truncate:      "Truncate",
	Sum:           "Sum",
	SumAxis:       "SumAxis",
	Reshape:       "Reshape",
	DoBroadcast:   "DoBroadcast",
	SwapDim:       "SwapDim",
	Subtensor:     "Subtensor",
	StoreToVar:    "StoreToVar",
	Annotated:     "Annotated",
	Add:           "Add",
	Subtract:      "Subtract",
	Multiply:      "Multiply",
	Divide:        "Divide",
	Modulo:        "Modulo",
	Power:         "Power",
	Dot:           "Dot",
	TensorProduct: "TensorProduct",
	SetSubtensor:  "SetSubtensor",
	Discard:       "Discard",
	ExtensionOp:   "ExtensionOp",
	Last:          "Last",
}
