package expr

import (
	"github.com/tscc-project/tscc/internal/optypes"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
)

func unaryTranscendental(op optypes.OpType, operand *Expr) (*Expr, error) {
	return defaultMemo.buildChecked(op, attrs{}, operand)
}

// Negate, Abs, Exp, Log, ... one constructor per elementwise transcendental
// named in the node kind list.
func Negate(x *Expr) (*Expr, error)  { return unaryTranscendental(optypes.Negate, x) }
func Abs(x *Expr) (*Expr, error)     { return unaryTranscendental(optypes.Abs, x) }
func Sign(x *Expr) (*Expr, error)    { return unaryTranscendental(optypes.Sign, x) }
func Exp(x *Expr) (*Expr, error)     { return unaryTranscendental(optypes.Exp, x) }
func Log(x *Expr) (*Expr, error)     { return unaryTranscendental(optypes.Log, x) }
func Log10(x *Expr) (*Expr, error)   { return unaryTranscendental(optypes.Log10, x) }
func Sqrt(x *Expr) (*Expr, error)    { return unaryTranscendental(optypes.Sqrt, x) }
func Sin(x *Expr) (*Expr, error)     { return unaryTranscendental(optypes.Sin, x) }
func Cos(x *Expr) (*Expr, error)     { return unaryTranscendental(optypes.Cos, x) }
func Tan(x *Expr) (*Expr, error)     { return unaryTranscendental(optypes.Tan, x) }
func Asin(x *Expr) (*Expr, error)    { return unaryTranscendental(optypes.Asin, x) }
func Acos(x *Expr) (*Expr, error)    { return unaryTranscendental(optypes.Acos, x) }
func Atan(x *Expr) (*Expr, error)    { return unaryTranscendental(optypes.Atan, x) }
func Sinh(x *Expr) (*Expr, error)    { return unaryTranscendental(optypes.Sinh, x) }
func Cosh(x *Expr) (*Expr, error)    { return unaryTranscendental(optypes.Cosh, x) }
func Tanh(x *Expr) (*Expr, error)    { return unaryTranscendental(optypes.Tanh, x) }
func Ceil(x *Expr) (*Expr, error)    { return unaryTranscendental(optypes.Ceil, x) }
func Floor(x *Expr) (*Expr, error)   { return unaryTranscendental(optypes.Floor, x) }
func Round(x *Expr) (*Expr, error)   { return unaryTranscendental(optypes.Round, x) }
func Truncate(x *Expr) (*Expr, error) {
	return unaryTranscendental(optypes.Truncate, x)
}

// Sum reduces the operand to a scalar.
func Sum(x *Expr) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.Sum, attrs{}, x)
}

// SumAxis reduces a single axis, removing it from the shape.
func SumAxis(x *Expr, axis int) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.SumAxis, attrs{axis: axis}, x)
}

// Reshape reinterprets x's elements under a new shape with the same
// symbolic element count.
func Reshape(x *Expr, newShape sizes.Shape) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.Reshape, attrs{shape: newShape}, x)
}

// DoBroadcast expands x's shape to targetShape following the broadcast
// rules in sizes.BroadcastToSameShape. Binary constructors insert this
// (and Reshape, for rank extension) automatically; direct callers use it
// to broadcast explicitly.
func DoBroadcast(x *Expr, targetShape sizes.Shape) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.DoBroadcast, attrs{shape: targetShape}, x)
}

// SwapDim transposes axes i and j.
func SwapDim(x *Expr, i, j int) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.SwapDim, attrs{axis: i, axisJ: j}, x)
}

// Subtensor extracts the region described by a simple range spec (one
// entry per axis of x, each SymStartSymEnd or DynStartSymSize). Use
// CompileSlice to build from a full, NumPy-like range spec that may also
// drop axes, add new ones, or use an AllFill wildcard.
func Subtensor(x *Expr, ranges RangeSpec) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.Subtensor, attrs{ranges: ranges}, x)
}

// StoreToVar writes x into the named/shaped variable vs, yielding the
// side-effect sentinel (an empty-shape value of x's dtype) used to thread
// the write into the DAG's dependency order.
func StoreToVar(x *Expr, vs types.VarSpec) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.StoreToVar, attrs{varSpec: vs}, x)
}

// Annotated wraps x with a human-readable label, carried through to the
// planner/codegen stages for diagnostics but otherwise a pass-through.
func Annotated(x *Expr, text string) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.Annotated, attrs{text: text}, x)
}
