package expr

import (
	"github.com/tscc-project/tscc/internal/optypes"
	"github.com/tscc-project/tscc/sizes"
)

// autoBroadcast pads the shorter operand's shape with leading broadcast
// axes (rank extension) and then aligns both to a common shape, inserting
// Reshape/DoBroadcast nodes as needed, before an elementwise binary op is
// built (spec.md §4.2). strict=false: a literal-1 axis broadcasts
// implicitly even without the Broadcast tag.
func autoBroadcast(lhs, rhs *Expr) (*Expr, *Expr, error) {
	lshape, rshape := lhs.Shape(), rhs.Shape()
	if lshape.Rank() == rshape.Rank() {
		common, err := sizes.BroadcastToSameShapeNoExtend(lshape, rshape, false)
		if err != nil {
			return nil, nil, err
		}
		lhs2, err := reshapeIfNeeded(lhs, common)
		if err != nil {
			return nil, nil, err
		}
		rhs2, err := reshapeIfNeeded(rhs, common)
		if err != nil {
			return nil, nil, err
		}
		return lhs2, rhs2, nil
	}
	common, err := sizes.BroadcastToSameShape(lshape, rshape, false)
	if err != nil {
		return nil, nil, err
	}
	lhs2, err := reshapeIfNeeded(lhs, common)
	if err != nil {
		return nil, nil, err
	}
	rhs2, err := reshapeIfNeeded(rhs, common)
	if err != nil {
		return nil, nil, err
	}
	return lhs2, rhs2, nil
}

func reshapeIfNeeded(x *Expr, target sizes.Shape) (*Expr, error) {
	if x.Shape().EqualUnder(nil, target) {
		return x, nil
	}
	if x.Shape().Rank() != target.Rank() {
		extended, err := Reshape(x, x.Shape().PadLeft(target.Rank()-x.Shape().Rank()))
		if err != nil {
			return nil, err
		}
		x = extended
	}
	if x.Shape().EqualUnder(nil, target) {
		return x, nil
	}
	return DoBroadcast(x, target)
}

func standardBinary(op optypes.OpType, lhs, rhs *Expr) (*Expr, error) {
	lhs2, rhs2, err := autoBroadcast(lhs, rhs)
	if err != nil {
		return nil, wrapShapeErr(op, err)
	}
	return defaultMemo.buildChecked(op, attrs{}, lhs2, rhs2)
}

func Add(lhs, rhs *Expr) (*Expr, error)      { return standardBinary(optypes.Add, lhs, rhs) }
func Subtract(lhs, rhs *Expr) (*Expr, error) { return standardBinary(optypes.Subtract, lhs, rhs) }
func Multiply(lhs, rhs *Expr) (*Expr, error) { return standardBinary(optypes.Multiply, lhs, rhs) }
func Divide(lhs, rhs *Expr) (*Expr, error)   { return standardBinary(optypes.Divide, lhs, rhs) }
func Modulo(lhs, rhs *Expr) (*Expr, error)   { return standardBinary(optypes.Modulo, lhs, rhs) }
func Power(lhs, rhs *Expr) (*Expr, error)    { return standardBinary(optypes.Power, lhs, rhs) }

// Dot is matrix/vector multiplication: rank (1,1) (inner product), (2,1)
// (matrix-vector) or (2,2) (matrix-matrix). No broadcasting applies.
func Dot(lhs, rhs *Expr) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.Dot, attrs{}, lhs, rhs)
}

// TensorProduct is the outer product: result shape is the concatenation of
// both operand shapes. No broadcasting applies.
func TensorProduct(lhs, rhs *Expr) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.TensorProduct, attrs{}, lhs, rhs)
}

// SetSubtensor returns a copy of target with the region described by
// ranges overwritten by value; ranges must be simple and value's shape
// must equal the region's shape.
func SetSubtensor(target *Expr, ranges RangeSpec, value *Expr) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.SetSubtensor, attrs{ranges: ranges}, target, value)
}
