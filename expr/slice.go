package expr

import (
	"github.com/tscc-project/tscc/compileerr"
	"github.com/tscc-project/tscc/sizes"
)

// CompileSlice compiles a full, NumPy-like range spec -- one that may use
// SymElement/DynElement (drop an axis), NewAxis (insert one) and a single
// AllFill wildcard (expand to cover whatever axes the other entries don't
// name) -- down into a simple Subtensor call plus, if the rank or axis
// order changed, a trailing Reshape. This is the only place full specs are
// accepted; Subtensor/SetSubtensor themselves only take simple specs.
func CompileSlice(x *Expr, full RangeSpec) (*Expr, error) {
	operandRank := x.Shape().Rank()

	allFillAt := -1
	consumed := 0 // axes of the operand named by non-NewAxis, non-AllFill entries
	for i, r := range full {
		switch r.Kind {
		case NewAxis:
		case AllFill:
			if allFillAt != -1 {
				return nil, compileerr.NewRankMismatch("CompileSlice", "at most one AllFill entry is allowed")
			}
			allFillAt = i
		default:
			consumed++
		}
	}
	if allFillAt == -1 && consumed != operandRank {
		return nil, compileerr.NewRankMismatch("CompileSlice", "range spec names a different number of axes than the operand has")
	}
	fillCount := operandRank - consumed

	simple := make(RangeSpec, 0, operandRank)
	// plan records, per entry of full (AllFill expanded), how to build
	// the post-Subtensor shape: keepAxis (use the simple-spec result at the
	// next operand axis), dropAxis (the axis was an Element selection) or
	// insertAxis (insert a broadcast-tagged size-1 axis here).
	type planStep int
	const (
		keepAxis planStep = iota
		dropAxis
		insertAxis
	)
	var plan []planStep

	operandAxis := 0
	appendSimple := func(r AxisRange) {
		switch r.Kind {
		case SymStartSymEnd, DynStartSymSize:
			simple = append(simple, r)
			plan = append(plan, keepAxis)
		case SymElement:
			simple = append(simple, Range(r.Index, sizes.Fix(1)))
			plan = append(plan, dropAxis)
		case DynElement:
			simple = append(simple, DynRange(r.Dyn, sizes.Fix(1)))
			plan = append(plan, dropAxis)
		}
		operandAxis++
	}

	for _, r := range full {
		switch r.Kind {
		case NewAxis:
			plan = append(plan, insertAxis)
		case AllFill:
			for k := 0; k < fillCount; k++ {
				axisSize := x.Shape()[operandAxis]
				appendSimple(Range(sizes.Fix(0), axisSize))
			}
		default:
			appendSimple(r)
		}
	}

	sliced, err := Subtensor(x, simple)
	if err != nil {
		return nil, err
	}

	finalShape := make(sizes.Shape, 0, len(plan))
	resultAxis := 0
	for _, step := range plan {
		switch step {
		case keepAxis:
			finalShape = append(finalShape, sliced.Shape()[resultAxis])
			resultAxis++
		case dropAxis:
			resultAxis++
		case insertAxis:
			finalShape = append(finalShape, sizes.BroadcastSize())
		}
	}

	if finalShape.EqualUnder(nil, sliced.Shape()) {
		return sliced, nil
	}
	return Reshape(sliced, finalShape)
}
