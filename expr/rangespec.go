package expr

import (
	"github.com/pkg/errors"

	"github.com/tscc-project/tscc/sizes"
)

// AxisRangeKind tags which of the six per-axis slicing forms an AxisRange
// holds (spec.md §3, "Range specification").
type AxisRangeKind int

const (
	// SymStartSymEnd: a symbolic start with a symbolic length, both known
	// at graph-build time. The size semiring has no subtraction, so the
	// range is represented as (start, length) rather than (start, end);
	// the two are equivalent (end = start + length - 1) and "length" is
	// exactly the SizeExpr the resulting axis needs anyway.
	SymStartSymEnd AxisRangeKind = iota
	// DynStartSymSize: a runtime-computed start (an int-typed Expr) paired
	// with a symbolic size known at graph-build time.
	DynStartSymSize
	// SymElement: selects a single symbolic index, dropping the axis.
	SymElement
	// DynElement: selects a single runtime-computed index, dropping the axis.
	DynElement
	// NewAxis: inserts a new broadcastable axis (only valid in a full spec).
	NewAxis
	// AllFill: wildcard expanding to cover all remaining axes (only valid
	// in a full spec, at most once).
	AllFill
)

// AxisRange is one axis's slicing instruction. Which fields are valid
// depends on Kind. DynStart/DynIndex hold a dynamic (runtime-computed)
// int-typed Expr for the DynStartSymSize/DynElement forms -- substitution
// must propagate into them uniformly with the rest of the DAG (design
// notes' "open question" on dynamic ranges is resolved here by running
// Subst/SubstSymSizes over DynStart/DynIndex exactly like any other Expr).
type AxisRange struct {
	Kind AxisRangeKind

	Start  sizes.SizeExpr // SymStartSymEnd, DynStartSymSize (symbolic part, usually Fix(0) when Dyn)
	Length sizes.SizeExpr // SymStartSymEnd, DynStartSymSize
	Dyn    *Expr          // DynStartSymSize (dynamic start), DynElement (dynamic index)

	Index sizes.SizeExpr // SymElement
}

// Range constructs a SymStartSymEnd axis range.
func Range(start, length sizes.SizeExpr) AxisRange {
	return AxisRange{Kind: SymStartSymEnd, Start: start, Length: length}
}

// DynRange constructs a DynStartSymSize axis range: start is computed at
// runtime by a (int-typed) Expr, but the resulting length is symbolic and
// known at graph-build time.
func DynRange(start *Expr, length sizes.SizeExpr) AxisRange {
	return AxisRange{Kind: DynStartSymSize, Dyn: start, Length: length}
}

// Element constructs a SymElement axis range (a single symbolic index,
// dropping the axis).
func Element(index sizes.SizeExpr) AxisRange {
	return AxisRange{Kind: SymElement, Index: index}
}

// DynElementRange constructs a DynElement axis range (a single
// runtime-computed index, dropping the axis).
func DynElementRange(index *Expr) AxisRange {
	return AxisRange{Kind: DynElement, Dyn: index}
}

// NewAxisRange constructs a NewAxis entry (full-spec only).
func NewAxisRange() AxisRange {
	return AxisRange{Kind: NewAxis}
}

// AllFillRange constructs an AllFill entry (full-spec only, at most one).
func AllFillRange() AxisRange {
	return AxisRange{Kind: AllFill}
}

// RangeSpec is a per-axis list of AxisRange. A *simple* spec contains only
// SymStartSymEnd/DynStartSymSize entries, one per axis of the operand,
// with no rank change. A *full* spec may additionally use SymElement,
// DynElement, NewAxis and AllFill, and is compiled down into a (simple
// RangeSpec, Reshape) pair by CompileSlice.
type RangeSpec []AxisRange

// IsSimple reports whether every entry is one of the two simple forms.
func (rs RangeSpec) IsSimple() bool {
	for _, r := range rs {
		if r.Kind != SymStartSymEnd && r.Kind != DynStartSymSize {
			return false
		}
	}
	return true
}

// resultShape returns the shape of Subtensor(rs, operand) once rs is a
// simple spec: one axis of length r.Length per entry.
func (rs RangeSpec) resultShape() sizes.Shape {
	out := make(sizes.Shape, len(rs))
	for i, r := range rs {
		out[i] = r.Length
	}
	return out
}

// substSymSizes rewrites every embedded size expression and dynamic
// sub-expression, returning a new RangeSpec.
func (rs RangeSpec) substSymSizes(env sizes.SymEnv) (RangeSpec, error) {
	out := make(RangeSpec, len(rs))
	for i, r := range rs {
		r2 := r
		r2.Start = r.Start.Subst(env)
		r2.Length = r.Length.Subst(env)
		r2.Index = r.Index.Subst(env)
		if r.Dyn != nil {
			dyn, err := r.Dyn.SubstSymSizes(env)
			if err != nil {
				return nil, errors.Wrapf(err, "substituting dynamic range at axis %d", i)
			}
			r2.Dyn = dyn
		}
		out[i] = r2
	}
	return out, nil
}

// subst rewrites every dynamic sub-expression structurally equal to part,
// replacing it with replacement; used by Expr.Subst.
func (rs RangeSpec) subst(part, replacement *Expr) (RangeSpec, error) {
	out := make(RangeSpec, len(rs))
	for i, r := range rs {
		r2 := r
		if r.Dyn != nil {
			dyn, err := r.Dyn.Subst(part, replacement)
			if err != nil {
				return nil, errors.Wrapf(err, "substituting dynamic range at axis %d", i)
			}
			r2.Dyn = dyn
		}
		out[i] = r2
	}
	return out, nil
}

// extractVars collects variables referenced by any dynamic sub-expression.
func (rs RangeSpec) extractVars(into map[varKey]struct{}) {
	for _, r := range rs {
		if r.Dyn != nil {
			r.Dyn.collectVars(into)
		}
	}
}
