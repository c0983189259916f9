// Package unified type-erases the expression graph: the dtype moves from
// a field checked at construction time into a plain runtime value, and
// every symbolic shape is resolved to concrete element counts. This is
// the boundary spec.md §4.3 describes as "where user-facing type
// genericity ends and the backend sees only (opcode, args, typename,
// shape)" -- the planner, scheduler and sequencer only ever see UExpr.
package unified

import (
	"github.com/tscc-project/tscc/compileerr"
	"github.com/tscc-project/tscc/expr"
	"github.com/tscc-project/tscc/internal/optypes"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
)

// URange is a resolved per-axis slice: Start/Length are concrete once
// Dyn is nil; when Dyn is set the start is computed at runtime by that
// (already-translated) subexpression and Length is the only concrete
// part.
type URange struct {
	Start, Length uint64
	Dyn           *UExpr
}

// UAttrs carries whatever op-specific payload a node's Op needs, fully
// resolved against a symbol environment. Shape/DType for the node itself
// are carried on UExpr, not here.
type UAttrs struct {
	VarSpec types.VarSpec // Var, StoreToVar: the ORIGINAL symbolic identity, so CompileEnv lookups (keyed by the pre-substitution shape string) still work
	Scalar  float64
	Axis    int
	AxisJ   int
	Ranges  []URange
	Text    string
	ExtName string
}

// UExpr is one type-erased, fully shape-resolved expression node.
type UExpr struct {
	Op       optypes.OpType
	Operands []*UExpr
	Shape    []uint64
	DType    types.TypeName
	Attrs    UAttrs
}

// Rank is a convenience accessor.
func (u *UExpr) Rank() int { return len(u.Shape) }

// Translate lowers e (and everything reachable from it, including dynamic
// range sub-expressions) into a UExpr, resolving every symbolic size
// against symEnv. Shared subtrees of e translate to a shared *UExpr,
// mirroring the source DAG's sharing.
func Translate(e *expr.Expr, symEnv sizes.SymEnv) (*UExpr, error) {
	if !e.CanEvalAllSymSizes(symEnv) {
		var missing []string
		for _, dim := range e.Shape() {
			for _, s := range dim.FreeSymbols() {
				if _, ok := symEnv[s]; !ok {
					missing = append(missing, s)
				}
			}
		}
		return nil, compileerr.NewUnresolvedSymbol("unified.Translate", missing)
	}
	memo := map[*expr.Expr]*UExpr{}
	return translate(e, symEnv, memo)
}

func translate(e *expr.Expr, symEnv sizes.SymEnv, memo map[*expr.Expr]*UExpr) (*UExpr, error) {
	if u, ok := memo[e]; ok {
		return u, nil
	}

	shape, err := e.Shape().Eval(symEnv)
	if err != nil {
		return nil, err
	}

	operands := make([]*UExpr, len(e.Operands()))
	for i, op := range e.Operands() {
		uo, err := translate(op, symEnv, memo)
		if err != nil {
			return nil, err
		}
		operands[i] = uo
	}

	ranges, err := translateRanges(e.Ranges(), symEnv, memo)
	if err != nil {
		return nil, err
	}

	extName := ""
	if ext := e.Extension(); ext != nil {
		extName = ext.Name()
	}

	_, axisJ := e.AxisPair()
	u := &UExpr{
		Op:       e.OpType(),
		Operands: operands,
		Shape:    shape,
		DType:    e.DType(),
		Attrs: UAttrs{
			VarSpec: e.VarSpec(),
			Scalar:  e.ScalarValue(),
			Axis:    e.Axis(),
			AxisJ:   axisJ,
			Text:    e.AnnotationText(),
			Ranges:  ranges,
			ExtName: extName,
		},
	}
	memo[e] = u
	return u, nil
}

func translateRanges(ranges expr.RangeSpec, symEnv sizes.SymEnv, memo map[*expr.Expr]*UExpr) ([]URange, error) {
	if len(ranges) == 0 {
		return nil, nil
	}
	out := make([]URange, len(ranges))
	for i, r := range ranges {
		ur := URange{}
		switch r.Kind {
		case expr.SymStartSymEnd:
			start, err := r.Start.Eval(symEnv)
			if err != nil {
				return nil, err
			}
			length, err := r.Length.Eval(symEnv)
			if err != nil {
				return nil, err
			}
			ur.Start, ur.Length = start, length
		case expr.DynStartSymSize:
			length, err := r.Length.Eval(symEnv)
			if err != nil {
				return nil, err
			}
			dyn, err := translate(r.Dyn, symEnv, memo)
			if err != nil {
				return nil, err
			}
			ur.Length, ur.Dyn = length, dyn
		default:
			return nil, compileerr.NewRankMismatch("unified.Translate",
				"range spec must be simple (SymStartSymEnd/DynStartSymSize) by the time it reaches unified lowering")
		}
		out[i] = ur
	}
	return out, nil
}
