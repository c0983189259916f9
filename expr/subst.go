package expr

import (
	"github.com/tscc-project/tscc/internal/optypes"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
)

// varKey identifies a variable by (name, shape, dtype), matching
// types.VarSpec.Key() so two Var nodes referring to "the same" variable
// compare equal regardless of which *Expr instance holds them.
type varKey = types.VarKey

// rebuild reconstructs e with newOperands and possibly-rewritten attrs,
// re-running shape inference through compute so a substitution can never
// produce a node with a stale ValueType.
func rebuild(e *Expr, newOperands []*Expr, a attrs) (*Expr, error) {
	return defaultMemo.buildChecked(e.op, a, newOperands...)
}

// SubstSymSizes rewrites every symbolic size expression embedded in the
// DAG rooted at e (shapes, axis/range bounds, scalar var shapes) under
// env, returning a new, re-checked DAG. Leaves with no symbolic content
// are returned unchanged without reallocation.
func (e *Expr) SubstSymSizes(env sizes.SymEnv) (*Expr, error) {
	newOperands := make([]*Expr, len(e.operands))
	changed := false
	for i, op := range e.operands {
		o2, err := op.SubstSymSizes(env)
		if err != nil {
			return nil, err
		}
		newOperands[i] = o2
		if o2 != op {
			changed = true
		}
	}

	a := e.attrs
	a.varSpec = types.VarSpec{Name: e.attrs.varSpec.Name, Shape: e.attrs.varSpec.Shape.Subst(env), DType: e.attrs.varSpec.DType}
	a.size = e.attrs.size.Subst(env)
	a.shape = e.attrs.shape.Subst(env)
	ranges, err := e.attrs.ranges.substSymSizes(env)
	if err != nil {
		return nil, err
	}
	a.ranges = ranges
	attrsChanged := a.varSpec.Shape.String() != e.attrs.varSpec.Shape.String() ||
		a.size.String() != e.attrs.size.String() ||
		a.shape.String() != e.attrs.shape.String() ||
		len(a.ranges) != len(e.attrs.ranges)
	if !attrsChanged {
		for i := range a.ranges {
			if rangeChanged(a.ranges[i], e.attrs.ranges[i]) {
				attrsChanged = true
				break
			}
		}
	}

	switch e.op {
	case optypes.Identity, optypes.Zeros, optypes.ScalarConst, optypes.SizeValue, optypes.Var:
		if !changed && !attrsChanged {
			return e, nil
		}
		return rebuildLeaf(e, a), nil
	}

	if !changed && !attrsChanged {
		return e, nil
	}
	return rebuild(e, newOperands, a)
}

func rangeChanged(a, b AxisRange) bool {
	return a.Start.String() != b.Start.String() ||
		a.Length.String() != b.Length.String() ||
		a.Index.String() != b.Index.String() ||
		a.Dyn != b.Dyn
}

// rebuildLeaf reconstructs a leaf node after symbolic sizes embedded in
// its attrs have been substituted; the dtype is read back from the
// original node since leaves don't all carry it in attrs.
func rebuildLeaf(e *Expr, a attrs) *Expr {
	switch e.op {
	case optypes.Identity:
		return Identity(a.size, e.vt.DType)
	case optypes.Zeros:
		return Zeros(a.shape, e.vt.DType)
	case optypes.ScalarConst:
		return ScalarConst(a.scalar, e.vt.DType)
	case optypes.SizeValue:
		return SizeValue(a.size)
	case optypes.Var:
		return Var(a.varSpec)
	}
	panic("unreachable: rebuildLeaf called with non-leaf op " + e.op.String())
}

// Subst replaces every subtree of e that is structurally equal to part
// with replacement, returning a new, re-checked DAG (e itself if part does
// not occur in it).
func (e *Expr) Subst(part, replacement *Expr) (*Expr, error) {
	if e == part || structurallyEqual(e, part) {
		return replacement, nil
	}
	newOperands := make([]*Expr, len(e.operands))
	changed := false
	for i, op := range e.operands {
		o2, err := op.Subst(part, replacement)
		if err != nil {
			return nil, err
		}
		newOperands[i] = o2
		if o2 != op {
			changed = true
		}
	}
	a := e.attrs
	if len(a.ranges) > 0 {
		ranges, err := a.ranges.subst(part, replacement)
		if err != nil {
			return nil, err
		}
		for i := range ranges {
			if ranges[i].Dyn != a.ranges[i].Dyn {
				changed = true
			}
		}
		a.ranges = ranges
	}
	if !changed {
		return e, nil
	}
	return rebuild(e, newOperands, a)
}

// collectVars walks e's DAG (including any dynamic range sub-expressions)
// collecting the key of every Var node reached.
func (e *Expr) collectVars(into map[varKey]struct{}) {
	if e.op == optypes.Var {
		into[e.attrs.varSpec.Key()] = struct{}{}
	}
	for _, op := range e.operands {
		op.collectVars(into)
	}
	e.attrs.ranges.extractVars(into)
}

// Vars returns every distinct variable referenced anywhere in e's DAG.
func (e *Expr) Vars() []types.VarSpec {
	found := map[varKey]types.VarSpec{}
	visited := map[*Expr]bool{}
	var walk func(n *Expr)
	walk = func(n *Expr) {
		if visited[n] {
			return
		}
		visited[n] = true
		if n.op == optypes.Var {
			found[n.attrs.varSpec.Key()] = n.attrs.varSpec
		}
		for _, o := range n.operands {
			walk(o)
		}
		for _, r := range n.attrs.ranges {
			if r.Dyn != nil {
				walk(r.Dyn)
			}
		}
	}
	walk(e)
	specs := make([]types.VarSpec, 0, len(found))
	for _, spec := range found {
		specs = append(specs, spec)
	}
	return specs
}

// CanEvalAllSymSizes reports whether every symbolic size reachable from e
// (shapes, axis bounds, range bounds) is resolvable under env.
func (e *Expr) CanEvalAllSymSizes(env sizes.SymEnv) bool {
	if !e.vt.Shape.CanEval(env) {
		return false
	}
	if !e.attrs.size.CanEval(env) {
		return false
	}
	if e.attrs.shape != nil && !e.attrs.shape.CanEval(env) {
		return false
	}
	for _, r := range e.attrs.ranges {
		if !r.Start.CanEval(env) || !r.Length.CanEval(env) || !r.Index.CanEval(env) {
			return false
		}
		if r.Dyn != nil && !r.Dyn.CanEvalAllSymSizes(env) {
			return false
		}
	}
	for _, op := range e.operands {
		if !op.CanEvalAllSymSizes(env) {
			return false
		}
	}
	return true
}
