package expr

import "sync"

// checked is the process-wide memo of nodes whose shape has already been
// verified by Check, keyed by node identity (interning already guarantees
// structurally-equal nodes share one pointer, so pointer identity is a
// valid check-once key). This lets repeated Check calls on overlapping
// DAGs -- the common case once multiple outputs share subexpressions --
// do the recomputation exactly once per distinct node.
var checked sync.Map // *Expr -> struct{}

// Check walks the DAG rooted at e once (memoized across calls and across
// shared subtrees) and re-validates every node's ValueType against what
// compute would produce from its current operands and attrs. Every node
// built through this package's constructors is already valid at
// construction time, so Check's practical purpose is catching DAGs
// assembled by means other than the constructors (e.g. deserialized from
// a stored recipe) before they reach the planner.
func Check(e *Expr) error {
	if _, ok := checked.Load(e); ok {
		return nil
	}
	for _, op := range e.operands {
		if err := Check(op); err != nil {
			return err
		}
	}
	for _, r := range e.attrs.ranges {
		if r.Dyn != nil {
			if err := Check(r.Dyn); err != nil {
				return err
			}
		}
	}
	want, err := compute(e.op, e.operands, e.attrs)
	if err != nil {
		return wrapShapeErr(e.op, err)
	}
	if want.DType != e.vt.DType || !want.Shape.EqualUnder(nil, e.vt.Shape) {
		return wrapShapeErr(e.op, errShapeDrift(e, want))
	}
	checked.Store(e, struct{}{})
	return nil
}

func errShapeDrift(e *Expr, want interface{ String() string }) error {
	return &shapeDriftError{node: e.String(), want: want.String()}
}

type shapeDriftError struct {
	node, want string
}

func (e *shapeDriftError) Error() string {
	return "node " + e.node + " carries a stale ValueType, recomputation gives " + e.want
}
