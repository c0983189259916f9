package expr

import "github.com/tscc-project/tscc/internal/optypes"

// Discard sequences one or more side-effecting subexpressions (typically
// StoreToVar results) ahead of primary, returning primary's value. It
// exists so a DAG built purely from value-returning constructors can still
// express "run these writes, then yield this value" without inventing a
// statement-sequencing layer alongside the expression graph.
func Discard(primary *Expr, sideEffects ...*Expr) (*Expr, error) {
	operands := append([]*Expr{primary}, sideEffects...)
	return defaultMemo.buildChecked(optypes.Discard, attrs{}, operands...)
}

// NewExtensionOp builds a node for a user-registered primitive not named
// in the built-in op list, with its own arity and shape inference rule.
func NewExtensionOp(op ExtensionOp, operands ...*Expr) (*Expr, error) {
	return defaultMemo.buildChecked(optypes.ExtensionOp, attrs{ext: op}, operands...)
}
