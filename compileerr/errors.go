// Package compileerr defines the compiler's fatal error taxonomy (spec.md
// §7). Every error is a concrete type implementing error, constructed
// through github.com/pkg/errors so it carries a stack trace back to its
// detection point, the same way the teacher wraps its shape-inference
// failures with errors.Errorf.
package compileerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ShapeMismatch: two operands disagree on a dimension that is not
// broadcastable.
type ShapeMismatch struct {
	Op       string
	Detail   string
	causeErr error
}

func NewShapeMismatch(op, detail string) error {
	return errors.WithStack(&ShapeMismatch{Op: op, Detail: detail})
}

func (e *ShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch in %s: %s", e.Op, e.Detail)
}

func (e *ShapeMismatch) Unwrap() error { return e.causeErr }

// RankMismatch: structural arity is wrong (Dot on 3-D tensors, SwapDim out
// of range, Reshape with unequal element count, ...).
type RankMismatch struct {
	Op     string
	Detail string
}

func NewRankMismatch(op, detail string) error {
	return errors.WithStack(&RankMismatch{Op: op, Detail: detail})
}

func (e *RankMismatch) Error() string {
	return fmt.Sprintf("rank mismatch in %s: %s", e.Op, e.Detail)
}

// UnresolvedSymbol: CanEvalAllSymSizes is false at a phase requiring
// concrete sizes.
type UnresolvedSymbol struct {
	Phase   string
	Symbols []string
}

func NewUnresolvedSymbol(phase string, symbols []string) error {
	return errors.WithStack(&UnresolvedSymbol{Phase: phase, Symbols: symbols})
}

func (e *UnresolvedSymbol) Error() string {
	return fmt.Sprintf("unresolved symbols %v at %s: every symbol must be bound before this phase", e.Symbols, e.Phase)
}

// PlacementMissing: a variable has no entry in the placement map.
type PlacementMissing struct {
	VarName string
}

func NewPlacementMissing(varName string) error {
	return errors.WithStack(&PlacementMissing{VarName: varName})
}

func (e *PlacementMissing) Error() string {
	return fmt.Sprintf("variable %q has no entry in the compile environment's placement map", e.VarName)
}

// InPlaceConflict: the planner proved no safe in-place site but a required
// op demands one. Should not occur; indicates an internal bug.
type InPlaceConflict struct {
	NodeDescription string
}

func NewInPlaceConflict(nodeDescription string) error {
	return errors.WithStack(&InPlaceConflict{NodeDescription: nodeDescription})
}

func (e *InPlaceConflict) Error() string {
	return fmt.Sprintf("internal error: no safe in-place storage site for %s", e.NodeDescription)
}

// SchedulerDeadlock: the call sequencer found no ready stream, an
// invariant violation.
type SchedulerDeadlock struct {
	Snapshot string
}

func NewSchedulerDeadlock(snapshot string) error {
	return errors.WithStack(&SchedulerDeadlock{Snapshot: snapshot})
}

func (e *SchedulerDeadlock) Error() string {
	return fmt.Sprintf("scheduler deadlock: no stream is ready to proceed\n%s", e.Snapshot)
}

// UnsupportedOp: an extension op whose arity does not match its argument
// count.
type UnsupportedOp struct {
	Name           string
	WantArity, Got int
}

func NewUnsupportedOp(name string, wantArity, got int) error {
	return errors.WithStack(&UnsupportedOp{Name: name, WantArity: wantArity, Got: got})
}

func (e *UnsupportedOp) Error() string {
	return fmt.Sprintf("extension op %q expects arity %d, got %d arguments", e.Name, e.WantArity, e.Got)
}
