// Package expr implements the expression graph: a tagged-variant,
// hash-consed DAG whose leaves are variables, constants, identity/zero
// tensors and size values, and whose interior nodes are unary, binary and
// n-ary tensor operations with symbolic shapes (spec.md §3/§4.2).
//
// Rather than one Go type per operation, a node is represented the way the
// teacher represents a StableHLO statement: one concrete struct carrying an
// OpType tag, its operands, its inferred ValueType, and a small
// op-specific payload (variable spec, scalar value, axis index, range
// spec, ...). shapeOf is total by construction: every constructor runs
// shape inference before returning, exactly like the teacher's
// Function.addOp driving shapeinference.BinaryOp/UnaryOp.
package expr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/tscc-project/tscc/internal/optypes"
	"github.com/tscc-project/tscc/internal/utils"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
)

// Expr is one node of the expression DAG. Values of this type are always
// obtained from a constructor (New*/the package-level builder functions)
// or from a transformation (SubstSymSizes, Subst) -- never constructed by
// hand -- so that shape inference and hash-consing are never bypassed.
type Expr struct {
	op       optypes.OpType
	operands []*Expr
	vt       types.ValueType
	attrs    attrs
	hash     uint64
}

// attrs holds the small op-specific payload. Only the fields relevant to
// op are populated; this mirrors the teacher's Statement.Attributes map,
// typed instead of map[string]any since the op set (and therefore the
// payload shape) is closed and known at compile time.
type attrs struct {
	varSpec  types.VarSpec
	scalar   float64
	size     sizes.SizeExpr
	shape    sizes.Shape
	dtype    types.TypeName // Identity, Zeros, ScalarConst: the leaf's dtype, since it has no operand to derive it from
	axis     int
	axisJ    int
	ranges   RangeSpec
	text     string
	ext      ExtensionOp
	extArity int
}

// OpType returns the node's operation tag.
func (e *Expr) OpType() optypes.OpType { return e.op }

// ValueType returns the node's shape and dtype. Total on any Expr obtained
// from this package, since every constructor computes it eagerly.
func (e *Expr) ValueType() types.ValueType { return e.vt }

// Shape is a convenience accessor for ValueType().Shape.
func (e *Expr) Shape() sizes.Shape { return e.vt.Shape }

// DType is a convenience accessor for ValueType().DType.
func (e *Expr) DType() types.TypeName { return e.vt.DType }

// Operands returns the node's direct operands (empty for leaves).
func (e *Expr) Operands() []*Expr { return e.operands }

func (e *Expr) String() string {
	return fmt.Sprintf("%s%s:%s", e.op, e.vt.Shape, e.vt.DType)
}

// ---- hash-consing -----------------------------------------------------

// memo is the process-wide, append-only structural-equality cache for
// checked expressions (spec.md §5/§9): constructing a node that is
// structurally identical to one already built returns the existing
// pointer instead of allocating a new one. sync.Map gives the concurrent
// safety the spec calls for without requiring callers to serialize access
// to a shared builder.
type memo struct {
	buckets sync.Map // uint64 -> []*Expr (hash collisions chained)
}

func newMemo() *memo { return &memo{} }

// defaultMemo is the process-wide memo every package-level constructor
// uses. It is the only memo: there is no per-session memo, so every build
// in a process shares the same interned nodes.
var defaultMemo = newMemo()

func (m *memo) intern(n *Expr) *Expr {
	n.hash = structuralHash(n)
	v, _ := m.buckets.LoadOrStore(n.hash, &[]*Expr{})
	bucket := v.(*[]*Expr)
	for _, existing := range *bucket {
		if structurallyEqual(existing, n) {
			return existing
		}
	}
	// Racing goroutines might both append here; worst case is a duplicate
	// node with the same content surviving, which is harmless (equality
	// is structural, not pointer-based) and only costs a little memory.
	*bucket = append(*bucket, n)
	return n
}

func structuralHash(n *Expr) uint64 {
	h := utils.HashUint64(uint64(n.op))
	h = utils.CombineHash(h, hashValueType(n.vt))
	h = utils.CombineHash(h, hashAttrs(n.op, n.attrs))
	for _, child := range n.operands {
		h = utils.CombineHash(h, child.hash)
	}
	return h
}

func hashValueType(vt types.ValueType) uint64 {
	var buf bytes.Buffer
	buf.WriteString(vt.Shape.String())
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, int32(vt.DType))
	return utils.StructuralHash(buf.Bytes())
}

func hashAttrs(op optypes.OpType, a attrs) uint64 {
	var buf bytes.Buffer
	buf.WriteString(a.varSpec.String())
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, math.Float64bits(a.scalar))
	buf.WriteString(a.size.String())
	buf.WriteByte(0)
	buf.WriteString(a.shape.String())
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, int64(a.axis))
	binary.Write(&buf, binary.LittleEndian, int64(a.axisJ))
	buf.WriteString(a.text)
	buf.WriteByte(0)
	for _, r := range a.ranges {
		fmt.Fprintf(&buf, "%d|%s|%s|%s|", r.Kind, r.Start, r.Length, r.Index)
		if r.Dyn != nil {
			binary.Write(&buf, binary.LittleEndian, r.Dyn.hash)
		}
	}
	if a.ext != nil {
		buf.WriteString(a.ext.Name())
	}
	return utils.StructuralHash(buf.Bytes())
}

func structurallyEqual(a, b *Expr) bool {
	if a.op != b.op || len(a.operands) != len(b.operands) {
		return false
	}
	if !a.vt.Shape.EqualUnder(nil, b.vt.Shape) || a.vt.DType != b.vt.DType {
		return false
	}
	if hashAttrs(a.op, a.attrs) != hashAttrs(b.op, b.attrs) {
		return false
	}
	for i := range a.operands {
		if a.operands[i] != b.operands[i] && !structurallyEqual(a.operands[i], b.operands[i]) {
			return false
		}
	}
	return true
}

func (m *memo) build(op optypes.OpType, vt types.ValueType, a attrs, operands ...*Expr) *Expr {
	n := &Expr{op: op, operands: operands, vt: vt, attrs: a}
	return m.intern(n)
}

// buildChecked runs compute (shape inference/validation) for op against
// operands and a, and interns the resulting node on success. Every
// non-leaf constructor, and every DAG-rewrite that rebuilds a node
// (SubstSymSizes, Subst), goes through this so shape inference can never
// be bypassed.
func (m *memo) buildChecked(op optypes.OpType, a attrs, operands ...*Expr) (*Expr, error) {
	vt, err := compute(op, operands, a)
	if err != nil {
		return nil, wrapShapeErr(op, err)
	}
	n := m.build(op, vt, a, operands...)
	checked.Store(n, struct{}{})
	return n, nil
}

// ---- leaves -------------------------------------------------------------

// Identity returns the n x n identity matrix expression.
func Identity(size sizes.SizeExpr, dtype types.TypeName) *Expr {
	vt := types.ValueType{Shape: sizes.Shape{size, size}, DType: dtype}
	return defaultMemo.build(optypes.Identity, vt, attrs{size: size, dtype: dtype})
}

// Zeros returns a zero-filled tensor of the given shape.
func Zeros(shape sizes.Shape, dtype types.TypeName) *Expr {
	vt := types.ValueType{Shape: shape, DType: dtype}
	return defaultMemo.build(optypes.Zeros, vt, attrs{shape: shape, dtype: dtype})
}

// ScalarConst returns a rank-0 constant.
func ScalarConst(value float64, dtype types.TypeName) *Expr {
	vt := types.ValueType{Shape: sizes.Shape{}, DType: dtype}
	return defaultMemo.build(optypes.ScalarConst, vt, attrs{scalar: value, dtype: dtype})
}

// SizeValue wraps a size expression as a rank-0 Int64 expression, so a
// symbolic dimension can be used as an ordinary runtime int value (e.g. as
// a DynStartSymSize range's DynStart).
func SizeValue(size sizes.SizeExpr) *Expr {
	vt := types.ValueType{Shape: sizes.Shape{}, DType: types.Int64}
	return defaultMemo.build(optypes.SizeValue, vt, attrs{size: size})
}

// Var returns a reference to the named variable.
func Var(vs types.VarSpec) *Expr {
	vt := types.ValueType{Shape: vs.Shape, DType: vs.DType}
	return defaultMemo.build(optypes.Var, vt, attrs{varSpec: vs})
}

// VarSpec returns the variable spec for a Var node (zero value otherwise).
func (e *Expr) VarSpec() types.VarSpec { return e.attrs.varSpec }

// ScalarValue returns the constant value for a ScalarConst node.
func (e *Expr) ScalarValue() float64 { return e.attrs.scalar }

// SizeOperand returns the embedded size expression for Identity/SizeValue
// nodes.
func (e *Expr) SizeOperand() sizes.SizeExpr { return e.attrs.size }

// Axis returns the reduced/swapped axis for SumAxis (and the first axis of
// SwapDim).
func (e *Expr) Axis() int { return e.attrs.axis }

// AxisPair returns (i, j) for SwapDim.
func (e *Expr) AxisPair() (int, int) { return e.attrs.axis, e.attrs.axisJ }

// Ranges returns the range spec for Subtensor/SetSubtensor.
func (e *Expr) Ranges() RangeSpec { return e.attrs.ranges }

// AnnotationText returns the text for an Annotated node.
func (e *Expr) AnnotationText() string { return e.attrs.text }

// Extension returns the registered operation for an ExtensionOp node.
func (e *Expr) Extension() ExtensionOp { return e.attrs.ext }

// wrapShapeErr is a small helper constructors use to wrap a
// shapeinference error with the op of the node being built.
func wrapShapeErr(op optypes.OpType, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "building %s node", op)
}
