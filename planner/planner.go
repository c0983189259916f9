// Package planner walks a unified expression DAG into a topologically
// ordered list of execution units: primitive device/host operations over
// storage manikins, plus the memory allocations and warmup work those
// units need (spec.md §4.4).
package planner

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tscc-project/tscc/apicalls"
	"github.com/tscc-project/tscc/compileerr"
	"github.com/tscc-project/tscc/internal/optypes"
	"github.com/tscc-project/tscc/manikin"
	"github.com/tscc-project/tscc/types"
	"github.com/tscc-project/tscc/unified"
)

// UnitID is a dense index into Plan.Units.
type UnitID int

// PrimitiveOp is one device/host action an execution unit performs. Every
// concrete type below implements it; like apicalls.Call and expr.Expr this
// is a closed tagged variant rather than a generic "name + args" record.
type PrimitiveOp interface {
	primitiveOpKind() string
}

// ArgRef is a kernel/host-function argument: either one of the recipe's own
// allocations, or a caller-owned variable referenced by name (a Var whose
// placement keeps it resident where the op runs, needing no copy).
type ArgRef struct {
	IsVar bool
	Alloc apicalls.AllocID
	Var   types.VarSpec
}

func allocArg(id apicalls.AllocID) ArgRef { return ArgRef{Alloc: id} }
func varArg(vs types.VarSpec) ArgRef      { return ArgRef{IsVar: true, Var: vs} }

type LaunchKernel struct {
	TemplateInst string
	WorkDim      [3]uint64
	Args         []ArgRef
}

type CallCFunc struct {
	TemplateInst string
	DelegateType string
	Args         []ArgRef
}

// MemcpyDtoD copies device storage to device storage. The destination is
// either another internal allocation (Dst, DstIsVar false) or a
// caller-owned device variable referenced by name (DstVar, DstIsVar true)
// -- StoreToVar into a device-placed variable has no internal AllocID of
// its own to target.
type MemcpyDtoD struct {
	Src      apicalls.AllocID
	Dst      apicalls.AllocID
	DstVar   types.VarSpec
	DstIsVar bool
}

type MemcpyHtoD struct {
	Dst     apicalls.AllocID
	HostVar types.VarSpec
}

// MemcpyDtoH copies device storage to a host variable. The source is
// either one of the recipe's own allocations (Src, SrcIsVar false) or a
// caller-owned device variable referenced by name (SrcVar, SrcIsVar true)
// -- a device-placed Var has no internal AllocID of its own to read from.
type MemcpyDtoH struct {
	HostVar  types.VarSpec
	Src      apicalls.AllocID
	SrcVar   types.VarSpec
	SrcIsVar bool
}

type Memset struct {
	Value uint32
	Dst   apicalls.AllocID
}

type BlasGemm struct {
	OpA, OpB    bool
	Alpha, Beta float64
	A, B, C     ArgRef
}

type Trace struct {
	Label  string
	Result apicalls.AllocID
}

func (LaunchKernel) primitiveOpKind() string { return "LaunchKernel" }
func (CallCFunc) primitiveOpKind() string    { return "CallCFunc" }
func (MemcpyDtoD) primitiveOpKind() string   { return "MemcpyDtoD" }
func (MemcpyHtoD) primitiveOpKind() string   { return "MemcpyHtoD" }
func (MemcpyDtoH) primitiveOpKind() string   { return "MemcpyDtoH" }
func (Memset) primitiveOpKind() string       { return "Memset" }
func (BlasGemm) primitiveOpKind() string     { return "BlasGemm" }
func (Trace) primitiveOpKind() string        { return "Trace" }

// Unit is one execution unit: a small ordered run of primitive ops that
// execute together, with explicit data dependencies on other units.
type Unit struct {
	ID         UnitID
	Ops        []PrimitiveOp
	DependsOn  []UnitID
	RerunAfter []UnitID
}

// Plan is the planner's full output.
type Plan struct {
	Units         []Unit
	ResultManikin map[*unified.UExpr]manikin.Manikin
	Allocations   []manikin.Allocation
	Warmup        []UnitID
}

// node tracks per-expression planning state during the DAG walk.
type node struct {
	unit     UnitID // -1 if the node produced no unit (pure view/leaf reuse)
	hasUnit  bool
	manikin  manikin.Manikin
	refcount int
}

type builder struct {
	env       types.CompileEnv
	units     []Unit
	allocs    []manikin.Allocation
	warmup    []UnitID
	nextAlloc apicalls.AllocID
	nodes     map[*unified.UExpr]*node
	result    map[*unified.UExpr]manikin.Manikin
}

// Plan builds the execution-unit DAG for root. env supplies variable
// placement for Var/StoreToVar nodes.
func Plan(root *unified.UExpr, env types.CompileEnv) (*Plan, error) {
	b := &builder{
		env:    env,
		nodes:  map[*unified.UExpr]*node{},
		result: map[*unified.UExpr]manikin.Manikin{},
	}
	countRefs(root, map[*unified.UExpr]bool{}, b.refcounts())
	if _, err := b.visit(root); err != nil {
		return nil, err
	}
	return &Plan{
		Units:         b.units,
		ResultManikin: b.result,
		Allocations:   b.allocs,
		Warmup:        b.warmup,
	}, nil
}

// refcounts returns the per-node state map; countRefs creates each node's
// entry the first time it reaches it, before any node is planned.
func (b *builder) refcounts() map[*unified.UExpr]*node {
	return b.nodes
}

// countRefs does a single pre-pass recording how many distinct parents
// reference each shared subtree, the information in-place eligibility
// needs ("used nowhere else downstream").
func countRefs(u *unified.UExpr, seen map[*unified.UExpr]bool, nodes map[*unified.UExpr]*node) {
	n, ok := nodes[u]
	if !ok {
		n = &node{unit: -1}
		nodes[u] = n
	}
	n.refcount++
	if seen[u] {
		return
	}
	seen[u] = true
	for _, operand := range u.Operands {
		countRefs(operand, seen, nodes)
	}
	for _, r := range u.Attrs.Ranges {
		if r.Dyn != nil {
			countRefs(r.Dyn, seen, nodes)
		}
	}
}

func (b *builder) alloc(byteSize uint64, dtype types.TypeName) apicalls.AllocID {
	id := b.nextAlloc
	b.nextAlloc++
	b.allocs = append(b.allocs, manikin.Allocation{ID: id, ByteSize: byteSize, DType: dtype})
	return id
}

func (b *builder) addUnit(ops []PrimitiveOp, deps []UnitID) UnitID {
	id := UnitID(len(b.units))
	b.units = append(b.units, Unit{ID: id, Ops: ops, DependsOn: deps})
	return id
}

// visit plans u and every operand reachable from it, post-order, and
// returns u's own node state (memoized across shared subtrees).
func (b *builder) visit(u *unified.UExpr) (*node, error) {
	n := b.nodes[u]
	if n.manikin.DType != types.InvalidType || n.hasUnit {
		return n, nil
	}

	operandNodes := make([]*node, len(u.Operands))
	var deps []UnitID
	for i, operand := range u.Operands {
		on, err := b.visit(operand)
		if err != nil {
			return nil, err
		}
		operandNodes[i] = on
		if on.hasUnit {
			deps = append(deps, on.unit)
		}
	}
	for _, r := range u.Attrs.Ranges {
		if r.Dyn != nil {
			dn, err := b.visit(r.Dyn)
			if err != nil {
				return nil, err
			}
			if dn.hasUnit {
				deps = append(deps, dn.unit)
			}
		}
	}

	if err := b.planNode(u, n, operandNodes, deps); err != nil {
		return nil, err
	}
	b.result[u] = n.manikin
	return n, nil
}

// inPlaceEligible reports whether op can overwrite one of its operands'
// storage directly, per spec.md §4.4 step 1: elementwise ops always can;
// reductions and BLAS never can; views never allocate in the first place.
func inPlaceEligible(op optypes.OpType) bool {
	return optypes.IsElementwiseTranscendental(op) || optypes.IsStandardBinary(op)
}

func isView(op optypes.OpType) bool {
	switch op {
	case optypes.Reshape, optypes.DoBroadcast, optypes.SwapDim, optypes.Subtensor:
		return true
	default:
		return false
	}
}

func (b *builder) planNode(u *unified.UExpr, n *node, operands []*node, deps []UnitID) error {
	byteSize := byteSizeOf(u.Shape, u.DType)

	switch {
	case isView(u.Op):
		base := operands[0].manikin
		n.manikin = manikin.Manikin{
			Shape:   append([]uint64(nil), u.Shape...),
			Strides: manikin.RowMajorStrides(u.Shape),
			Offset:  base.Offset,
			DType:   u.DType,
			Storage: base.Storage,
		}
		return nil

	case u.Op == optypes.Identity, u.Op == optypes.Zeros, u.Op == optypes.ScalarConst, u.Op == optypes.SizeValue:
		alloc := b.alloc(byteSize, u.DType)
		n.manikin = manikin.Fresh(u.Shape, u.DType, alloc)
		n.unit = b.addUnit([]PrimitiveOp{leafFillOp(u, alloc)}, deps)
		n.hasUnit = true
		return nil

	case u.Op == optypes.Var:
		return b.planVar(u, n, deps)

	case u.Op == optypes.StoreToVar:
		return b.planStoreToVar(u, n, operands, deps)

	case u.Op == optypes.Discard:
		// Primary is operands[0]; side effects are every other operand, kept
		// only for ordering (DependsOn already carries their units).
		n.manikin = operands[0].manikin
		n.unit = operands[0].unit
		n.hasUnit = operands[0].hasUnit
		if len(deps) > 0 {
			n.unit = b.addUnit(nil, deps)
			n.hasUnit = true
		}
		return nil

	case u.Op == optypes.SetSubtensor:
		return b.planSetSubtensor(u, n, operands, deps)

	case u.Op == optypes.Sum, u.Op == optypes.SumAxis:
		alloc := b.alloc(byteSize, u.DType)
		n.manikin = manikin.Fresh(u.Shape, u.DType, alloc)
		args := append(operandArgs(operands), allocArg(alloc))
		n.unit = b.addUnit([]PrimitiveOp{CallCFunc{TemplateInst: u.Op.TemplateName(), DelegateType: "host-reduce", Args: args}}, deps)
		n.hasUnit = true
		return nil

	case u.Op == optypes.Dot:
		return b.planDot(u, n, operands, deps)

	case u.Op == optypes.TensorProduct:
		alloc := b.alloc(byteSize, u.DType)
		n.manikin = manikin.Fresh(u.Shape, u.DType, alloc)
		args := append(operandArgs(operands), allocArg(alloc))
		n.unit = b.addUnit([]PrimitiveOp{LaunchKernel{TemplateInst: u.Op.TemplateName(), WorkDim: workDim(u.Shape), Args: args}}, deps)
		n.hasUnit = true
		return nil

	case u.Op == optypes.ExtensionOp:
		alloc := b.alloc(byteSize, u.DType)
		n.manikin = manikin.Fresh(u.Shape, u.DType, alloc)
		args := append(operandArgs(operands), allocArg(alloc))
		n.unit = b.addUnit([]PrimitiveOp{CallCFunc{TemplateInst: u.Attrs.ExtName, DelegateType: "extension", Args: args}}, deps)
		n.hasUnit = true
		return nil

	case u.Op == optypes.Annotated:
		// Annotations are a pass-through sentinel: no storage, no op of its
		// own, just whatever the operand already produced.
		n.manikin = operands[0].manikin
		n.unit = operands[0].unit
		n.hasUnit = operands[0].hasUnit
		return nil

	case optypes.IsElementwiseTranscendental(u.Op) || optypes.IsStandardBinary(u.Op):
		return b.planElementwise(u, n, operands, deps, byteSize)

	default:
		return compileerr.NewUnsupportedOp(u.Op.String(), -1, len(operands))
	}
}

func byteSizeOf(shape []uint64, dtype types.TypeName) uint64 {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	return n * dtype.ByteSize()
}

func workDim(shape []uint64) [3]uint64 {
	var wd [3]uint64
	wd[0] = 1
	for _, d := range shape {
		wd[0] *= d
	}
	wd[1], wd[2] = 1, 1
	return wd
}

func operandArgs(operands []*node) []ArgRef {
	out := make([]ArgRef, len(operands))
	for i, n := range operands {
		if n.manikin.Storage.Kind == manikin.ExternalVar {
			out[i] = varArg(n.manikin.Storage.Var)
		} else {
			out[i] = allocArg(n.manikin.Storage.Alloc)
		}
	}
	return out
}

func leafFillOp(u *unified.UExpr, alloc apicalls.AllocID) PrimitiveOp {
	switch u.Op {
	case optypes.Identity:
		return LaunchKernel{TemplateInst: "tscc::ops::identity", WorkDim: workDim(u.Shape), Args: []ArgRef{allocArg(alloc)}}
	case optypes.Zeros:
		return Memset{Value: 0, Dst: alloc}
	case optypes.ScalarConst:
		return LaunchKernel{TemplateInst: "tscc::ops::fill_scalar", WorkDim: workDim(u.Shape), Args: []ArgRef{allocArg(alloc)}}
	case optypes.SizeValue:
		return LaunchKernel{TemplateInst: "tscc::ops::materialize_size", WorkDim: workDim(u.Shape), Args: []ArgRef{allocArg(alloc)}}
	default:
		panic(fmt.Sprintf("leafFillOp: unexpected op %s", u.Op))
	}
}

func (b *builder) planVar(u *unified.UExpr, n *node, deps []UnitID) error {
	placement, ok := b.env.Lookup(u.Attrs.VarSpec)
	if !ok {
		return errors.WithStack(compileerr.NewPlacementMissing(u.Attrs.VarSpec.Name))
	}
	if placement == types.Device {
		n.manikin = manikin.Manikin{
			Shape:   append([]uint64(nil), u.Shape...),
			Strides: manikin.RowMajorStrides(u.Shape),
			DType:   u.DType,
			Storage: manikin.External(u.Attrs.VarSpec),
		}
		return nil
	}
	// Host-resident variable: warm the device with a one-shot copy into a
	// shadow allocation every downstream op reads from.
	byteSize := byteSizeOf(u.Shape, u.DType)
	alloc := b.alloc(byteSize, u.DType)
	n.manikin = manikin.Fresh(u.Shape, u.DType, alloc)
	unit := b.addUnit([]PrimitiveOp{MemcpyHtoD{Dst: alloc, HostVar: u.Attrs.VarSpec}}, deps)
	n.unit = unit
	n.hasUnit = true
	b.warmup = append(b.warmup, unit)
	return nil
}

func (b *builder) planStoreToVar(u *unified.UExpr, n *node, operands []*node, deps []UnitID) error {
	vs := u.Attrs.VarSpec
	placement, ok := b.env.Lookup(vs)
	if !ok {
		return errors.WithStack(compileerr.NewPlacementMissing(vs.Name))
	}
	src := operands[0].manikin
	srcAlloc, isInternal := src.Storage.Alloc, src.Storage.Kind == manikin.InternalAlloc
	var op PrimitiveOp
	if placement == types.Device {
		if !isInternal {
			// Device var written from another device var: nothing to move.
			n.manikin = src
			n.unit = operands[0].unit
			n.hasUnit = operands[0].hasUnit
			return nil
		}
		op = MemcpyDtoD{Src: srcAlloc, DstVar: vs, DstIsVar: true}
	} else if !isInternal {
		// Host target written from a device-placed Var: no internal AllocID
		// to read from, so name the source variable directly.
		op = MemcpyDtoH{HostVar: vs, SrcVar: src.Storage.Var, SrcIsVar: true}
	} else {
		op = MemcpyDtoH{HostVar: vs, Src: srcAlloc}
	}
	// StoreToVar's own shape is the empty vector: a side-effect sentinel
	// with no storage of its own.
	n.manikin = manikin.Manikin{DType: u.DType, Storage: manikin.External(vs)}
	n.unit = b.addUnit([]PrimitiveOp{op}, deps)
	n.hasUnit = true
	return nil
}

func (b *builder) planSetSubtensor(u *unified.UExpr, n *node, operands []*node, deps []UnitID) error {
	target := operands[0].manikin
	targetNode := b.refcounts()[u.Operands[0]]
	byteSize := byteSizeOf(target.Shape, target.DType)

	var resultAlloc apicalls.AllocID
	var ops []PrimitiveOp
	if targetNode.refcount == 1 && target.Storage.Kind == manikin.InternalAlloc && u.Operands[0].Op != optypes.Var {
		// Sole owner: write the range in place.
		resultAlloc = target.Storage.Alloc
	} else {
		// Shared base: copy-on-write before scattering the new range in.
		resultAlloc = b.alloc(byteSize, target.DType)
		ops = append(ops, MemcpyDtoD{Src: target.Storage.Alloc, Dst: resultAlloc})
	}
	valueArg := allocArg(0)
	if len(operands) > 1 {
		if operands[1].manikin.Storage.Kind == manikin.ExternalVar {
			valueArg = varArg(operands[1].manikin.Storage.Var)
		} else {
			valueArg = allocArg(operands[1].manikin.Storage.Alloc)
		}
	}
	ops = append(ops, LaunchKernel{
		TemplateInst: u.Op.TemplateName(),
		WorkDim:      workDim(u.Shape),
		Args:         []ArgRef{allocArg(resultAlloc), valueArg},
	})
	n.manikin = manikin.Manikin{
		Shape:   append([]uint64(nil), u.Shape...),
		Strides: manikin.RowMajorStrides(u.Shape),
		DType:   u.DType,
		Storage: manikin.Internal(resultAlloc),
	}
	n.unit = b.addUnit(ops, deps)
	n.hasUnit = true
	return nil
}

func (b *builder) planDot(u *unified.UExpr, n *node, operands []*node, deps []UnitID) error {
	byteSize := byteSizeOf(u.Shape, u.DType)
	alloc := b.alloc(byteSize, u.DType)
	n.manikin = manikin.Fresh(u.Shape, u.DType, alloc)
	args := operandArgs(operands)
	if operands[0].manikin.Rank() != 2 || operands[1].manikin.Rank() != 2 {
		n.unit = b.addUnit([]PrimitiveOp{CallCFunc{TemplateInst: u.Op.TemplateName(), DelegateType: "vector-dot", Args: append(args, allocArg(alloc))}}, deps)
		n.hasUnit = true
		return nil
	}
	opA := isTransposedStride(operands[0].manikin)
	opB := isTransposedStride(operands[1].manikin)
	n.unit = b.addUnit([]PrimitiveOp{BlasGemm{
		OpA: opA, OpB: opB, Alpha: 1, Beta: 0,
		A: args[0], B: args[1], C: allocArg(alloc),
	}}, deps)
	n.hasUnit = true
	return nil
}

// isTransposedStride reports whether m's trailing two strides are swapped
// relative to row-major, the signal BlasGemm derives its transpose flags
// from per spec.md §4.4 step 3.
func isTransposedStride(m manikin.Manikin) bool {
	if len(m.Strides) < 2 {
		return false
	}
	i := len(m.Strides) - 2
	return m.Strides[i] < m.Strides[i+1]
}

func (b *builder) planElementwise(u *unified.UExpr, n *node, operands []*node, deps []UnitID, byteSize uint64) error {
	for i, on := range operands {
		if inPlaceEligible(u.Op) && on.manikin.Storage.Kind == manikin.InternalAlloc && u.Operands[i].Op != optypes.Var && b.refcounts()[u.Operands[i]].refcount == 1 {
			n.manikin = on.manikin
			args := operandArgs(operands)
			n.unit = b.addUnit([]PrimitiveOp{LaunchKernel{TemplateInst: u.Op.TemplateName(), WorkDim: workDim(u.Shape), Args: args}}, deps)
			n.hasUnit = true
			return nil
		}
	}
	alloc := b.alloc(byteSize, u.DType)
	n.manikin = manikin.Fresh(u.Shape, u.DType, alloc)
	args := append(operandArgs(operands), allocArg(alloc))
	n.unit = b.addUnit([]PrimitiveOp{LaunchKernel{TemplateInst: u.Op.TemplateName(), WorkDim: workDim(u.Shape), Args: args}}, deps)
	n.hasUnit = true
	return nil
}
