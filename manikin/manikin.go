// Package manikin implements the storage manikin and memory allocation
// types the planner uses as its currency: a manikin is a logical tensor
// (shape, strides, offset, dtype, storage binding) that carries no actual
// bytes (spec.md §3 "Storage manikin").
package manikin

import (
	"fmt"

	"github.com/tscc-project/tscc/apicalls"
	"github.com/tscc-project/tscc/types"
)

// BindingKind tags which of the two storage binding forms a Manikin has.
type BindingKind int

const (
	// InternalAlloc: storage is one of the recipe's own memory allocations.
	InternalAlloc BindingKind = iota
	// ExternalVar: storage is a caller-owned variable, referenced by spec.
	ExternalVar
)

// StorageBinding says where a manikin's bytes actually live.
type StorageBinding struct {
	Kind  BindingKind
	Alloc apicalls.AllocID // InternalAlloc
	Var   types.VarSpec    // ExternalVar
}

func Internal(id apicalls.AllocID) StorageBinding {
	return StorageBinding{Kind: InternalAlloc, Alloc: id}
}

func External(vs types.VarSpec) StorageBinding {
	return StorageBinding{Kind: ExternalVar, Var: vs}
}

func (b StorageBinding) String() string {
	if b.Kind == ExternalVar {
		return "var:" + b.Var.String()
	}
	return fmt.Sprintf("alloc:%d", b.Alloc)
}

// Manikin is a logical view over some storage: shape/strides/offset are in
// elements (row-major strides unless a view like SwapDim/Subtensor
// introduces a permutation or sub-range).
type Manikin struct {
	Shape   []uint64
	Strides []int64
	Offset  int64
	DType   types.TypeName
	Storage StorageBinding
}

// RowMajorStrides returns the canonical row-major strides for shape (in
// elements), the layout every freshly allocated manikin starts with.
func RowMajorStrides(shape []uint64) []int64 {
	strides := make([]int64, len(shape))
	acc := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= int64(shape[i])
	}
	return strides
}

// Fresh returns a row-major manikin over a brand-new internal allocation.
func Fresh(shape []uint64, dtype types.TypeName, alloc apicalls.AllocID) Manikin {
	return Manikin{
		Shape:   shape,
		Strides: RowMajorStrides(shape),
		DType:   dtype,
		Storage: Internal(alloc),
	}
}

// Rank returns the number of axes.
func (m Manikin) Rank() int { return len(m.Shape) }

// NumElements returns the product of Shape.
func (m Manikin) NumElements() uint64 {
	n := uint64(1)
	for _, d := range m.Shape {
		n *= d
	}
	return n
}

// ByteSize returns the allocation size this manikin's storage needs.
func (m Manikin) ByteSize() uint64 {
	return m.NumElements() * m.DType.ByteSize()
}

// WithShape returns a copy of m with a new shape/strides/offset, used by
// view-only ops (Reshape, DoBroadcast, SwapDim, Subtensor) that change how
// the same storage is addressed without moving any bytes.
func (m Manikin) WithShape(shape []uint64, strides []int64, offset int64) Manikin {
	return Manikin{Shape: shape, Strides: strides, Offset: offset, DType: m.DType, Storage: m.Storage}
}

// Allocation is one of the recipe's memory allocations.
type Allocation struct {
	ID       apicalls.AllocID
	ByteSize uint64
	DType    types.TypeName
}
