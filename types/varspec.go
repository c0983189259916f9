package types

import (
	"fmt"

	"github.com/tscc-project/tscc/sizes"
)

// VarSpec identifies a variable referenced by an expression graph. Its
// identity is the (Name, Shape, DType) triple, so two VarSpecs with equal
// Name, Shape and DType refer to the same underlying variable. Shape is a
// sizes.Shape, which is a slice, so VarSpec is not itself comparable with
// == when used as a plain value -- Key() gives a comparable, map-safe form.
type VarSpec struct {
	Name  string
	Shape sizes.Shape
	DType TypeName
}

// Key returns a comparable identity for use as a map key (e.g. in
// CompileEnv.Placement), since sizes.Shape is a slice.
func (vs VarSpec) Key() VarKey {
	return VarKey{Name: vs.Name, Shape: vs.Shape.String(), DType: vs.DType}
}

// VarKey is the comparable projection of a VarSpec's identity.
type VarKey struct {
	Name  string
	Shape string
	DType TypeName
}

func (vs VarSpec) String() string {
	return fmt.Sprintf("%s%s:%s", vs.Name, vs.Shape, vs.DType)
}

// Placement says where a variable's storage lives.
type Placement int

const (
	Host Placement = iota
	Device
)

func (p Placement) String() string {
	if p == Device {
		return "Device"
	}
	return "Host"
}

// CompileEnv carries the variable placement map the planner needs to
// decide which primitive ops (memcpy directions, warmup transfers) a
// StoreToVar/Var node requires.
type CompileEnv struct {
	Placement map[VarKey]Placement
}

// NewCompileEnv returns an empty CompileEnv.
func NewCompileEnv() CompileEnv {
	return CompileEnv{Placement: make(map[VarKey]Placement)}
}

// With registers vs's placement and returns the receiver, for chaining.
func (e CompileEnv) With(vs VarSpec, p Placement) CompileEnv {
	e.Placement[vs.Key()] = p
	return e
}

// Lookup returns vs's placement, or an error wrapped by the caller if
// absent -- callers should use compileerr.PlacementMissing for that.
func (e CompileEnv) Lookup(vs VarSpec) (Placement, bool) {
	p, ok := e.Placement[vs.Key()]
	return p, ok
}
