package sizes

import (
	"strings"

	"github.com/pkg/errors"
)

// Shape is an ordered sequence of size expressions; its length is the rank.
type Shape []SizeExpr

// Rank returns the number of axes.
func (s Shape) Rank() int {
	return len(s)
}

// Clone returns a deep-enough copy (SizeExpr is immutable, so a slice copy
// suffices to let callers mutate the returned Shape independently).
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// SwapDim returns a new Shape with axes i and j swapped.
func (s Shape) SwapDim(i, j int) (Shape, error) {
	if i < 0 || i >= s.Rank() || j < 0 || j >= s.Rank() {
		return nil, errors.Errorf("SwapDim(%d, %d) out of range for rank %d", i, j, s.Rank())
	}
	out := s.Clone()
	out[i], out[j] = out[j], out[i]
	return out, nil
}

// PadLeft prepends n broadcast-tagged size-1 axes.
func (s Shape) PadLeft(n int) Shape {
	if n <= 0 {
		return s.Clone()
	}
	out := make(Shape, 0, n+len(s))
	for i := 0; i < n; i++ {
		out = append(out, BroadcastSize())
	}
	return append(out, s...)
}

// PadRight appends n broadcast-tagged size-1 axes.
func (s Shape) PadRight(n int) Shape {
	if n <= 0 {
		return s.Clone()
	}
	out := s.Clone()
	for i := 0; i < n; i++ {
		out = append(out, BroadcastSize())
	}
	return out
}

// WithBroadcastAxis returns a copy of s with axis i's Broadcast tag set to
// enabled. The underlying size expression (normally Fix(1)) is unchanged.
func (s Shape) WithBroadcastAxis(i int, enabled bool) (Shape, error) {
	if i < 0 || i >= s.Rank() {
		return nil, errors.Errorf("WithBroadcastAxis(%d) out of range for rank %d", i, s.Rank())
	}
	out := s.Clone()
	out[i].Broadcast = enabled
	return out, nil
}

// InsertBroadcastAxis inserts a new broadcast-tagged size-1 axis at
// position i (0 <= i <= Rank()).
func (s Shape) InsertBroadcastAxis(i int) (Shape, error) {
	if i < 0 || i > s.Rank() {
		return nil, errors.Errorf("InsertBroadcastAxis(%d) out of range for rank %d", i, s.Rank())
	}
	out := make(Shape, 0, s.Rank()+1)
	out = append(out, s[:i]...)
	out = append(out, BroadcastSize())
	out = append(out, s[i:]...)
	return out, nil
}

// alignAxis applies the per-axis broadcast rule from the shape algebra
// design (spec.md 4.1): if either side is Broadcast-tagged, the other side
// wins; otherwise the axes must be equal. In non-strict mode, a literal
// size-1 axis that isn't explicitly Broadcast-tagged is still allowed to
// broadcast (numpy-style implicit broadcasting); strict mode refuses that
// and requires either an explicit tag or structural equality.
func alignAxis(a, b SizeExpr, strict bool) (SizeExpr, error) {
	if a.Broadcast {
		out := b
		out.Broadcast = false
		return out, nil
	}
	if b.Broadcast {
		out := a
		out.Broadcast = false
		return out, nil
	}
	if !strict {
		if a.isLiteralOne() {
			return b, nil
		}
		if b.isLiteralOne() {
			return a, nil
		}
	}
	if a.EqualUnder(nil, b) {
		return a, nil
	}
	return SizeExpr{}, errors.Errorf("axes %s and %s cannot be broadcast (strict=%v)", a, b, strict)
}

// BroadcastToSameShape aligns a and b to a common shape, first padding the
// shorter one with leading broadcast axes when ranks differ ("permitting
// non-broadcast extension"), then applying alignAxis per axis.
func BroadcastToSameShape(a, b Shape, strict bool) (Shape, error) {
	if a.Rank() < b.Rank() {
		a = a.PadLeft(b.Rank() - a.Rank())
	} else if b.Rank() < a.Rank() {
		b = b.PadLeft(a.Rank() - b.Rank())
	}
	return broadcastEqualRank(a, b, strict)
}

// BroadcastToSameShapeNoExtend aligns a and b to a common shape without
// permitting rank extension: both must already have the same rank.
func BroadcastToSameShapeNoExtend(a, b Shape, strict bool) (Shape, error) {
	if a.Rank() != b.Rank() {
		return nil, errors.Errorf("ranks must match to broadcast without extension, got %d and %d", a.Rank(), b.Rank())
	}
	return broadcastEqualRank(a, b, strict)
}

func broadcastEqualRank(a, b Shape, strict bool) (Shape, error) {
	out := make(Shape, a.Rank())
	for i := range a {
		dim, err := alignAxis(a[i], b[i], strict)
		if err != nil {
			return nil, errors.Wrapf(err, "axis #%d", i)
		}
		out[i] = dim
	}
	return out, nil
}

// NumElements returns the element count as a size expression: the product
// of all axes (a Broadcast-tagged axis contributes a factor of 1, same as
// its literal value).
func (s Shape) NumElements() SizeExpr {
	total := Fix(1)
	for _, dim := range s {
		total = Mul(total, dim)
	}
	return total
}

// CanEval reports whether every axis can be evaluated under env.
func (s Shape) CanEval(env SymEnv) bool {
	for _, dim := range s {
		if !dim.CanEval(env) {
			return false
		}
	}
	return true
}

// Eval evaluates every axis to a concrete dimension.
func (s Shape) Eval(env SymEnv) ([]uint64, error) {
	out := make([]uint64, len(s))
	for i, dim := range s {
		v, err := dim.Eval(env)
		if err != nil {
			return nil, errors.Wrapf(err, "axis #%d", i)
		}
		out[i] = v
	}
	return out, nil
}

// Subst rewrites every axis, substituting bound symbols from env.
func (s Shape) Subst(env SymEnv) Shape {
	out := make(Shape, len(s))
	for i, dim := range s {
		out[i] = dim.Subst(env)
	}
	return out
}

// EqualUnder reports whether s and other denote the same shape under env.
func (s Shape) EqualUnder(env SymEnv, other Shape) bool {
	if s.Rank() != other.Rank() {
		return false
	}
	for i := range s {
		if !s[i].EqualUnder(env, other[i]) {
			return false
		}
	}
	return true
}

// String renders the shape as "[d0, d1, ...]".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = dim.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
