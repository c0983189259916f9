package sizes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeBasics(t *testing.T) {
	s := Shape{Sym("N"), Sym("M")}
	assert.Equal(t, 2, s.Rank())

	swapped, err := s.SwapDim(0, 1)
	require.NoError(t, err)
	assert.True(t, swapped[0].EqualUnder(nil, Sym("M")))
	assert.True(t, swapped[1].EqualUnder(nil, Sym("N")))

	_, err = s.SwapDim(0, 5)
	assert.Error(t, err)
}

func TestShapePadding(t *testing.T) {
	s := Shape{Sym("N")}
	padded := s.PadLeft(2)
	require.Equal(t, 3, padded.Rank())
	assert.True(t, padded[0].Broadcast)
	assert.True(t, padded[1].Broadcast)
	assert.False(t, padded[2].Broadcast)

	paddedRight := s.PadRight(1)
	require.Equal(t, 2, paddedRight.Rank())
	assert.True(t, paddedRight[1].Broadcast)
}

func TestInsertBroadcastAxis(t *testing.T) {
	s := Shape{Sym("N"), Sym("M")}
	withNew, err := s.InsertBroadcastAxis(1)
	require.NoError(t, err)
	require.Equal(t, 3, withNew.Rank())
	assert.True(t, withNew[1].Broadcast)
	env := SymEnv{"N": 3, "M": 4}
	vals, err := withNew.Eval(env)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1, 4}, vals)
}

func TestBroadcastToSameShape(t *testing.T) {
	a := Shape{Sym("N"), Sym("M")}
	b := Shape{Sym("M")}
	out, err := BroadcastToSameShape(a, b, false)
	require.NoError(t, err)
	require.Equal(t, 2, out.Rank())
	env := SymEnv{"N": 3, "M": 4}
	vals, err := out.Eval(env)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 4}, vals)
}

func TestBroadcastToSameShapeNoExtendRequiresEqualRank(t *testing.T) {
	a := Shape{Sym("N"), Sym("M")}
	b := Shape{Sym("M")}
	_, err := BroadcastToSameShapeNoExtend(a, b, false)
	assert.Error(t, err)
}

func TestBroadcastStrictRejectsImplicitOne(t *testing.T) {
	a := Shape{Fix(1)}
	b := Shape{Fix(5)}
	_, err := BroadcastToSameShapeNoExtend(a, b, false)
	assert.NoError(t, err, "non-strict mode should allow implicit broadcast of a literal 1")

	_, err = BroadcastToSameShapeNoExtend(a, b, true)
	assert.Error(t, err, "strict mode should refuse an untagged literal-1 axis")
}

func TestBroadcastExplicitTagAlwaysWorks(t *testing.T) {
	a := Shape{BroadcastSize()}
	b := Shape{Fix(5)}
	out, err := BroadcastToSameShapeNoExtend(a, b, true)
	require.NoError(t, err)
	vals, err := out.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, vals)
}

func TestNumElements(t *testing.T) {
	s := Shape{Sym("N"), Sym("M"), Fix(1)}
	env := SymEnv{"N": 3, "M": 4}
	v, err := s.NumElements().Eval(env)
	require.NoError(t, err)
	assert.EqualValues(t, 12, v)
}

func TestLoadSymEnvYAML(t *testing.T) {
	env, err := LoadSymEnv(strings.NewReader("N: 3\nM: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, SymEnv{"N": 3, "M": 4}, env)
}
