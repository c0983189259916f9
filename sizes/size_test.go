package sizes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeExprArithmetic(t *testing.T) {
	n := Sym("N")
	m := Sym("M")
	one := Fix(1)

	sum := Add(n, m)
	env := SymEnv{"N": 3, "M": 4}
	v, err := sum.Eval(env)
	require.NoError(t, err)
	assert.EqualValues(t, 7, v)

	prod := Mul(n, m)
	v, err = prod.Eval(env)
	require.NoError(t, err)
	assert.EqualValues(t, 12, v)

	nPlusOne := Add(n, one)
	v, err = nPlusOne.Eval(env)
	require.NoError(t, err)
	assert.EqualValues(t, 4, v)
}

func TestSizeExprCanEval(t *testing.T) {
	n := Sym("N")
	assert.False(t, n.CanEval(nil))
	assert.True(t, n.CanEval(SymEnv{"N": 5}))

	_, err := n.Eval(nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "N"))
}

func TestSizeExprEqualUnder(t *testing.T) {
	n := Sym("N")
	m := Sym("M")
	env := SymEnv{"N": 3, "M": 3}
	assert.True(t, n.EqualUnder(env, m))
	assert.False(t, n.EqualUnder(SymEnv{"N": 3, "M": 4}, m))
}

func TestBroadcastSize(t *testing.T) {
	b := BroadcastSize()
	assert.True(t, b.Broadcast)
	v, err := b.Eval(nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	assert.Equal(t, "Broadcast", b.String())
}

func TestSizeExprSubstPartial(t *testing.T) {
	e := Add(Mul(Sym("N"), Sym("M")), Fix(2))
	substituted := e.Subst(SymEnv{"N": 3})
	assert.ElementsMatch(t, []string{"M"}, substituted.FreeSymbols())
	v, err := substituted.Eval(SymEnv{"M": 5})
	require.NoError(t, err)
	assert.EqualValues(t, 3*5+2, v)
}
