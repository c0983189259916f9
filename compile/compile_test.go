package compile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tscc-project/tscc/expr"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
)

func TestCompileEndToEndChain(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)
	abs, err := expr.Abs(neg)
	require.NoError(t, err)

	recipe, err := Compile(abs, types.NewCompileEnv(), sizes.SymEnv{})
	require.NoError(t, err)

	assert.NotEmpty(t, recipe.InitCalls)
	assert.NotEmpty(t, recipe.DisposeCalls)
	assert.NotEmpty(t, recipe.ExecCalls)
}

func TestCompileWithDeviceVarNeedsNoWarmup(t *testing.T) {
	vs := types.VarSpec{Name: "w", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(vs)
	neg, err := expr.Negate(v)
	require.NoError(t, err)

	env := types.NewCompileEnv().With(vs, types.Device)
	recipe, err := Compile(neg, env, sizes.SymEnv{})
	require.NoError(t, err)

	assert.NotEmpty(t, recipe.ExecCalls)
	for _, c := range recipe.InitCalls {
		assert.NotEqual(t, "MemcpyHtoDAsync", c.Verb())
	}
}

func TestCompileMissingPlacementErrors(t *testing.T) {
	vs := types.VarSpec{Name: "w", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(vs)

	_, err := Compile(v, types.NewCompileEnv(), sizes.SymEnv{})
	assert.Error(t, err)
}

func TestLoadCompileEnvParsesPlacementList(t *testing.T) {
	doc := `
- name: weights
  shape: ["128", "N"]
  dtype: float32
  placement: device
- name: bias
  shape: ["128"]
  dtype: float32
  placement: host
`
	env, err := LoadCompileEnv(strings.NewReader(doc))
	require.NoError(t, err)

	weights := types.VarSpec{Name: "weights", Shape: sizes.Shape{sizes.Fix(128), sizes.Sym("N")}, DType: types.Float32}
	p, ok := env.Lookup(weights)
	require.True(t, ok)
	assert.Equal(t, types.Device, p)
}

func TestSessionTagsIndependentBuilds(t *testing.T) {
	s1 := NewSession()
	s2 := NewSession()
	assert.NotEqual(t, s1.ID, s2.ID)
}
