package unified

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tscc-project/tscc/expr"
	"github.com/tscc-project/tscc/internal/optypes"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
)

func TestTranslateResolvesShapesAndSharing(t *testing.T) {
	n := sizes.Sym("N")
	x := expr.Zeros(sizes.Shape{n, sizes.Fix(3)}, types.Float32)
	sum, err := expr.Sum(x)
	require.NoError(t, err)
	added, err := expr.Add(x, x)
	require.NoError(t, err)

	env := sizes.SymEnv{"N": 5}
	u, err := Translate(sum, env)
	require.NoError(t, err)
	assert.Equal(t, []uint64{}, u.Shape)
	assert.Equal(t, optypes.Sum, u.Op)
	assert.Equal(t, []uint64{5, 3}, u.Operands[0].Shape)

	uAdd, err := Translate(added, env)
	require.NoError(t, err)
	assert.True(t, uAdd.Operands[0] == uAdd.Operands[1], "shared expr subtree must translate to a shared UExpr")
}

func TestTranslateFailsOnUnresolvedSymbol(t *testing.T) {
	n := sizes.Sym("N")
	x := expr.Zeros(sizes.Shape{n}, types.Float32)
	_, err := Translate(x, sizes.SymEnv{})
	assert.Error(t, err)
}

func TestTranslateVarSpecPreservesSymbolicIdentity(t *testing.T) {
	n := sizes.Sym("N")
	vs := types.VarSpec{Name: "w", Shape: sizes.Shape{n}, DType: types.Float32}
	v := expr.Var(vs)
	u, err := Translate(v, sizes.SymEnv{"N": 7})
	require.NoError(t, err)
	assert.Equal(t, "w", u.Attrs.VarSpec.Name)
	assert.Equal(t, "[N]", u.Attrs.VarSpec.Shape.String())
	assert.Equal(t, []uint64{7}, u.Shape)
}
