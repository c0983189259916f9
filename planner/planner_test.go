package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tscc-project/tscc/expr"
	"github.com/tscc-project/tscc/manikin"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
	"github.com/tscc-project/tscc/unified"
)

func mustTranslate(t *testing.T, e *expr.Expr, env sizes.SymEnv) *unified.UExpr {
	t.Helper()
	u, err := unified.Translate(e, env)
	require.NoError(t, err)
	return u
}

func TestPlanElementwiseLaunchesKernelAfterLeafFill(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)

	u := mustTranslate(t, neg, sizes.SymEnv{})
	plan, err := Plan(u, types.NewCompileEnv())
	require.NoError(t, err)

	// One unit for Zeros' Memset, one for Negate's LaunchKernel.
	require.Len(t, plan.Units, 2)
	assert.IsType(t, Memset{}, plan.Units[0].Ops[0])
	assert.IsType(t, LaunchKernel{}, plan.Units[1].Ops[0])
	assert.Equal(t, []UnitID{0}, plan.Units[1].DependsOn)
}

func TestPlanReusesInPlaceStorageForSoleOwner(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)
	abs, err := expr.Abs(neg)
	require.NoError(t, err)

	u := mustTranslate(t, abs, sizes.SymEnv{})
	plan, err := Plan(u, types.NewCompileEnv())
	require.NoError(t, err)

	negManikin := plan.ResultManikin[u.Operands[0]]
	absManikin := plan.ResultManikin[u]
	assert.Equal(t, negManikin.Storage, absManikin.Storage, "Abs should overwrite Negate's sole-owned storage in place")
}

func TestPlanViewsProduceNoPrimitiveOp(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(2), sizes.Fix(3)}, types.Float32)
	swapped, err := expr.SwapDim(x, 0, 1)
	require.NoError(t, err)

	u := mustTranslate(t, swapped, sizes.SymEnv{})
	plan, err := Plan(u, types.NewCompileEnv())
	require.NoError(t, err)

	// Only Zeros' Memset produces a unit; SwapDim is a view.
	require.Len(t, plan.Units, 1)
	swappedManikin := plan.ResultManikin[u]
	assert.Equal(t, []uint64{3, 2}, swappedManikin.Shape)
}

func TestPlanVarRequiresPlacement(t *testing.T) {
	vs := types.VarSpec{Name: "w", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(vs)
	u := mustTranslate(t, v, sizes.SymEnv{})

	_, err := Plan(u, types.NewCompileEnv())
	assert.Error(t, err)
}

func TestPlanHostVarEmitsWarmupMemcpy(t *testing.T) {
	vs := types.VarSpec{Name: "w", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(vs)
	u := mustTranslate(t, v, sizes.SymEnv{})

	env := types.NewCompileEnv().With(vs, types.Host)
	plan, err := Plan(u, env)
	require.NoError(t, err)

	require.Len(t, plan.Warmup, 1)
	require.Len(t, plan.Units, 1)
	assert.IsType(t, MemcpyHtoD{}, plan.Units[0].Ops[0])
}

func TestPlanDeviceVarNeedsNoCopy(t *testing.T) {
	vs := types.VarSpec{Name: "w", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(vs)
	u := mustTranslate(t, v, sizes.SymEnv{})

	env := types.NewCompileEnv().With(vs, types.Device)
	plan, err := Plan(u, env)
	require.NoError(t, err)

	assert.Empty(t, plan.Units)
	result := plan.ResultManikin[u]
	assert.Equal(t, manikin.ExternalVar, result.Storage.Kind)
}

func TestPlanStoreToVarDeviceTargetFromComputedValue(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	acc := types.VarSpec{Name: "acc", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	write, err := expr.StoreToVar(x, acc)
	require.NoError(t, err)

	u := mustTranslate(t, write, sizes.SymEnv{})
	env := types.NewCompileEnv().With(acc, types.Device)
	plan, err := Plan(u, env)
	require.NoError(t, err)

	last := plan.Units[len(plan.Units)-1]
	op, ok := last.Ops[0].(MemcpyDtoD)
	require.True(t, ok)
	assert.True(t, op.DstIsVar)
	assert.Equal(t, acc, op.DstVar)
}

func TestPlanStoreToVarDeviceTargetFromExternalVarIsPassthrough(t *testing.T) {
	src := types.VarSpec{Name: "src", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	dst := types.VarSpec{Name: "dst", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(src)
	write, err := expr.StoreToVar(v, dst)
	require.NoError(t, err)

	u := mustTranslate(t, write, sizes.SymEnv{})
	env := types.NewCompileEnv().With(src, types.Device).With(dst, types.Device)
	plan, err := Plan(u, env)
	require.NoError(t, err)

	assert.Empty(t, plan.Units, "device var stored into another device var moves no bytes")
}

func TestPlanStoreToVarHostTargetFromComputedValue(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	acc := types.VarSpec{Name: "acc", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	write, err := expr.StoreToVar(x, acc)
	require.NoError(t, err)

	u := mustTranslate(t, write, sizes.SymEnv{})
	env := types.NewCompileEnv().With(acc, types.Host)
	plan, err := Plan(u, env)
	require.NoError(t, err)

	last := plan.Units[len(plan.Units)-1]
	op, ok := last.Ops[0].(MemcpyDtoH)
	require.True(t, ok)
	assert.False(t, op.SrcIsVar)
	assert.Equal(t, acc, op.HostVar)
}

func TestPlanStoreToVarHostTargetFromExternalVar(t *testing.T) {
	src := types.VarSpec{Name: "src", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	dst := types.VarSpec{Name: "dst", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(src)
	write, err := expr.StoreToVar(v, dst)
	require.NoError(t, err)

	u := mustTranslate(t, write, sizes.SymEnv{})
	env := types.NewCompileEnv().With(src, types.Device).With(dst, types.Host)
	plan, err := Plan(u, env)
	require.NoError(t, err)

	last := plan.Units[len(plan.Units)-1]
	op, ok := last.Ops[0].(MemcpyDtoH)
	require.True(t, ok)
	assert.True(t, op.SrcIsVar)
	assert.Equal(t, src, op.SrcVar)
	assert.Equal(t, dst, op.HostVar)
}

func TestPlanDotOfMatricesEmitsBlasGemm(t *testing.T) {
	a := expr.Zeros(sizes.Shape{sizes.Fix(2), sizes.Fix(3)}, types.Float32)
	bM := expr.Zeros(sizes.Shape{sizes.Fix(3), sizes.Fix(4)}, types.Float32)
	dot, err := expr.Dot(a, bM)
	require.NoError(t, err)

	u := mustTranslate(t, dot, sizes.SymEnv{})
	plan, err := Plan(u, types.NewCompileEnv())
	require.NoError(t, err)

	last := plan.Units[len(plan.Units)-1]
	assert.IsType(t, BlasGemm{}, last.Ops[0])
}
