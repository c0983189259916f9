package codegen

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tscc-project/tscc/apicalls"
	"github.com/tscc-project/tscc/expr"
	"github.com/tscc-project/tscc/planner"
	"github.com/tscc-project/tscc/schedule"
	"github.com/tscc-project/tscc/sequence"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
	"github.com/tscc-project/tscc/unified"
)

func mustAssemble(t *testing.T, e *expr.Expr) *Recipe {
	t.Helper()
	return mustAssembleEnv(t, e, types.NewCompileEnv())
}

func mustAssembleEnv(t *testing.T, e *expr.Expr, env types.CompileEnv) *Recipe {
	t.Helper()
	u, err := unified.Translate(e, sizes.SymEnv{})
	require.NoError(t, err)
	plan, err := planner.Plan(u, env)
	require.NoError(t, err)
	sched, err := schedule.Schedule(plan)
	require.NoError(t, err)
	execCalls, warmupCalls, cache, err := sequence.Sequence(sched, plan)
	require.NoError(t, err)
	recipe, err := Assemble(plan, sched, execCalls, warmupCalls, cache)
	require.NoError(t, err)
	return recipe
}

func TestAssembleOrdersInitBeforeDispose(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)

	recipe := mustAssemble(t, neg)

	require.NotEmpty(t, recipe.InitCalls)
	require.NotEmpty(t, recipe.DisposeCalls)
	assert.IsType(t, apicalls.MemAlloc{}, recipe.InitCalls[0])

	last := recipe.DisposeCalls[len(recipe.DisposeCalls)-1]
	assert.IsType(t, apicalls.MemFree{}, last)
}

func TestAssembleFreesInReverseAllocationOrder(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)
	abs, err := expr.Abs(neg)
	require.NoError(t, err)

	recipe := mustAssemble(t, abs)

	var allocOrder, freeOrder []apicalls.AllocID
	for _, c := range recipe.InitCalls {
		if a, ok := c.(apicalls.MemAlloc); ok {
			allocOrder = append(allocOrder, a.Alloc)
		}
	}
	for _, c := range recipe.DisposeCalls {
		if f, ok := c.(apicalls.MemFree); ok {
			freeOrder = append(freeOrder, f.Alloc)
		}
	}
	require.Len(t, freeOrder, len(allocOrder))
	for i := range allocOrder {
		assert.Equal(t, allocOrder[i], freeOrder[len(freeOrder)-1-i])
	}
}

func TestAssembleIsDeterministicAcrossRuns(t *testing.T) {
	build := func() *Recipe {
		x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
		neg, err := expr.Negate(x)
		require.NoError(t, err)
		abs, err := expr.Abs(neg)
		require.NoError(t, err)
		return mustAssemble(t, abs)
	}

	first := build()
	second := build()

	if diff := cmp.Diff(first.InitCalls, second.InitCalls); diff != "" {
		t.Errorf("init calls differ across otherwise-identical builds (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.DisposeCalls, second.DisposeCalls); diff != "" {
		t.Errorf("dispose calls differ across otherwise-identical builds (-first +second):\n%s", diff)
	}
}

func TestAssembleKernelSourceCarriesIncludesAndWrappers(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)

	recipe := mustAssemble(t, neg)

	assert.Contains(t, recipe.KernelSource, "#include \"Ops.cuh\"")
	assert.NotContains(t, recipe.KernelSource, "ThrustInterface.cuh")
	assert.Contains(t, recipe.KernelSource, "tscc__ops__negate_0")
}

func TestAssembleRoutesHostVarWarmupIntoInitCalls(t *testing.T) {
	vs := types.VarSpec{Name: "w", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(vs)
	neg, err := expr.Negate(v)
	require.NoError(t, err)

	env := types.NewCompileEnv().With(vs, types.Host)
	recipe := mustAssembleEnv(t, neg, env)

	var sawWarmupInInit bool
	for _, c := range recipe.InitCalls {
		if mc, ok := c.(apicalls.MemcpyHtoDAsync); ok && mc.HostSrc == "w" {
			sawWarmupInInit = true
		}
	}
	assert.True(t, sawWarmupInInit, "host var warmup upload must appear in InitCalls")

	for _, c := range recipe.ExecCalls {
		if mc, ok := c.(apicalls.MemcpyHtoDAsync); ok {
			assert.NotEqual(t, "w", mc.HostSrc, "warmup upload must not be re-issued in ExecCalls")
		}
	}
}

func TestWriteReportEncodesCallCounts(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)

	recipe := mustAssemble(t, neg)
	rep := recipe.Summarize(1)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, rep))
	assert.Contains(t, buf.String(), "execCallCount:")
}
