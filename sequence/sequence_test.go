package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tscc-project/tscc/apicalls"
	"github.com/tscc-project/tscc/expr"
	"github.com/tscc-project/tscc/planner"
	"github.com/tscc-project/tscc/schedule"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
	"github.com/tscc-project/tscc/unified"
)

func mustSequence(t *testing.T, e *expr.Expr) ([]apicalls.Call, *TemplateCache) {
	t.Helper()
	calls, _, cache := mustSequenceEnvFull(t, e, types.NewCompileEnv())
	return calls, cache
}

func mustSequenceEnv(t *testing.T, e *expr.Expr, env types.CompileEnv) ([]apicalls.Call, *TemplateCache) {
	t.Helper()
	calls, _, cache := mustSequenceEnvFull(t, e, env)
	return calls, cache
}

func mustSequenceEnvFull(t *testing.T, e *expr.Expr, env types.CompileEnv) ([]apicalls.Call, []apicalls.Call, *TemplateCache) {
	t.Helper()
	u, err := unified.Translate(e, sizes.SymEnv{})
	require.NoError(t, err)
	plan, err := planner.Plan(u, env)
	require.NoError(t, err)
	sched, err := schedule.Schedule(plan)
	require.NoError(t, err)
	calls, warmupCalls, cache, err := Sequence(sched, plan)
	require.NoError(t, err)
	return calls, warmupCalls, cache
}

func TestSequencePreservesChainOrder(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)

	calls, _ := mustSequence(t, neg)

	require.Len(t, calls, 2)
	assert.IsType(t, apicalls.MemsetD32Async{}, calls[0])
	assert.IsType(t, apicalls.LaunchCPPKernel{}, calls[1])
}

func TestSequenceCachesRepeatedTemplate(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	n1, err := expr.Negate(x)
	require.NoError(t, err)
	n2, err := expr.Negate(n1)
	require.NoError(t, err)

	_, cache := mustSequence(t, n2)

	// Both Negate units share the same template and argument-type
	// signature, so the cache should mint exactly one wrapper for them
	// rather than one per call site.
	byTemplate := map[string]int{}
	for _, src := range cache.Sources {
		byTemplate[src.TemplateInst]++
	}
	for tmpl, count := range byTemplate {
		assert.Equal(t, 1, count, "template %q should be instantiated once and reused", tmpl)
	}
}

func TestSequenceStoreToVarIntoDeviceVarNamesDestination(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	acc := types.VarSpec{Name: "acc", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	write, err := expr.StoreToVar(x, acc)
	require.NoError(t, err)

	env := types.NewCompileEnv().With(acc, types.Device)
	calls, _ := mustSequenceEnv(t, write, env)

	var sawVarCopy bool
	for _, c := range calls {
		if mc, ok := c.(apicalls.MemcpyVarAsync); ok {
			sawVarCopy = true
			assert.Equal(t, acc, mc.DstVar)
		}
		_, isSelfCopy := c.(apicalls.MemcpyAsync)
		assert.False(t, isSelfCopy, "StoreToVar into a device var must not fall back to a plain MemcpyAsync")
	}
	assert.True(t, sawVarCopy, "expected a MemcpyVarAsync naming the destination variable")
}

func TestSequenceStoreToVarFromDeviceVarIntoHostNamesSource(t *testing.T) {
	src := types.VarSpec{Name: "src", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	dst := types.VarSpec{Name: "dst", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(src)
	write, err := expr.StoreToVar(v, dst)
	require.NoError(t, err)

	env := types.NewCompileEnv().With(src, types.Device).With(dst, types.Host)
	calls, _ := mustSequenceEnv(t, write, env)

	var sawVarCopy bool
	for _, c := range calls {
		if mc, ok := c.(apicalls.MemcpyDtoHFromVarAsync); ok {
			sawVarCopy = true
			assert.Equal(t, src, mc.SrcVar)
			assert.Equal(t, "dst", mc.HostDst)
		}
	}
	assert.True(t, sawVarCopy, "expected a MemcpyDtoHFromVarAsync naming the source variable")
}

func TestSequenceSeparatesWarmupCallsFromExecCalls(t *testing.T) {
	vs := types.VarSpec{Name: "w", Shape: sizes.Shape{sizes.Fix(4)}, DType: types.Float32}
	v := expr.Var(vs)
	neg, err := expr.Negate(v)
	require.NoError(t, err)

	env := types.NewCompileEnv().With(vs, types.Host)
	calls, warmupCalls, _ := mustSequenceEnvFull(t, neg, env)

	require.Len(t, warmupCalls, 1)
	assert.IsType(t, apicalls.MemcpyHtoDAsync{}, warmupCalls[0])
	for _, c := range calls {
		_, isWarmupCopy := c.(apicalls.MemcpyHtoDAsync)
		assert.False(t, isWarmupCopy, "warmup upload must not also appear among the steady-state calls")
	}
}

func TestSequenceDotEmitsBlasGemmCall(t *testing.T) {
	a := expr.Zeros(sizes.Shape{sizes.Fix(2), sizes.Fix(3)}, types.Float32)
	b := expr.Zeros(sizes.Shape{sizes.Fix(3), sizes.Fix(4)}, types.Float32)
	dot, err := expr.Dot(a, b)
	require.NoError(t, err)

	calls, _ := mustSequence(t, dot)

	var sawGemm bool
	for _, c := range calls {
		if _, ok := c.(apicalls.BlasGemm); ok {
			sawGemm = true
		}
	}
	assert.True(t, sawGemm)
}
