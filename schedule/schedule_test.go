package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tscc-project/tscc/expr"
	"github.com/tscc-project/tscc/planner"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
	"github.com/tscc-project/tscc/unified"
)

func mustPlan(t *testing.T, e *expr.Expr) *planner.Plan {
	t.Helper()
	u, err := unified.Translate(e, sizes.SymEnv{})
	require.NoError(t, err)
	p, err := planner.Plan(u, types.NewCompileEnv())
	require.NoError(t, err)
	return p
}

func TestScheduleSingleChainStaysOnOneStream(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)
	abs, err := expr.Abs(neg)
	require.NoError(t, err)

	plan := mustPlan(t, abs)
	sched, err := Schedule(plan)
	require.NoError(t, err)

	require.Len(t, sched.Streams, 1)
	for _, cmds := range sched.Streams {
		for _, c := range cmds {
			assert.NotEqual(t, WaitOnEvent, c.Kind, "a single-stream program never needs to wait on an event")
		}
	}
}

func TestScheduleCommandsPreserveUnitOrder(t *testing.T) {
	x := expr.Zeros(sizes.Shape{sizes.Fix(4)}, types.Float32)
	neg, err := expr.Negate(x)
	require.NoError(t, err)

	plan := mustPlan(t, neg)
	sched, err := Schedule(plan)
	require.NoError(t, err)

	require.Len(t, sched.Streams, 1)
	var starts []planner.UnitID
	for _, cmds := range sched.Streams {
		for _, c := range cmds {
			if c.Kind == UnitStart {
				starts = append(starts, c.Unit)
			}
		}
	}
	assert.Equal(t, []planner.UnitID{0, 1}, starts)
}
