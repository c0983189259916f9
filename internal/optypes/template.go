package optypes

import "github.com/tscc-project/tscc/internal/utils"

// templateNameOverrides maps OpType to the C++ template function name when
// the default "snake_case under the tscc::ops namespace" doesn't apply --
// mirrors the teacher's stableHLOMappings override table in op.go.
var templateNameOverrides = map[OpType]string{
	Sum:     "tscc::reduce::sum_all",
	SumAxis: "tscc::reduce::sum_axis",
	Dot:     "tscc::blas::gemm",
}

// TemplateName returns the C++ template function this op lowers to, used
// by the call sequencer's template-instantiation cache when generating the
// wrapper source for LaunchKernel/CallCFunc primitive ops.
func (op OpType) TemplateName() string {
	if name, ok := templateNameOverrides[op]; ok {
		return name
	}
	return "tscc::ops::" + utils.ToSnakeCase(op.String())
}
