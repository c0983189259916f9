package optypes

import "testing"

func TestStringRoundTrip(t *testing.T) {
	for op, name := range opTypeNames {
		if got := op.String(); got != name {
			t.Errorf("OpType(%d).String() = %q, want %q", int(op), got, name)
		}
	}
}

func TestUnknownOpTypeString(t *testing.T) {
	unknown := OpType(10000)
	if got := unknown.String(); got != "OpType(10000)" {
		t.Errorf("unexpected String() for unknown op type: %q", got)
	}
}

func TestTemplateName(t *testing.T) {
	if got := Add.TemplateName(); got != "tscc::ops::add" {
		t.Errorf("Add.TemplateName() = %q", got)
	}
	if got := Sum.TemplateName(); got != "tscc::reduce::sum_all" {
		t.Errorf("Sum.TemplateName() = %q", got)
	}
	if got := Dot.TemplateName(); got != "tscc::blas::gemm" {
		t.Errorf("Dot.TemplateName() = %q", got)
	}
}

func TestIsElementwiseTranscendental(t *testing.T) {
	if !IsElementwiseTranscendental(Tanh) {
		t.Errorf("expected Tanh to be an elementwise transcendental")
	}
	if IsElementwiseTranscendental(Sum) {
		t.Errorf("expected Sum to not be an elementwise transcendental")
	}
}
