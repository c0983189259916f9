package codegen

import (
	"io"

	"github.com/pkg/errors"
	yaml "go.yaml.in/yaml/v2"
)

// Report is a small summary of a Recipe, meant for a build log or a CI
// artifact rather than for round-tripping back into a Recipe -- the call
// lists themselves stay in-process.
type Report struct {
	KernelSourceBytes int `yaml:"kernelSourceBytes"`
	HostSourceBytes   int `yaml:"hostSourceBytes"`
	WrapperCount      int `yaml:"wrapperCount"`
	InitCallCount     int `yaml:"initCallCount"`
	ExecCallCount     int `yaml:"execCallCount"`
	DisposeCallCount  int `yaml:"disposeCallCount"`
}

// Summarize computes r's Report.
func (r *Recipe) Summarize(wrapperCount int) Report {
	return Report{
		KernelSourceBytes: len(r.KernelSource),
		HostSourceBytes:   len(r.HostSource),
		WrapperCount:      wrapperCount,
		InitCallCount:     len(r.InitCalls),
		ExecCallCount:     len(r.ExecCalls),
		DisposeCallCount:  len(r.DisposeCalls),
	}
}

// WriteReport encodes rep as YAML, distinct from the strict JSON-tagged
// config documents compile.LoadCompileEnv reads: this is free-form,
// human-facing diagnostic output rather than a schema callers build
// tooling against.
func WriteReport(w io.Writer, rep Report) error {
	out, err := yaml.Marshal(rep)
	if err != nil {
		return errors.Wrap(err, "marshaling recipe report")
	}
	_, err = w.Write(out)
	return errors.Wrap(err, "writing recipe report")
}
