// Package codegen assembles a planned, scheduled, sequenced build into a
// Recipe: the kernel/host source text plus the init/exec/dispose call
// lists a caller replays against a device API (spec.md §4.7, §6).
package codegen

import (
	"sort"
	"strings"

	"github.com/tscc-project/tscc/apicalls"
	"github.com/tscc-project/tscc/planner"
	"github.com/tscc-project/tscc/schedule"
	"github.com/tscc-project/tscc/sequence"
)

// kernelIncludes and hostIncludes are the fixed source-text prefixes every
// generated translation unit opens with.
var kernelIncludes = []string{"Utils.cuh", "NDSupport.cuh", "Subtensor.cuh", "Ops.cuh"}
var hostIncludes = []string{"Utils.cuh", "NDSupport.cuh", "Subtensor.cuh", "Ops.cuh", "ThrustInterface.cuh", "Reduce.cuh", "stdio.h"}

// Recipe is a complete compiled build: generated source plus the three
// call lists a caller issues in order (init once, exec per invocation,
// dispose once at teardown).
type Recipe struct {
	KernelSource string
	HostSource   string
	InitCalls    []apicalls.Call
	DisposeCalls []apicalls.Call
	ExecCalls    []apicalls.Call
}

// Assemble builds the final Recipe from a plan's allocations, a
// schedule's stream/event footprint, the sequencer's linear exec-call and
// warmup-call lists, and the template cache accumulated while sequencing.
func Assemble(plan *planner.Plan, sched *schedule.Schedule, execCalls, warmupCalls []apicalls.Call, cache *sequence.TemplateCache) (*Recipe, error) {
	return &Recipe{
		KernelSource: assembleSource(kernelIncludes, cache, "kernel"),
		HostSource:   assembleSource(hostIncludes, cache, "host"),
		InitCalls:    initCalls(plan, sched, warmupCalls),
		DisposeCalls: disposeCalls(plan, sched),
		ExecCalls:    execCalls,
	}, nil
}

func assembleSource(includes []string, cache *sequence.TemplateCache, domain string) string {
	var b strings.Builder
	for _, inc := range includes {
		b.WriteString("#include \"")
		b.WriteString(inc)
		b.WriteString("\"\n")
	}
	b.WriteString("\n")
	for _, src := range cache.Sources {
		if src.Domain != domain {
			continue
		}
		b.WriteString(src.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// initCalls orders allocations, stream creations, event creations, and
// warmup calls. The first three groups have no ordering dependency on each
// other per the concurrency model, so the exact interleaving here
// (allocations, then streams, then events, each sorted by id) is one valid
// linearization, not a requirement on the caller; warmup calls run last,
// once the streams they're issued on already exist.
func initCalls(plan *planner.Plan, sched *schedule.Schedule, warmupCalls []apicalls.Call) []apicalls.Call {
	var calls []apicalls.Call
	for _, a := range plan.Allocations {
		calls = append(calls, apicalls.MemAlloc{Alloc: a.ID, ByteSize: a.ByteSize})
	}
	for _, s := range sortedStreamIDs(sched) {
		calls = append(calls, apicalls.StreamCreate{ID: s, Flags: apicalls.DefaultStreamFlags})
	}
	for i := 0; i < sched.EventObjectCount; i++ {
		calls = append(calls, apicalls.EventCreate{ID: apicalls.EventID(i), Flags: apicalls.DefaultEventFlags})
	}
	calls = append(calls, warmupCalls...)
	return calls
}

// disposeCalls tears down in the mirror order: events, then streams, then
// memory freed in reverse allocation order (last allocated, first freed).
func disposeCalls(plan *planner.Plan, sched *schedule.Schedule) []apicalls.Call {
	var calls []apicalls.Call
	for i := 0; i < sched.EventObjectCount; i++ {
		calls = append(calls, apicalls.EventDestroy{ID: apicalls.EventID(i)})
	}
	for _, s := range sortedStreamIDs(sched) {
		calls = append(calls, apicalls.StreamDestroy{ID: s})
	}
	for i := len(plan.Allocations) - 1; i >= 0; i-- {
		calls = append(calls, apicalls.MemFree{Alloc: plan.Allocations[i].ID})
	}
	return calls
}

func sortedStreamIDs(sched *schedule.Schedule) []apicalls.StreamID {
	ids := make([]apicalls.StreamID, 0, len(sched.Streams))
	for id := range sched.Streams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
