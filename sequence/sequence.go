// Package sequence runs the scheduled stream command lists down into a
// single linear list of device API calls, and owns the per-build
// template-instantiation cache the call sequencer and recipe assembler
// share (spec.md §4.6).
package sequence

import (
	"fmt"

	"github.com/tscc-project/tscc/apicalls"
	"github.com/tscc-project/tscc/compileerr"
	"github.com/tscc-project/tscc/planner"
	"github.com/tscc-project/tscc/schedule"
	"github.com/tscc-project/tscc/types"
)

// TemplateCache assigns a unique C-linkage symbol to each distinct
// (template instance, domain, arg-types, return-type) tuple seen
// during sequencing, and accumulates the generated wrapper source for
// every symbol it mints. Scoped to a single recipe build, never shared
// across builds (spec.md §5).
type TemplateCache struct {
	symbols map[string]string // key -> minted symbol
	next    map[string]int    // function name -> next free suffix
	Sources []WrapperSource
}

// WrapperSource is one generated C++ wrapper: its symbol, the template it
// forwards to, and the domain (kernel vs host) it belongs in.
type WrapperSource struct {
	Symbol       string
	TemplateInst string
	Domain       string
	ArgTypes     []string
	ReturnType   string
	Text         string
}

func NewTemplateCache() *TemplateCache {
	return &TemplateCache{symbols: map[string]string{}, next: map[string]int{}}
}

// lookup returns the existing symbol for key, or mints (and records source
// for) a fresh one.
func (c *TemplateCache) lookup(templateInst, domain string, argTypes []string, returnType string) string {
	key := cacheKey(templateInst, domain, argTypes, returnType)
	if sym, ok := c.symbols[key]; ok {
		return sym
	}
	n := c.next[templateInst]
	c.next[templateInst] = n + 1
	sym := fmt.Sprintf("%s_%d", sanitize(templateInst), n)
	c.symbols[key] = sym
	c.Sources = append(c.Sources, WrapperSource{
		Symbol:       sym,
		TemplateInst: templateInst,
		Domain:       domain,
		ArgTypes:     argTypes,
		ReturnType:   returnType,
		Text:         wrapperText(sym, templateInst, domain, argTypes, returnType),
	})
	return sym
}

func cacheKey(templateInst, domain string, argTypes []string, returnType string) string {
	return fmt.Sprintf("%s|%s|%v|%s", templateInst, domain, argTypes, returnType)
}

func sanitize(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == ':' || c == '<' || c == '>' || c == ',' || c == ' ' {
			out = append(out, '_')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func wrapperText(sym, templateInst, domain string, argTypes []string, returnType string) string {
	linkage := "__global__ void"
	if domain == "host" {
		linkage = "extern \"C\" __declspec(dllexport) " + returnType
	} else {
		linkage = "extern \"C\" " + linkage
	}
	params := ""
	for i, t := range argTypes {
		if i > 0 {
			params += ", "
		}
		params += fmt.Sprintf("%s arg%d", t, i)
	}
	call := fmt.Sprintf("%s(", templateInst)
	for i := range argTypes {
		if i > 0 {
			call += ", "
		}
		call += fmt.Sprintf("arg%d", i)
	}
	call += ")"
	body := fmt.Sprintf("TSCC_TRACE(%s);\n\t%s;", sym, call)
	if domain == "host" && returnType != "void" {
		body = fmt.Sprintf("TSCC_TRACE(%s);\n\treturn %s;", sym, call)
	}
	return fmt.Sprintf("%s %s(%s) {\n\t%s\n}\n", linkage, sym, params, body)
}

// argType resolves the C++ type string for one planner argument, needed to
// build the cache key and the wrapper parameter list.
func argType(arg planner.ArgRef, allocs map[apicalls.AllocID]types.TypeName) string {
	if arg.IsVar {
		return arg.Var.DType.CTypeName() + "*"
	}
	return allocs[arg.Alloc].CTypeName() + "*"
}

// Sequence walks sched's stream command lists to completion, choosing at
// each step a stream whose head command is ready, and returns the linear
// exec-call list, the one-shot warmup-call list (calls whose originating
// unit is in plan.Warmup), and the template cache accumulated along the
// way.
func Sequence(sched *schedule.Schedule, plan *planner.Plan) ([]apicalls.Call, []apicalls.Call, *TemplateCache, error) {
	allocDType := make(map[apicalls.AllocID]types.TypeName, len(plan.Allocations))
	for _, a := range plan.Allocations {
		allocDType[a.ID] = a.DType
	}

	warmupUnits := make(map[planner.UnitID]bool, len(plan.Warmup))
	for _, id := range plan.Warmup {
		warmupUnits[id] = true
	}

	streams := make([]apicalls.StreamID, 0, len(sched.Streams))
	for id := range sched.Streams {
		streams = append(streams, id)
	}
	sortStreamIDs(streams)

	pos := make(map[apicalls.StreamID]int, len(streams))
	active := map[apicalls.EventID]int{}
	lastUsed := map[apicalls.StreamID]int{}
	tick := 0

	cache := NewTemplateCache()
	var calls []apicalls.Call
	var warmupCalls []apicalls.Call

	remaining := 0
	for _, s := range streams {
		remaining += len(sched.Streams[s])
	}

	for remaining > 0 {
		best, bestScore := apicalls.StreamID(-1), int(^uint(0)>>1)
		foundAny := false
		for _, s := range streams {
			cmds := sched.Streams[s]
			i := pos[s]
			if i >= len(cmds) {
				continue
			}
			if !ready(cmds[i], active) {
				continue
			}
			foundAny = true
			score := lastUsed[s] // prefer least-recently-used (smaller last-used tick)
			switch cmds[i].Kind {
			case schedule.EmitEvent:
				score += 1000
			case schedule.WaitOnEvent:
				score -= 1000
			}
			if score < bestScore {
				best, bestScore = s, score
			}
		}
		if !foundAny {
			return nil, nil, nil, compileerr.NewSchedulerDeadlock(deadlockSnapshot(streams, sched, pos, active))
		}

		cmd := sched.Streams[best][pos[best]]
		pos[best]++
		remaining--
		tick++
		lastUsed[best] = tick

		switch cmd.Kind {
		case schedule.EmitEvent:
			active[cmd.Slot.EventObjectID] += waitersFor(sched, cmd.Slot)
		case schedule.WaitOnEvent:
			active[cmd.Slot.EventObjectID]--
		case schedule.EmitRerunEvent:
			active[cmd.Slot.EventObjectID]++
		case schedule.WaitOnRerunEvent:
			active[cmd.Slot.EventObjectID]--
		case schedule.Perform:
			call, err := translatePrimitive(cmd.Op, best, allocDType, cache)
			if err != nil {
				return nil, nil, nil, err
			}
			if call != nil {
				if warmupUnits[cmd.Unit] {
					warmupCalls = append(warmupCalls, call)
				} else {
					calls = append(calls, call)
				}
			}
		}
	}

	return calls, warmupCalls, cache, nil
}

func waitersFor(sched *schedule.Schedule, slot schedule.EventSlot) int {
	n := 0
	for _, cmds := range sched.Streams {
		for _, c := range cmds {
			if c.Kind == schedule.WaitOnEvent && c.Slot.EventObjectID == slot.EventObjectID && c.Slot.CorrelationID == slot.CorrelationID {
				n++
			}
		}
	}
	return n
}

func ready(c schedule.StreamCommand, active map[apicalls.EventID]int) bool {
	switch c.Kind {
	case schedule.WaitOnEvent, schedule.WaitOnRerunEvent:
		return active[c.Slot.EventObjectID] > 0
	case schedule.EmitEvent:
		return active[c.Slot.EventObjectID] == 0
	default:
		return true
	}
}

func sortStreamIDs(ids []apicalls.StreamID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func deadlockSnapshot(streams []apicalls.StreamID, sched *schedule.Schedule, pos map[apicalls.StreamID]int, active map[apicalls.EventID]int) string {
	s := ""
	for _, id := range streams {
		cmds := sched.Streams[id]
		i := pos[id]
		if i < len(cmds) {
			s += fmt.Sprintf("stream %d: stuck at %+v (pos %d/%d)\n", id, cmds[i], i, len(cmds))
		} else {
			s += fmt.Sprintf("stream %d: drained\n", id)
		}
	}
	s += fmt.Sprintf("active events: %v\n", active)
	return s
}

func translatePrimitive(op planner.PrimitiveOp, stream apicalls.StreamID, allocDType map[apicalls.AllocID]types.TypeName, cache *TemplateCache) (apicalls.Call, error) {
	switch o := op.(type) {
	case planner.LaunchKernel:
		argTypes := make([]string, len(o.Args))
		allocs := make([]apicalls.AllocID, 0, len(o.Args))
		for i, a := range o.Args {
			argTypes[i] = argType(a, allocDType)
			if !a.IsVar {
				allocs = append(allocs, a.Alloc)
			}
		}
		sym := cache.lookup(o.TemplateInst, "kernel", argTypes, "void")
		return apicalls.LaunchCPPKernel{
			TemplateInst: sym,
			WorkDim:      [3]uint32{uint32(o.WorkDim[0]), uint32(o.WorkDim[1]), uint32(o.WorkDim[2])},
			Stream:       apicalls.StreamID(stream),
			Args:         allocs,
		}, nil
	case planner.CallCFunc:
		argTypes := make([]string, len(o.Args))
		allocs := make([]apicalls.AllocID, 0, len(o.Args))
		for i, a := range o.Args {
			argTypes[i] = argType(a, allocDType)
			if !a.IsVar {
				allocs = append(allocs, a.Alloc)
			}
		}
		sym := cache.lookup(o.TemplateInst, "host", argTypes, "void")
		return apicalls.CallCFunc{Name: sym, DelegateType: o.DelegateType, Stream: stream, Args: allocs}, nil
	case planner.MemcpyDtoD:
		if o.DstIsVar {
			// A device-resident variable has no internal AllocID; name it
			// directly rather than through a fresh allocation.
			return apicalls.MemcpyVarAsync{DstVar: o.DstVar, Src: o.Src, Stream: stream}, nil
		}
		return apicalls.MemcpyAsync{Dst: o.Dst, Src: o.Src, Stream: stream}, nil
	case planner.MemcpyHtoD:
		return apicalls.MemcpyHtoDAsync{Dst: o.Dst, HostSrc: o.HostVar.Name, Stream: stream}, nil
	case planner.MemcpyDtoH:
		if o.SrcIsVar {
			return apicalls.MemcpyDtoHFromVarAsync{HostDst: o.HostVar.Name, SrcVar: o.SrcVar, Stream: stream}, nil
		}
		return apicalls.MemcpyDtoHAsync{HostDst: o.HostVar.Name, Src: o.Src, Stream: stream}, nil
	case planner.Memset:
		return apicalls.MemsetD32Async{Dst: o.Dst, Value: o.Value, Stream: stream}, nil
	case planner.BlasGemm:
		return apicalls.BlasGemm{
			OpA: o.OpA, OpB: o.OpB, Alpha: o.Alpha, Beta: o.Beta,
			A: argAlloc(o.A), B: argAlloc(o.B), C: argAlloc(o.C), Stream: stream,
		}, nil
	case planner.Trace:
		return apicalls.Trace{UExprLabel: o.Label, Result: o.Result}, nil
	default:
		return nil, compileerr.NewUnsupportedOp(fmt.Sprintf("%T", op), -1, -1)
	}
}

func argAlloc(a planner.ArgRef) apicalls.AllocID {
	if a.IsVar {
		return apicalls.AllocID(-1)
	}
	return a.Alloc
}
