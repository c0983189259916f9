// Package apicalls defines the closed set of low-level device API verbs a
// Recipe's init/dispose/exec call lists are made of (spec.md §6). Call is
// a tagged variant the same way expr.Expr is: one concrete struct per verb,
// rather than a generic "op name + args" record, so the sequencer and
// recipe assembler can exhaustively switch over the verb set.
package apicalls

import (
	"fmt"

	"github.com/tscc-project/tscc/types"
)

// StreamID and EventID are dense integer handles assigned by the planner
// and scheduler, [0, count).
type StreamID int
type EventID int
type AllocID int

// StreamFlags controls stream creation; the zero value is a blocking
// stream, so the non-blocking default is DefaultStreamFlags.
type StreamFlags struct {
	NonBlocking bool
}

// DefaultStreamFlags is non-blocking, per spec.md §6.
var DefaultStreamFlags = StreamFlags{NonBlocking: true}

// EventFlags controls event creation; the zero value is NOT the spec
// default, so always go through DefaultEventFlags.
type EventFlags struct {
	TimingDisabled bool
	BlockingSync   bool
}

// DefaultEventFlags is timing-disabled, blocking-sync, per spec.md §6.
var DefaultEventFlags = EventFlags{TimingDisabled: true, BlockingSync: true}

// Call is one device API invocation. Every concrete type below implements
// it; Verb names the verb for logging/diagnostics and switch-free
// printing.
type Call interface {
	Verb() string
	fmt.Stringer
}

type MemAlloc struct{ Alloc AllocID; ByteSize uint64 }
type MemFree struct{ Alloc AllocID }

type MemcpyAsync struct{ Dst, Src AllocID; Stream StreamID }
type MemcpyHtoDAsync struct{ Dst AllocID; HostSrc string; Stream StreamID }
type MemcpyDtoHAsync struct{ HostDst string; Src AllocID; Stream StreamID }

// MemcpyVarAsync copies device storage into a caller-owned device variable
// referenced by name, for StoreToVar writes whose destination has no
// internal allocation of its own to target with a plain MemcpyAsync.
type MemcpyVarAsync struct {
	DstVar types.VarSpec
	Src    AllocID
	Stream StreamID
}

// MemcpyDtoHFromVarAsync copies a caller-owned device variable's storage to
// a host destination, for StoreToVar writes whose source operand is itself
// a device-placed Var rather than one of the recipe's own allocations.
type MemcpyDtoHFromVarAsync struct {
	HostDst string
	SrcVar  types.VarSpec
	Stream  StreamID
}

type MemsetD32Async struct {
	Dst    AllocID
	Value  uint32
	Stream StreamID
}

type StreamCreate struct {
	ID    StreamID
	Flags StreamFlags
}
type StreamDestroy struct{ ID StreamID }
type StreamWaitEvent struct {
	Stream StreamID
	Event  EventID
}

type EventCreate struct {
	ID    EventID
	Flags EventFlags
}
type EventDestroy struct{ ID EventID }
type EventRecord struct {
	ID     EventID
	Stream StreamID
}
type EventSynchronize struct{ ID EventID }

// LaunchCKernel launches a plain-C-linkage kernel wrapper.
type LaunchCKernel struct {
	Name        string
	WorkDim     [3]uint32
	SharedBytes uint32
	Stream      StreamID
	Args        []AllocID
}

// LaunchCPPKernel launches a template-instantiated kernel wrapper.
type LaunchCPPKernel struct {
	TemplateInst string
	WorkDim      [3]uint32
	SharedBytes  uint32
	Stream       StreamID
	Args         []AllocID
}

type CallCFunc struct {
	Name         string
	DelegateType string
	Stream       StreamID
	Args         []AllocID
}

type BlasGemm struct {
	OpA, OpB   bool // true = transpose
	Alpha, Beta float64
	A, B, C    AllocID
	Stream     StreamID
}

// Trace emits a debug record of a unified expression's result manikin;
// used by the Trace primitive op and the generated trace macro calls.
type Trace struct {
	UExprLabel string
	Result     AllocID
}

func (c MemAlloc) Verb() string         { return "MemAlloc" }
func (c MemFree) Verb() string          { return "MemFree" }
func (c MemcpyAsync) Verb() string      { return "MemcpyAsync" }
func (c MemcpyHtoDAsync) Verb() string  { return "MemcpyHtoDAsync" }
func (c MemcpyDtoHAsync) Verb() string        { return "MemcpyDtoHAsync" }
func (c MemcpyVarAsync) Verb() string         { return "MemcpyVarAsync" }
func (c MemcpyDtoHFromVarAsync) Verb() string { return "MemcpyDtoHFromVarAsync" }
func (c MemsetD32Async) Verb() string         { return "MemsetD32Async" }
func (c StreamCreate) Verb() string     { return "StreamCreate" }
func (c StreamDestroy) Verb() string    { return "StreamDestroy" }
func (c StreamWaitEvent) Verb() string  { return "StreamWaitEvent" }
func (c EventCreate) Verb() string      { return "EventCreate" }
func (c EventDestroy) Verb() string     { return "EventDestroy" }
func (c EventRecord) Verb() string      { return "EventRecord" }
func (c EventSynchronize) Verb() string { return "EventSynchronize" }
func (c LaunchCKernel) Verb() string    { return "LaunchCKernel" }
func (c LaunchCPPKernel) Verb() string  { return "LaunchCPPKernel" }
func (c CallCFunc) Verb() string        { return "CallCFunc" }
func (c BlasGemm) Verb() string         { return "BlasGemm" }
func (c Trace) Verb() string            { return "Trace" }

func (c MemAlloc) String() string { return fmt.Sprintf("MemAlloc(alloc=%d, bytes=%d)", c.Alloc, c.ByteSize) }
func (c MemFree) String() string  { return fmt.Sprintf("MemFree(alloc=%d)", c.Alloc) }
func (c MemcpyAsync) String() string {
	return fmt.Sprintf("MemcpyAsync(dst=%d, src=%d, stream=%d)", c.Dst, c.Src, c.Stream)
}
func (c MemcpyHtoDAsync) String() string {
	return fmt.Sprintf("MemcpyHtoDAsync(dst=%d, hostSrc=%q, stream=%d)", c.Dst, c.HostSrc, c.Stream)
}
func (c MemcpyDtoHAsync) String() string {
	return fmt.Sprintf("MemcpyDtoHAsync(hostDst=%q, src=%d, stream=%d)", c.HostDst, c.Src, c.Stream)
}
func (c MemcpyVarAsync) String() string {
	return fmt.Sprintf("MemcpyVarAsync(dstVar=%s, src=%d, stream=%d)", c.DstVar.String(), c.Src, c.Stream)
}
func (c MemcpyDtoHFromVarAsync) String() string {
	return fmt.Sprintf("MemcpyDtoHFromVarAsync(hostDst=%q, srcVar=%s, stream=%d)", c.HostDst, c.SrcVar.String(), c.Stream)
}
func (c MemsetD32Async) String() string {
	return fmt.Sprintf("MemsetD32Async(dst=%d, value=%d, stream=%d)", c.Dst, c.Value, c.Stream)
}
func (c StreamCreate) String() string  { return fmt.Sprintf("StreamCreate(id=%d, flags=%+v)", c.ID, c.Flags) }
func (c StreamDestroy) String() string { return fmt.Sprintf("StreamDestroy(id=%d)", c.ID) }
func (c StreamWaitEvent) String() string {
	return fmt.Sprintf("StreamWaitEvent(stream=%d, event=%d)", c.Stream, c.Event)
}
func (c EventCreate) String() string  { return fmt.Sprintf("EventCreate(id=%d, flags=%+v)", c.ID, c.Flags) }
func (c EventDestroy) String() string { return fmt.Sprintf("EventDestroy(id=%d)", c.ID) }
func (c EventRecord) String() string {
	return fmt.Sprintf("EventRecord(id=%d, stream=%d)", c.ID, c.Stream)
}
func (c EventSynchronize) String() string { return fmt.Sprintf("EventSynchronize(id=%d)", c.ID) }
func (c LaunchCKernel) String() string {
	return fmt.Sprintf("LaunchCKernel(name=%q, workDim=%v, stream=%d, args=%v)", c.Name, c.WorkDim, c.Stream, c.Args)
}
func (c LaunchCPPKernel) String() string {
	return fmt.Sprintf("LaunchCPPKernel(inst=%q, workDim=%v, stream=%d, args=%v)", c.TemplateInst, c.WorkDim, c.Stream, c.Args)
}
func (c CallCFunc) String() string {
	return fmt.Sprintf("CallCFunc(name=%q, delegate=%q, stream=%d, args=%v)", c.Name, c.DelegateType, c.Stream, c.Args)
}
func (c BlasGemm) String() string {
	return fmt.Sprintf("BlasGemm(opA=%v, opB=%v, alpha=%v, A=%d, B=%d, beta=%v, C=%d, stream=%d)",
		c.OpA, c.OpB, c.Alpha, c.A, c.B, c.Beta, c.C, c.Stream)
}
func (c Trace) String() string { return fmt.Sprintf("Trace(%s -> alloc=%d)", c.UExprLabel, c.Result) }
