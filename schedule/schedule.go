// Package schedule assigns planner execution units to streams and inserts
// the event synchronization their cross-stream data dependencies need
// (spec.md §4.5).
package schedule

import (
	"github.com/tscc-project/tscc/apicalls"
	"github.com/tscc-project/tscc/planner"
)

// CommandKind tags a StreamCommand's variant.
type CommandKind int

const (
	Perform CommandKind = iota
	EmitEvent
	WaitOnEvent
	EmitRerunEvent
	WaitOnRerunEvent
	UnitStart
	UnitEnd
	RerunSatisfied
)

// StreamCommand is one entry in a per-stream ordered command list.
type StreamCommand struct {
	Kind CommandKind
	Unit planner.UnitID      // Perform, UnitStart, UnitEnd
	Op   planner.PrimitiveOp // Perform
	Slot EventSlot           // EmitEvent, WaitOnEvent, EmitRerunEvent, WaitOnRerunEvent
}

// EventSlot names a reusable physical event handle and the logical event
// it currently carries.
type EventSlot struct {
	EventObjectID apicalls.EventID
	CorrelationID planner.UnitID
}

// Event mirrors spec.md's Event record: event-object-id, correlation-id
// (the producer unit, grouping an emit with all its waiters) and the
// emitting unit.
type Event struct {
	EventObjectID apicalls.EventID
	CorrelationID planner.UnitID
	EmittingUnit  planner.UnitID
}

// Schedule is the scheduler's output: a command list per stream, every
// event it created, and the total number of distinct event objects.
type Schedule struct {
	Streams          map[apicalls.StreamID][]StreamCommand
	Events           []Event
	EventObjectCount int
}

type eventPool struct {
	free    []apicalls.EventID
	next    apicalls.EventID
	waiters map[apicalls.EventID]int // remaining waiters before a slot can be reused
}

func (p *eventPool) acquire(waiterCount int) apicalls.EventID {
	var id apicalls.EventID
	if n := len(p.free); n > 0 {
		id = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		id = p.next
		p.next++
	}
	if p.waiters == nil {
		p.waiters = map[apicalls.EventID]int{}
	}
	p.waiters[id] = waiterCount
	return id
}

func (p *eventPool) release(id apicalls.EventID) {
	p.waiters[id]--
	if p.waiters[id] <= 0 {
		p.free = append(p.free, id)
	}
}

// Schedule assigns units (already topologically ordered by their
// DependsOn edges, which planner.Plan emits in dependency order) to
// streams, preferring to keep a unit on the same stream as its most
// recent dependency to avoid a synchronization.
func Schedule(plan *planner.Plan) (*Schedule, error) {
	unitStream := make(map[planner.UnitID]apicalls.StreamID, len(plan.Units))
	streamOfLastUnit := map[apicalls.StreamID]planner.UnitID{}
	var nextStream apicalls.StreamID

	// Pass 1: assign every unit's stream. Stream choice only ever looks at
	// earlier units' streams (DependsOn is a DAG, planner.Plan emits units
	// in dependency order), so this can run to completion before any event
	// bookkeeping -- which needs the FINAL stream assignment to know which
	// dependencies actually cross a stream boundary.
	for _, u := range plan.Units {
		stream := pickStream(u, unitStream, streamOfLastUnit, &nextStream)
		unitStream[u.ID] = stream
		streamOfLastUnit[stream] = u.ID
	}
	waiterCounts := crossStreamWaiterCounts(plan.Units, unitStream)

	pool := &eventPool{}
	out := &Schedule{Streams: map[apicalls.StreamID][]StreamCommand{}}
	correlationSlot := map[planner.UnitID]EventSlot{}

	for _, u := range plan.Units {
		stream := unitStream[u.ID]
		out.Streams[stream] = append(out.Streams[stream], StreamCommand{Kind: UnitStart, Unit: u.ID})

		for _, dep := range u.DependsOn {
			depStream := unitStream[dep]
			if depStream == stream {
				continue
			}
			slot, ok := correlationSlot[dep]
			if !ok {
				slot = EventSlot{EventObjectID: pool.acquire(waiterCounts[dep]), CorrelationID: dep}
				correlationSlot[dep] = slot
				out.Streams[depStream] = append(out.Streams[depStream], StreamCommand{Kind: EmitEvent, Slot: slot})
				out.Events = append(out.Events, Event{EventObjectID: slot.EventObjectID, CorrelationID: dep, EmittingUnit: dep})
			}
			out.Streams[stream] = append(out.Streams[stream], StreamCommand{Kind: WaitOnEvent, Slot: slot})
			pool.release(slot.EventObjectID)
		}

		for _, op := range u.Ops {
			out.Streams[stream] = append(out.Streams[stream], StreamCommand{Kind: Perform, Unit: u.ID, Op: op})
		}

		if len(u.RerunAfter) > 0 {
			rerunSlot := EventSlot{EventObjectID: pool.acquire(1), CorrelationID: u.ID}
			out.Streams[stream] = append(out.Streams[stream], StreamCommand{Kind: EmitRerunEvent, Slot: rerunSlot})
			for _, rerun := range u.RerunAfter {
				rStream := unitStream[rerun]
				out.Streams[rStream] = append(out.Streams[rStream], StreamCommand{Kind: WaitOnRerunEvent, Slot: rerunSlot})
			}
			out.Streams[stream] = append(out.Streams[stream], StreamCommand{Kind: RerunSatisfied, Unit: u.ID})
		}

		out.Streams[stream] = append(out.Streams[stream], StreamCommand{Kind: UnitEnd, Unit: u.ID})
	}

	out.EventObjectCount = int(pool.next)
	return out, nil
}

// pickStream keeps a unit on the same stream as its most recent (highest
// id) dependency when possible, else opens a new stream.
func pickStream(u planner.Unit, unitStream map[planner.UnitID]apicalls.StreamID, streamOfLastUnit map[apicalls.StreamID]planner.UnitID, nextStream *apicalls.StreamID) apicalls.StreamID {
	var best apicalls.StreamID
	bestDep := planner.UnitID(-1)
	found := false
	for _, dep := range u.DependsOn {
		depStream, ok := unitStream[dep]
		if !ok {
			continue
		}
		if streamOfLastUnit[depStream] == dep && dep > bestDep {
			best, bestDep, found = depStream, dep, true
		}
	}
	if found {
		return best
	}
	if len(u.DependsOn) > 0 {
		// No dependency's stream currently has it as the last unit; fall
		// back to the most recent dependency's stream regardless.
		for _, dep := range u.DependsOn {
			if depStream, ok := unitStream[dep]; ok && dep > bestDep {
				best, bestDep, found = depStream, dep, true
			}
		}
		if found {
			return best
		}
	}
	s := *nextStream
	*nextStream++
	return s
}

// crossStreamWaiterCounts counts, for every unit id, how many consumers on
// a DIFFERENT stream depend on it -- same-stream consumers are already
// ordered and never wait on an event, so they don't count toward a slot's
// multiplicity.
func crossStreamWaiterCounts(units []planner.Unit, unitStream map[planner.UnitID]apicalls.StreamID) map[planner.UnitID]int {
	counts := map[planner.UnitID]int{}
	for _, u := range units {
		for _, dep := range u.DependsOn {
			if unitStream[dep] != unitStream[u.ID] {
				counts[dep]++
			}
		}
	}
	return counts
}
