// Package eventtable implements the Event Table (spec §4.F) — the
// scheduler the spec calls out as the hard part. It produces the next
// bag of simultaneous simulator activations from three sources: a
// lazily-invalidated internal heap, a per-simulator external inbox map,
// and a lazily-invalidated observation heap.
//
// The tie-break discipline (timestamp, then a secondary key, then a
// monotonic sequence number) and the lazy-invalidation idea — mark an
// entry dead instead of doing heap surgery — are both grounded directly
// on the teacher's two priority queues: sim/cluster/event_heap.go's
// EventHeap (timestamp → type priority → event ID) and
// sim/cluster/cluster_event.go's ClusterEventQueue (timestamp →
// priority → seqID). Neither of those queues does lazy invalidation,
// though — that comes from VLE's own devs::EventTable
// (original_source/src/vle/devs/EventTable.cpp), which keeps a
// "scheduled pointer" per model and marks old entries invalid rather
// than searching the heap to remove them.
package eventtable

import (
	"container/heap"
	"sort"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/simulator"
)

// internalEntry is one scheduled internal-transition slot. alive is
// flipped false by ScheduleInternal/Invalidate/Delete instead of
// removing the entry from the heap; PopBag and NextTime discard dead
// heads lazily.
type internalEntry struct {
	sim   *simulator.Simulator
	t     devs.Time
	alive bool
}

// internalHeap implements container/heap.Interface, ordered by (t,
// sim.InsertionIndex) — the deterministic tie-break spec §4.F requires.
type internalHeap []*internalEntry

func (h internalHeap) Len() int { return len(h) }
func (h internalHeap) Less(i, j int) bool {
	if !h[i].t.Equal(h[j].t) {
		return h[i].t.Less(h[j].t)
	}
	return h[i].sim.InsertionIndex < h[j].sim.InsertionIndex
}
func (h internalHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *internalHeap) Push(x any)   { *h = append(*h, x.(*internalEntry)) }
func (h *internalHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// inbox holds a simulator's pending external events, split into regular
// deliveries and synchronous request deliveries (spec §4.F.4 and the
// routing "request" convention of §4.G).
type inbox struct {
	regular []devs.Event
	request []devs.Event
}

func (b *inbox) empty() bool { return len(b.regular) == 0 && len(b.request) == 0 }

// observationEntry is one scheduled view firing. alive mirrors
// internalEntry's lazy-invalidation discipline.
type observationEntry struct {
	t     devs.Time
	seq   int64
	view  string
	port  string
	sim   *simulator.Simulator
	alive bool
}

type observationHeap []*observationEntry

func (h observationHeap) Len() int { return len(h) }
func (h observationHeap) Less(i, j int) bool {
	if !h[i].t.Equal(h[j].t) {
		return h[i].t.Less(h[j].t)
	}
	return h[i].seq < h[j].seq
}
func (h observationHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *observationHeap) Push(x any)   { *h = append(*h, x.(*observationEntry)) }
func (h *observationHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// ObservationFiring is one due view/port snapshot request, ready for the
// Coordinator to hand to the view registry.
type ObservationFiring struct {
	View string
	Port string
	Sim  *simulator.Simulator
}

// BagEntry is one simulator's activation within a Bag.
type BagEntry struct {
	Sim    *simulator.Simulator
	Kind   simulator.Kind
	Events []devs.Event // external/confluent payload; nil for pure internal
}

// Bag is the minimal nonempty set of simultaneous activations that
// share a time, or a pure observation firing when no transitions are
// due (spec §4.F.2).
type Bag struct {
	Time            devs.Time
	Entries         []*BagEntry
	Observations    []ObservationFiring
	ObservationOnly bool
}

// Table is the Event Table. Not safe for concurrent use — the
// Coordinator is the sole caller, from its single event-loop goroutine
// (spec §13).
type Table struct {
	internal       internalHeap
	activeInternal map[*simulator.Simulator]*internalEntry

	externalByTarget map[*simulator.Simulator]*inbox

	observations   observationHeap
	obsBySim       map[*simulator.Simulator][]*observationEntry
	obsSeq         int64

	currentTime devs.Time
}

// New returns an empty Table with current_time initialised to t0.
func New(t0 devs.Time) *Table {
	t := &Table{
		activeInternal:   make(map[*simulator.Simulator]*internalEntry),
		externalByTarget: make(map[*simulator.Simulator]*inbox),
		obsBySim:         make(map[*simulator.Simulator][]*observationEntry),
		currentTime:      t0,
	}
	heap.Init(&t.internal)
	heap.Init(&t.observations)
	return t
}

// CurrentTime returns the table's current_time.
func (t *Table) CurrentTime() devs.Time { return t.currentTime }

// dropInvalidInternalHeads discards invalidated entries from the top of
// the internal heap.
func (t *Table) dropInvalidInternalHeads() {
	for t.internal.Len() > 0 && !t.internal[0].alive {
		heap.Pop(&t.internal)
	}
}

func (t *Table) dropInvalidObservationHeads() {
	for t.observations.Len() > 0 && !t.observations[0].alive {
		heap.Pop(&t.observations)
	}
}

// NextTime implements spec §4.F.1: an immediate bag if any external
// target is pending, else the minimum of the internal and observation
// heap heads, or devs.Infinity.
func (t *Table) NextTime() devs.Time {
	for _, ib := range t.externalByTarget {
		if !ib.empty() {
			return t.currentTime
		}
	}

	t.dropInvalidInternalHeads()
	t.dropInvalidObservationHeads()

	next := devs.Infinity
	if t.internal.Len() > 0 {
		next = devs.Min(next, t.internal[0].t)
	}
	if t.observations.Len() > 0 {
		next = devs.Min(next, t.observations[0].t)
	}
	return next
}

// ScheduleInternal implements spec §4.F.3.
func (t *Table) ScheduleInternal(sim *simulator.Simulator, tNew devs.Time) {
	if old, ok := t.activeInternal[sim]; ok {
		old.alive = false
	}
	e := &internalEntry{sim: sim, t: tNew, alive: true}
	heap.Push(&t.internal, e)
	t.activeInternal[sim] = e
}

// ScheduleExternal implements spec §4.F.4.
func (t *Table) ScheduleExternal(sim *simulator.Simulator, events []devs.Event, request bool) {
	ib, ok := t.externalByTarget[sim]
	if !ok {
		ib = &inbox{}
		t.externalByTarget[sim] = ib
	}
	if request {
		ib.request = append(ib.request, events...)
	} else {
		ib.regular = append(ib.regular, events...)
	}

	if active, ok := t.activeInternal[sim]; ok && active.alive && t.currentTime.Less(active.t) {
		active.alive = false
	}
}

// Invalidate implements spec §4.F.5: mark every heap entry bound to sim
// dead, and clear its external inbox and observation bindings.
func (t *Table) Invalidate(sim *simulator.Simulator) {
	if e, ok := t.activeInternal[sim]; ok {
		e.alive = false
		delete(t.activeInternal, sim)
	}
	delete(t.externalByTarget, sim)
	for _, oe := range t.obsBySim[sim] {
		oe.alive = false
	}
	delete(t.obsBySim, sim)
}

// Delete implements spec §4.F.6: identical to Invalidate, plus dropping
// book-keeping — which, with this map-based representation, Invalidate
// already does in full.
func (t *Table) Delete(sim *simulator.Simulator) {
	t.Invalidate(sim)
}

// ScheduleObservation schedules a view/port firing against sim at time
// tDue.
func (t *Table) ScheduleObservation(sim *simulator.Simulator, view, port string, tDue devs.Time) {
	e := &observationEntry{t: tDue, seq: t.obsSeq, view: view, port: port, sim: sim, alive: true}
	t.obsSeq++
	heap.Push(&t.observations, e)
	t.obsBySim[sim] = append(t.obsBySim[sim], e)
}

// PopBag implements spec §4.F.2.
func (t *Table) PopBag(at devs.Time) *Bag {
	byS := make(map[*simulator.Simulator]*BagEntry)
	var order []*simulator.Simulator

	for t.internal.Len() > 0 && t.internal[0].t.LessOrEqual(at) {
		e := heap.Pop(&t.internal).(*internalEntry)
		if !e.alive {
			continue
		}
		if !e.t.Equal(at) {
			// Should not happen if the caller always pops NextTime(); a
			// stale earlier entry would indicate a scheduling bug.
			continue
		}
		be := &BagEntry{Sim: e.sim, Kind: simulator.Internal}
		byS[e.sim] = be
		order = append(order, e.sim)
		delete(t.activeInternal, e.sim)
	}

	var extTargets []*simulator.Simulator
	for sim, ib := range t.externalByTarget {
		if !ib.empty() {
			extTargets = append(extTargets, sim)
		}
	}
	sort.Slice(extTargets, func(i, j int) bool {
		return extTargets[i].InsertionIndex < extTargets[j].InsertionIndex
	})
	for _, sim := range extTargets {
		ib := t.externalByTarget[sim]
		events := make([]devs.Event, 0, len(ib.regular)+len(ib.request))
		events = append(events, ib.regular...)
		events = append(events, ib.request...)
		delete(t.externalByTarget, sim)

		if be, ok := byS[sim]; ok {
			be.Kind = simulator.Confluent
			be.Events = events
		} else {
			be = &BagEntry{Sim: sim, Kind: simulator.External, Events: events}
			byS[sim] = be
			order = append(order, sim)
		}
	}

	if len(order) == 0 {
		obs := t.collectObservationsUpTo(at)
		t.currentTime = at
		return &Bag{Time: at, ObservationOnly: true, Observations: obs}
	}

	sort.SliceStable(order, func(i, j int) bool {
		iExec, jExec := order[i].Dynamics.IsExecutive(), order[j].Dynamics.IsExecutive()
		if iExec != jExec {
			return !iExec // non-executives first
		}
		return order[i].InsertionIndex < order[j].InsertionIndex
	})

	// Entries alias the very *BagEntry byS already built, not copies: a
	// target swept into this same bag as a plain Internal must still be
	// reachable for the Coordinator to upgrade in place to Confluent when
	// a sibling's routed output lands on it during this bag's Output
	// step (spec §8 S2, invariant 5 — exactly one transition call).
	entries := make([]*BagEntry, len(order))
	for i, sim := range order {
		entries[i] = byS[sim]
	}

	t.currentTime = at
	return &Bag{Time: at, Entries: entries}
}

// collectObservationsUpTo drains every due observation entry with time
// <= at (spec §4.F.2's observation-only fallback, and §4.G's
// fire_observations_up_to step).
func (t *Table) collectObservationsUpTo(at devs.Time) []ObservationFiring {
	var out []ObservationFiring
	for t.observations.Len() > 0 && t.observations[0].t.LessOrEqual(at) {
		e := heap.Pop(&t.observations).(*observationEntry)
		if !e.alive {
			continue
		}
		out = append(out, ObservationFiring{View: e.view, Port: e.port, Sim: e.sim})
		bound := t.obsBySim[e.sim]
		for i, cand := range bound {
			if cand == e {
				t.obsBySim[e.sim] = append(bound[:i], bound[i+1:]...)
				break
			}
		}
	}
	return out
}

// CollectObservationsUpTo drains due observations without requiring a
// PopBag call — used by the Coordinator's step 3 (spec §4.G:
// "fire_observations_up_to(t)") after transitions have already been
// applied for a transition bag.
func (t *Table) CollectObservationsUpTo(at devs.Time) []ObservationFiring {
	return t.collectObservationsUpTo(at)
}
