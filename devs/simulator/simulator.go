// Package simulator implements the Simulator (spec §4.E): the
// per-atomic-model wrapper around a Dynamics that the Event Table and
// Coordinator schedule. It mirrors the teacher's InstanceSimulator
// (sim/cluster/instance.go), which wraps a lower-level sim.Simulator to
// give the cluster coordinator an interception point — here the
// wrapped unit is a devs/dynamics.Dynamics instead of an inference
// engine, and the wrapper additionally carries the scheduling
// book-keeping (t_last, t_next, insertion index) that the Event Table
// needs per spec §4.F.
package simulator

import (
	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
)

// Kind tags how a Simulator is firing within the current bag (spec
// §4.F/§4.G): INTERNAL, EXTERNAL, or CONFLUENT when both coincide.
type Kind int

const (
	None Kind = iota
	Internal
	External
	Confluent
)

// Simulator wraps a Dynamics instance bound to one atomic model in the
// graph. Not safe for concurrent use; the Coordinator drives every
// Simulator from its single event loop goroutine (spec §13).
type Simulator struct {
	path     string
	Dynamics dynamics.Dynamics

	TLast devs.Time
	TNext devs.Time

	// Inbox is not written by the Coordinator or the Event Table: pending
	// external events are held in the Event Table and handed over through
	// each bag entry's Events.
	Inbox []devs.Event

	// InsertionIndex is assigned once, at build time, and used as the
	// deterministic tie-break for simulators sharing a t_next (spec
	// §4.F: "ties broken by simulator insertion order").
	InsertionIndex int

	// Kind is not written by the Coordinator; the classification within
	// the bag being processed is carried by each bag entry's Kind.
	Kind Kind
}

// New wraps a Dynamics at path, with InsertionIndex fixed at build time.
func New(path string, d dynamics.Dynamics, insertionIndex int) *Simulator {
	return &Simulator{
		path:           path,
		Dynamics:       d,
		InsertionIndex: insertionIndex,
	}
}

// Path implements devs.SourceRef, loader.ModelRef, and
// dynamics.ModelRef, so Events and factories carry a handle without
// those packages depending on simulator.
func (s *Simulator) Path() string { return s.path }

// Init calls Dynamics.Init(t0) and sets TLast/TNext accordingly (spec
// §4.E).
func (s *Simulator) Init(t0 devs.Time) {
	tau := s.Dynamics.Init(t0)
	s.TLast = t0
	s.TNext = t0.Add(tau)
}

// Reschedule recomputes TNext from the Dynamics' current TimeAdvance()
// after a transition at t (spec §4.G step 2: "tau =
// sim.dynamics.time_advance(); event_table.schedule_internal(sim, t +
// tau)"). The caller is responsible for informing the Event Table of the
// new TNext.
func (s *Simulator) Reschedule(t devs.Time) devs.Time {
	tau := s.Dynamics.TimeAdvance()
	s.TLast = t
	s.TNext = t.Add(tau)
	return s.TNext
}
