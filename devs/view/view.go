// Package view implements the View / Observer machinery (spec §4.I):
// the three scheduling kinds (Timed, Event, Finish), the (t, model_path,
// port, value) tuple every firing produces, and the five-entry-point
// output plug-in ABI (spec §6.3) that devs/output implements against.
//
// Grounded on the teacher's own observation surface: sim/trace/trace.go
// streams per-step records to a sink, and sim/metrics.go's aggregate
// Print convention is the model for Plugin.Finish returning an optional
// aggregated Value. logrus is used for the plug-ins' own diagnostics the
// way cmd/root.go configures it kernel-wide.
package view

import (
	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
	"github.com/vle-kernel/vle/devs/eventtable"
	"github.com/vle-kernel/vle/devs/simulator"
)

func observationRequest(view, port string) dynamics.ObservationRequest {
	return dynamics.ObservationRequest{View: view, Port: port}
}

// Kind is one of the three view scheduling disciplines (spec §4.I).
type Kind int

const (
	Timed Kind = iota
	Event
	Finish
)

// Tuple is what a single firing produces, forwarded to every plug-in
// bound to the firing's view.
type Tuple struct {
	T         devs.Time
	ModelPath string
	Port      string
	Value     devs.Value
}

// Plugin is the output plug-in ABI (spec §4.I / §6.3): five entry
// points, plus FlushByBag opting into per-bag grouping instead of
// per-tuple delivery.
type Plugin interface {
	OnParameter(config map[string]devs.Value)
	OnNewObservable(name string)
	OnValue(t Tuple)
	OnDeleteObservable(name string)
	// Finish is called once at t_end. It may return an aggregated Value
	// (e.g. a Matrix); ok is false when the plug-in has nothing to
	// contribute.
	Finish(tEnd devs.Time) (result devs.Value, ok bool)
	// FlushByBag reports whether this plug-in wants Tuples buffered and
	// delivered in bag-sized groups (via OnBagFlush) rather than as each
	// Fire call produces them.
	FlushByBag() bool
	// OnBagFlush receives a bag's buffered tuples at once, for plug-ins
	// with FlushByBag() true.
	OnBagFlush(tuples []Tuple)
}

// View binds a scheduling discipline to a set of (simulator, port)
// observation points and the plug-ins that should receive its tuples.
type View struct {
	Name    string
	Kind    Kind
	Step    devs.Time // Timed only
	Plugins []Plugin

	bindings []binding
}

type binding struct {
	sim  *simulator.Simulator
	port string
}

// Bind registers sim/port as an observation point for this view. Called
// while building the scenario's observable catalogue (spec §6.1).
func (v *View) Bind(sim *simulator.Simulator, port string) {
	v.bindings = append(v.bindings, binding{sim: sim, port: port})
}

// Registry owns every View in a run and dispatches firings to plug-ins.
type Registry struct {
	views []*View

	// buffered holds tuples queued for plug-ins with FlushByBag() true,
	// keyed by plug-in identity, until FlushBag is called.
	buffered map[Plugin][]Tuple

	// tEnd is recorded by ScheduleInitialFirings so Fire can decide
	// whether to reschedule a Timed view's next periodic firing.
	tEnd devs.Time
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{buffered: make(map[Plugin][]Tuple)}
}

// Add registers a View, broadcasting OnParameter/OnNewObservable to its
// plug-ins immediately.
func (r *Registry) Add(v *View, config map[string]devs.Value) {
	r.views = append(r.views, v)
	for _, p := range v.Plugins {
		p.OnParameter(config)
		p.OnNewObservable(v.Name)
	}
}

// ScheduleInitialFirings schedules every Timed view's first firing at
// tBegin and every Finish view's single firing at tEnd (spec §4.I).
// Event views are not scheduled through the Event Table at all — they
// fire reactively via NotifyTransition whenever their bound simulator
// transitions.
func (r *Registry) ScheduleInitialFirings(table *eventtable.Table, tBegin, tEnd devs.Time) {
	for _, v := range r.views {
		switch v.Kind {
		case Timed:
			for _, b := range v.bindings {
				table.ScheduleObservation(b.sim, v.Name, b.port, tBegin)
			}
		case Finish:
			for _, b := range v.bindings {
				table.ScheduleObservation(b.sim, v.Name, b.port, tEnd)
			}
		}
	}
	r.tEnd = tEnd
}

func (r *Registry) viewByName(name string) *View {
	for _, v := range r.views {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Fire runs one scheduled observation firing: it calls
// Observation(view, port) on the bound Dynamics, builds the resulting
// Tuple, dispatches it to the view's plug-ins (buffering for those with
// FlushByBag), and — for a Timed view — reschedules the next periodic
// firing if it still falls within tEnd.
func (r *Registry) Fire(table *eventtable.Table, firing eventtable.ObservationFiring) {
	v := r.viewByName(firing.View)
	if v == nil {
		return
	}
	t := table.CurrentTime()
	value := firing.Sim.Dynamics.Observation(observationRequest(v.Name, firing.Port))
	tup := Tuple{T: t, ModelPath: firing.Sim.Path(), Port: firing.Port, Value: value}
	r.dispatch(v, tup)

	if v.Kind == Timed && !v.Step.IsInfinite() {
		next := t.Add(v.Step)
		if next.LessOrEqual(r.tEnd) {
			table.ScheduleObservation(firing.Sim, v.Name, firing.Port, next)
		}
	}
}

func (r *Registry) dispatch(v *View, tup Tuple) {
	for _, p := range v.Plugins {
		if p.FlushByBag() {
			r.buffered[p] = append(r.buffered[p], tup)
		} else {
			p.OnValue(tup)
		}
	}
}

// FlushBag delivers every plug-in's buffered tuples for the bag that
// just closed (spec §4.I: "flushes them on bag close (exact-time
// grouping)") and clears the buffer.
func (r *Registry) FlushBag() {
	for p, tuples := range r.buffered {
		if len(tuples) == 0 {
			continue
		}
		p.OnBagFlush(tuples)
		r.buffered[p] = tuples[:0]
	}
}

// NotifyTransition fires every Event view bound to sim, regardless of
// which input/output port the transition happened on — the binding's
// own port is what gets observed, not the port the transition fired
// through (spec §4.I: "fires whenever the bound simulator undergoes a
// transition").
func (r *Registry) NotifyTransition(sim *simulator.Simulator, t devs.Time) {
	for _, v := range r.views {
		if v.Kind != Event {
			continue
		}
		for _, b := range v.bindings {
			if b.sim != sim {
				continue
			}
			value := sim.Dynamics.Observation(observationRequest(v.Name, b.port))
			r.dispatch(v, Tuple{T: t, ModelPath: sim.Path(), Port: b.port, Value: value})
		}
	}
}

// FinishAll calls Plugin.Finish on every plug-in across every view once,
// at t_end, collecting each plug-in's optional aggregated result keyed
// by plug-in identity via the order it first appeared.
func (r *Registry) FinishAll(tEnd devs.Time) map[Plugin]devs.Value {
	seen := make(map[Plugin]bool)
	out := make(map[Plugin]devs.Value)
	for _, v := range r.views {
		for _, p := range v.Plugins {
			if seen[p] {
				continue
			}
			seen[p] = true
			if result, ok := p.Finish(tEnd); ok {
				out[p] = result
			}
		}
	}
	return out
}
