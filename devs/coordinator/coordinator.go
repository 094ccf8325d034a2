// Package coordinator implements the Coordinator driver loop (spec
// §4.G), the routing algorithm it uses to turn a λ-emitted event into
// scheduled external deliveries, and the Executive bridge (spec §4.H)
// that lets an Executive mutate the graph mid-run.
//
// The shared-clock while-loop shape — pop the next due time, build a
// bag, run outputs then transitions, then drain observations — is
// grounded on the teacher's ClusterSimulator.Run() (sim/cluster/cluster.go),
// which drives cluster events and instance events off one clock in
// exactly this collect-then-apply order. Routing's hierarchical
// external-out/internal walk has no teacher analogue (the teacher's
// routing is a flat policy lookup, not port wiring) and is grounded
// directly on the spec text and VLE's GraphTranslator
// (original_source/src/vle/translator/GraphTranslator.cpp).
package coordinator

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
	"github.com/vle-kernel/vle/devs/eventtable"
	"github.com/vle-kernel/vle/devs/graph"
	"github.com/vle-kernel/vle/devs/kerrors"
	"github.com/vle-kernel/vle/devs/loader"
	"github.com/vle-kernel/vle/devs/simulator"
	"github.com/vle-kernel/vle/devs/view"
)

// requestPortName is the input-port naming convention that marks a
// connection as a synchronous request route (spec §4.G).
const requestPortName = "request"

// Coordinator owns the root coupled model, the Event Table, the
// registry of built Simulators keyed by graph path, and the view
// registry. It runs the single event-loop goroutine that drives every
// Simulator and Dynamics method call (spec §13: no concurrent access to
// shared kernel state).
type Coordinator struct {
	Graph    *graph.Graph
	Loader   *loader.Registry
	Views    *view.Registry
	Table    *eventtable.Table
	TBegin   devs.Time
	TEnd     devs.Time

	sims      map[graph.NodeID]*simulator.Simulator
	simsByPath map[string]*simulator.Simulator
	nextIndex int

	hasRun bool

	// Results holds each output plug-in's optional Finish() return
	// value, populated once Run completes.
	Results map[view.Plugin]devs.Value

	// inFlightRequest tracks the set of simulators currently on an
	// in-progress synchronous request chain, to detect RoutingCycle.
	inFlightRequest map[*simulator.Simulator]bool

	// currentBag indexes the bag Run() is currently driving through its
	// Output step, keyed by simulator. Routing consults it so that a
	// target already in this same bag (scheduled for its own internal
	// transition) gets its pending entry upgraded to Confluent in place,
	// instead of a separate external delivery landing one bag later
	// (spec §8 S2, invariant 5). nil outside of that step.
	currentBag map[*simulator.Simulator]*eventtable.BagEntry
}

// New constructs a Coordinator over g, ready to build simulators from
// loaded descriptors via reg, observed by views.
func New(g *graph.Graph, reg *loader.Registry, views *view.Registry, tBegin, tEnd devs.Time) *Coordinator {
	return &Coordinator{
		Graph:           g,
		Loader:          reg,
		Views:           views,
		Table:           eventtable.New(tBegin),
		TBegin:          tBegin,
		TEnd:            tEnd,
		sims:            make(map[graph.NodeID]*simulator.Simulator),
		simsByPath:      make(map[string]*simulator.Simulator),
		inFlightRequest: make(map[*simulator.Simulator]bool),
	}
}

// nodeRef adapts a graph.NodeID to loader.ModelRef / dynamics.ModelRef.
type nodeRef struct {
	path string
}

func (r nodeRef) Path() string { return r.path }

// buildSimulator resolves id's descriptor through the loader, wraps the
// result as a Simulator, registers it, and binds Executive ops if
// applicable (spec §4.G initialise_all, §4.H).
func (c *Coordinator) buildSimulator(id graph.NodeID, initValues map[string]devs.Value) (*simulator.Simulator, error) {
	path, err := c.Graph.Path(id)
	if err != nil {
		return nil, err
	}
	descriptor, err := c.Graph.Descriptor(id)
	if err != nil {
		return nil, err
	}
	built, err := c.Loader.Build(descriptor, nodeRef{path: path}, initValues)
	if err != nil {
		return nil, err
	}
	d, ok := built.(dynamics.Dynamics)
	if !ok {
		return nil, kerrors.New(kerrors.SymbolMissing, "coordinator.buildSimulator",
			fmt.Errorf("%s: loaded module does not implement dynamics.Dynamics", path))
	}
	if exec, ok := d.(dynamics.Executive); ok {
		exec.BindOps(&executiveHandle{c: c, ownerPath: path})
	}

	sim := simulator.New(path, d, c.nextIndex)
	c.nextIndex++
	c.sims[id] = sim
	c.simsByPath[path] = sim
	return sim, nil
}

// InitializeAll walks the graph depth-first, builds a Simulator for
// every atomic model, and schedules its first internal event (spec
// §4.G initialise_all).
func (c *Coordinator) InitializeAll(initValuesByPath map[string]map[string]devs.Value) error {
	var walk func(id graph.NodeID) error
	walk = func(id graph.NodeID) error {
		kind, err := c.Graph.Kind(id)
		if err != nil {
			return err
		}
		if kind == graph.Atomic {
			path, _ := c.Graph.Path(id)
			sim, err := c.buildSimulator(id, initValuesByPath[path])
			if err != nil {
				return err
			}
			sim.Init(c.TBegin)
			c.Table.ScheduleInternal(sim, sim.TNext)
			return nil
		}
		children, err := c.Graph.Children(id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(c.Graph.Root())
}

// SimulatorAt returns the built Simulator at path, for callers (the CLI,
// view binding) that need to attach a View after InitializeAll has run.
func (c *Coordinator) SimulatorAt(path string) (*simulator.Simulator, error) {
	sim, ok := c.simsByPath[path]
	if !ok {
		return nil, kerrors.New(kerrors.NotFound, "coordinator.SimulatorAt", fmt.Errorf("no simulator built at %s", path))
	}
	return sim, nil
}

// Run executes the driver loop from TBegin through TEnd (spec §4.G).
// Panics if called more than once, matching the teacher's
// ClusterSimulator.Run() single-use contract.
func (c *Coordinator) Run() error {
	if c.hasRun {
		panic("coordinator.Coordinator.Run() called more than once")
	}
	c.hasRun = true

	c.Views.ScheduleInitialFirings(c.Table, c.TBegin, c.TEnd)

	for c.Table.CurrentTime().LessOrEqual(c.TEnd) {
		t := c.Table.NextTime()
		if t.IsInfinite() || c.TEnd.Less(t) {
			break
		}

		bag := c.Table.PopBag(t)
		logProgress(t, len(bag.Entries))
		if bag.ObservationOnly {
			c.fireObservations(bag)
			c.Views.FlushBag()
			continue
		}

		c.currentBag = make(map[*simulator.Simulator]*eventtable.BagEntry, len(bag.Entries))
		for _, entry := range bag.Entries {
			c.currentBag[entry.Sim] = entry
		}

		for _, entry := range bag.Entries {
			if entry.Kind == simulator.Internal || entry.Kind == simulator.Confluent {
				events := entry.Sim.Dynamics.Output(t)
				if err := c.route(entry.Sim, events); err != nil {
					c.currentBag = nil
					return err
				}
			}
		}
		c.currentBag = nil

		for _, entry := range bag.Entries {
			switch entry.Kind {
			case simulator.Internal:
				entry.Sim.Dynamics.InternalTransition(t)
			case simulator.External:
				entry.Sim.Dynamics.ExternalTransition(entry.Events, t)
			case simulator.Confluent:
				entry.Sim.Dynamics.ConfluentTransition(t, entry.Events)
			}
			c.Views.NotifyTransition(entry.Sim, t)
			next := entry.Sim.Reschedule(t)
			c.Table.ScheduleInternal(entry.Sim, next)
		}

		for _, firing := range c.Table.CollectObservationsUpTo(t) {
			c.Views.Fire(c.Table, firing)
		}
		c.Views.FlushBag()
	}

	for _, sim := range c.sims {
		sim.Dynamics.Finish()
	}
	c.Results = c.Views.FinishAll(c.TEnd)
	return nil
}

func (c *Coordinator) fireObservations(bag *eventtable.Bag) {
	for _, firing := range bag.Observations {
		c.Views.Fire(c.Table, firing)
	}
}

// route implements spec §4.G's routing algorithm from a λ-emitted event.
func (c *Coordinator) route(src *simulator.Simulator, events []devs.Event) error {
	srcPath := src.Path()
	id, err := c.Graph.Find(srcPath)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := c.routeOne(id, ev.OutputPort(), ev); err != nil {
			return err
		}
	}
	return nil
}

// routeOne walks external-out connections upward and internal
// connections sideways from (node, port), scheduling a delivery at
// every atomic-model input port it reaches.
func (c *Coordinator) routeOne(node graph.NodeID, port string, ev devs.Event) error {
	parent, err := c.Graph.Parent(node)
	if err != nil {
		return err
	}
	if parent == -1 {
		// node is the root; nothing above it to route to.
		return nil
	}

	dests, err := c.Graph.InternalTargets(parent, node, port)
	if err != nil {
		return err
	}
	for _, d := range dests {
		if err := c.deliverOrRecurse(d.Node, d.Port, ev); err != nil {
			return err
		}
	}

	outerPorts, err := c.Graph.ExternalOutTargets(parent, node, port)
	if err != nil {
		return err
	}
	for _, outerPort := range outerPorts {
		if err := c.routeOne(parent, outerPort, ev); err != nil {
			return err
		}
	}
	return nil
}

// deliverOrRecurse delivers ev to (node, port) if node is atomic, or
// recurses into node's external-in table if node is coupled.
func (c *Coordinator) deliverOrRecurse(node graph.NodeID, port string, ev devs.Event) error {
	kind, err := c.Graph.Kind(node)
	if err != nil {
		return err
	}
	if kind == graph.Coupled {
		dests, err := c.Graph.ExternalInTargets(node, port)
		if err != nil {
			return err
		}
		for _, d := range dests {
			if err := c.deliverOrRecurse(d.Node, d.Port, ev); err != nil {
				return err
			}
		}
		return nil
	}

	path, _ := c.Graph.Path(node)
	dst := c.simsByPath[path]
	if dst == nil {
		return kerrors.New(kerrors.NotFound, "coordinator.route", fmt.Errorf("no simulator built for %s", path))
	}
	bound := ev.WithInputPort(port)

	if port == requestPortName {
		return c.deliverRequest(dst, bound)
	}
	c.deliverExternal(dst, []devs.Event{bound})
	return nil
}

// deliverExternal schedules events for dst. If dst already has an entry
// in the bag Run() is currently driving through its Output step, the
// events are fused directly into that entry instead of going through
// the Event Table: dst's own Internal-kind entry is upgraded in place to
// Confluent, so the transition loop that follows makes exactly one
// ConfluentTransition call rather than splitting into a same-timestamp
// Internal/External pair across two bags (spec §8 S2, invariant 5).
// Outside of that step — dst not due this bag, or already External —
// this is the ordinary Event Table delivery.
func (c *Coordinator) deliverExternal(dst *simulator.Simulator, events []devs.Event) {
	if entry, ok := c.currentBag[dst]; ok {
		entry.Events = append(entry.Events, events...)
		if entry.Kind == simulator.Internal {
			entry.Kind = simulator.Confluent
		}
		return
	}
	c.Table.ScheduleExternal(dst, events, false)
}

// deliverRequest implements the synchronous request convention of spec
// §4.G: the target's output(t) is invoked immediately and routed back
// to the requester before the normal external delivery is scheduled.
// Cycles — a request chain revisiting a simulator already in flight —
// raise RoutingCycle.
func (c *Coordinator) deliverRequest(dst *simulator.Simulator, ev devs.Event) error {
	if c.inFlightRequest[dst] {
		return kerrors.New(kerrors.RoutingCycle, "coordinator.deliverRequest",
			fmt.Errorf("request cycle revisits %s", dst.Path()))
	}
	c.inFlightRequest[dst] = true
	defer delete(c.inFlightRequest, dst)

	returned := dst.Dynamics.Output(c.Table.CurrentTime())
	if err := c.route(dst, returned); err != nil {
		return err
	}
	if entry, ok := c.currentBag[dst]; ok {
		entry.Events = append(entry.Events, ev)
		if entry.Kind == simulator.Internal {
			entry.Kind = simulator.Confluent
		}
		return nil
	}
	c.Table.ScheduleExternal(dst, []devs.Event{ev}, true)
	return nil
}

// executiveHandle is the restricted Coordinator handle bound to an
// Executive's transition functions (spec §4.H).
type executiveHandle struct {
	c         *Coordinator
	ownerPath string
}

func (h *executiveHandle) ownerNode() (graph.NodeID, error) {
	return h.c.Graph.Find(h.ownerPath)
}

// ownerParent resolves the coupled model the owning Executive itself
// lives in: the Executive's own node is atomic (it is a Dynamics with a
// Simulator, per InitializeAll's walk), so models it creates become
// siblings of the Executive under that coupled parent, not children of
// the Executive's own node.
func (h *executiveHandle) ownerParent() (graph.NodeID, error) {
	owner, err := h.ownerNode()
	if err != nil {
		return 0, err
	}
	return h.c.Graph.Parent(owner)
}

func (h *executiveHandle) CreateModel(name string, descriptor dynamics.ModuleDescriptor, conditions map[string]devs.Value, observable bool) (dynamics.ModelRef, error) {
	parent, err := h.ownerParent()
	if err != nil {
		return nil, err
	}
	id, err := h.c.Graph.AddAtomic(parent, name, loader.Descriptor(descriptor))
	if err != nil {
		return nil, err
	}
	sim, err := h.c.buildSimulator(id, conditions)
	if err != nil {
		return nil, err
	}
	sim.Init(h.c.Table.CurrentTime())
	h.c.Table.ScheduleInternal(sim, sim.TNext)
	path, _ := h.c.Graph.Path(id)
	return nodeRef{path: path}, nil
}

func (h *executiveHandle) DeleteModel(path string) error {
	id, err := h.c.Graph.Find(path)
	if err != nil {
		return err
	}
	sim := h.c.simsByPath[path]
	if sim != nil {
		h.c.Table.Delete(sim)
		sim.Dynamics.Finish()
		delete(h.c.simsByPath, path)
		delete(h.c.sims, id)
	}
	return h.c.Graph.Remove(id)
}

func (h *executiveHandle) AddConnection(parentPath, srcPath, srcPort, dstPath, dstPort string) error {
	parent, err := h.c.Graph.Find(parentPath)
	if err != nil {
		return err
	}
	src, err := h.c.Graph.Find(srcPath)
	if err != nil {
		return err
	}
	dst, err := h.c.Graph.Find(dstPath)
	if err != nil {
		return err
	}
	return h.c.Graph.ConnectInternal(parent, src, srcPort, dst, dstPort)
}

func (h *executiveHandle) RemoveConnection(parentPath, srcPath, srcPort, dstPath, dstPort string) error {
	parent, err := h.c.Graph.Find(parentPath)
	if err != nil {
		return err
	}
	src, err := h.c.Graph.Find(srcPath)
	if err != nil {
		return err
	}
	dst, err := h.c.Graph.Find(dstPath)
	if err != nil {
		return err
	}
	return h.c.Graph.Disconnect(parent, src, srcPort, dst, dstPort)
}

func (h *executiveHandle) AddInputPort(modelPath, name string) error {
	id, err := h.c.Graph.Find(modelPath)
	if err != nil {
		return err
	}
	return h.c.Graph.AddInputPort(id, name)
}

func (h *executiveHandle) AddOutputPort(modelPath, name string) error {
	id, err := h.c.Graph.Find(modelPath)
	if err != nil {
		return err
	}
	return h.c.Graph.AddOutputPort(id, name)
}

func (h *executiveHandle) RemoveInputPort(modelPath, name string) error {
	id, err := h.c.Graph.Find(modelPath)
	if err != nil {
		return err
	}
	return h.c.Graph.RemoveInputPort(id, name)
}

func (h *executiveHandle) RemoveOutputPort(modelPath, name string) error {
	id, err := h.c.Graph.Find(modelPath)
	if err != nil {
		return err
	}
	return h.c.Graph.RemoveOutputPort(id, name)
}

var _ dynamics.ExecutiveOps = (*executiveHandle)(nil)

// logProgress emits a debug line mirroring the teacher's
// logrus.Debugf convention for per-step tracing.
func logProgress(t devs.Time, bagSize int) {
	logrus.Debugf("[coordinator] t=%s bag_size=%d", t, bagSize)
}
