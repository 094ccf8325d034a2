// Package dynamics defines the DEVS-with-ports Dynamics contract (spec
// §4.D) plus the capability-probe subtypes Executive and Observer, and
// an embeddable BaseDynamics default that real models embed the way the
// teacher's event types embed BaseEvent (see
// sim/cluster/events.go:BaseEvent). Embedding — not inheritance — is
// Go's native way to give every model a working confluent_transition
// default while letting it override exactly the methods it cares about.
package dynamics

import (
	"github.com/vle-kernel/vle/devs"
)

// ModelRef is the narrow handle a Dynamics receives in place of the full
// graph node, mirroring loader.ModelRef. Kept separate (rather than
// importing devs/loader) so devs/dynamics has no dependency on the
// loader package; the coordinator's path-only model reference satisfies
// both.
type ModelRef interface {
	Path() string
}

// ObservationRequest names what a view is asking an atomic model to
// snapshot.
type ObservationRequest struct {
	View string
	Port string
}

// Dynamics is the contract every atomic model implements (spec §4.D
// table). All methods are called by the Simulator/Coordinator only —
// models never call their own or a sibling's Dynamics methods directly.
type Dynamics interface {
	// Init initializes state at t0 and returns the first time-advance τ.
	Init(t0 devs.Time) devs.Time

	// TimeAdvance returns the remaining time to the next internal event,
	// in [0, devs.Infinity].
	TimeAdvance() devs.Time

	// Output is called just before InternalTransition and returns the
	// events to emit on this firing.
	Output(t devs.Time) []devs.Event

	// InternalTransition consumes "I am firing".
	InternalTransition(t devs.Time)

	// ExternalTransition consumes a non-empty bag of inbound events.
	ExternalTransition(events []devs.Event, t devs.Time)

	// ConfluentTransition handles an internal and external event
	// coinciding at t.
	ConfluentTransition(t devs.Time, events []devs.Event)

	// Observation produces a snapshot Value for a view/port pair.
	Observation(req ObservationRequest) devs.Value

	// Finish is called once at t_end for every surviving model.
	Finish()

	// IsExecutive and IsObserver are the capability probes from spec
	// §4.D. A plain Dynamics returns false, false; BaseDynamics supplies
	// that default.
	IsExecutive() bool
	IsObserver() bool
}

// BaseDynamics is embedded by concrete models to get a working
// ConfluentTransition default and false capability probes for free,
// exactly as the teacher's event types embed BaseEvent to get Timestamp,
// EventID, and Type for free. BaseDynamics has no Init, TimeAdvance,
// Output, InternalTransition, ExternalTransition, Finish or Observation
// methods: the embedding type must implement all of them itself, or it
// does not satisfy Dynamics.
type BaseDynamics struct {
	// Self must be set by the embedding model's constructor to point at
	// itself, so ConfluentTransition's default can call through to the
	// overridden InternalTransition/ExternalTransition rather than
	// BaseDynamics's own (which don't exist — Dynamics is an interface,
	// not BaseDynamics' method set). Concretely: Self holds the full
	// Dynamics implementation.
	Self Dynamics
}

// ConfluentTransition is the spec §4.D default: internal_transition(t)
// then external_transition(events, t). Models that need the other order
// or a bespoke merge override ConfluentTransition directly on their own
// type; Go's method resolution picks the override over this embedded
// one automatically.
func (b *BaseDynamics) ConfluentTransition(t devs.Time, events []devs.Event) {
	b.Self.InternalTransition(t)
	b.Self.ExternalTransition(events, t)
}

// IsExecutive default: false. Models that mutate the graph embed
// BaseExecutive instead of BaseDynamics, or override this method.
func (b *BaseDynamics) IsExecutive() bool { return false }

// IsObserver default: false. ObserverWrapper, in this package, reports
// true.
func (b *BaseDynamics) IsObserver() bool { return false }

// ExecutiveOps is the restricted handle an Executive's transition
// functions use to mutate the graph mid-run (spec §4.H). It is declared
// here, not in devs/coordinator, so extension authors implementing an
// Executive never need to import devs/coordinator — only
// devs/coordinator needs to implement it, avoiding an import cycle
// (coordinator already imports dynamics to drive Dynamics methods).
type ExecutiveOps interface {
	// CreateModel creates a new atomic simulator within the Executive's
	// own parent coupled model, initialises it at the current time, and
	// schedules it.
	CreateModel(name string, descriptor ModuleDescriptor, conditions map[string]devs.Value, observable bool) (ModelRef, error)

	// DeleteModel invalidates every pending event for the simulator at
	// path, severs its connections, calls its Finish, and releases it.
	DeleteModel(path string) error

	// AddConnection and RemoveConnection mutate the internal connection
	// table of the coupled model at parentPath.
	AddConnection(parentPath string, srcPath, srcPort, dstPath, dstPort string) error
	RemoveConnection(parentPath string, srcPath, srcPort, dstPath, dstPort string) error

	// AddInputPort, AddOutputPort, RemoveInputPort, RemoveOutputPort
	// mutate modelPath's port set.
	AddInputPort(modelPath, name string) error
	AddOutputPort(modelPath, name string) error
	RemoveInputPort(modelPath, name string) error
	RemoveOutputPort(modelPath, name string) error
}

// ModuleDescriptor names a loadable unit without devs/dynamics needing
// to import devs/loader.Descriptor directly; devs/loader.Descriptor
// satisfies this shape and coordinator converts between them at the
// call boundary.
type ModuleDescriptor struct {
	Package string
	Library string
}

// Executive is a Dynamics subtype with graph-mutation capability (spec
// §4.C, §4.H). BindOps is called once by the Coordinator when the
// Executive's owning simulator is built, handing it the restricted
// handle; the Executive's transition methods use it to perform
// structural mutations. Each call is applied to the graph and the event
// table at once, while the Executive's own transition is still running;
// no mutation is deferred until that transition returns.
type Executive interface {
	Dynamics
	BindOps(ops ExecutiveOps)
}

// BaseExecutive embeds BaseDynamics and stores the bound ExecutiveOps
// handle, overriding IsExecutive to true.
type BaseExecutive struct {
	BaseDynamics
	Ops ExecutiveOps
}

func (b *BaseExecutive) IsExecutive() bool { return true }

func (b *BaseExecutive) BindOps(ops ExecutiveOps) { b.Ops = ops }

// IsExecutive reports whether d is an Executive, via the capability
// probe rather than a type assertion — matching spec §4.D's
// is_executive().
func IsExecutive(d Dynamics) bool { return d.IsExecutive() }

// IsObserver reports whether d is an Observer.
func IsObserver(d Dynamics) bool { return d.IsObserver() }
