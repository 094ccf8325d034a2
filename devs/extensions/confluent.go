package extensions

import (
	"strings"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
	"github.com/vle-kernel/vle/devs/loader"
)

// ConfluentA is model A of the S2 scenario: emits "x" internally at
// t=3 while simultaneously receiving an external event on "in" (routed
// there by ConfluentB). Its ConfluentTransition is overridden to run
// external-then-internal, the opposite of BaseDynamics's default, so
// the order is directly observable via Observation.
type ConfluentA struct {
	dynamics.BaseDynamics
	sigma devs.Time
	order []string
}

// NewConfluentA returns a ConfluentA ready for Init.
func NewConfluentA() *ConfluentA {
	a := &ConfluentA{}
	a.Self = a
	return a
}

func (a *ConfluentA) Init(t0 devs.Time) devs.Time {
	a.sigma = devs.FromTicks(3)
	return a.sigma
}

func (a *ConfluentA) TimeAdvance() devs.Time { return a.sigma }

func (a *ConfluentA) Output(t devs.Time) []devs.Event {
	return []devs.Event{devs.NewEvent(nil, "out", map[string]devs.Value{"type": devs.StringValue("x")})}
}

func (a *ConfluentA) InternalTransition(t devs.Time) {
	a.order = append(a.order, "int")
	a.sigma = devs.Infinity
}

func (a *ConfluentA) ExternalTransition(events []devs.Event, t devs.Time) {
	a.order = append(a.order, "ext")
}

// ConfluentTransition overrides BaseDynamics's internal-then-external
// default to run external-first (spec §9 Open Questions: individual
// models may pick either order; the scheduler must honour whichever
// the model declares).
func (a *ConfluentA) ConfluentTransition(t devs.Time, events []devs.Event) {
	a.ExternalTransition(events, t)
	a.InternalTransition(t)
}

func (a *ConfluentA) Observation(req dynamics.ObservationRequest) devs.Value {
	return devs.StringValue(strings.Join(a.order, ","))
}

func (a *ConfluentA) Finish() {}

var _ dynamics.Dynamics = (*ConfluentA)(nil)

// ConfluentB is model B of the S2 scenario: a one-shot emitter of "y"
// at t=3, routed to ConfluentA's "in" port.
type ConfluentB struct {
	dynamics.BaseDynamics
	sigma devs.Time
}

// NewConfluentB returns a ConfluentB ready for Init.
func NewConfluentB() *ConfluentB {
	b := &ConfluentB{}
	b.Self = b
	return b
}

func (b *ConfluentB) Init(t0 devs.Time) devs.Time {
	b.sigma = devs.FromTicks(3)
	return b.sigma
}

func (b *ConfluentB) TimeAdvance() devs.Time { return b.sigma }

func (b *ConfluentB) Output(t devs.Time) []devs.Event {
	return []devs.Event{devs.NewEvent(nil, "out", map[string]devs.Value{"type": devs.StringValue("y")})}
}

func (b *ConfluentB) InternalTransition(t devs.Time) { b.sigma = devs.Infinity }

func (b *ConfluentB) ExternalTransition(events []devs.Event, t devs.Time) {}

func (b *ConfluentB) Observation(req dynamics.ObservationRequest) devs.Value { return devs.NullValue{} }

func (b *ConfluentB) Finish() {}

var _ dynamics.Dynamics = (*ConfluentB)(nil)

func NewConfluentAFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		return NewConfluentA(), nil
	}
}

func NewConfluentBFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		return NewConfluentB(), nil
	}
}
