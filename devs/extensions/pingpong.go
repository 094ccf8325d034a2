// Package extensions provides reference Dynamics implementations used
// by the kernel's own test scenarios (spec §8: S1-S6) and as worked
// examples for extension authors, the way VLE ships example models
// alongside its core (original_source/src/examples). None of these are
// part of the core kernel; they exist only to exercise it end to end.
package extensions

import (
	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
	"github.com/vle-kernel/vle/devs/loader"
)

// Ping is model A of the S1 ping-pong scenario: emits "ping" at t=1,
// then waits passively until it receives "pong" on its "in" port, at
// which point it schedules the next "ping" one tick later.
type Ping struct {
	dynamics.BaseDynamics
	sigma devs.Time
}

// NewPing returns a Ping ready for Init.
func NewPing() *Ping {
	p := &Ping{}
	p.Self = p
	return p
}

func (p *Ping) Init(t0 devs.Time) devs.Time {
	p.sigma = devs.FromTicks(1)
	return p.sigma
}

func (p *Ping) TimeAdvance() devs.Time { return p.sigma }

func (p *Ping) Output(t devs.Time) []devs.Event {
	return []devs.Event{devs.NewEvent(nil, "out", map[string]devs.Value{"type": devs.StringValue("ping")})}
}

func (p *Ping) InternalTransition(t devs.Time) { p.sigma = devs.Infinity }

func (p *Ping) ExternalTransition(events []devs.Event, t devs.Time) { p.sigma = devs.FromTicks(1) }

func (p *Ping) Observation(req dynamics.ObservationRequest) devs.Value { return devs.NullValue{} }

func (p *Ping) Finish() {}

var _ dynamics.Dynamics = (*Ping)(nil)

// Pong is model B of the S1 scenario: passive until it receives "ping",
// then responds with "pong" on its very next (same-time, sigma=0)
// internal firing — the classic DEVS "transient" boundary behaviour
// (spec §8 "τ = 0 produces a same-time bag on the next iteration").
type Pong struct {
	dynamics.BaseDynamics
	sigma   devs.Time
	sending bool
	last    devs.Value
}

// NewPong returns a Pong ready for Init.
func NewPong() *Pong {
	p := &Pong{}
	p.Self = p
	return p
}

func (p *Pong) Init(t0 devs.Time) devs.Time {
	p.sigma = devs.Infinity
	p.last = devs.NullValue{}
	return p.sigma
}

func (p *Pong) TimeAdvance() devs.Time { return p.sigma }

func (p *Pong) Output(t devs.Time) []devs.Event {
	if !p.sending {
		return nil
	}
	p.last = devs.StringValue("pong")
	return []devs.Event{devs.NewEvent(nil, "out", map[string]devs.Value{"type": p.last})}
}

func (p *Pong) InternalTransition(t devs.Time) {
	p.sending = false
	p.sigma = devs.Infinity
}

func (p *Pong) ExternalTransition(events []devs.Event, t devs.Time) {
	p.sending = true
	p.sigma = devs.Zero
}

func (p *Pong) Observation(req dynamics.ObservationRequest) devs.Value { return p.last }

func (p *Pong) Finish() {}

var _ dynamics.Dynamics = (*Pong)(nil)

// NewPingFactory and NewPongFactory are loader.Factory adapters; neither
// model reads scenario-supplied initial values.
func NewPingFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		return NewPing(), nil
	}
}

func NewPongFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		return NewPong(), nil
	}
}
