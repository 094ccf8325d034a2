package extensions

import (
	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
	"github.com/vle-kernel/vle/devs/loader"
)

// CyclicEcho is the S6 fixture: an atomic model whose Output always
// answers with a query of its own on port "ask", wired (by the
// scenario) to a peer's "request" port. Two CyclicEcho instances wired
// to each other's "request" port form a synchronous-request cycle: the
// Coordinator's request handling raises RoutingCycle the moment the
// recursive query chain revisits a simulator already in flight (spec
// §4.G).
type CyclicEcho struct {
	dynamics.BaseDynamics
	sigma devs.Time
}

// NewCyclicEcho returns a CyclicEcho. initiate=true gives it a single
// self-triggered firing at t=0; otherwise it only ever reacts to a
// synchronous query from its peer.
func NewCyclicEcho(initiate bool) *CyclicEcho {
	c := &CyclicEcho{sigma: devs.Infinity}
	if initiate {
		c.sigma = devs.Zero
	}
	c.Self = c
	return c
}

func (c *CyclicEcho) Init(t0 devs.Time) devs.Time { return c.sigma }

func (c *CyclicEcho) TimeAdvance() devs.Time { return c.sigma }

func (c *CyclicEcho) Output(t devs.Time) []devs.Event {
	return []devs.Event{devs.NewEvent(nil, "ask", nil)}
}

func (c *CyclicEcho) InternalTransition(t devs.Time) { c.sigma = devs.Infinity }

func (c *CyclicEcho) ExternalTransition(events []devs.Event, t devs.Time) {}

func (c *CyclicEcho) Observation(req dynamics.ObservationRequest) devs.Value { return devs.NullValue{} }

func (c *CyclicEcho) Finish() {}

var _ dynamics.Dynamics = (*CyclicEcho)(nil)

// NewCyclicEchoFactory reads a boolean "initiate" condition, default
// false.
func NewCyclicEchoFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		initiate := false
		if v, ok := initValues["initiate"]; ok {
			initiate = bool(v.(devs.BoolValue))
		}
		return NewCyclicEcho(initiate), nil
	}
}
