package extensions

import (
	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
	"github.com/vle-kernel/vle/devs/loader"
)

// Place is a Petri-net place: a token count queried through the
// synchronous "request" port convention (spec §4.G) rather than polled
// on a timer, grounded on the AND-join test in
// original_source/src/examples/test/testpetrinet.cpp. Receiving a query
// on "request" both answers with the current count (via Output, called
// synchronously by the Coordinator before the query is itself delivered
// as an external event) and consumes one token on that same delivery's
// ExternalTransition.
type Place struct {
	dynamics.BaseDynamics
	tokens   int64
	replyOut string
}

// NewPlace returns a Place seeded with tokens, replying on port
// replyOut.
func NewPlace(tokens int64, replyOut string) *Place {
	p := &Place{tokens: tokens, replyOut: replyOut}
	p.Self = p
	return p
}

func (p *Place) Init(t0 devs.Time) devs.Time { return devs.Infinity }

func (p *Place) TimeAdvance() devs.Time { return devs.Infinity }

// Output answers the in-flight request with the token count as it
// stood when queried, before this delivery's consumption below.
func (p *Place) Output(t devs.Time) []devs.Event {
	return []devs.Event{devs.NewEvent(nil, p.replyOut, map[string]devs.Value{"tokens": devs.IntValue(p.tokens)})}
}

func (p *Place) InternalTransition(t devs.Time) {}

func (p *Place) ExternalTransition(events []devs.Event, t devs.Time) {
	for _, ev := range events {
		if ev.InputPort() == requestPort && p.tokens > 0 {
			p.tokens--
		}
	}
}

func (p *Place) Observation(req dynamics.ObservationRequest) devs.Value {
	return devs.IntValue(p.tokens)
}

func (p *Place) Finish() {}

var _ dynamics.Dynamics = (*Place)(nil)

// requestPort is the kernel-wide convention port name (spec §4.G).
const requestPort = "request"

// AndTransition is a Petri-net transition with an AND join over two
// input places: on its scheduled poll, it queries both places' token
// counts through their "request" ports and fires only once both
// replies show a token available.
type AndTransition struct {
	dynamics.BaseDynamics
	sigma    devs.Time
	phase    string // "query", "await", "fire", "done"
	gotP1    bool
	gotP2    bool
	p1Tokens int64
	p2Tokens int64
	fired    bool
}

// NewAndTransition returns an AndTransition that polls at t=pollAt.
func NewAndTransition(pollAt devs.Time) *AndTransition {
	t := &AndTransition{sigma: pollAt, phase: "query"}
	t.Self = t
	return t
}

func (t *AndTransition) Init(t0 devs.Time) devs.Time { return t.sigma }

func (t *AndTransition) TimeAdvance() devs.Time { return t.sigma }

func (t *AndTransition) Output(at devs.Time) []devs.Event {
	switch t.phase {
	case "query":
		return []devs.Event{
			devs.NewEvent(nil, "q1", nil),
			devs.NewEvent(nil, "q2", nil),
		}
	case "fire":
		return []devs.Event{devs.NewEvent(nil, "fired", map[string]devs.Value{"fired": devs.BoolValue(true)})}
	default:
		return nil
	}
}

func (t *AndTransition) InternalTransition(at devs.Time) {
	switch t.phase {
	case "query":
		t.phase = "await"
		t.sigma = devs.Infinity
	case "fire":
		t.fired = true
		t.phase = "done"
		t.sigma = devs.Infinity
	}
}

func (t *AndTransition) ExternalTransition(events []devs.Event, at devs.Time) {
	if t.phase != "await" {
		return
	}
	for _, ev := range events {
		switch ev.InputPort() {
		case "r1":
			if v, ok := ev.Attr("tokens"); ok {
				t.p1Tokens = int64(v.(devs.IntValue))
				t.gotP1 = true
			}
		case "r2":
			if v, ok := ev.Attr("tokens"); ok {
				t.p2Tokens = int64(v.(devs.IntValue))
				t.gotP2 = true
			}
		}
	}
	if t.gotP1 && t.gotP2 && t.p1Tokens > 0 && t.p2Tokens > 0 {
		t.phase = "fire"
		t.sigma = devs.Zero
	}
}

func (t *AndTransition) Observation(req dynamics.ObservationRequest) devs.Value {
	return devs.BoolValue(t.fired)
}

func (t *AndTransition) Finish() {}

var _ dynamics.Dynamics = (*AndTransition)(nil)

// NewPlaceFactory and NewAndTransitionFactory read "tokens"/"reply_out"
// and "poll_at" conditions respectively, defaulting to the S5 fixture
// values (1 token, poll at t=10).
func NewPlaceFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		tokens := int64(1)
		if v, ok := initValues["tokens"]; ok {
			tokens = int64(v.(devs.IntValue))
		}
		replyOut := "out"
		if v, ok := initValues["reply_out"]; ok {
			replyOut = string(v.(devs.StringValue))
		}
		return NewPlace(tokens, replyOut), nil
	}
}

func NewAndTransitionFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		pollAt := devs.FromTicks(10)
		if v, ok := initValues["poll_at"]; ok {
			pollAt = devs.FromTicks(int64(v.(devs.IntValue)))
		}
		return NewAndTransition(pollAt), nil
	}
}
