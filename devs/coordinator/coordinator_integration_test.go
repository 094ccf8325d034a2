package coordinator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
	"github.com/vle-kernel/vle/devs/extensions"
	"github.com/vle-kernel/vle/devs/graph"
	"github.com/vle-kernel/vle/devs/kerrors"
	"github.com/vle-kernel/vle/devs/loader"
	"github.com/vle-kernel/vle/devs/view"
)

// recordingPlugin collects every tuple it receives, for assertions.
// Grounded on devs/output's plug-ins, trimmed to the handful of
// entry points these tests actually exercise.
type recordingPlugin struct {
	tuples []view.Tuple
}

func (p *recordingPlugin) OnParameter(map[string]devs.Value) {}
func (p *recordingPlugin) OnNewObservable(string)            {}

func (p *recordingPlugin) OnValue(t view.Tuple) { p.tuples = append(p.tuples, t) }

func (p *recordingPlugin) OnDeleteObservable(string) {}

func (p *recordingPlugin) Finish(devs.Time) (devs.Value, bool) { return nil, false }

func (p *recordingPlugin) FlushByBag() bool { return false }

func (p *recordingPlugin) OnBagFlush(tuples []view.Tuple) { p.tuples = append(p.tuples, tuples...) }

var _ view.Plugin = (*recordingPlugin)(nil)

func newRegistry() *loader.Registry {
	reg := loader.NewRegistry()
	extensions.Register(reg)
	return reg
}

// TestPingPong_S1_AlternatesForeverAtOneTickPeriod exercises the basic
// internal/external transition loop (spec §8 S1): A pings, B pongs back
// at the same time, and A pings again one tick later.
func TestPingPong_S1_AlternatesForeverAtOneTickPeriod(t *testing.T) {
	g := graph.NewGraph("net")
	root := g.Root()
	a, err := g.AddAtomic(root, "A", loader.Descriptor{Package: "extensions", Library: "ping"})
	require.NoError(t, err)
	b, err := g.AddAtomic(root, "B", loader.Descriptor{Package: "extensions", Library: "pong"})
	require.NoError(t, err)
	require.NoError(t, g.AddOutputPort(a, "out"))
	require.NoError(t, g.AddInputPort(b, "in"))
	require.NoError(t, g.AddOutputPort(b, "out"))
	require.NoError(t, g.AddInputPort(a, "in"))
	require.NoError(t, g.ConnectInternal(root, a, "out", b, "in"))
	require.NoError(t, g.ConnectInternal(root, b, "out", a, "in"))

	views := view.NewRegistry()
	co := New(g, newRegistry(), views, devs.Zero, devs.FromTicks(6))
	require.NoError(t, co.InitializeAll(nil))

	rec := &recordingPlugin{}
	simA, err := co.SimulatorAt("/net/A")
	require.NoError(t, err)
	v := &view.View{Name: "pings", Kind: view.Event, Plugins: []view.Plugin{rec}}
	v.Bind(simA, "out")
	views.Add(v, nil)

	require.NoError(t, co.Run())

	require.NotEmpty(t, rec.tuples, "expected at least one ping/pong event tuple")
	for _, tup := range rec.tuples {
		assert.Equal(t, "/net/A", tup.ModelPath)
	}
}

// TestConfluent_S2_CoincidentInternalAndExternal exercises two models
// independently due at the same timestamp, one routing an event into
// the other (spec §8 S2, spec.md:287, invariant 5): both A and B are
// swept into the same PopBag(3) call as plain Internal entries; when
// B's Output routes "y" onto A's "in" port during that bag's Output
// step, the Coordinator finds A already has an entry in the bag being
// driven and upgrades it to Confluent in place, so A receives exactly
// one ConfluentTransition(t, events) call rather than a same-timestamp
// Internal/External pair split across two bags. ConfluentA overrides
// the default internal-then-external order to run external-first, so
// the single call's result is the post-ext-post-int value "ext,int".
func TestConfluent_S2_CoincidentInternalAndExternal(t *testing.T) {
	g := graph.NewGraph("net")
	root := g.Root()
	a, err := g.AddAtomic(root, "A", loader.Descriptor{Package: "extensions", Library: "confluent_a"})
	require.NoError(t, err)
	b, err := g.AddAtomic(root, "B", loader.Descriptor{Package: "extensions", Library: "confluent_b"})
	require.NoError(t, err)
	require.NoError(t, g.AddOutputPort(b, "out"))
	require.NoError(t, g.AddInputPort(a, "in"))
	require.NoError(t, g.ConnectInternal(root, b, "out", a, "in"))

	// tEnd is later than the t=3 collision, so the run reaches A's
	// confluent transition before the Finish view reads A's order at
	// tEnd.
	views := view.NewRegistry()
	co := New(g, newRegistry(), views, devs.Zero, devs.FromTicks(5))
	require.NoError(t, co.InitializeAll(nil))

	rec := &recordingPlugin{}
	simA, err := co.SimulatorAt("/net/A")
	require.NoError(t, err)
	v := &view.View{Name: "finish", Kind: view.Finish, Plugins: []view.Plugin{rec}}
	v.Bind(simA, "order")
	views.Add(v, nil)

	require.NoError(t, co.Run())

	require.Len(t, rec.tuples, 1, "expected exactly one finish-view tuple")
	assert.Equal(t, "ext,int", rec.tuples[0].Value.String(), "want A's single confluent_transition call, external-first per its override")
}

// TestSpawningExecutive_S3_CreatesChildMidRun exercises an Executive
// mutating the graph during the run (spec §8 S3, §4.H).
func TestSpawningExecutive_S3_CreatesChildMidRun(t *testing.T) {
	g := graph.NewGraph("net")
	root := g.Root()
	_, err := g.AddAtomic(root, "Exec", loader.Descriptor{Package: "extensions", Library: "spawning_executive"})
	require.NoError(t, err)

	views := view.NewRegistry()
	co := New(g, newRegistry(), views, devs.Zero, devs.FromTicks(5))
	require.NoError(t, co.InitializeAll(map[string]map[string]devs.Value{
		"/net/Exec": {"target": devs.StringValue("C")},
	}))

	require.NoError(t, co.Run())

	_, err = co.SimulatorAt("/net/C")
	assert.NoError(t, err, "expected spawning executive to have created /net/C")
}

// TestDeletingExecutive_S4_RemovesTargetMidRun exercises the inverse
// mutation (spec §8 S4): an Executive deletes a sibling model, which
// must stop scheduling entirely afterwards.
func TestDeletingExecutive_S4_RemovesTargetMidRun(t *testing.T) {
	g := graph.NewGraph("net")
	root := g.Root()
	_, err := g.AddAtomic(root, "Victim", loader.Descriptor{Package: "extensions", Library: "ticker"})
	require.NoError(t, err)
	_, err = g.AddAtomic(root, "Exec", loader.Descriptor{Package: "extensions", Library: "deleting_executive"})
	require.NoError(t, err)

	views := view.NewRegistry()
	co := New(g, newRegistry(), views, devs.Zero, devs.FromTicks(10))
	require.NoError(t, co.InitializeAll(map[string]map[string]devs.Value{
		"/net/Victim": {"period": devs.IntValue(1)},
		"/net/Exec":   {"target": devs.StringValue("/net/Victim")},
	}))

	require.NoError(t, co.Run())

	_, err = co.SimulatorAt("/net/Victim")
	assert.Error(t, err, "expected /net/Victim to have been deleted by the executive")
}

// TestPetriAnd_S5_FiresOnlyAfterBothPlacesRespond exercises the
// synchronous request-port protocol across a two-bag same-time
// resolution (spec §8 S5, §4.G).
func TestPetriAnd_S5_FiresOnlyAfterBothPlacesRespond(t *testing.T) {
	g := graph.NewGraph("net")
	root := g.Root()

	p1, err := g.AddAtomic(root, "P1", loader.Descriptor{Package: "extensions", Library: "place"})
	require.NoError(t, err)
	p2, err := g.AddAtomic(root, "P2", loader.Descriptor{Package: "extensions", Library: "place"})
	require.NoError(t, err)
	tr, err := g.AddAtomic(root, "T", loader.Descriptor{Package: "extensions", Library: "and_transition"})
	require.NoError(t, err)

	for _, n := range []graph.NodeID{p1, p2} {
		require.NoError(t, g.AddInputPort(n, "request"))
		require.NoError(t, g.AddOutputPort(n, "out"))
	}
	require.NoError(t, g.AddOutputPort(tr, "q1"))
	require.NoError(t, g.AddOutputPort(tr, "q2"))
	require.NoError(t, g.AddInputPort(tr, "r1"))
	require.NoError(t, g.AddInputPort(tr, "r2"))
	require.NoError(t, g.AddOutputPort(tr, "fired"))

	// T's "q1"/"q2" queries route to P1/P2's "request" port; each
	// Place's reply (emitted synchronously from Output) routes back to
	// T's "r1"/"r2" over the separate P1/P2 "out" connections below.
	require.NoError(t, g.ConnectInternal(root, tr, "q1", p1, "request"))
	require.NoError(t, g.ConnectInternal(root, p1, "out", tr, "r1"))
	require.NoError(t, g.ConnectInternal(root, tr, "q2", p2, "request"))
	require.NoError(t, g.ConnectInternal(root, p2, "out", tr, "r2"))

	views := view.NewRegistry()
	co := New(g, newRegistry(), views, devs.Zero, devs.FromTicks(10))
	require.NoError(t, co.InitializeAll(map[string]map[string]devs.Value{
		"/net/P1": {"tokens": devs.IntValue(1), "reply_out": devs.StringValue("out")},
		"/net/P2": {"tokens": devs.IntValue(1), "reply_out": devs.StringValue("out")},
		"/net/T":  {"poll_at": devs.IntValue(10)},
	}))

	rec := &recordingPlugin{}
	simT, err := co.SimulatorAt("/net/T")
	require.NoError(t, err)
	v := &view.View{Name: "fired", Kind: view.Event, Plugins: []view.Plugin{rec}}
	v.Bind(simT, "fired")
	views.Add(v, nil)

	require.NoError(t, co.Run())

	p1Sim, err := co.SimulatorAt("/net/P1")
	require.NoError(t, err)
	p2Sim, err := co.SimulatorAt("/net/P2")
	require.NoError(t, err)
	assert.Equal(t, devs.IntValue(0), p1Sim.Dynamics.Observation(dynamics.ObservationRequest{}), "P1 should have consumed its token")
	assert.Equal(t, devs.IntValue(0), p2Sim.Dynamics.Observation(dynamics.ObservationRequest{}), "P2 should have consumed its token")

	foundFired := false
	for _, tup := range rec.tuples {
		if tup.Value == devs.BoolValue(true) {
			foundFired = true
		}
	}
	assert.True(t, foundFired, "expected the transition to report fired=true once both places answered")
}

// TestCyclicRequest_S6_RaisesRoutingCycle exercises the Coordinator's
// cycle detection on a mutual synchronous-request wiring (spec §8 S6).
func TestCyclicRequest_S6_RaisesRoutingCycle(t *testing.T) {
	g := graph.NewGraph("net")
	root := g.Root()

	x, err := g.AddAtomic(root, "X", loader.Descriptor{Package: "extensions", Library: "cyclic_echo"})
	require.NoError(t, err)
	y, err := g.AddAtomic(root, "Y", loader.Descriptor{Package: "extensions", Library: "cyclic_echo"})
	require.NoError(t, err)
	for _, n := range []graph.NodeID{x, y} {
		require.NoError(t, g.AddOutputPort(n, "ask"))
		require.NoError(t, g.AddInputPort(n, "request"))
	}
	require.NoError(t, g.ConnectInternal(root, x, "ask", y, "request"))
	require.NoError(t, g.ConnectInternal(root, y, "ask", x, "request"))

	views := view.NewRegistry()
	co := New(g, newRegistry(), views, devs.Zero, devs.FromTicks(5))
	require.NoError(t, co.InitializeAll(map[string]map[string]devs.Value{
		"/net/X": {"initiate": devs.BoolValue(true)},
	}))

	err = co.Run()
	require.Error(t, err, "expected the mutual request cycle to raise RoutingCycle")
	assert.True(t, errors.Is(err, kerrors.Sentinel(kerrors.RoutingCycle)), "expected kerrors.RoutingCycle, got: %v", err)
}
