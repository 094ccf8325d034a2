package simulator

import (
	"testing"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
)

type stubDynamics struct {
	dynamics.BaseDynamics
	tau devs.Time
}

func newStub(tau devs.Time) *stubDynamics {
	s := &stubDynamics{tau: tau}
	s.Self = s
	return s
}

func (s *stubDynamics) Init(t0 devs.Time) devs.Time                            { return s.tau }
func (s *stubDynamics) TimeAdvance() devs.Time                                { return s.tau }
func (s *stubDynamics) Output(t devs.Time) []devs.Event                       { return nil }
func (s *stubDynamics) InternalTransition(t devs.Time)                        {}
func (s *stubDynamics) ExternalTransition(events []devs.Event, t devs.Time)   {}
func (s *stubDynamics) Observation(req dynamics.ObservationRequest) devs.Value { return devs.NullValue{} }
func (s *stubDynamics) Finish()                                               {}

func TestSimulator_InitSetsTLastAndTNext(t *testing.T) {
	sim := New("/root/a", newStub(devs.FromTicks(5)), 0)
	sim.Init(devs.FromTicks(10))
	if !sim.TLast.Equal(devs.FromTicks(10)) {
		t.Errorf("TLast = %v, want 10", sim.TLast)
	}
	if !sim.TNext.Equal(devs.FromTicks(15)) {
		t.Errorf("TNext = %v, want 15", sim.TNext)
	}
}

func TestSimulator_Reschedule(t *testing.T) {
	sim := New("/root/a", newStub(devs.FromTicks(3)), 0)
	sim.Init(devs.Zero)
	next := sim.Reschedule(devs.FromTicks(3))
	if !next.Equal(devs.FromTicks(6)) {
		t.Errorf("Reschedule = %v, want 6", next)
	}
	if !sim.TLast.Equal(devs.FromTicks(3)) {
		t.Errorf("TLast after reschedule = %v, want 3", sim.TLast)
	}
}

func TestSimulator_PathImplementsSourceRef(t *testing.T) {
	sim := New("/root/a", newStub(devs.Zero), 0)
	var ref devs.SourceRef = sim
	if ref.Path() != "/root/a" {
		t.Errorf("Path() = %q, want /root/a", ref.Path())
	}
}
