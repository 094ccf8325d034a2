package eventtable

import (
	"testing"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
	"github.com/vle-kernel/vle/devs/simulator"
)

type fakeDynamics struct {
	dynamics.BaseDynamics
	executive bool
}

func (d *fakeDynamics) Init(t0 devs.Time) devs.Time                          { return devs.Zero }
func (d *fakeDynamics) TimeAdvance() devs.Time                               { return devs.Infinity }
func (d *fakeDynamics) Output(t devs.Time) []devs.Event                      { return nil }
func (d *fakeDynamics) InternalTransition(t devs.Time)                       {}
func (d *fakeDynamics) ExternalTransition(events []devs.Event, t devs.Time)  {}
func (d *fakeDynamics) Observation(r dynamics.ObservationRequest) devs.Value { return devs.NullValue{} }
func (d *fakeDynamics) Finish()                                             {}
func (d *fakeDynamics) IsExecutive() bool                                   { return d.executive }

func newSim(path string, idx int, executive bool) *simulator.Simulator {
	fd := &fakeDynamics{executive: executive}
	fd.Self = fd
	return simulator.New(path, fd, idx)
}

func TestNextTime_ImmediateWhenExternalPending(t *testing.T) {
	tbl := New(devs.Zero)
	sim := newSim("/a", 0, false)
	tbl.ScheduleInternal(sim, devs.FromTicks(100))
	other := newSim("/b", 1, false)
	tbl.ScheduleExternal(other, []devs.Event{devs.NewExternalEvent("in", nil)}, false)

	if got := tbl.NextTime(); !got.Equal(devs.Zero) {
		t.Errorf("NextTime() = %v, want current_time 0 (immediate bag)", got)
	}
}

func TestNextTime_MinOfInternalAndObservation(t *testing.T) {
	tbl := New(devs.Zero)
	a := newSim("/a", 0, false)
	tbl.ScheduleInternal(a, devs.FromTicks(10))
	tbl.ScheduleObservation(a, "v", "p", devs.FromTicks(5))

	if got := tbl.NextTime(); !got.Equal(devs.FromTicks(5)) {
		t.Errorf("NextTime() = %v, want 5", got)
	}
}

func TestNextTime_EmptyTableIsInfinity(t *testing.T) {
	tbl := New(devs.Zero)
	if got := tbl.NextTime(); !got.IsInfinite() {
		t.Errorf("NextTime() on empty table = %v, want Infinity", got)
	}
}

func TestScheduleInternal_RescheduleInvalidatesOldEntry(t *testing.T) {
	tbl := New(devs.Zero)
	a := newSim("/a", 0, false)
	tbl.ScheduleInternal(a, devs.FromTicks(10))
	tbl.ScheduleInternal(a, devs.FromTicks(3))

	bag := tbl.PopBag(tbl.NextTime())
	if bag.ObservationOnly || len(bag.Entries) != 1 {
		t.Fatalf("expected single internal entry at t=3, got %+v", bag)
	}
	if !bag.Time.Equal(devs.FromTicks(3)) {
		t.Errorf("bag time = %v, want 3", bag.Time)
	}
	// The stale t=10 entry must not resurface as a second bag.
	if got := tbl.NextTime(); !got.IsInfinite() {
		t.Errorf("stale internal entry resurfaced: NextTime() = %v", got)
	}
}

func TestScheduleExternal_InvalidatesLaterInternalEntry(t *testing.T) {
	tbl := New(devs.Zero)
	a := newSim("/a", 0, false)
	tbl.ScheduleInternal(a, devs.FromTicks(5))
	tbl.ScheduleExternal(a, []devs.Event{devs.NewExternalEvent("in", nil)}, false)

	// External arriving at current_time=0 makes NextTime immediate, not 5.
	next := tbl.NextTime()
	if !next.Equal(devs.Zero) {
		t.Fatalf("NextTime() = %v, want 0 (external pending)", next)
	}

	// But the pending internal entry for /a at t=5 should have been
	// invalidated by ScheduleExternal per spec §4.F.4, since 5 > current_time.
	bag := tbl.PopBag(next)
	if len(bag.Entries) != 1 || bag.Entries[0].Kind != simulator.External {
		t.Fatalf("expected single External entry, got %+v", bag.Entries)
	}
}

func TestPopBag_ExecutivesFireLast(t *testing.T) {
	tbl := New(devs.Zero)
	exec := newSim("/exec", 0, true)
	plain := newSim("/plain", 1, false)
	tbl.ScheduleInternal(exec, devs.FromTicks(1))
	tbl.ScheduleInternal(plain, devs.FromTicks(1))

	bag := tbl.PopBag(devs.FromTicks(1))
	if len(bag.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(bag.Entries))
	}
	if bag.Entries[len(bag.Entries)-1].Sim != exec {
		t.Errorf("executive must fire last within the bag, got order %+v", bag.Entries)
	}
}

func TestPopBag_ObservationOnlyWhenNoTransitionsDue(t *testing.T) {
	tbl := New(devs.Zero)
	a := newSim("/a", 0, false)
	tbl.ScheduleObservation(a, "v", "p", devs.FromTicks(5))

	bag := tbl.PopBag(devs.FromTicks(5))
	if !bag.ObservationOnly || len(bag.Observations) != 1 {
		t.Fatalf("expected observation-only bag, got %+v", bag)
	}
}

func TestInvalidate_ClearsInternalExternalAndObservations(t *testing.T) {
	tbl := New(devs.Zero)
	a := newSim("/a", 0, false)
	tbl.ScheduleInternal(a, devs.FromTicks(10))
	tbl.ScheduleExternal(a, []devs.Event{devs.NewExternalEvent("in", nil)}, false)
	tbl.ScheduleObservation(a, "v", "p", devs.FromTicks(10))

	tbl.Invalidate(a)

	if got := tbl.NextTime(); !got.IsInfinite() {
		t.Errorf("NextTime() after Invalidate = %v, want Infinity", got)
	}
}

func TestScheduleInternal_TieBrokenByInsertionIndex(t *testing.T) {
	tbl := New(devs.Zero)
	second := newSim("/second", 5, false)
	first := newSim("/first", 1, false)
	tbl.ScheduleInternal(second, devs.FromTicks(1))
	tbl.ScheduleInternal(first, devs.FromTicks(1))

	bag := tbl.PopBag(devs.FromTicks(1))
	if len(bag.Entries) != 2 || bag.Entries[0].Sim != first {
		t.Fatalf("expected /first (lower insertion index) first, got %+v", bag.Entries)
	}
}
