package dynamics

import (
	"testing"

	"github.com/vle-kernel/vle/devs"
)

// recordingModel embeds BaseDynamics to exercise the default
// ConfluentTransition ordering and capability probes.
type recordingModel struct {
	BaseDynamics
	order []string
}

func newRecordingModel() *recordingModel {
	m := &recordingModel{}
	m.Self = m
	return m
}

func (m *recordingModel) Init(t0 devs.Time) devs.Time        { return devs.Zero }
func (m *recordingModel) TimeAdvance() devs.Time             { return devs.Infinity }
func (m *recordingModel) Output(t devs.Time) []devs.Event    { return nil }
func (m *recordingModel) InternalTransition(t devs.Time)     { m.order = append(m.order, "internal") }
func (m *recordingModel) ExternalTransition(events []devs.Event, t devs.Time) {
	m.order = append(m.order, "external")
}
func (m *recordingModel) Observation(req ObservationRequest) devs.Value { return devs.NullValue{} }
func (m *recordingModel) Finish()                                      {}

func TestBaseDynamics_DefaultConfluentIsInternalThenExternal(t *testing.T) {
	m := newRecordingModel()
	m.ConfluentTransition(devs.Zero, nil)
	if len(m.order) != 2 || m.order[0] != "internal" || m.order[1] != "external" {
		t.Fatalf("order = %v, want [internal external] (spec §4.D default)", m.order)
	}
}

func TestBaseDynamics_CapabilityProbesDefaultFalse(t *testing.T) {
	m := newRecordingModel()
	if m.IsExecutive() || m.IsObserver() {
		t.Errorf("plain BaseDynamics should report false for both probes")
	}
}

// overridingModel picks the opposite confluent order, demonstrating a
// model can override the embedded default (spec §4.D: "individual models
// may override to pick the other order").
type overridingModel struct {
	recordingModel
}

func (m *overridingModel) ConfluentTransition(t devs.Time, events []devs.Event) {
	m.ExternalTransition(events, t)
	m.InternalTransition(t)
}

func TestOverridingModel_PicksExternalFirst(t *testing.T) {
	m := &overridingModel{}
	m.Self = m
	m.ConfluentTransition(devs.Zero, nil)
	if len(m.order) != 2 || m.order[0] != "external" || m.order[1] != "internal" {
		t.Fatalf("order = %v, want [external internal]", m.order)
	}
}

func TestBaseExecutive_IsExecutiveTrue(t *testing.T) {
	e := &BaseExecutive{}
	if !e.IsExecutive() {
		t.Error("BaseExecutive.IsExecutive() should be true")
	}
}

func TestObserverWrapper_RunsHooksAroundTransitionsAndReportsIsObserver(t *testing.T) {
	inner := newRecordingModel()
	var hooks []string
	w := NewObserverWrapper(inner,
		func(hook string, t devs.Time) { hooks = append(hooks, "before:"+hook) },
		func(hook string, t devs.Time) { hooks = append(hooks, "after:"+hook) },
	)

	if !w.IsObserver() {
		t.Error("ObserverWrapper.IsObserver() should always be true")
	}
	w.InternalTransition(devs.Zero)
	want := []string{"before:internal_transition", "after:internal_transition"}
	if len(hooks) != 2 || hooks[0] != want[0] || hooks[1] != want[1] {
		t.Fatalf("hooks = %v, want %v", hooks, want)
	}
	if len(inner.order) != 1 || inner.order[0] != "internal" {
		t.Fatalf("wrapper did not delegate to inner: %v", inner.order)
	}
}
