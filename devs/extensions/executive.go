package extensions

import (
	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/dynamics"
	"github.com/vle-kernel/vle/devs/loader"
)

// Ticker is a plain periodic atomic model: it emits "tick" on its "out"
// port every period ticks, starting `period` ticks after Init. It plays
// model C of S3 (the spawned child, period=1) and model D of S4 (the
// deleted child).
type Ticker struct {
	dynamics.BaseDynamics
	period devs.Time
	sigma  devs.Time
	ticks  int64
}

// NewTicker returns a Ticker with the given period.
func NewTicker(period devs.Time) *Ticker {
	t := &Ticker{period: period}
	t.Self = t
	return t
}

func (t *Ticker) Init(t0 devs.Time) devs.Time {
	t.sigma = t.period
	return t.sigma
}

func (t *Ticker) TimeAdvance() devs.Time { return t.sigma }

func (t *Ticker) Output(at devs.Time) []devs.Event {
	return []devs.Event{devs.NewEvent(nil, "out", map[string]devs.Value{"ticks": devs.IntValue(t.ticks + 1)})}
}

func (t *Ticker) InternalTransition(at devs.Time) {
	t.ticks++
	t.sigma = t.period
}

func (t *Ticker) ExternalTransition(events []devs.Event, at devs.Time) {}

func (t *Ticker) Observation(req dynamics.ObservationRequest) devs.Value {
	return devs.IntValue(t.ticks)
}

func (t *Ticker) Finish() {}

var _ dynamics.Dynamics = (*Ticker)(nil)

// periodFromCondition reads a "period" int condition, defaulting to 1.
func periodFromCondition(initValues map[string]devs.Value) devs.Time {
	if v, ok := initValues["period"]; ok {
		if iv, ok := v.(devs.IntValue); ok {
			return devs.FromTicks(int64(iv))
		}
	}
	return devs.FromTicks(1)
}

// NewTickerFactory builds a Ticker whose period comes from the
// scenario-supplied "period" condition (default 1).
func NewTickerFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		return NewTicker(periodFromCondition(initValues)), nil
	}
}

// SpawningExecutive is the Executive of S3: at t=2 it creates an atomic
// Ticker named "C" with period=1 and then goes permanently passive. It
// emits no output of its own.
type SpawningExecutive struct {
	dynamics.BaseExecutive
	childName string
	fired     bool
	sigma     devs.Time
}

// NewSpawningExecutive returns a SpawningExecutive that creates a child
// named childName at t=2.
func NewSpawningExecutive(childName string) *SpawningExecutive {
	e := &SpawningExecutive{childName: childName}
	e.Self = e
	return e
}

func (e *SpawningExecutive) Init(t0 devs.Time) devs.Time {
	e.sigma = devs.FromTicks(2)
	return e.sigma
}

func (e *SpawningExecutive) TimeAdvance() devs.Time { return e.sigma }

func (e *SpawningExecutive) Output(t devs.Time) []devs.Event { return nil }

func (e *SpawningExecutive) InternalTransition(t devs.Time) {
	if !e.fired {
		_, _ = e.Ops.CreateModel(e.childName,
			dynamics.ModuleDescriptor{Package: "extensions", Library: "ticker"},
			map[string]devs.Value{"period": devs.IntValue(1)},
			true)
		e.fired = true
	}
	e.sigma = devs.Infinity
}

func (e *SpawningExecutive) ExternalTransition(events []devs.Event, t devs.Time) {}

func (e *SpawningExecutive) Observation(req dynamics.ObservationRequest) devs.Value {
	return devs.BoolValue(e.fired)
}

func (e *SpawningExecutive) Finish() {}

var _ dynamics.Executive = (*SpawningExecutive)(nil)

// DeletingExecutive is the Executive of S4: at t=4 it deletes the
// simulator at a fixed target path, severing its pending schedule.
type DeletingExecutive struct {
	dynamics.BaseExecutive
	targetPath string
	fired      bool
	sigma      devs.Time
}

// NewDeletingExecutive returns a DeletingExecutive that deletes
// targetPath at t=4.
func NewDeletingExecutive(targetPath string) *DeletingExecutive {
	e := &DeletingExecutive{targetPath: targetPath}
	e.Self = e
	return e
}

func (e *DeletingExecutive) Init(t0 devs.Time) devs.Time {
	e.sigma = devs.FromTicks(4)
	return e.sigma
}

func (e *DeletingExecutive) TimeAdvance() devs.Time { return e.sigma }

func (e *DeletingExecutive) Output(t devs.Time) []devs.Event { return nil }

func (e *DeletingExecutive) InternalTransition(t devs.Time) {
	if !e.fired {
		_ = e.Ops.DeleteModel(e.targetPath)
		e.fired = true
	}
	e.sigma = devs.Infinity
}

func (e *DeletingExecutive) ExternalTransition(events []devs.Event, t devs.Time) {}

func (e *DeletingExecutive) Observation(req dynamics.ObservationRequest) devs.Value {
	return devs.BoolValue(e.fired)
}

func (e *DeletingExecutive) Finish() {}

var _ dynamics.Executive = (*DeletingExecutive)(nil)

// NewSpawningExecutiveFactory and NewDeletingExecutiveFactory read their
// fixed name/path from a "target" string condition.
func NewSpawningExecutiveFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		name := "C"
		if v, ok := initValues["target"]; ok {
			if sv, ok := v.(devs.StringValue); ok {
				name = string(sv)
			}
		}
		return NewSpawningExecutive(name), nil
	}
}

func NewDeletingExecutiveFactory() loader.Factory {
	return func(ref loader.ModelRef, initValues map[string]devs.Value) (loader.Built, error) {
		path := ""
		if v, ok := initValues["target"]; ok {
			if sv, ok := v.(devs.StringValue); ok {
				path = string(sv)
			}
		}
		return NewDeletingExecutive(path), nil
	}
}
