package dynamics

import "github.com/vle-kernel/vle/devs"

// ObserverWrapper delegates every Dynamics method to an underlying
// model, adding pre/post hooks around each transition (spec §4.D:
// "Observer: Dynamics subtype with pre/post hooks around each
// transition"), by delegation through an interface field rather than
// subclassing. No package in this repository registers it with the
// Module Loader; event views are fired by view.Registry.NotifyTransition
// instead.
type ObserverWrapper struct {
	Inner Dynamics

	// Before and After are invoked around InternalTransition,
	// ExternalTransition, and ConfluentTransition, named after the hook
	// being run so a single function can log or capture state generically.
	Before func(hook string, t devs.Time)
	After  func(hook string, t devs.Time)
}

// NewObserverWrapper wraps inner, which must not be nil.
func NewObserverWrapper(inner Dynamics, before, after func(hook string, t devs.Time)) *ObserverWrapper {
	return &ObserverWrapper{Inner: inner, Before: before, After: after}
}

func (w *ObserverWrapper) Init(t0 devs.Time) devs.Time { return w.Inner.Init(t0) }

func (w *ObserverWrapper) TimeAdvance() devs.Time { return w.Inner.TimeAdvance() }

func (w *ObserverWrapper) Output(t devs.Time) []devs.Event { return w.Inner.Output(t) }

func (w *ObserverWrapper) InternalTransition(t devs.Time) {
	w.hook("internal_transition", t, func() { w.Inner.InternalTransition(t) })
}

func (w *ObserverWrapper) ExternalTransition(events []devs.Event, t devs.Time) {
	w.hook("external_transition", t, func() { w.Inner.ExternalTransition(events, t) })
}

func (w *ObserverWrapper) ConfluentTransition(t devs.Time, events []devs.Event) {
	w.hook("confluent_transition", t, func() { w.Inner.ConfluentTransition(t, events) })
}

func (w *ObserverWrapper) Observation(req ObservationRequest) devs.Value {
	return w.Inner.Observation(req)
}

func (w *ObserverWrapper) Finish() { w.Inner.Finish() }

func (w *ObserverWrapper) IsExecutive() bool { return w.Inner.IsExecutive() }

// IsObserver is always true for a wrapper — this is the capability probe
// the spec's §4.D is_observer() refers to.
func (w *ObserverWrapper) IsObserver() bool { return true }

func (w *ObserverWrapper) hook(name string, t devs.Time, fn func()) {
	if w.Before != nil {
		w.Before(name, t)
	}
	fn()
	if w.After != nil {
		w.After(name, t)
	}
}
