package devs

// SourceRef identifies the simulator that emitted an Event. It is an
// opaque handle (the simulator package supplies the concrete pointer
// behind this interface) so the root devs package never imports
// devs/simulator and no import cycle results.
type SourceRef interface {
	// Path returns the '/'-separated model path of the source, used for
	// logging and view tuples.
	Path() string
}

// Event is an immutable value once constructed. It carries a typed
// attribute map and, depending on how it was produced, a bound output
// port (set by Dynamics.Output) and/or a bound input port (set during
// routing when the event is delivered to a destination).
type Event struct {
	source     SourceRef // nil for externally injected / init events
	attrs      map[string]Value
	outputPort string
	inputPort  string
}

// NewEvent constructs an Event bound to an output port, as produced by a
// Dynamics' Output method. attrs is not retained — it is cloned.
func NewEvent(source SourceRef, outputPort string, attrs map[string]Value) Event {
	return Event{
		source:     source,
		attrs:      CloneAttrs(attrs),
		outputPort: outputPort,
	}
}

// NewExternalEvent constructs an Event with no source simulator, as
// produced by the host injecting an initial stimulus directly onto an
// input port.
func NewExternalEvent(inputPort string, attrs map[string]Value) Event {
	return Event{
		attrs:     CloneAttrs(attrs),
		inputPort: inputPort,
	}
}

// Source returns the emitting simulator, or nil if this event was
// injected externally.
func (e Event) Source() SourceRef { return e.source }

// OutputPort returns the output port this event was emitted on, or "" if
// none was bound (externally injected events).
func (e Event) OutputPort() string { return e.outputPort }

// InputPort returns the input port this event is bound for delivery to,
// or "" if routing has not yet bound a destination.
func (e Event) InputPort() string { return e.inputPort }

// Attr returns the named attribute, and whether it was present.
func (e Event) Attr(name string) (Value, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Attrs returns a defensive clone of the attribute map.
func (e Event) Attrs() map[string]Value {
	return CloneAttrs(e.attrs)
}

// WithInputPort returns a copy of e bound to a destination input port and
// with its attribute values cloned — used by routing when fanning the
// same emitted event out to several destinations (§5: payloads are
// reference-cloned per destination, not shared).
func (e Event) WithInputPort(port string) Event {
	return Event{
		source:     e.source,
		attrs:      CloneAttrs(e.attrs),
		outputPort: e.outputPort,
		inputPort:  port,
	}
}
