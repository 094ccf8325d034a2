// Package kerrors defines the kernel's error taxonomy (spec §7). Every
// kind below corresponds to exactly one row of the spec's error table.
package kerrors

import "fmt"

// Kind tags which row of the error table an Error belongs to.
type Kind int

const (
	// NameConflict: a graph mutation added a duplicate sibling name.
	NameConflict Kind = iota
	// NotFound: a lookup by path failed.
	NotFound
	// BadConnection: a connection endpoint is missing, or a port's
	// direction doesn't match the connection kind.
	BadConnection
	// PackageNotFound: the Module Loader could not locate the package.
	PackageNotFound
	// LibraryNotFound: the Module Loader could not locate the library
	// within a resolved package.
	LibraryNotFound
	// SymbolMissing: the resolved library does not export the expected
	// factory symbol.
	SymbolMissing
	// ApiVersionMismatch: the resolved module's major version does not
	// match the loader's expectation.
	ApiVersionMismatch
	// ModellingError: a Dynamics raised a domain-level error, e.g. bad
	// input type; marks the owning run as failed.
	ModellingError
	// RoutingCycle: a synchronous request route revisited a simulator
	// already on the in-flight request path.
	RoutingCycle
	// InternalInvariant: a scheduler invariant was violated. Should not
	// occur; fatal with a diagnostic.
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case NameConflict:
		return "NameConflict"
	case NotFound:
		return "NotFound"
	case BadConnection:
		return "BadConnection"
	case PackageNotFound:
		return "PackageNotFound"
	case LibraryNotFound:
		return "LibraryNotFound"
	case SymbolMissing:
		return "SymbolMissing"
	case ApiVersionMismatch:
		return "ApiVersionMismatch"
	case ModellingError:
		return "ModellingError"
	case RoutingCycle:
		return "RoutingCycle"
	case InternalInvariant:
		return "InternalInvariant"
	default:
		return "Unknown"
	}
}

// Error is the kernel's structured error value. Op names the operation
// that failed (e.g. "graph.AddAtomic"); Err, if non-nil, is the
// underlying cause and is reachable through errors.Unwrap.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, kerrors.New(Kind, "", nil)) style matching
// by Kind alone, ignoring Op and Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Sentinel returns a comparison target for errors.Is(err, kerrors.Sentinel(kind)).
func Sentinel(kind Kind) error { return &Error{Kind: kind} }
