// Package loader implements the Module Loader (spec §4.C): resolving a
// (package, library) pair to a factory that builds a Dynamics, Executive,
// or Observer. The teacher's policy packages (sim.NewRoutingPolicy,
// sim.NewAdmissionPolicy) resolve a name through a closed switch statement
// baked in at compile time. The kernel's loader generalizes that pattern
// into an open registry: packages register factories under a name at
// init() time or via plugin wiring, and the loader resolves them by
// descriptor rather than by switch-casing a fixed set of known names.
//
// Go's own plugin package is deliberately not used here — it only
// supports ELF/Linux, requires matching toolchains between host and
// plugin, and nothing in the retrieved example repos reaches for it.
// A name-keyed registry is the idiomatic Go stand-in for dynamic module
// loading, and it is exactly what the teacher's factories already do.
package loader

import (
	"fmt"
	"sync"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/kerrors"
)

// Version is a module's declared API version. The loader rejects a
// resolved module whose Major does not match the loader's expectation.
type Version struct {
	Major int
	Minor int
}

// CurrentAPIVersion is the API major version this kernel build expects.
// A loaded library declaring a different Major fails with
// kerrors.ApiVersionMismatch.
const CurrentAPIVersion = 1

// Descriptor names a loadable unit: a package (a logical grouping, e.g.
// an extension library) and a library (the specific model symbol within
// it).
type Descriptor struct {
	Package string
	Library string
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s/%s", d.Package, d.Library)
}

// ModelRef is the narrow handle a Factory receives in place of a full
// graph node — just enough identity for a Dynamics to report itself
// without the loader importing devs/graph.
type ModelRef interface {
	Path() string
}

// Factory builds a Dynamics (or Executive, or Observer — both are
// Dynamics subtypes, see devs/dynamics) given the model's graph handle
// and its scenario-supplied initial values.
type Factory func(ref ModelRef, initValues map[string]devs.Value) (Built, error)

// Built is whatever a Factory constructs. devs/dynamics.Dynamics is the
// minimal shape; the loader itself never inspects Built beyond checking
// it implements that interface, which it cannot do without importing
// devs/dynamics — so callers (devs/coordinator) perform the type
// assertion. We carry it here as `any` to keep the loader free of a
// dependency on devs/dynamics.
type Built = any

// entry bundles a registered Factory with the declared API version of
// its owning library, checked against CurrentAPIVersion on every
// Resolve.
type entry struct {
	factory Factory
	version Version
}

// Registry is a mutex-guarded, name-keyed factory table. The zero value
// is not usable; construct with NewRegistry. A Registry caches nothing
// beyond the registered factories themselves — factories are expected to
// be cheap closures, matching the teacher's NewXPolicy convention, and
// the "caching" the spec requires is this map itself, populated once at
// kernel start-up and consulted for the lifetime of the run.
type Registry struct {
	mu      sync.RWMutex
	entries map[Descriptor]entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Descriptor]entry)}
}

// Register binds a Descriptor to a Factory and the API version its
// package declares. Re-registering the same Descriptor overwrites the
// previous binding — useful for test fixtures that stub a library.
func (r *Registry) Register(d Descriptor, version Version, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[d] = entry{factory: f, version: version}
}

// Resolve looks up the factory bound to d. PackageNotFound is returned
// if no library under d.Package is currently registered; LibraryNotFound if
// the package is known but d.Library is not; ApiVersionMismatch if the
// bound library's declared major version does not equal
// CurrentAPIVersion.
func (r *Registry) Resolve(d Descriptor) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[d]
	if !ok {
		if r.hasPackage(d.Package) {
			return nil, kerrors.New(kerrors.LibraryNotFound, "loader.Resolve", fmt.Errorf("%s", d))
		}
		return nil, kerrors.New(kerrors.PackageNotFound, "loader.Resolve", fmt.Errorf("%s", d.Package))
	}
	if e.version.Major != CurrentAPIVersion {
		return nil, kerrors.New(kerrors.ApiVersionMismatch, "loader.Resolve",
			fmt.Errorf("%s declares API v%d, kernel expects v%d", d, e.version.Major, CurrentAPIVersion))
	}
	return e.factory, nil
}

// hasPackage reports whether any library is currently registered under
// pkg. Caller must hold r.mu.
func (r *Registry) hasPackage(pkg string) bool {
	for d := range r.entries {
		if d.Package == pkg {
			return true
		}
	}
	return false
}

// Build resolves d and invokes its factory, wrapping a missing exported
// symbol as kerrors.SymbolMissing. A Factory returning a nil Built with a
// nil error is itself a SymbolMissing — the registered closure failed to
// produce a model.
func (r *Registry) Build(d Descriptor, ref ModelRef, initValues map[string]devs.Value) (Built, error) {
	f, err := r.Resolve(d)
	if err != nil {
		return nil, err
	}
	built, err := f(ref, initValues)
	if err != nil {
		return nil, err
	}
	if built == nil {
		return nil, kerrors.New(kerrors.SymbolMissing, "loader.Build", fmt.Errorf("%s produced a nil model", d))
	}
	return built, nil
}

// Unload drops every registered factory. The spec calls for unload at
// kernel teardown; since factories here are just closures with no open
// handles, Unload only needs to release the map for GC.
func (r *Registry) Unload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[Descriptor]entry)
}
