package extensions

import "github.com/vle-kernel/vle/devs/loader"

// packageName is the loader.Descriptor package these fixtures register
// under.
const packageName = "extensions"

// Register binds every fixture model in this package into reg under
// the "extensions" package name, library names matching the constants
// used throughout the S1-S6 scenario tests.
func Register(reg *loader.Registry) {
	v := loader.Version{Major: loader.CurrentAPIVersion, Minor: 0}
	reg.Register(loader.Descriptor{Package: packageName, Library: "ping"}, v, NewPingFactory())
	reg.Register(loader.Descriptor{Package: packageName, Library: "pong"}, v, NewPongFactory())
	reg.Register(loader.Descriptor{Package: packageName, Library: "confluent_a"}, v, NewConfluentAFactory())
	reg.Register(loader.Descriptor{Package: packageName, Library: "confluent_b"}, v, NewConfluentBFactory())
	reg.Register(loader.Descriptor{Package: packageName, Library: "ticker"}, v, NewTickerFactory())
	reg.Register(loader.Descriptor{Package: packageName, Library: "spawning_executive"}, v, NewSpawningExecutiveFactory())
	reg.Register(loader.Descriptor{Package: packageName, Library: "deleting_executive"}, v, NewDeletingExecutiveFactory())
	reg.Register(loader.Descriptor{Package: packageName, Library: "place"}, v, NewPlaceFactory())
	reg.Register(loader.Descriptor{Package: packageName, Library: "and_transition"}, v, NewAndTransitionFactory())
	reg.Register(loader.Descriptor{Package: packageName, Library: "cyclic_echo"}, v, NewCyclicEchoFactory())
}
