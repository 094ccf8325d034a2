package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vle-kernel/vle/devs"
)

func pingPongDoc() *Document {
	return &Document{
		Dynamics: map[string]ModuleRef{
			"ping": {Package: "extensions", Library: "ping"},
			"pong": {Package: "extensions", Library: "pong"},
		},
		Conditions: map[string]map[string]RawValue{
			"ping_init": {"period": {Value: devs.IntValue(5)}},
		},
		Root: ModelDef{
			Name: "net",
			Kind: "coupled",
			Children: []ModelDef{
				{Name: "a", Kind: "atomic", Dynamic: "ping", Condition: "ping_init",
					InputPorts: []string{"in"}, OutputPorts: []string{"out"}},
				{Name: "b", Kind: "atomic", Dynamic: "pong",
					InputPorts: []string{"in"}, OutputPorts: []string{"out"}},
			},
			Connections: []ConnectionDef{
				{Kind: "internal", Src: "a", SrcPort: "out", Dst: "b", DstPort: "in"},
				{Kind: "internal", Src: "b", SrcPort: "out", Dst: "a", DstPort: "in"},
			},
		},
		Experiment: ExperimentDef{Begin: 0, Duration: 100},
	}
}

func TestBuild_ConstructsGraphWithConnections(t *testing.T) {
	doc := pingPongDoc()
	g, initValues, err := Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a, err := g.Find("/net/a")
	if err != nil {
		t.Fatalf("Find a: %v", err)
	}
	b, err := g.Find("/net/b")
	if err != nil {
		t.Fatalf("Find b: %v", err)
	}

	targets, err := g.InternalTargets(g.Root(), a, "out")
	if err != nil || len(targets) != 1 || targets[0].Node != b || targets[0].Port != "in" {
		t.Fatalf("a:out should route to b:in, got %+v err=%v", targets, err)
	}

	vals, ok := initValues["/net/a"]
	if !ok {
		t.Fatalf("expected init values recorded for /net/a")
	}
	if vals["period"].(devs.IntValue) != 5 {
		t.Errorf("period = %v, want 5", vals["period"])
	}
	if vals, ok := initValues["/net/b"]; !ok || len(vals) != 0 {
		t.Errorf("/net/b should have empty (but present) condition values, got %v ok=%v", vals, ok)
	}
}

func TestBuild_UnknownDynamicIsRejected(t *testing.T) {
	doc := pingPongDoc()
	doc.Root.Children[0].Dynamic = "does-not-exist"
	if _, _, err := Build(doc); err == nil {
		t.Fatal("expected an error referencing an unknown dynamic")
	}
}

func TestLoadWrite_RoundTripsThroughYAML(t *testing.T) {
	doc := pingPongDoc()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")

	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Root.Name != "net" || len(loaded.Root.Children) != 2 {
		t.Fatalf("round-tripped document mismatch: %+v", loaded.Root)
	}
	period := loaded.ConditionValues("ping_init")["period"]
	if period.(devs.IntValue) != 5 {
		t.Errorf("round-tripped period = %v, want 5", period)
	}
}

func TestLoad_UnknownFieldIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	bad := []byte("root:\n  name: net\n  kind: coupled\nbogus_field: true\n")
	if err := os.WriteFile(path, bad, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected strict decoding to reject an unknown top-level field")
	}
}
