// Package scenario implements the in-memory scenario document and its
// YAML (de)serialization (spec §6.1): a dynamics catalogue, conditions
// catalogue, observable catalogue, the root coupled model hierarchy, and
// experiment/view metadata. Build turns a Document into a graph.Graph
// plus the per-model condition values a Coordinator needs to run it.
// The scenario file parser is explicitly out of the kernel's core scope
// (spec Non-goals), but the kernel still needs a concrete, loadable
// input shape to exercise the rest of the stack against — this mirrors
// sim/bundle.go's LoadPolicyBundle: strict yaml.v3 decoding
// (KnownFields(true)) so a typo'd key fails loudly instead of silently
// defaulting.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/graph"
	"github.com/vle-kernel/vle/devs/loader"
)

// ModuleRef names a (package, library) pair by the dynamics catalogue
// key a ModelDef references.
type ModuleRef struct {
	Package string `yaml:"package"`
	Library string `yaml:"library"`
}

// ConnectionDef is one connection triple in a coupled model's wiring
// (spec §4.B); Kind selects which of the three connection tables it
// belongs to.
type ConnectionDef struct {
	Kind    string `yaml:"kind"` // "internal", "external_in", "external_out"
	Src     string `yaml:"src"`
	SrcPort string `yaml:"src_port"`
	Dst     string `yaml:"dst"`
	DstPort string `yaml:"dst_port"`
}

// ModelDef is one node of the root coupled model hierarchy.
type ModelDef struct {
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind"` // "atomic" or "coupled"
	Dynamic     string          `yaml:"dynamic,omitempty"`
	Condition   string          `yaml:"condition,omitempty"`
	Observable  string          `yaml:"observable,omitempty"`
	InputPorts  []string        `yaml:"input_ports,omitempty"`
	OutputPorts []string        `yaml:"output_ports,omitempty"`
	Children    []ModelDef      `yaml:"children,omitempty"`
	Connections []ConnectionDef `yaml:"connections,omitempty"`
}

// ExperimentDef is the run's time horizon and replication metadata.
type ExperimentDef struct {
	Begin    int64  `yaml:"begin"`
	Duration int64  `yaml:"duration"`
	Seed     *int64 `yaml:"seed,omitempty"`
	Replicas int    `yaml:"replicas,omitempty"`
}

// ViewBindingDef names one (model path, port) observation point a view
// attaches to.
type ViewBindingDef struct {
	Model string `yaml:"model"`
	Port  string `yaml:"port"`
}

// ViewDef is one entry of the view/output configuration (spec §4.I).
type ViewDef struct {
	Name     string           `yaml:"name"`
	Kind     string           `yaml:"kind"` // "timed", "event", "finish"
	Step     int64            `yaml:"step,omitempty"`
	Bindings []ViewBindingDef `yaml:"bindings"`
	Plugins  []string         `yaml:"plugins"`
}

// Document is the scenario input the core accepts (spec §6.1). The
// on-disk XML form named in the spec is explicitly the loader's
// concern, not this package's; Load/Write here work against YAML, the
// ecosystem-idiomatic stand-in the teacher's own config loading uses.
type Document struct {
	Dynamics   map[string]ModuleRef           `yaml:"dynamics"`
	Conditions map[string]map[string]RawValue `yaml:"conditions"`
	Observable map[string]map[string][]string `yaml:"observable"`
	Root       ModelDef                       `yaml:"root"`
	Experiment ExperimentDef                  `yaml:"experiment"`
	Views      []ViewDef                      `yaml:"views"`
}

// Load reads and strictly parses a Document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &doc, nil
}

// Write serializes doc to path as YAML.
func Write(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing scenario: %w", err)
	}
	return nil
}

// ConditionValues resolves a Document's conditions catalogue entry name
// to a plain map[string]devs.Value, ready to pass to a Factory.
func (d *Document) ConditionValues(name string) map[string]devs.Value {
	raw := d.Conditions[name]
	if raw == nil {
		return nil
	}
	out := make(map[string]devs.Value, len(raw))
	for k, v := range raw {
		out[k] = v.Value
	}
	return out
}

// Build constructs a graph.Graph from the Document's root hierarchy,
// returning the graph plus a map from model path to its condition
// values, which the Coordinator's
// InitializeAll needs to build each Simulator.
func Build(doc *Document) (*graph.Graph, map[string]map[string]devs.Value, error) {
	g := graph.NewGraph(doc.Root.Name)
	initValues := make(map[string]map[string]devs.Value)

	if err := addModel(g, doc, g.Root(), doc.Root); err != nil {
		return nil, nil, err
	}
	collectInitValues(doc, doc.Root, "/"+doc.Root.Name, initValues)
	return g, initValues, nil
}

// addModel adds def's ports, children, and connections under node, which
// has already been created (as the graph root, for the top-level def).
func addModel(g *graph.Graph, doc *Document, node graph.NodeID, def ModelDef) error {
	for _, p := range def.InputPorts {
		if err := g.AddInputPort(node, p); err != nil {
			return err
		}
	}
	for _, p := range def.OutputPorts {
		if err := g.AddOutputPort(node, p); err != nil {
			return err
		}
	}

	childIDs := make(map[string]graph.NodeID, len(def.Children))
	for _, child := range def.Children {
		var id graph.NodeID
		var err error
		if child.Kind == "atomic" {
			ref, ok := doc.Dynamics[child.Dynamic]
			if !ok {
				return fmt.Errorf("scenario.Build: %s references unknown dynamic %q", child.Name, child.Dynamic)
			}
			id, err = g.AddAtomic(node, child.Name, loader.Descriptor{Package: ref.Package, Library: ref.Library})
		} else {
			id, err = g.AddCoupled(node, child.Name)
		}
		if err != nil {
			return err
		}
		childIDs[child.Name] = id
		if err := addModel(g, doc, id, child); err != nil {
			return err
		}
	}

	for _, c := range def.Connections {
		switch c.Kind {
		case "internal":
			if err := g.ConnectInternal(node, childIDs[c.Src], c.SrcPort, childIDs[c.Dst], c.DstPort); err != nil {
				return err
			}
		case "external_in":
			if err := g.ConnectExternalIn(node, c.SrcPort, childIDs[c.Dst], c.DstPort); err != nil {
				return err
			}
		case "external_out":
			if err := g.ConnectExternalOut(node, childIDs[c.Src], c.SrcPort, c.DstPort); err != nil {
				return err
			}
		default:
			return fmt.Errorf("scenario.Build: unknown connection kind %q", c.Kind)
		}
	}
	return nil
}

// collectInitValues walks def, recording each atomic model's resolved
// condition values under its full path.
func collectInitValues(doc *Document, def ModelDef, path string, out map[string]map[string]devs.Value) {
	if def.Kind == "atomic" {
		out[path] = doc.ConditionValues(def.Condition)
	}
	for _, child := range def.Children {
		collectInitValues(doc, child, path+"/"+child.Name, out)
	}
}
