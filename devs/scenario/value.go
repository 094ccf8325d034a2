package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vle-kernel/vle/devs"
)

// RawValue is the YAML-friendly stand-in for devs.Value, a closed
// interface sum with no native mapping to a yaml scalar/sequence/mapping
// node. A scenario's conditions catalogue decodes into RawValue entries,
// then ConditionValues converts each to its concrete devs.Value variant.
//
// The wire shape is a single-key mapping naming the variant, e.g.
//
//	x: {int: 3}
//	name: {string: "queue-1"}
//	ready: {bool: true}
//	weights: {tuple: [0.5, 0.25, 0.25]}
//	nothing: {null: true}
//
// Only the bool, int, double, string, null and tuple variants are
// representable here; Set, Table, Xml, Map and Matrix values are rejected
// by both MarshalYAML and UnmarshalYAML.
type RawValue struct {
	Value devs.Value
}

func (r RawValue) MarshalYAML() (any, error) {
	switch v := r.Value.(type) {
	case devs.BoolValue:
		return map[string]bool{"bool": bool(v)}, nil
	case devs.IntValue:
		return map[string]int64{"int": int64(v)}, nil
	case devs.DoubleValue:
		return map[string]float64{"double": float64(v)}, nil
	case devs.StringValue:
		return map[string]string{"string": string(v)}, nil
	case devs.NullValue:
		return map[string]bool{"null": true}, nil
	case devs.TupleValue:
		return map[string][]float64{"tuple": []float64(v)}, nil
	default:
		return nil, fmt.Errorf("scenario: %s values are not representable in a scenario document", v.Kind())
	}
}

func (r *RawValue) UnmarshalYAML(node *yaml.Node) error {
	var tagged map[string]yaml.Node
	if err := node.Decode(&tagged); err != nil {
		return fmt.Errorf("scenario: value must be a single-key mapping naming its kind: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("scenario: value mapping must have exactly one key, got %d", len(tagged))
	}
	for kind, payload := range tagged {
		switch kind {
		case "bool":
			var b bool
			if err := payload.Decode(&b); err != nil {
				return err
			}
			r.Value = devs.BoolValue(b)
		case "int":
			var i int64
			if err := payload.Decode(&i); err != nil {
				return err
			}
			r.Value = devs.IntValue(i)
		case "double":
			var f float64
			if err := payload.Decode(&f); err != nil {
				return err
			}
			r.Value = devs.DoubleValue(f)
		case "string":
			var s string
			if err := payload.Decode(&s); err != nil {
				return err
			}
			r.Value = devs.StringValue(s)
		case "null":
			r.Value = devs.NullValue{}
		case "tuple":
			var xs []float64
			if err := payload.Decode(&xs); err != nil {
				return err
			}
			r.Value = devs.TupleValue(xs)
		default:
			return fmt.Errorf("scenario: unknown value kind %q", kind)
		}
	}
	return nil
}
