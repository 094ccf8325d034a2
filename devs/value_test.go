package devs

import "testing"

func TestTupleValue_CloneIsIndependent(t *testing.T) {
	orig := TupleValue{1, 2, 3}
	clone := orig.Clone().(TupleValue)
	clone[0] = 99
	if orig[0] != 1 {
		t.Errorf("mutating clone mutated original: %v", orig)
	}
}

func TestTableValue_DimensionMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for mismatched table dimensions")
		}
	}()
	NewTableValue(2, 2, []float64{1, 2, 3})
}

func TestTableValue_At(t *testing.T) {
	tbl := NewTableValue(2, 2, []float64{1, 2, 3, 4})
	if got := tbl.At(1, 1); got != 4 {
		t.Errorf("At(1,1) = %v, want 4", got)
	}
}

func TestMapValue_PreservesInsertionOrder(t *testing.T) {
	m := NewMapValue()
	m.Set("b", IntValue(2))
	m.Set("a", IntValue(1))
	m.Set("b", IntValue(20)) // overwrite should not move position

	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("Keys() = %v, want [b a]", keys)
	}
	v, ok := m.Get("b")
	if !ok || v.(IntValue) != 20 {
		t.Errorf("Get(b) = %v, %v; want 20, true", v, ok)
	}
}

func TestMapValue_CloneIsDeep(t *testing.T) {
	m := NewMapValue()
	m.Set("x", TupleValue{1, 2})
	clone := m.Clone().(*MapValue)
	tup := clone.values["x"].(TupleValue)
	tup[0] = 99
	orig, _ := m.Get("x")
	if orig.(TupleValue)[0] != 1 {
		t.Errorf("cloning MapValue did not deep-clone contained values")
	}
}

func TestSetValue_OrderedAndCloned(t *testing.T) {
	s := SetValue{IntValue(3), IntValue(1), IntValue(2)}
	clone := s.Clone().(SetValue)
	if len(clone) != 3 || clone[0].(IntValue) != 3 {
		t.Errorf("SetValue clone did not preserve order: %v", clone)
	}
}

func TestMatrixValue_CloneIndependence(t *testing.T) {
	m := NewMatrixValue(2, 2, []float64{1, 2, 3, 4})
	clone := m.Clone().(MatrixValue)
	clone.M.Set(0, 0, 99)
	if m.M.At(0, 0) != 1 {
		t.Errorf("mutating clone mutated original matrix")
	}
}

func TestIsComposite(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{IntValue(1), false},
		{StringValue("x"), false},
		{NewMapValue(), true},
		{SetValue{}, true},
		{NewMatrixValue(1, 1, []float64{0}), true},
		{TupleValue{1, 2}, false},
	}
	for _, c := range cases {
		if got := IsComposite(c.v); got != c.want {
			t.Errorf("IsComposite(%s) = %v, want %v", c.v.Kind(), got, c.want)
		}
	}
}

func TestCloneAttrs_DeepClonesValues(t *testing.T) {
	attrs := map[string]Value{"t": TupleValue{1, 2}}
	clone := CloneAttrs(attrs)
	clone["t"].(TupleValue)[0] = 99
	if attrs["t"].(TupleValue)[0] != 1 {
		t.Errorf("CloneAttrs did not deep-clone values")
	}
}
