package devs

import "testing"

func TestTime_AddClampsToInfinity(t *testing.T) {
	got := FromTicks(5).Add(Infinity)
	if !got.IsInfinite() {
		t.Errorf("5 + Infinity = %v, want Infinity", got)
	}

	got = Infinity.Add(FromTicks(5))
	if !got.IsInfinite() {
		t.Errorf("Infinity + 5 = %v, want Infinity", got)
	}
}

func TestTime_SubInfinityMinusFinite(t *testing.T) {
	got := Infinity.Sub(FromTicks(5))
	if !got.IsInfinite() {
		t.Errorf("Infinity - 5 = %v, want Infinity", got)
	}
}

func TestTime_SubInfinityMinusInfinityPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for Infinity - Infinity")
		}
	}()
	Infinity.Sub(Infinity)
}

func TestTime_Ordering(t *testing.T) {
	a, b := FromTicks(3), FromTicks(7)
	if !a.Less(b) {
		t.Errorf("3 < 7 should hold")
	}
	if b.Less(a) {
		t.Errorf("7 < 3 should not hold")
	}
	if !a.LessOrEqual(a) {
		t.Errorf("3 <= 3 should hold")
	}
	if FromTicks(7).Less(Infinity) != true {
		t.Errorf("any finite value should be less than Infinity")
	}
	if Infinity.Less(FromTicks(7)) {
		t.Errorf("Infinity should never be less than a finite value")
	}
}

func TestTime_Equal(t *testing.T) {
	if !FromTicks(4).Equal(FromTicks(4)) {
		t.Error("4 == 4 should hold")
	}
	if !Infinity.Equal(Infinity) {
		t.Error("Infinity == Infinity should hold")
	}
	if FromTicks(4).Equal(Infinity) {
		t.Error("4 == Infinity should not hold")
	}
}

func TestTime_ZeroIsImmediate(t *testing.T) {
	if Zero.IsInfinite() {
		t.Error("Zero must be finite")
	}
	if Zero.Ticks() != 0 {
		t.Errorf("Zero.Ticks() = %d, want 0", Zero.Ticks())
	}
}

func TestTime_NegativeTicksPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic constructing a negative Time")
		}
	}()
	FromTicks(-1)
}

func TestMin(t *testing.T) {
	if got := Min(FromTicks(3), FromTicks(7)); !got.Equal(FromTicks(3)) {
		t.Errorf("Min(3,7) = %v, want 3", got)
	}
	if got := Min(Infinity, FromTicks(7)); !got.Equal(FromTicks(7)) {
		t.Errorf("Min(Inf,7) = %v, want 7", got)
	}
}
