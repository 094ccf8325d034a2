// Package devs holds the root value types of the DEVS kernel: simulation
// time, the closed Value sum type, and the immutable Event record.
package devs

import (
	"fmt"
	"math"
)

// Time is a totally ordered simulation time value with a distinguished
// infinite element. Ordinary values are finite non-negative tick counts;
// Infinity represents an event that never occurs.
type Time struct {
	ticks    int64
	infinite bool
}

// Infinity is the distinguished "never" time value.
var Infinity = Time{infinite: true}

// Zero is the immediate (zero-duration) time value.
var Zero = Time{}

// FromTicks builds a finite Time from a non-negative tick count.
// Panics if ticks is negative — the spec defines Time as non-negative.
func FromTicks(ticks int64) Time {
	if ticks < 0 {
		panic(fmt.Sprintf("devs: negative time value %d", ticks))
	}
	return Time{ticks: ticks}
}

// Ticks returns the finite tick count. Panics if called on Infinity.
func (t Time) Ticks() int64 {
	if t.infinite {
		panic("devs: Ticks() called on infinite Time")
	}
	return t.ticks
}

// IsInfinite reports whether t is the distinguished infinite value.
func (t Time) IsInfinite() bool { return t.infinite }

// Add returns t + d. t + infinity = infinity in either operand.
func (t Time) Add(d Time) Time {
	if t.infinite || d.infinite {
		return Infinity
	}
	sum := t.ticks + d.ticks
	if sum < t.ticks { // overflow
		return Infinity
	}
	return Time{ticks: sum}
}

// Sub returns t - d. Infinity minus a finite d is Infinity. Infinity -
// Infinity and finite - Infinity are undefined; both panic with a plain
// string message rather than silently producing a meaningless value.
func (t Time) Sub(d Time) Time {
	if t.infinite && d.infinite {
		panic("devs: Infinity - Infinity is undefined")
	}
	if t.infinite {
		return Infinity
	}
	if d.infinite {
		panic("devs: finite - Infinity is undefined")
	}
	return Time{ticks: t.ticks - d.ticks}
}

// Less reports whether t < other.
func (t Time) Less(other Time) bool {
	if t.infinite {
		return false
	}
	if other.infinite {
		return true
	}
	return t.ticks < other.ticks
}

// LessOrEqual reports whether t <= other.
func (t Time) LessOrEqual(other Time) bool {
	return t.Equal(other) || t.Less(other)
}

// Equal reports whether t == other.
func (t Time) Equal(other Time) bool {
	if t.infinite != other.infinite {
		return false
	}
	return t.infinite || t.ticks == other.ticks
}

// Min returns the smaller of t and other.
func Min(t, other Time) Time {
	if t.Less(other) {
		return t
	}
	return other
}

// String renders t for logging.
func (t Time) String() string {
	if t.infinite {
		return "+Inf"
	}
	return fmt.Sprintf("%d", t.ticks)
}

// Compare returns -1, 0, or 1 analogous to cmp.Compare, with
// Infinity sorting last. Useful for sort.Slice callers.
func (t Time) Compare(other Time) int {
	switch {
	case t.Equal(other):
		return 0
	case t.Less(other):
		return -1
	default:
		return 1
	}
}

// maxFiniteTicks is the largest tick value representable before Add clamps
// to Infinity on overflow.
const maxFiniteTicks = math.MaxInt64
