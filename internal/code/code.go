// Package code defines the code sequence currency moved between components.
package code

import (
	"fmt"
	"math"
)

// Source identifies the origin of a code sequence.
type Source int

// Enumerated code origins.
const (
	SourceKey Source = iota
	SourceKeyboard
	SourceWire
)

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case SourceKey:
		return "key"
	case SourceKeyboard:
		return "keyboard"
	case SourceWire:
		return "wire"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Origin returns the log origin label for the source.
func (s Source) Origin() string {
	if s == SourceWire {
		return "wire"
	}
	return "local"
}

// Timing constants in milliseconds.
const (
	// DebounceMs is the contact debounce floor; elements at or below this
	// magnitude carry state, not timing, and are never rescaled.
	DebounceMs = 2
	// DiscontinuityMs is the reserved silence value marking a gap whose true
	// length is unknown (wire reconnect, recording splice).
	DiscontinuityMs = 32767
)

// Sequence is an ordered run of signed millisecond durations. Negative
// elements are key-open silence, positive elements are key-closed tone.
// A trailing +1 is the latch marker forcing the circuit closed.
type Sequence []int

// Latch returns the reserved sequence that forces the circuit closed.
func Latch() Sequence {
	return Sequence{-1000, +1}
}

// Empty reports whether the sequence carries no elements (heartbeat).
func (c Sequence) Empty() bool {
	return len(c) == 0
}

// EndsClosed reports whether the sequence leaves the circuit closed.
func (c Sequence) EndsClosed() bool {
	return len(c) > 0 && c[len(c)-1] == +1
}

// EndsOpen reports whether the sequence leaves the circuit open.
func (c Sequence) EndsOpen() bool {
	return len(c) > 0 && c[len(c)-1] != +1
}

// Validate checks the structural invariants: at least one element, no zero
// durations, and alternating signs, except that a final +1 latch marker may
// follow an element of either sign.
func (c Sequence) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("empty code sequence")
	}
	for i, v := range c {
		if v == 0 {
			return fmt.Errorf("zero duration at element %d", i)
		}
		if i == 0 {
			continue
		}
		if sameSign(c[i-1], v) {
			if i == len(c)-1 && v == +1 {
				continue // latch marker
			}
			return fmt.Errorf("sign does not alternate at element %d", i)
		}
	}
	return nil
}

// Clone returns an independent copy of the sequence.
func (c Sequence) Clone() Sequence {
	if c == nil {
		return nil
	}
	out := make(Sequence, len(c))
	copy(out, c)
	return out
}

// Scaled rescales every element whose magnitude exceeds the debounce floor
// by 100/speedFactor. A factor of 100 returns the sequence unchanged.
func (c Sequence) Scaled(speedFactor int) Sequence {
	if speedFactor == 100 || speedFactor <= 0 {
		return c
	}
	sf := 100.0 / float64(speedFactor)
	out := make(Sequence, len(c))
	for i, v := range c {
		if abs(v) <= DebounceMs {
			out[i] = v
			continue
		}
		out[i] = int(math.Round(sf * float64(v)))
	}
	return out
}

func sameSign(a, b int) bool {
	return (a > 0) == (b > 0)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
