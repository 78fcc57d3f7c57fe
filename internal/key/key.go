// Package key turns timestamped key transitions into code sequences. A
// physical key or a screen key feeds edges in; the builder debounces them,
// groups them into bursts and recognizes the circuit closer being left
// closed as a latch.
package key

import (
	"sync"
	"time"

	"github.com/morsekob/kob/internal/code"
)

const (
	// DefaultMaxIdle is the open-key silence that ends a burst.
	DefaultMaxIdle = 800 * time.Millisecond
	// latchHold is how long the key must stay closed before the closure is
	// read as the circuit closer rather than a long dash.
	latchHold = 1500 * time.Millisecond
)

// Builder accumulates key edges into code sequences. Transition is called on
// every edge; Poll is called periodically to emit bursts that ended with
// silence or with the circuit closer held closed.
type Builder struct {
	mu      sync.Mutex
	maxIdle time.Duration
	last    time.Time
	closed  bool
	started bool
	latched bool
	seq     code.Sequence
}

// NewBuilder builds a key builder. maxIdle <= 0 uses DefaultMaxIdle.
func NewBuilder(maxIdle time.Duration) *Builder {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &Builder{maxIdle: maxIdle}
}

// Transition records a key edge at time t. Bursts complete on Poll, not
// here; an edge only extends the pending sequence.
func (b *Builder) Transition(t time.Time, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		b.started = true
		b.closed = closed
		b.last = t
		return
	}
	if closed == b.closed {
		return
	}

	d := t.Sub(b.last).Milliseconds()
	if d < code.DebounceMs {
		// Contact bounce. Merge the blip back into the previous element so
		// the sign alternation survives.
		if n := len(b.seq); n > 0 {
			prev := b.seq[n-1]
			if prev < 0 {
				prev = -prev
			}
			b.seq = b.seq[:n-1]
			b.last = b.last.Add(-time.Duration(prev) * time.Millisecond)
		}
		b.closed = closed
		return
	}

	if closed {
		// Silence just ended.
		if b.latched {
			// The circuit closer was holding the line. This closure starts
			// a new burst after the silence since the closer opened.
			b.latched = false
			b.seq = code.Sequence{-int(d)}
		} else {
			b.seq = append(b.seq, -int(d))
		}
	} else {
		// Tone just ended.
		b.seq = append(b.seq, int(d))
		if d >= latchHold.Milliseconds() {
			// Not a dash. The operator closed the circuit closer earlier
			// and the latch burst already went out on Poll.
			b.seq = nil
		}
	}
	b.closed = closed
	b.last = t
}

// Poll checks for a finished burst at time t. An open key idle past maxIdle
// emits the pending burst ending open; a key held closed past the latch
// threshold emits the burst with the latch marker appended.
func (b *Builder) Poll(t time.Time) code.Sequence {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started || b.latched {
		return nil
	}
	idle := t.Sub(b.last)
	if b.closed {
		if idle < latchHold {
			return nil
		}
		b.latched = true
		out := code.Latch()
		if len(b.seq) > 0 {
			// The pending burst already carries its own silence; only the
			// marker is needed.
			out = append(b.seq, +1)
		}
		b.seq = nil
		return out
	}
	if idle < b.maxIdle || len(b.seq) == 0 {
		return nil
	}
	out := b.seq
	b.seq = nil
	return out
}

// Latched reports whether the circuit closer currently holds the line.
func (b *Builder) Latched() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latched
}

// Reset drops any pending burst and state.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
	b.latched = false
	b.seq = nil
}
