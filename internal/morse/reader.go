package morse

import (
	"strings"

	"github.com/morsekob/kob/internal/code"
)

// Reader decodes incoming code sequences into characters. It adapts its dot
// estimate to the observed cadence and must be reset to nominal speed when a
// new sender takes the line.
type Reader struct {
	nominal float64
	unit    float64

	symbol  strings.Builder
	lastGap float64 // ms of silence preceding the pending symbol
	cb      func(char string, spacing float64)
}

// NewReader builds a reader expecting the given words per minute. The
// callback receives each decoded character together with the silence that
// preceded it, expressed in dot units.
func NewReader(wpm int, cb func(char string, spacing float64)) *Reader {
	u := unitMs(wpm)
	return &Reader{nominal: u, unit: u, cb: cb}
}

// Decode feeds one code sequence into the decoder. Output characters are
// delivered through the callback as soon as a character gap is seen.
func (r *Reader) Decode(seq code.Sequence) {
	for _, v := range seq {
		if v < 0 {
			r.space(float64(-v))
			continue
		}
		if v <= code.DebounceMs {
			// Latch marker or contact bounce: no more marks are coming.
			r.Flush()
			continue
		}
		r.mark(float64(v))
	}
}

// Flush decodes whatever symbol fragment is pending. Call when a burst ends
// instead of waiting for a trailing gap.
func (r *Reader) Flush() {
	if r.symbol.Len() == 0 {
		return
	}
	r.emit()
}

// Reset returns the decoder to its nominal speed and discards pending state.
// Issued when sender identity changes, since the new cadence is unknown.
func (r *Reader) Reset() {
	r.unit = r.nominal
	r.symbol.Reset()
	r.lastGap = 0
}

func (r *Reader) space(d float64) {
	if d >= code.DiscontinuityMs {
		r.Flush()
		r.lastGap = d
		return
	}
	if r.symbol.Len() > 0 && d > 2*r.unit {
		r.emit()
		r.lastGap = d
		return
	}
	if r.symbol.Len() == 0 {
		r.lastGap += d
	}
}

func (r *Reader) mark(d float64) {
	if d < 2*r.unit {
		r.symbol.WriteByte('.')
		// Dots track the sender's speed; dashes vary too much with style.
		r.unit = (r.unit + d) / 2
	} else {
		r.symbol.WriteByte('-')
	}
}

func (r *Reader) emit() {
	sym := r.symbol.String()
	r.symbol.Reset()
	ch, ok := decodeTable[sym]
	text := string(ch)
	if !ok {
		text = "?"
	}
	if r.cb != nil {
		r.cb(text, r.lastGap/r.unit)
	}
	r.lastGap = 0
}
