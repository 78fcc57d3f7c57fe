package morse

import (
	"unicode"

	"github.com/morsekob/kob/internal/code"
)

// Sender converts characters into code sequences at a fixed speed. It keeps
// the inter-character spacing state between calls, so encoding a string one
// character at a time yields correctly spaced output.
type Sender struct {
	unit         int
	spacePending bool
}

// NewSender builds a sender keying at the given words per minute.
func NewSender(wpm int) *Sender {
	return &Sender{unit: int(unitMs(wpm))}
}

// Encode returns the code sequence for one character, led by the appropriate
// inter-character or inter-word gap. Spaces return nil and widen the gap of
// the next character. Unknown characters are skipped (nil).
func (s *Sender) Encode(ch rune) code.Sequence {
	ch = unicode.ToLower(ch)
	if unicode.IsSpace(ch) {
		s.spacePending = true
		return nil
	}
	sym, ok := encodeTable[ch]
	if !ok {
		return nil
	}
	gap := 3 * s.unit
	if s.spacePending {
		gap = 7 * s.unit
		s.spacePending = false
	}
	seq := make(code.Sequence, 0, 2*len(sym))
	seq = append(seq, -gap)
	for i, el := range sym {
		if i > 0 {
			seq = append(seq, -s.unit)
		}
		if el == '.' {
			seq = append(seq, s.unit)
		} else {
			seq = append(seq, 3*s.unit)
		}
	}
	return seq
}

// EncodeText encodes a whole string into per-character sequences, dropping
// characters with no Morse representation.
func (s *Sender) EncodeText(text string) []code.Sequence {
	var out []code.Sequence
	for _, ch := range text {
		if seq := s.Encode(ch); seq != nil {
			out = append(out, seq)
		}
	}
	return out
}
