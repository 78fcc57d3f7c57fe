package morse

import (
	"strings"
	"testing"

	"github.com/morsekob/kob/internal/code"
)

func TestSenderEncode(t *testing.T) {
	s := NewSender(20) // 60 ms dot
	seq := s.Encode('e')
	want := code.Sequence{-180, 60}
	if len(seq) != len(want) {
		t.Fatalf("Encode('e') = %v, want %v", seq, want)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("Encode('e') = %v, want %v", seq, want)
		}
	}
	if err := seq.Validate(); err != nil {
		t.Fatalf("encoded sequence invalid: %v", err)
	}

	seq = s.Encode('t')
	if seq[1] != 180 {
		t.Fatalf("dash must be three dot units, got %v", seq)
	}
}

func TestSenderWordGap(t *testing.T) {
	s := NewSender(20)
	s.Encode('e')
	if seq := s.Encode(' '); seq != nil {
		t.Fatalf("space must encode to nothing, got %v", seq)
	}
	seq := s.Encode('e')
	if seq[0] != -420 {
		t.Fatalf("gap after space must be seven dot units, got %v", seq)
	}
	seq = s.Encode('e')
	if seq[0] != -180 {
		t.Fatalf("ordinary gap must be three dot units, got %v", seq)
	}
}

func TestSenderSkipsUnknown(t *testing.T) {
	s := NewSender(20)
	if seq := s.Encode('©'); seq != nil {
		t.Fatalf("unknown character must be skipped, got %v", seq)
	}
}

func TestReaderDecodesSenderOutput(t *testing.T) {
	var out strings.Builder
	r := NewReader(20, func(char string, spacing float64) {
		if spacing > 5 {
			out.WriteByte(' ')
		}
		out.WriteString(char)
	})
	s := NewSender(20)
	for _, seq := range s.EncodeText("hello world 73") {
		r.Decode(seq)
	}
	r.Flush()
	got := strings.TrimSpace(out.String())
	if got != "hello world 73" {
		t.Fatalf("decoded %q, want %q", got, "hello world 73")
	}
}

func TestReaderFlushOnLatch(t *testing.T) {
	var chars []string
	r := NewReader(20, func(char string, _ float64) { chars = append(chars, char) })
	s := NewSender(20)
	seq := s.Encode('s')
	seq = append(seq, -1000, 1) // burst ends with the latch marker
	r.Decode(seq)
	if len(chars) != 1 || chars[0] != "s" {
		t.Fatalf("latch must flush the pending symbol, got %v", chars)
	}
}

func TestReaderUnknownSymbol(t *testing.T) {
	var chars []string
	r := NewReader(20, func(char string, _ float64) { chars = append(chars, char) })
	// Eight dots is not a character in the table.
	r.Decode(code.Sequence{-420, 60, -60, 60, -60, 60, -60, 60, -60, 60, -60, 60, -60, 60, -60, 60})
	r.Flush()
	if len(chars) != 1 || chars[0] != "?" {
		t.Fatalf("unknown symbol must decode to ?, got %v", chars)
	}
}

func TestReaderResetRestoresNominalSpeed(t *testing.T) {
	r := NewReader(20, nil)
	// Feed fast dots so the unit estimate adapts downward.
	r.Decode(code.Sequence{-420, 30, -30, 30, -30, 30})
	r.Flush()
	if r.unit >= r.nominal {
		t.Fatalf("unit estimate did not adapt: %f", r.unit)
	}
	r.Reset()
	if r.unit != r.nominal {
		t.Fatalf("Reset must restore nominal speed, got %f", r.unit)
	}
}
