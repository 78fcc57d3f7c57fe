package key

import (
	"testing"
	"time"

	"github.com/morsekob/kob/internal/code"
)

func ms(base time.Time, n int) time.Time {
	return base.Add(time.Duration(n) * time.Millisecond)
}

func wantSeq(t *testing.T, got, want code.Sequence) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence = %v, want %v", got, want)
		}
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("emitted sequence invalid: %v", err)
	}
}

func TestBurstEndsAfterIdleSilence(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewBuilder(400 * time.Millisecond)

	b.Transition(ms(base, 0), true)
	b.Transition(ms(base, 60), false)
	b.Transition(ms(base, 120), true)
	b.Transition(ms(base, 180), false)

	if got := b.Poll(ms(base, 500)); got != nil {
		t.Fatalf("burst emitted before idle elapsed: %v", got)
	}
	got := b.Poll(ms(base, 600))
	wantSeq(t, got, code.Sequence{60, -60, 60})
	if !got.EndsOpen() {
		t.Fatal("idle burst must end open")
	}
	if again := b.Poll(ms(base, 700)); again != nil {
		t.Fatalf("burst must emit once, got %v", again)
	}
}

func TestCircuitCloserEmitsLatch(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewBuilder(0)

	b.Transition(ms(base, 0), true)
	if got := b.Poll(ms(base, 1000)); got != nil {
		t.Fatalf("latch emitted too early: %v", got)
	}
	got := b.Poll(ms(base, 1600))
	wantSeq(t, got, code.Latch())
	if !b.Latched() {
		t.Fatal("builder must report latched")
	}
	if again := b.Poll(ms(base, 2000)); again != nil {
		t.Fatalf("latch must emit once, got %v", again)
	}

	// Opening the closer and keying again starts a fresh burst that
	// carries the silence since the closer opened.
	b.Transition(ms(base, 3000), false)
	b.Transition(ms(base, 3500), true)
	if b.Latched() {
		t.Fatal("a closure must clear the latch")
	}
	b.Transition(ms(base, 3560), false)
	wantSeq(t, b.Poll(ms(base, 4000)), code.Sequence{-500, 60})
}

func TestLatchAfterCodeAppendsMarkerOnly(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewBuilder(0)

	b.Transition(ms(base, 0), true)
	b.Transition(ms(base, 60), false)
	b.Transition(ms(base, 120), true) // closer stays closed from here

	got := b.Poll(ms(base, 2000))
	wantSeq(t, got, code.Sequence{60, -60, 1})
	if !got.EndsClosed() {
		t.Fatal("latched burst must end closed")
	}
}

func TestBounceMergesIntoPreviousElement(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewBuilder(400 * time.Millisecond)

	b.Transition(ms(base, 0), true)
	b.Transition(ms(base, 100), false)
	b.Transition(ms(base, 101), true) // bounce, rejoins the tone
	b.Transition(ms(base, 250), false)

	wantSeq(t, b.Poll(ms(base, 700)), code.Sequence{250})
}

func TestResetDropsPendingBurst(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewBuilder(400 * time.Millisecond)

	b.Transition(ms(base, 0), true)
	b.Transition(ms(base, 60), false)
	b.Reset()
	if got := b.Poll(ms(base, 600)); got != nil {
		t.Fatalf("Reset must drop the pending burst, got %v", got)
	}
}
