package session

import (
	"strings"
	"testing"

	"github.com/morsekob/kob/internal/code"
)

func TestRecordRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(dir, "kob", 11)
	rec.SetStation("KA, Test Office")

	seq := code.Sequence{-1000, 2, -1000, 60, -60, 60, -1000, 1}
	if err := rec.Record(seq, code.SourceKey); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := rec.Record(nil, code.SourceWire); err != nil {
		t.Fatalf("Record heartbeat failed: %v", err)
	}

	events, _, skipped, err := LoadRecording(rec.Path())
	if err != nil {
		t.Fatalf("LoadRecording failed: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("recorder output must parse cleanly, skipped %d", skipped)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	got := events[0]
	if got.Wire != 11 || got.Station != "KA, Test Office" || got.Origin != OriginLocal {
		t.Fatalf("context not captured: %+v", got)
	}
	if len(got.Code) != len(seq) {
		t.Fatalf("code round-trip failed: %v", got.Code)
	}
	for i := range seq {
		if got.Code[i] != seq[i] {
			t.Fatalf("code round-trip failed: %v != %v", got.Code, seq)
		}
	}
	if events[1].Origin != OriginWire || len(events[1].Code) != 0 {
		t.Fatalf("heartbeat round-trip failed: %+v", events[1])
	}
	if events[1].Timestamp < events[0].Timestamp {
		t.Fatal("timestamps must be non-decreasing in write order")
	}
}

func TestRecorderContextCapturedAtWriteTime(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(dir, "kob", 11)
	rec.SetStation("ONE")
	if err := rec.Record(code.Sequence{-200, 60}, code.SourceKey); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	rec.SetStation("TWO")
	rec.SetWire(109)
	if err := rec.Record(code.Sequence{-200, 60}, code.SourceWire); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	events, _, _, err := LoadRecording(rec.Path())
	if err != nil {
		t.Fatalf("LoadRecording failed: %v", err)
	}
	if events[0].Station != "ONE" || events[0].Wire != 11 {
		t.Fatalf("first event context: %+v", events[0])
	}
	if events[1].Station != "TWO" || events[1].Wire != 109 {
		t.Fatalf("second event context: %+v", events[1])
	}

	sum := rec.Summary()
	if sum.Events != 2 {
		t.Fatalf("summary events = %d", sum.Events)
	}
	if strings.Join(sum.Stations, ",") != "ONE,TWO" {
		t.Fatalf("summary stations = %v", sum.Stations)
	}
	if sum.Started.IsZero() || sum.Ended.Before(sum.Started) {
		t.Fatalf("summary time range invalid: %+v", sum)
	}
}

func TestTargetName(t *testing.T) {
	if got := TargetName("kob", 1693526400123); got != "kob.1693526400123.json" {
		t.Fatalf("TargetName = %q", got)
	}
}
