package report

import (
	"strings"
	"testing"
	"time"

	"github.com/morsekob/kob/internal/model"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"WIRE", "EVENTS", "FILE"}
	rows := [][]string{
		{"11", "3", "kob.1.json"},
		{"109", "120", "kob.2.json"},
	}
	rightAlign := map[int]bool{0: true, 1: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "WIRE  EVENTS  FILE" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "  11       3  kob.1.json" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != " 109     120  kob.2.json" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestRenderListsRecordings(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rep := Report{Recordings: []model.Recording{
		{
			ID:        "a",
			Path:      "/tmp/kob.1.json",
			Wire:      11,
			Stations:  []string{"KA", "DN"},
			Events:    42,
			StartedAt: base,
			EndedAt:   base.Add(90 * time.Second),
		},
	}}

	var out strings.Builder
	if err := Render(&out, rep); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "WIRE") || !strings.Contains(got, "STATIONS") {
		t.Fatalf("header missing: %q", got)
	}
	if !strings.Contains(got, "1m30s") {
		t.Fatalf("duration missing: %q", got)
	}
	if !strings.Contains(got, "KA; DN") {
		t.Fatalf("stations missing: %q", got)
	}
}

func TestRenderEmptyReport(t *testing.T) {
	var out strings.Builder
	if err := Render(&out, Report{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out.String(), "No recordings") {
		t.Fatalf("empty listing message missing: %q", out.String())
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m30s"},
		{3*time.Hour + 5*time.Minute, "3h05m"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
