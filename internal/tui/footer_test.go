package tui

import (
	"strings"
	"testing"

	"github.com/morsekob/kob/internal/morse"
	"github.com/morsekob/kob/internal/relay"
	"github.com/morsekob/kob/internal/stations"
)

func newTestModel() *Model {
	r := relay.NewRouter(relay.Config{Station: "KA, Test Office", Wire: 11}, nil, nil, nil, nil)
	return NewModel(r, morse.NewSender(morse.DefaultWPM), stations.NewList(), "KA, Test Office", 11)
}

func TestRenderFooterListsActiveStations(t *testing.T) {
	m := newTestModel()
	m.width = 80
	m.actives.Heard("DN, Remote")
	m.actives.SetCurrent("DN, Remote")

	out := m.renderFooter()
	if !strings.Contains(out, "*DN, Remote") {
		t.Fatalf("sending station not flagged: %q", out)
	}
	if !strings.Contains(out, "ctrl+c quit") {
		t.Fatalf("key hints missing: %q", out)
	}
}

func TestRenderHeaderShowsOffline(t *testing.T) {
	m := newTestModel()
	m.width = 80
	out := m.renderHeader()
	if !strings.Contains(out, "wire 11") || !strings.Contains(out, "offline") {
		t.Fatalf("header = %q", out)
	}
}

func TestCharMsgAppendsCopy(t *testing.T) {
	m := newTestModel()
	if _, _ = m.Update(CharMsg{Char: "h", Spacing: 2}); m.copy.String() != "h" {
		t.Fatalf("copy = %q", m.copy.String())
	}
	if _, _ = m.Update(CharMsg{Char: "i", Spacing: 7}); m.copy.String() != "h i" {
		t.Fatalf("word gap must insert a space, got %q", m.copy.String())
	}
}

func TestSenderMsgMarksNewSender(t *testing.T) {
	m := newTestModel()
	if _, _ = m.Update(SenderMsg{ID: "DN, Remote"}); m.curSender != "DN, Remote" {
		t.Fatalf("sender = %q", m.curSender)
	}
	if !strings.HasPrefix(m.copy.String(), "[DN, Remote] ") {
		t.Fatalf("copy = %q", m.copy.String())
	}
}
