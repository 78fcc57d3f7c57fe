package playui

import (
	"errors"
	"strings"
	"testing"

	"github.com/morsekob/kob/internal/session"
)

func newTestModel() *Model {
	p := session.NewPlayer(nil, nil, session.Options{})
	return NewModel(p, "/tmp/kob.123.json")
}

func TestCharMsgAppendsCopy(t *testing.T) {
	m := newTestModel()
	if _, _ = m.Update(CharMsg{Char: "7", Spacing: 2}); m.copy.String() != "7" {
		t.Fatalf("copy = %q", m.copy.String())
	}
	if _, _ = m.Update(CharMsg{Char: "3", Spacing: 8}); m.copy.String() != "7 3" {
		t.Fatalf("word gap must insert a space, got %q", m.copy.String())
	}
}

func TestSenderMsgMarksNewSender(t *testing.T) {
	m := newTestModel()
	if _, _ = m.Update(SenderMsg{ID: "KA"}); m.curSender != "KA" {
		t.Fatalf("sender = %q", m.curSender)
	}
	if !strings.HasPrefix(m.copy.String(), "[KA] ") {
		t.Fatalf("copy = %q", m.copy.String())
	}
}

func TestDoneMsgEndsPlayback(t *testing.T) {
	m := newTestModel()
	m.width = 80
	if _, _ = m.Update(DoneMsg{}); !m.done {
		t.Fatal("done flag not set")
	}
	if got := m.renderStatus(); !strings.Contains(got, "done") {
		t.Fatalf("status = %q", got)
	}
	if _, _ = m.Update(DoneMsg{Err: errors.New("boom")}); m.playErr == nil {
		t.Fatal("error not kept")
	}
	if got := m.renderStatus(); !strings.Contains(got, "error") {
		t.Fatalf("status = %q", got)
	}
}
