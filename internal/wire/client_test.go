package wire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/morsekob/kob/internal/code"
)

// testServer accepts one client, records every frame it receives and lets
// the test push frames back.
type testServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conn   *websocket.Conn
	frames []Frame
	ready  chan struct{}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{ready: make(chan struct{})}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ts.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ts.mu.Lock()
		ts.conn = conn
		ts.mu.Unlock()
		close(ts.ready)
		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			ts.mu.Lock()
			ts.frames = append(ts.frames, f)
			ts.mu.Unlock()
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) send(t *testing.T, f Frame) {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err := ts.conn.WriteJSON(f); err != nil {
		t.Fatalf("server send failed: %v", err)
	}
}

func (ts *testServer) received() []Frame {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]Frame, len(ts.frames))
	copy(out, ts.frames)
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestClientJoinWriteAndReceive(t *testing.T) {
	ts := newTestServer(t)

	var mu sync.Mutex
	var heard []string
	var got []code.Sequence
	c := NewClient(ts.url(), "KA, Test Office", Options{
		OnStation: func(id string) {
			mu.Lock()
			heard = append(heard, id)
			mu.Unlock()
		},
		OnCode: func(_ string, seq code.Sequence) {
			mu.Lock()
			got = append(got, seq)
			mu.Unlock()
		},
	})

	if err := c.Connect(context.Background(), 109); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	<-ts.ready
	if !c.Connected() {
		t.Fatal("client must report connected")
	}

	if err := c.Write(code.Sequence{-200, 60, -60, 180, 1}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	waitFor(t, func() bool { return len(ts.received()) >= 2 }, "server never saw the code frame")

	frames := ts.received()
	if frames[0].Type != FrameConnect || frames[0].Wire != 109 || frames[0].Station != "KA, Test Office" {
		t.Fatalf("join frame wrong: %+v", frames[0])
	}
	if frames[1].Type != FrameCode || len(frames[1].Code) != 5 {
		t.Fatalf("code frame wrong: %+v", frames[1])
	}

	ts.send(t, Frame{Type: FrameID, Station: "DN, Remote"})
	ts.send(t, Frame{Type: FrameCode, Station: "DN, Remote", Wire: 109, Code: code.Sequence{-300, 60, 1}})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && len(heard) == 2
	}, "remote frames never reached the callbacks")

	mu.Lock()
	if heard[0] != "DN, Remote" || heard[1] != "DN, Remote" {
		t.Fatalf("heard = %v", heard)
	}
	if len(got[0]) != 3 || got[0][2] != 1 {
		t.Fatalf("received code = %v", got[0])
	}
	mu.Unlock()

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if c.Connected() {
		t.Fatal("client must report disconnected")
	}
	if err := c.Write(code.Sequence{1}); err == nil {
		t.Fatal("Write after Disconnect must fail")
	}
}

func TestClientSendsIDHeartbeat(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.url(), "KA", Options{IDInterval: 20 * time.Millisecond})
	if err := c.Connect(context.Background(), 11); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer func() {
		if err := c.Disconnect(); err != nil {
			t.Errorf("Disconnect failed: %v", err)
		}
	}()
	<-ts.ready

	waitFor(t, func() bool {
		for _, f := range ts.received() {
			if f.Type == FrameID && f.Station == "KA" && f.Wire == 11 {
				return true
			}
		}
		return false
	}, "no ID heartbeat arrived")
}

func TestClientReportsDroppedConnection(t *testing.T) {
	ts := newTestServer(t)
	closed := make(chan struct{})
	c := NewClient(ts.url(), "KA", Options{
		OnClosed: func(error) { close(closed) },
	})
	if err := c.Connect(context.Background(), 11); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	<-ts.ready

	ts.mu.Lock()
	conn := ts.conn
	ts.mu.Unlock()
	if err := conn.Close(); err != nil {
		t.Fatalf("server close failed: %v", err)
	}

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed never fired")
	}
	waitFor(t, func() bool { return !c.Connected() }, "client still reports connected")
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect after drop must be a no-op, got %v", err)
	}
}
