// Package wire connects a session to a shared relay server over a
// websocket, exchanging code frames with the remote stations on a wire.
package wire

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/morsekob/kob/internal/code"
)

// Frame types on the wire.
const (
	FrameConnect    = "connect"
	FrameDisconnect = "disconnect"
	FrameCode       = "code"
	FrameID         = "id"
)

// Frame is one message exchanged with the relay server. Field names mirror
// the session log so captures of either are readable the same way.
type Frame struct {
	Type    string        `json:"t"`
	Station string        `json:"s"`
	Wire    int           `json:"w"`
	Code    code.Sequence `json:"c,omitempty"`
}

// Options carries the client callbacks. All callbacks run on the client's
// read goroutine and must not block.
type Options struct {
	// OnCode receives code sent by a remote station.
	OnCode func(station string, seq code.Sequence)
	// OnStation fires for every station heard, code or ID heartbeat.
	OnStation func(id string)
	// OnClosed fires when the connection drops for a reason other than a
	// local Disconnect.
	OnClosed func(err error)
	// IDInterval is the station-ID heartbeat period. Zero uses a default.
	IDInterval time.Duration
}

const defaultIDInterval = 20 * time.Second

// Client is a wire connection. Connect/Disconnect pair; Write may be called
// from any goroutine while connected.
type Client struct {
	url     string
	station string
	opts    Options

	mu      sync.Mutex
	conn    *websocket.Conn
	wireNo  int
	done    chan struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewClient builds a client for a relay server URL ("ws://host/wire").
func NewClient(serverURL, station string, opts Options) *Client {
	if opts.IDInterval <= 0 {
		opts.IDInterval = defaultIDInterval
	}
	return &Client{url: serverURL, station: station, opts: opts}
}

// Connect dials the server and joins a wire. The read loop and the ID
// heartbeat run until Disconnect or a connection failure.
func (c *Client) Connect(ctx context.Context, wireNo int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return fmt.Errorf("already connected")
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial wire server: %w", err)
	}
	if err := conn.WriteJSON(Frame{Type: FrameConnect, Station: c.station, Wire: wireNo}); err != nil {
		if cerr := conn.Close(); cerr != nil {
			// Best-effort close of a half-open connection.
			_ = cerr
		}
		return fmt.Errorf("failed to join wire %d: %w", wireNo, err)
	}
	c.conn = conn
	c.wireNo = wireNo
	c.closing = false
	c.done = make(chan struct{})
	c.wg.Add(2)
	go c.readLoop(conn)
	go c.idLoop(conn, c.done)
	return nil
}

// Disconnect leaves the wire and closes the connection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.conn = nil
	close(c.done)
	// Best-effort goodbye; the close below is what matters.
	if err := conn.WriteJSON(Frame{Type: FrameDisconnect, Station: c.station, Wire: c.wireNo}); err != nil {
		_ = err
	}
	c.mu.Unlock()
	err := conn.Close()
	c.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close wire connection: %w", err)
	}
	return nil
}

// Connected reports whether the client currently holds a connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Write sends a code sequence to the wire.
func (c *Client) Write(seq code.Sequence) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := c.conn.WriteJSON(Frame{Type: FrameCode, Station: c.station, Wire: c.wireNo, Code: seq}); err != nil {
		return fmt.Errorf("failed to write code to wire: %w", err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			c.mu.Lock()
			closing := c.closing
			if !closing {
				c.conn = nil
				c.closing = true
				close(c.done)
			}
			c.mu.Unlock()
			if !closing {
				if cerr := conn.Close(); cerr != nil {
					// Best-effort close of a dead connection.
					_ = cerr
				}
				logErrf("wire connection lost: %v\n", err)
				if c.opts.OnClosed != nil {
					c.opts.OnClosed(err)
				}
			}
			return
		}
		switch f.Type {
		case FrameCode:
			if c.opts.OnStation != nil && f.Station != "" {
				c.opts.OnStation(f.Station)
			}
			if c.opts.OnCode != nil && len(f.Code) > 0 {
				c.opts.OnCode(f.Station, f.Code)
			}
		case FrameID:
			if c.opts.OnStation != nil && f.Station != "" {
				c.opts.OnStation(f.Station)
			}
		default:
			// Server housekeeping frames are ignored.
		}
	}
}

// idLoop announces the local station periodically so the other stations'
// lists stay fresh.
func (c *Client) idLoop(conn *websocket.Conn, done chan struct{}) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.IDInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != conn {
				c.mu.Unlock()
				return
			}
			err := conn.WriteJSON(Frame{Type: FrameID, Station: c.station, Wire: c.wireNo})
			c.mu.Unlock()
			if err != nil {
				logErrf("failed to send station ID: %v\n", err)
			}
		}
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
