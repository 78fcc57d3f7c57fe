package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/morsekob/kob/internal/code"
)

// Recorder appends routed events to a session log. Each write opens the
// target in append mode, serializes one line, and syncs before returning, so
// a crash loses at most the in-flight line.
type Recorder struct {
	mu       sync.Mutex
	path     string
	station  string
	wire     int
	events   int
	stations map[string]struct{}
	started  time.Time
	ended    time.Time
}

// NewRecorder creates a recorder targeting a fresh timestamp-named log file
// under dir.
func NewRecorder(dir, prefix string, wire int) *Recorder {
	return &Recorder{
		path:     filepath.Join(dir, TargetName(prefix, Timestamp())),
		wire:     wire,
		stations: make(map[string]struct{}),
	}
}

// Path returns the target log file path.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// SetStation updates the station context captured into subsequent events.
func (r *Recorder) SetStation(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.station = id
}

// SetWire updates the wire context captured into subsequent events.
func (r *Recorder) SetWire(wire int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wire = wire
}

// Record appends one event line. Failures are recoverable: the caller's
// event flow continues and the next write retries the open.
func (r *Recorder) Record(seq code.Sequence, src code.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	ev := Event{
		Timestamp: now.UnixMilli(),
		Wire:      r.wire,
		Station:   r.station,
		Origin:    src.Origin(),
		Code:      seq,
	}
	data, err := ev.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close after a failed write.
			_ = cerr
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	if err := f.Sync(); err != nil {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close after a failed sync.
			_ = cerr
		}
		return fmt.Errorf("failed to flush event: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}

	r.events++
	if r.station != "" {
		r.stations[r.station] = struct{}{}
	}
	if r.started.IsZero() {
		r.started = now
	}
	r.ended = now
	return nil
}

// Summary describes what a recorder wrote during its session.
type Summary struct {
	Path     string
	Wire     int
	Stations []string
	Events   int
	Started  time.Time
	Ended    time.Time
}

// Summary returns the session totals accumulated so far.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	stations := make([]string, 0, len(r.stations))
	for id := range r.stations {
		stations = append(stations, id)
	}
	sort.Strings(stations)
	return Summary{
		Path:     r.path,
		Wire:     r.wire,
		Stations: stations,
		Events:   r.events,
		Started:  r.started,
		Ended:    r.ended,
	}
}
