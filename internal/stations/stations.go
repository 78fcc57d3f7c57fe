// Package stations tracks the stations heard on a wire and which of them is
// currently sending.
package stations

import (
	"sort"
	"sync"
	"time"
)

// Station is one entry in the active-station list.
type Station struct {
	ID        string
	LastHeard time.Time
	Sending   bool
}

// List is a concurrency-safe active-station list.
type List struct {
	mu      sync.Mutex
	entries map[string]time.Time
	current string
	now     func() time.Time
}

// NewList builds an empty station list.
func NewList() *List {
	return &List{entries: make(map[string]time.Time), now: time.Now}
}

// Heard refreshes a station's last-heard timestamp, adding it if new.
func (l *List) Heard(id string) {
	if id == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[id] = l.now()
}

// SetCurrent marks the station recognized as sending. It reports whether the
// current sender actually changed.
func (l *List) SetCurrent(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id != "" {
		l.entries[id] = l.now()
	}
	if l.current == id {
		return false
	}
	l.current = id
	return true
}

// Current returns the station recognized as sending, if any.
func (l *List) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Active returns the stations heard within ttl, most recent first. A zero
// ttl returns everything.
func (l *List) Active(ttl time.Duration) []Station {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Time{}
	if ttl > 0 {
		cutoff = l.now().Add(-ttl)
	}
	out := make([]Station, 0, len(l.entries))
	for id, heard := range l.entries {
		if !cutoff.IsZero() && heard.Before(cutoff) {
			continue
		}
		out = append(out, Station{ID: id, LastHeard: heard, Sending: id == l.current})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastHeard.Equal(out[j].LastHeard) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastHeard.After(out[j].LastHeard)
	})
	return out
}

// Clear empties the list, e.g. on connect or wire change.
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]time.Time)
	l.current = ""
}
