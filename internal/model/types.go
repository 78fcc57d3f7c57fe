// Package model defines shared data structures.
package model

import "time"

// Recording is one archived session in the recordings index. The session
// itself lives in the JSONL file at Path; the index row carries what the
// listing needs without reading the file.
type Recording struct {
	ID        string
	Path      string
	Wire      int
	Stations  []string
	Events    int
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration is the recorded span, zero when the session had no events.
func (r Recording) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// RecordingsFilter filters the recordings listing.
type RecordingsFilter struct {
	Wire  int
	Since *time.Time
	Last  int
}
