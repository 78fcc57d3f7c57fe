// Package session records routed code events to a durable log and plays
// such logs back with speed, seek, and pause controls.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/morsekob/kob/internal/code"
)

// Origin labels for the "o" log field.
const (
	OriginLocal = "local"
	OriginWire  = "wire"
)

// Event is one immutable log record: a code sequence together with the
// context it was routed under. Serialized as a single JSON line.
type Event struct {
	Timestamp int64  // ms since epoch
	Wire      int
	Station   string
	Origin    string
	Code      code.Sequence
}

type eventJSON struct {
	TS *int64         `json:"ts"`
	W  *int           `json:"w"`
	S  *string        `json:"s"`
	O  *string        `json:"o"`
	C  *code.Sequence `json:"c"`
}

// MarshalJSON writes the fixed five-key line format. A nil code marshals as
// an empty array so heartbeats stay parseable.
func (e Event) MarshalJSON() ([]byte, error) {
	c := e.Code
	if c == nil {
		c = code.Sequence{}
	}
	return json.Marshal(struct {
		TS int64         `json:"ts"`
		W  int           `json:"w"`
		S  string        `json:"s"`
		O  string        `json:"o"`
		C  code.Sequence `json:"c"`
	}{e.Timestamp, e.Wire, e.Station, e.Origin, c})
}

// UnmarshalJSON parses one log line, requiring all five keys.
func (e *Event) UnmarshalJSON(data []byte) error {
	var aux eventJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.TS == nil || aux.W == nil || aux.S == nil || aux.O == nil || aux.C == nil {
		return fmt.Errorf("log line is missing a mandatory key")
	}
	if *aux.O != OriginLocal && *aux.O != OriginWire {
		return fmt.Errorf("unknown origin %q", *aux.O)
	}
	e.Timestamp = *aux.TS
	e.Wire = *aux.W
	e.Station = *aux.S
	e.Origin = *aux.O
	e.Code = *aux.C
	return nil
}

// FromWire reports whether the event originated at a remote station.
func (e Event) FromWire() bool {
	return e.Origin == OriginWire
}

// Time returns the event timestamp as wall-clock time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Timestamp returns the current millisecond epoch timestamp used for event
// stamping and target-file naming.
func Timestamp() int64 {
	return time.Now().UnixMilli()
}

// TargetName builds the session log file name for a given prefix and
// timestamp, e.g. "kob.1693526400123.json".
func TargetName(prefix string, ts int64) string {
	return fmt.Sprintf("%s.%d.json", prefix, ts)
}
