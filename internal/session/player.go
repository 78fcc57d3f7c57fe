package session

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/morsekob/kob/internal/code"
)

// PlaybackState is the player's lifecycle state.
type PlaybackState int

// Player states. End-of-stream returns to idle; it is not a distinct state.
const (
	StateIdle PlaybackState = iota
	StatePlaying
	StatePaused
)

// String implements fmt.Stringer.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a playback run.
type Options struct {
	// List, when set, receives every raw log line as it is reached.
	List func(ts time.Time, line string)
	// MaxSilence caps reconstructed real-time gaps. Zero means uncapped.
	MaxSilence time.Duration
	// SpeedFactor is a percentage; 100 (or 0) plays in real time.
	SpeedFactor int
	// OnCode receives each playable code sequence, rescaled and with any
	// already-slept leading pause neutralized.
	OnCode func(seq code.Sequence)
	// OnStation fires before code dispatch whenever the station changes.
	OnStation func(id string)
	// OnWire fires before code dispatch whenever the wire changes.
	OnWire func(wire int)
}

type cmdKind int

const (
	cmdPause cmdKind = iota
	cmdResume
	cmdStop
	cmdSeekSeconds
	cmdSenderBegin
	cmdSenderEnd
)

type command struct {
	kind    cmdKind
	seconds int
}

type sleepResult int

const (
	sleepDone sleepResult = iota
	sleepStopped
	sleepSeeked
)

// Player reproduces a session log's timing. One Play call runs at a time;
// pause/resume/stop/seek may be issued from any goroutine, including while
// the player sleeps through a silence gap.
type Player struct {
	events []Event
	raws   []string
	opts   Options

	mu    sync.Mutex
	state PlaybackState

	cmds chan command

	// Loop-local cursor state, touched only by the Play goroutine.
	pos         int
	lastTS      int64
	lastWire    int
	haveWire    bool
	lastStation string
	haveStation bool
}

// NewPlayer builds a player over parsed events. raws must align with events
// when list mode is used; it may be nil otherwise.
func NewPlayer(events []Event, raws []string, opts Options) *Player {
	if opts.SpeedFactor <= 0 {
		opts.SpeedFactor = 100
	}
	return &Player{
		events: events,
		raws:   raws,
		opts:   opts,
		cmds:   make(chan command, 16),
	}
}

// LoadRecording reads a session log, returning the parsed events, their raw
// lines, and the number of lines skipped as unparsable.
func LoadRecording(path string) ([]Event, []string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to open recording: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}()

	var events []Event
	var raws []string
	skipped := 0
	lineNo := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		var ev Event
		if err := ev.UnmarshalJSON([]byte(line)); err != nil {
			skipped++
			logErrf("skipping unparsable line %d: %v\n", lineNo, err)
			continue
		}
		events = append(events, ev)
		raws = append(raws, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, 0, fmt.Errorf("failed to read recording: %w", err)
	}
	return events, raws, skipped, nil
}

// State returns the current playback state.
func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) setState(s PlaybackState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Pause suspends playback without losing position.
func (p *Player) Pause() { p.send(command{kind: cmdPause}) }

// Resume continues a paused playback, re-anchoring wall-clock references so
// the pause duration does not inflate subsequent gaps.
func (p *Player) Resume() { p.send(command{kind: cmdResume}) }

// Stop ends playback. Safe to call at any time, including mid-sleep.
func (p *Player) Stop() { p.send(command{kind: cmdStop}) }

// MoveSeconds repositions the cursor by a signed number of seconds. Issued
// while paused it only updates position.
func (p *Player) MoveSeconds(n int) { p.send(command{kind: cmdSeekSeconds, seconds: n}) }

// MoveToSenderBegin repositions to the first event of the current sender's
// run.
func (p *Player) MoveToSenderBegin() { p.send(command{kind: cmdSenderBegin}) }

// MoveToSenderEnd repositions past the current sender's run.
func (p *Player) MoveToSenderEnd() { p.send(command{kind: cmdSenderEnd}) }

func (p *Player) send(c command) {
	select {
	case p.cmds <- c:
	default:
		// A full queue means a command burst the loop has not consumed
		// yet; dropping the newest is safer than blocking a UI thread.
		logErrf("player command queue full, dropping %d\n", c.kind)
	}
}

// Play runs the playback loop until end-of-stream, Stop, or context
// cancellation. It blocks the calling goroutine.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return fmt.Errorf("playback already running")
	}
	p.state = StatePlaying
	p.mu.Unlock()
	defer p.setState(StateIdle)

	// Discard stale commands from a previous run.
	for {
		select {
		case <-p.cmds:
			continue
		default:
		}
		break
	}

	p.pos = 0
	p.lastTS = -1
	p.haveWire = false
	p.haveStation = false

	for {
		if !p.waitReady(ctx) {
			return nil
		}
		if p.pos >= len(p.events) {
			return nil
		}
		ev := p.events[p.pos]
		var raw string
		if p.pos < len(p.raws) {
			raw = p.raws[p.pos]
		}
		p.pos++

		if p.opts.List != nil {
			p.opts.List(ev.Time(), raw)
		}
		if p.lastTS < 0 {
			p.lastTS = ev.Timestamp
		}
		if len(ev.Code) == 0 {
			continue // heartbeat
		}

		if !p.haveWire || ev.Wire != p.lastWire {
			p.lastWire = ev.Wire
			p.haveWire = true
			if p.opts.OnWire != nil {
				p.opts.OnWire(ev.Wire)
			}
		}
		if !p.haveStation || ev.Station != p.lastStation {
			p.lastStation = ev.Station
			p.haveStation = true
			if p.opts.OnStation != nil {
				p.opts.OnStation(ev.Station)
			}
		}

		seq := ev.Code.Clone()
		if hasLongLeadingPause(seq) {
			pause := realPause(ev.Timestamp, p.lastTS, p.opts.MaxSilence)
			switch p.sleep(ctx, pause) {
			case sleepStopped:
				return nil
			case sleepSeeked:
				// Position moved; this event is not played.
				continue
			case sleepDone:
				// The gap has been slept here; do not double-apply it.
				seq[0] = -1
			}
		}
		if p.opts.SpeedFactor != 100 {
			seq = seq.Scaled(p.opts.SpeedFactor)
		}
		if p.opts.OnCode != nil {
			p.opts.OnCode(seq)
		}
		p.lastTS = ev.Timestamp
	}
}

// hasLongLeadingPause reports whether the sequence starts with a silence the
// player must reproduce itself: longer than one second but below the
// discontinuity sentinel (which marks an unknowable gap).
func hasLongLeadingPause(seq code.Sequence) bool {
	if len(seq) == 0 || seq[0] >= 0 {
		return false
	}
	ms := -seq[0]
	return ms > 1000 && ms < code.DiscontinuityMs
}

// realPause reconstructs the real-time gap before an event from the log
// timestamps, capped by maxSilence when configured. Out-of-order timestamps
// yield zero rather than an error.
func realPause(ts, lastTS int64, maxSilence time.Duration) time.Duration {
	if lastTS < 0 || ts <= lastTS {
		return 0
	}
	pause := time.Duration(ts-lastTS) * time.Millisecond
	if maxSilence > 0 && pause > maxSilence {
		logErrf("real-time pause of %s reduced to %s\n", pause.Round(time.Millisecond), maxSilence)
		return maxSilence
	}
	return pause
}

// waitReady drains pending commands and blocks while paused. It returns
// false when playback must end.
func (p *Player) waitReady(ctx context.Context) bool {
	for {
		if p.State() == StatePaused {
			select {
			case <-ctx.Done():
				return false
			case c := <-p.cmds:
				if p.handleCmd(c) == actStop {
					return false
				}
			}
			continue
		}
		select {
		case c := <-p.cmds:
			if p.handleCmd(c) == actStop {
				return false
			}
			continue
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
}

type action int

const (
	actNone action = iota
	actStop
	actSeek
)

func (p *Player) handleCmd(c command) action {
	switch c.kind {
	case cmdPause:
		if p.State() == StatePlaying {
			p.setState(StatePaused)
		}
	case cmdResume:
		if p.State() == StatePaused {
			p.setState(StatePlaying)
		}
	case cmdStop:
		return actStop
	case cmdSeekSeconds:
		p.seekSeconds(c.seconds)
		return actSeek
	case cmdSenderBegin:
		p.seekSenderBegin()
		return actSeek
	case cmdSenderEnd:
		p.seekSenderEnd()
		return actSeek
	}
	return actNone
}

// sleep waits out a reconstructed gap while staying responsive to commands.
// A pause suspends the remaining sleep; resume restarts only the remainder,
// so wall-clock time spent paused never stretches the gap.
func (p *Player) sleep(ctx context.Context, d time.Duration) sleepResult {
	if d <= 0 {
		return sleepDone
	}
	remaining := d
	start := time.Now()
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return sleepStopped
		case <-timer.C:
			return sleepDone
		case c := <-p.cmds:
			switch c.kind {
			case cmdStop:
				return sleepStopped
			case cmdSeekSeconds, cmdSenderBegin, cmdSenderEnd:
				if p.handleCmd(c) == actSeek {
					return sleepSeeked
				}
			case cmdPause:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				remaining -= time.Since(start)
				if remaining < 0 {
					remaining = 0
				}
				p.setState(StatePaused)
				res, resume := p.sleepPaused(ctx)
				if !resume {
					return res
				}
				start = time.Now()
				timer.Reset(remaining)
			case cmdResume:
				// Already playing.
			}
		}
	}
}

// sleepPaused blocks while paused mid-sleep. It returns resume == true when
// the interrupted sleep should continue, or a final result otherwise.
func (p *Player) sleepPaused(ctx context.Context) (sleepResult, bool) {
	seeked := false
	for {
		select {
		case <-ctx.Done():
			return sleepStopped, false
		case c := <-p.cmds:
			switch c.kind {
			case cmdStop:
				return sleepStopped, false
			case cmdResume:
				p.setState(StatePlaying)
				if seeked {
					// The position moved while paused; abandon the
					// interrupted event entirely.
					return sleepSeeked, false
				}
				return sleepDone, true
			case cmdSeekSeconds, cmdSenderBegin, cmdSenderEnd:
				// A move while paused updates position only.
				p.handleCmd(c)
				seeked = true
			case cmdPause:
				// Already paused.
			}
		}
	}
}

func (p *Player) seekSeconds(n int) {
	if len(p.events) == 0 {
		return
	}
	cur := p.lastTS
	if cur < 0 {
		cur = p.events[0].Timestamp
	}
	target := cur + int64(n)*1000
	pos := 0
	for pos < len(p.events) && p.events[pos].Timestamp < target {
		pos++
	}
	p.setPos(pos)
}

func (p *Player) seekSenderBegin() {
	ref := p.refIndex()
	if ref < 0 {
		return
	}
	station := p.events[ref].Station
	begin := ref
	for begin > 0 && p.events[begin-1].Station == station {
		begin--
	}
	p.setPos(begin)
}

func (p *Player) seekSenderEnd() {
	ref := p.refIndex()
	if ref < 0 {
		return
	}
	station := p.events[ref].Station
	end := ref
	for end < len(p.events) && p.events[end].Station == station {
		end++
	}
	p.setPos(end)
}

// refIndex is the event defining the "current" sender: the one last played,
// or the upcoming one when nothing has played yet.
func (p *Player) refIndex() int {
	if len(p.events) == 0 {
		return -1
	}
	ref := p.pos - 1
	if ref < 0 {
		ref = 0
	}
	if ref >= len(p.events) {
		ref = len(p.events) - 1
	}
	return ref
}

// setPos moves the cursor and re-derives the last-seen wire and station from
// the events now behind it, so change callbacks fire correctly on resume.
func (p *Player) setPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(p.events) {
		pos = len(p.events)
	}
	p.pos = pos
	if pos == 0 {
		p.lastTS = -1
		p.haveWire = false
		p.haveStation = false
		return
	}
	prev := p.events[pos-1]
	p.lastTS = prev.Timestamp
	p.lastWire = prev.Wire
	p.haveWire = true
	p.lastStation = prev.Station
	p.haveStation = true
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
