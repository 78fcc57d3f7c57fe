package relay

import (
	"fmt"
	"os"
	"sync"

	"github.com/morsekob/kob/internal/code"
)

// Sounder renders a code sequence audibly (or visually).
type Sounder interface {
	Sound(seq code.Sequence)
}

// SounderFunc adapts a function to the Sounder interface.
type SounderFunc func(seq code.Sequence)

// Sound implements Sounder.
func (f SounderFunc) Sound(seq code.Sequence) { f(seq) }

// Codec is the character-level Morse decoder the router feeds.
type Codec interface {
	Decode(seq code.Sequence)
	Flush()
	Reset()
}

// Wire carries code to the remote stations sharing the line.
type Wire interface {
	Write(seq code.Sequence) error
}

// Appender persists routed events. Station and wire context are pushed into
// the appender as they change and captured per event at write time.
type Appender interface {
	Record(seq code.Sequence, src code.Source) error
	SetStation(id string)
	SetWire(wire int)
}

// Observer receives typed notifications from the router.
type Observer interface {
	SenderChanged(id string)
	WireChanged(wire int)
	CodeEmitted(seq code.Sequence, src code.Source)
}

// Config carries the session parameters the router arbitrates with.
type Config struct {
	Station string
	Wire    int
	Local   bool // sound keyboard-sent code on the local sounder
	Remote  bool // forward locally keyed code to the wire
}

type recordJob struct {
	seq code.Sequence
	src code.Source
}

// Router is the central dispatcher. Key, keyboard, and wire producers may
// call Route concurrently; shared circuit/sender state is serialized here.
type Router struct {
	mu        sync.Mutex
	cfg       Config
	circ      circuit
	connected bool

	sounder   Sounder
	codec     Codec
	wire      Wire
	rec       Appender
	observers []Observer

	// Recorder writes run on their own worker so a slow disk never delays
	// the packet-to-sounder path.
	recCh  chan recordJob
	recWG  sync.WaitGroup
	closed bool
}

// NewRouter builds a router. Any collaborator may be nil to disable that
// path (e.g. rec == nil disables recording, wire == nil means offline).
func NewRouter(cfg Config, snd Sounder, cdc Codec, w Wire, rec Appender) *Router {
	r := &Router{
		cfg:     cfg,
		sounder: snd,
		codec:   cdc,
		wire:    w,
		rec:     rec,
		recCh:   make(chan recordJob, 64),
	}
	if rec != nil {
		rec.SetStation("")
		rec.SetWire(cfg.Wire)
		r.recWG.Add(1)
		go r.recordLoop()
	}
	return r
}

// AddObserver registers an observer for sender/wire/code notifications.
func (r *Router) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Close drains the recorder queue and stops the worker. The router must not
// be routed to afterwards.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	close(r.recCh)
	r.recWG.Wait()
}

func (r *Router) recordLoop() {
	defer r.recWG.Done()
	for job := range r.recCh {
		if err := r.rec.Record(job.seq, job.src); err != nil {
			// Recording failure must not halt the relay.
			logErrf("failed to record code: %v\n", err)
		}
	}
}

func (r *Router) enqueueRecord(seq code.Sequence, src code.Source) {
	if r.rec == nil || r.closed {
		return
	}
	select {
	case r.recCh <- recordJob{seq: seq.Clone(), src: src}:
	default:
		logErrf("recorder queue full, dropping one event\n")
	}
}

// Route dispatches one code packet from the given origin, applying the
// arbitration rules. Malformed sequences are logged and dropped.
func (r *Router) Route(seq code.Sequence, src code.Source) {
	if err := seq.Validate(); err != nil {
		logErrf("dropping malformed code from %s: %v\n", src, err)
		return
	}

	r.mu.Lock()
	var after []func()
	notify := func(f func()) { after = append(after, f) }

	// The trailing element's sign tracks the local key state. Wire packets
	// never drive the local circuit; arbitration reads it instead.
	local := src != code.SourceWire
	endsClosed := seq.EndsClosed()
	if local && !endsClosed {
		r.circ.setOpen()
	}

	if local {
		r.routeLocalLocked(seq, src, notify)
	} else {
		r.routeWireLocked(seq, notify)
	}

	if local && endsClosed {
		r.circ.setClosed()
		if r.codec != nil {
			// No more input is coming for this burst.
			r.codec.Flush()
		}
	}
	r.mu.Unlock()

	for _, f := range after {
		f()
	}
}

func (r *Router) routeLocalLocked(seq code.Sequence, src code.Source, notify func(func())) {
	if !r.circ.open {
		return
	}
	if r.connected && r.cfg.Remote && r.wire != nil {
		if err := r.wire.Write(seq); err != nil {
			logErrf("failed to write code to wire: %v\n", err)
		}
	}
	if r.circ.internetActive {
		// A remote station holds the line; local code stays off the
		// sounder, decoder, and log.
		return
	}
	if src == code.SourceKeyboard && r.cfg.Local && r.sounder != nil {
		r.sounder.Sound(seq)
	}
	r.updateSenderLocked(r.cfg.Station, notify)
	r.enqueueRecord(seq, src)
	if r.codec != nil {
		r.codec.Decode(seq)
	}
	r.notifyCodeLocked(seq, src, notify)
}

func (r *Router) routeWireLocked(seq code.Sequence, notify func(func())) {
	if !r.connected {
		// Packet raced a local disconnect; drop it and release the line.
		r.circ.internetActive = false
		return
	}
	if r.circ.open {
		// Local operator is keying; the wire has lost the line.
		r.circ.internetActive = false
		return
	}
	r.circ.internetActive = true
	if r.sounder != nil {
		r.sounder.Sound(seq)
	}
	r.enqueueRecord(seq, code.SourceWire)
	if r.codec != nil {
		r.codec.Decode(seq)
	}
	r.notifyCodeLocked(seq, code.SourceWire, notify)
}

// UpdateSender records a newly recognized sending station. On an identity
// change the codec is flushed and reset to nominal speed, observers are
// notified, and the recorder context is updated. Repeats are a no-op.
func (r *Router) UpdateSender(id string) {
	r.mu.Lock()
	var after []func()
	r.updateSenderLocked(id, func(f func()) { after = append(after, f) })
	r.mu.Unlock()
	for _, f := range after {
		f()
	}
}

func (r *Router) updateSenderLocked(id string, notify func(func())) {
	if !r.circ.setSender(id) {
		return
	}
	if r.codec != nil {
		r.codec.Flush()
		r.codec.Reset()
	}
	if r.rec != nil {
		r.rec.SetStation(id)
	}
	observers := append([]Observer(nil), r.observers...)
	notify(func() {
		for _, o := range observers {
			o.SenderChanged(id)
		}
	})
}

func (r *Router) notifyCodeLocked(seq code.Sequence, src code.Source, notify func(func())) {
	if len(r.observers) == 0 {
		return
	}
	observers := append([]Observer(nil), r.observers...)
	emitted := seq.Clone()
	notify(func() {
		for _, o := range observers {
			o.CodeEmitted(emitted, src)
		}
	})
}

// SetConnected flips the wire connection state. Disconnecting forces the
// circuit closed through the latch marker so the sounder cannot hang
// keyed-down, and releases the line.
func (r *Router) SetConnected(connected bool) {
	r.mu.Lock()
	if r.connected == connected {
		r.mu.Unlock()
		return
	}
	r.connected = connected
	if connected {
		r.mu.Unlock()
		return
	}
	r.circ.reset()
	latch := code.Latch()
	if r.sounder != nil {
		r.sounder.Sound(latch)
	}
	if r.codec != nil {
		r.codec.Decode(latch)
		r.codec.Flush()
	}
	r.mu.Unlock()
}

// ChangeWire switches the session to another wire number and tells the
// recorder and observers about it.
func (r *Router) ChangeWire(wire int) {
	r.mu.Lock()
	if r.cfg.Wire == wire {
		r.mu.Unlock()
		return
	}
	r.cfg.Wire = wire
	if r.rec != nil {
		r.rec.SetWire(wire)
	}
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()
	for _, o := range observers {
		o.WireChanged(wire)
	}
}

// ResetWireState releases the line locally (operator regains control).
func (r *Router) ResetWireState() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.circ.internetActive = false
}

// CircuitOpen reports whether the local circuit is open.
func (r *Router) CircuitOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.circ.open
}

// InternetActive reports whether a remote station currently holds the line.
func (r *Router) InternetActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.circ.internetActive
}

// SenderID returns the last announced sending station.
func (r *Router) SenderID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.circ.senderID
}

// Connected reports whether the session is attached to a wire.
func (r *Router) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
