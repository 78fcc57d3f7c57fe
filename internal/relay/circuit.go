// Package relay arbitrates code traffic between the key, the keyboard
// sender, the wire, and the local sounder/decoder path.
package relay

// circuit is the circuit/sender state machine. It is not safe for concurrent
// use; the Router serializes all access under its own lock.
type circuit struct {
	open           bool
	internetActive bool
	senderID       string
}

// setOpen marks the local circuit open (someone is actively keying).
func (c *circuit) setOpen() {
	c.open = true
}

// setClosed marks the local circuit closed (transmission relinquished).
func (c *circuit) setClosed() {
	c.open = false
}

// setSender records a newly recognized sender. It reports whether the
// identity actually changed; repeats are a no-op.
func (c *circuit) setSender(id string) bool {
	if id == c.senderID {
		return false
	}
	c.senderID = id
	return true
}

// reset forces the machine to its disconnected shape: circuit closed, no
// remote holder of the line.
func (c *circuit) reset() {
	c.open = false
	c.internetActive = false
}
