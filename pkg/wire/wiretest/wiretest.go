// Package wiretest provides an in-memory implementation of the host
// boundary, for exercising requests and apps without a server.
package wiretest

import (
	"context"
	"sync"

	"github.com/almarklein/asgineer/pkg/wire"
)

// Conn is a scripted connection: inbound events are consumed in the
// order they were pushed, outbound events are recorded.
type Conn struct {
	in chan wire.Event

	mu   sync.Mutex
	sent []wire.Event
}

// New builds a Conn preloaded with the given inbound events.
func New(inbound ...wire.Event) *Conn {
	c := &Conn{in: make(chan wire.Event, 256)}
	for _, ev := range inbound {
		c.in <- ev
	}
	return c
}

// Push appends one inbound event.
func (c *Conn) Push(ev wire.Event) { c.in <- ev }

// Receive implements wire.ReceiveFunc.
func (c *Conn) Receive(ctx context.Context) (wire.Event, error) {
	select {
	case ev := <-c.in:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send implements wire.SendFunc.
func (c *Conn) Send(_ context.Context, ev wire.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, ev)
	return nil
}

// Sent returns a copy of the outbound events recorded so far.
func (c *Conn) Sent() []wire.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wire.Event, len(c.sent))
	copy(out, c.sent)
	return out
}

// Start returns the recorded ResponseStart, if any.
func (c *Conn) Start() (wire.ResponseStart, bool) {
	for _, ev := range c.Sent() {
		if rs, ok := ev.(wire.ResponseStart); ok {
			return rs, true
		}
	}
	return wire.ResponseStart{}, false
}

// StartCount returns how many ResponseStart events were recorded.
func (c *Conn) StartCount() int {
	n := 0
	for _, ev := range c.Sent() {
		if _, ok := ev.(wire.ResponseStart); ok {
			n++
		}
	}
	return n
}

// Body concatenates the data of all recorded ResponseChunk events.
func (c *Conn) Body() []byte {
	var out []byte
	for _, ev := range c.Sent() {
		if rc, ok := ev.(wire.ResponseChunk); ok {
			out = append(out, rc.Data...)
		}
	}
	return out
}

// Header returns the value of the named header in the recorded
// ResponseStart, or "" when absent.
func (c *Conn) Header(name string) string {
	rs, ok := c.Start()
	if !ok {
		return ""
	}
	for _, h := range rs.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}
