// Package registrytest provides an in-memory registry.Conn for tests.
package registrytest

import (
	"errors"
	"sync"

	"github.com/mrweisheng/wscontroller/internal/registry"
)

// ErrSendFailed is returned by Send after FailSends is called.
var ErrSendFailed = errors.New("registrytest: send failed")

// Conn records everything sent to it.
type Conn struct {
	mu         sync.Mutex
	open       bool
	failSends  bool
	failPings  bool
	sent       []any
	pings      int
	closes     int
	terminates int
	remote     string
}

// NewConn returns an open connection reporting remote as its peer address.
func NewConn(remote string) *Conn {
	return &Conn{open: true, remote: remote}
}

// Send implements registry.Conn.
func (c *Conn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return registry.ErrConnClosed
	}
	if c.failSends {
		return ErrSendFailed
	}
	c.sent = append(c.sent, v)
	return nil
}

// Ping implements registry.Conn.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return registry.ErrConnClosed
	}
	if c.failPings {
		return ErrSendFailed
	}
	c.pings++
	return nil
}

// Close implements registry.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.closes++
	return nil
}

// Terminate implements registry.Conn.
func (c *Conn) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.terminates++
	return nil
}

// IsOpen implements registry.Conn.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// RemoteAddr implements registry.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remote
}

// Drop marks the transport closed without counting a Close call, as a
// peer that vanished would.
func (c *Conn) Drop() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

// FailSends makes every later Send fail with ErrSendFailed.
func (c *Conn) FailSends() {
	c.mu.Lock()
	c.failSends = true
	c.mu.Unlock()
}

// FailPings makes every later Ping fail with ErrSendFailed.
func (c *Conn) FailPings() {
	c.mu.Lock()
	c.failPings = true
	c.mu.Unlock()
}

// Sent returns a copy of the values passed to Send.
func (c *Conn) Sent() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.sent))
	copy(out, c.sent)
	return out
}

// Pings returns how many pings were sent.
func (c *Conn) Pings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

// Closes returns how many times Close was called.
func (c *Conn) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Terminates returns how many times Terminate was called.
func (c *Conn) Terminates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminates
}

var _ registry.Conn = (*Conn)(nil)
