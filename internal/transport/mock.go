package transport

import (
	"sync"
)

// MockConn is a Conn for tests. It records every frame sent to it.
type MockConn struct {
	id     string
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	notify chan struct{}
}

// NewMockConn creates an open mock connection.
func NewMockConn(id string) *MockConn {
	return &MockConn{
		id:     id,
		sent:   make([][]byte, 0),
		notify: make(chan struct{}, 1),
	}
}

func (c *MockConn) ID() string {
	return c.id
}

// RemoteAddr returns a fixed loopback address.
func (c *MockConn) RemoteAddr() string {
	return "127.0.0.1:0"
}

// Send records the frame, or fails if the mock is closed.
func (c *MockConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

func (c *MockConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close marks the mock closed; later sends fail.
func (c *MockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// --- Test helpers ---

// SentMessages returns all recorded frames.
func (c *MockConn) SentMessages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte{}, c.sent...)
}

// Notify fires (at most one pending signal) whenever a frame is recorded.
func (c *MockConn) Notify() <-chan struct{} {
	return c.notify
}

// Clear drops all recorded frames.
func (c *MockConn) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = c.sent[:0]
}
