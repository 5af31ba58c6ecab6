// Package transport provides the connection abstraction the game server talks through.
// This allows swapping the WebSocket transport for a mock without changing game logic.
package transport

import (
	"errors"
	"time"
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is one client's message-oriented connection.
type Conn interface {
	// ID returns a process-unique connection id.
	ID() string

	// Send queues one frame for delivery. It never blocks.
	Send(data []byte) error

	// IsOpen reports whether frames can still be delivered.
	IsOpen() bool

	// Close shuts the connection down.
	Close() error

	// RemoteAddr returns the peer address for logging.
	RemoteAddr() string
}

// MessageHandler is called for every frame received on a connection.
// Calls for one connection are sequential.
type MessageHandler func(conn Conn, data []byte)

// ConnectHandler is called when a new client connects.
type ConnectHandler func(conn Conn)

// DisconnectHandler is called once when a connection closes.
type DisconnectHandler func(conn Conn)

// Config holds transport configuration.
type Config struct {
	MaxMessageSize int64
	SendBufferSize int
	WriteTimeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxMessageSize: 64 * 1024, // Snapshots carry 1200 terrain samples
		SendBufferSize: 256,
		WriteTimeout:   5 * time.Second,
	}
}
