package transport

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketTransport accepts WebSocket upgrades and turns each socket into a Conn.
// It implements http.Handler.
type WebSocketTransport struct {
	config   Config
	upgrader websocket.Upgrader

	handlers struct {
		message    MessageHandler
		connect    ConnectHandler
		disconnect DisconnectHandler
	}

	conns   map[string]*wsConn
	connsMu sync.RWMutex
	wg      sync.WaitGroup
}

// NewWebSocketTransport creates a new WebSocket transport.
func NewWebSocketTransport(config Config) *WebSocketTransport {
	return &WebSocketTransport{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*wsConn),
	}
}

// OnMessage registers a handler for incoming frames.
func (t *WebSocketTransport) OnMessage(handler MessageHandler) {
	t.handlers.message = handler
}

// OnConnect registers a handler for new connections.
func (t *WebSocketTransport) OnConnect(handler ConnectHandler) {
	t.handlers.connect = handler
}

// OnDisconnect registers a handler for disconnections.
func (t *WebSocketTransport) OnDisconnect(handler DisconnectHandler) {
	t.handlers.disconnect = handler
}

// ConnCount returns the number of open sockets.
func (t *WebSocketTransport) ConnCount() int {
	t.connsMu.RLock()
	defer t.connsMu.RUnlock()
	return len(t.conns)
}

// ServeHTTP upgrades the request and runs the connection's read loop until it closes.
func (t *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ upgrade failed: %v", err)
		return
	}
	ws.SetReadLimit(t.config.MaxMessageSize)

	c := &wsConn{
		id:           uuid.New().String()[:8],
		ws:           ws,
		send:         make(chan []byte, t.config.SendBufferSize),
		writeTimeout: t.config.WriteTimeout,
	}

	t.connsMu.Lock()
	t.conns[c.id] = c
	t.connsMu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		c.writePump()
	}()

	if t.handlers.connect != nil {
		t.handlers.connect(c)
	}

	t.readLoop(c)

	c.Close()
	t.connsMu.Lock()
	delete(t.conns, c.id)
	t.connsMu.Unlock()

	if t.handlers.disconnect != nil {
		t.handlers.disconnect(c)
	}
}

// readLoop delivers frames until the socket errors or closes. There is no idle timeout;
// the connection lives as long as the peer keeps it open.
func (t *WebSocketTransport) readLoop(c *wsConn) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Printf("⚠️  [%s] read error: %v", c.id, err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if t.handlers.message != nil {
			t.handlers.message(c, data)
		}
	}
}

// Close closes every open connection and waits for their writers to finish.
func (t *WebSocketTransport) Close() error {
	t.connsMu.RLock()
	conns := make([]*wsConn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	t.connsMu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
	t.wg.Wait()
	return nil
}

// wsConn is a Conn backed by a gorilla WebSocket. Writes go through a buffered
// channel drained by writePump, so Send never blocks the caller.
type wsConn struct {
	id           string
	ws           *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *wsConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close stops accepting frames. writePump flushes what is queued, sends a close
// frame and releases the socket.
func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

func (c *wsConn) writePump() {
	defer c.ws.Close()

	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("❌ [%s] write error: %v", c.id, err)
			c.Close()
			// Unblock the read loop so the disconnect path runs.
			c.ws.Close()
			for range c.send {
			}
			return
		}
	}

	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
