package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mrweisheng/wscontroller/internal/infrastructure/config"
	"github.com/mrweisheng/wscontroller/internal/registry"
)

// frame is one queued write.
type frame struct {
	messageType int
	data        []byte
}

// wsConn implements registry.Conn over a gorilla WebSocket.
//
// The send channel is closed exactly once, under mu, when the connection
// leaves the open state. Send checks open under the same lock, so nothing is
// ever queued on a closed channel. Frames queued before Close are still
// written, then the write pump sends the close frame.
type wsConn struct {
	ws     *websocket.Conn
	cfg    config.WebSocketConfig
	remote string

	mu   sync.Mutex
	open bool
	send chan frame
}

func newWSConn(ws *websocket.Conn, cfg config.WebSocketConfig) *wsConn {
	return &wsConn{
		ws:     ws,
		cfg:    cfg,
		remote: ws.RemoteAddr().String(),
		open:   true,
		send:   make(chan frame, cfg.SendBuffer),
	}
}

// Send implements registry.Conn.
func (c *wsConn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	return c.enqueue(frame{messageType: websocket.TextMessage, data: data})
}

// Ping implements registry.Conn.
func (c *wsConn) Ping() error {
	return c.enqueue(frame{messageType: websocket.PingMessage})
}

func (c *wsConn) enqueue(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return registry.ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close implements registry.Conn. Queued frames are flushed, a close frame
// is written, and the socket is torn down after CloseGrace if the peer has
// not completed the handshake.
func (c *wsConn) Close() error {
	c.markClosed()
	return nil
}

// Terminate implements registry.Conn.
func (c *wsConn) Terminate() error {
	c.markClosed()
	return c.ws.Close()
}

// IsOpen implements registry.Conn.
func (c *wsConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// RemoteAddr implements registry.Conn.
func (c *wsConn) RemoteAddr() string {
	return c.remote
}

// markClosed leaves the open state. It reports whether this call did so.
func (c *wsConn) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return false
	}
	c.open = false
	close(c.send)
	return true
}

// writePump owns data writes to the socket.
func (c *wsConn) writePump() {
	defer c.markClosed()

	for f := range c.send {
		//nolint:errcheck // Best-effort deadline; write error caught below
		c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
		if err := c.ws.WriteMessage(f.messageType, f.data); err != nil {
			c.ws.Close()
			return
		}
	}

	// Channel closed: say goodbye, then make sure the socket goes away even
	// if the peer never answers.
	//nolint:errcheck // Best-effort close message
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.cfg.WriteWait))
	time.AfterFunc(c.cfg.CloseGrace, func() {
		c.ws.Close()
	})
}

var _ registry.Conn = (*wsConn)(nil)
