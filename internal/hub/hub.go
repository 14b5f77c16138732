package hub

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mrweisheng/wscontroller/internal/infrastructure/config"
	"github.com/mrweisheng/wscontroller/internal/protocol"
	"github.com/mrweisheng/wscontroller/internal/registry"
)

// Logger defines the logging interface used by the Hub.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// State is a connection's position in the inbound state machine.
type State int

// Connection states.
const (
	StateConnected State = iota
	StateRegistered
	StateClosed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateRegistered:
		return "registered"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Devices are not browsers; any origin may connect.
		return true
	},
}

// Hub accepts device connections and runs their inbound protocol.
type Hub struct {
	cfg      config.WebSocketConfig
	registry *registry.Registry
	logger   Logger
	now      func() time.Time

	wg sync.WaitGroup
}

// New creates a hub that installs connections into reg.
func New(cfg config.WebSocketConfig, reg *registry.Registry) *Hub {
	return &Hub{
		cfg:      cfg,
		registry: reg,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the hub.
func (h *Hub) SetLogger(logger Logger) {
	h.logger = logger
}

// IsUpgrade reports whether r asks for a WebSocket connection.
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// ProvisionalID derives the pre-registration key from a request path: its
// last non-empty segment, or a generated token when the path has none.
func ProvisionalID(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "conn-" + uuid.NewString()[:8]
	}
	return path
}

// ServeHTTP upgrades r and starts the connection's pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}

	conn := newWSConn(ws, h.cfg)
	rec := registry.NewRecord(conn, h.now())
	id := ProvisionalID(r.URL.Path)
	h.registry.Put(id, rec)

	s := &session{hub: h, conn: conn, rec: rec, state: StateConnected}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		conn.writePump()
	}()
	go func() {
		defer h.wg.Done()
		s.readPump()
	}()
}

// Wait blocks until every connection's pumps have exited or ctx is done.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// session is the per-connection inbound handler. Only the read pump
// goroutine touches state.
type session struct {
	hub   *Hub
	conn  *wsConn
	rec   *registry.Record
	state State
}

// readPump reads frames until the socket fails, then removes the record.
func (s *session) readPump() {
	h := s.hub
	defer func() {
		h.logger.Debug("connection closed", "device_id", s.rec.ID(), "state", s.state.String())
		s.state = StateClosed
		s.conn.markClosed()
		s.conn.ws.Close()
		h.registry.RemoveRecord(s.rec, registry.ReasonClosed)
	}()

	s.conn.ws.SetReadLimit(int64(h.cfg.MaxMessageSize))
	s.conn.ws.SetPongHandler(func(string) error {
		s.rec.Touch(h.now())
		return nil
	})

	for {
		_, data, err := s.conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Warn("websocket read error", "device_id", s.rec.ID(), "error", err)
			} else {
				h.logger.Debug("websocket closed", "device_id", s.rec.ID(), "error", err)
			}
			return
		}
		s.handle(data)
	}
}

// handle processes one inbound frame.
func (s *session) handle(data []byte) {
	h := s.hub

	msg, err := protocol.Decode(data)
	if err != nil {
		h.logger.Debug("dropping malformed frame", "device_id", s.rec.ID(), "error", err)
		return
	}

	now := h.now()
	s.rec.Touch(now)

	switch m := msg.(type) {
	case protocol.Ping:
		s.handlePing(now, m)
	case protocol.Status:
		s.rec.SetStatus(m.Status)
		h.logger.Debug("device status", "device_id", s.rec.ID(), "status", m.Status)
	case protocol.Register:
		s.handleRegister(m)
	case protocol.Disconnect:
		s.rec.RequestDisconnect()
		h.logger.Info("device requested disconnect", "device_id", s.rec.ID())
	case protocol.Unrecognised:
		h.logger.Debug("ignoring frame", "device_id", s.rec.ID(), "type", m.Kind)
	}
}

func (s *session) handlePing(now time.Time, m protocol.Ping) {
	h := s.hub
	if m.CheckConnection {
		h.logger.Debug("connection check", "device_id", s.rec.ID())
	}
	if err := s.conn.Send(protocol.NewPong(now, m.Timestamp)); err != nil {
		h.logger.Warn("pong not sent", "device_id", s.rec.ID(), "error", err)
		s.conn.Close()
		h.registry.RemoveRecord(s.rec, registry.ReasonSendFailed)
	}
}

func (s *session) handleRegister(m protocol.Register) {
	h := s.hub
	if !m.Valid || !registry.ValidDeviceID(m.DeviceNumber) {
		h.logger.Warn("register rejected", "device_id", s.rec.ID(), "proposed", m.DeviceNumber)
		if err := s.conn.Send(protocol.RegisterRejected(m.DeviceNumber)); err != nil {
			h.logger.Debug("register rejection not sent", "device_id", s.rec.ID(), "error", err)
		}
		return
	}

	if err := h.registry.RenameRecord(s.rec, m.DeviceNumber); err != nil {
		h.logger.Warn("register failed", "device_id", s.rec.ID(), "proposed", m.DeviceNumber, "error", err)
		return
	}
	s.state = StateRegistered
}
