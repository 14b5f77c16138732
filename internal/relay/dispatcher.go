package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mrweisheng/wscontroller/internal/registry"
)

// Logger defines the logging interface used by the Dispatcher.
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

// Outcome names how a Send ended, for telemetry.
type Outcome string

// Send outcomes.
const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRejected  Outcome = "rejected"
	OutcomeOffline   Outcome = "offline"
	OutcomeGone      Outcome = "gone"
	OutcomeFailed    Outcome = "failed"
)

// Entry points recorded in Request.Source.
const (
	SourceHTTPGet  = "http_get"
	SourceHTTPPost = "http_post"
	SourceMQTT     = "mqtt"
)

// Recorder receives one call per Send.
type Recorder interface {
	RecordRelay(target string, source string, outcome Outcome, elapsed time.Duration)
}

// Request is one message addressed to a device.
type Request struct {
	TargetDevice string

	// Message holds the fields of the message object. It is copied before
	// stamping, so callers may reuse it.
	Message map[string]json.RawMessage

	// Source names the entry point for logs and telemetry.
	Source string
}

// Result describes a delivered message.
type Result struct {
	MessageID    string
	DeviceStatus string
}

// Dispatcher routes requests to live connections.
type Dispatcher struct {
	registry *registry.Registry
	logger   Logger
	recorder Recorder
	now      func() time.Time
}

// NewDispatcher creates a dispatcher over reg.
func NewDispatcher(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetRecorder sets the receiver of per-send telemetry.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// Send delivers req.Message to req.TargetDevice.
func (d *Dispatcher) Send(ctx context.Context, req Request) (Result, error) {
	start := d.now()
	res, err := d.send(ctx, req)
	d.record(req, err, d.now().Sub(start))
	return res, err
}

func (d *Dispatcher) send(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !registry.ValidDeviceID(req.TargetDevice) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidTarget, req.TargetDevice)
	}
	if req.Message == nil {
		return Result{}, ErrMissingMessage
	}

	rec, ok := d.registry.Get(req.TargetDevice)
	if !ok {
		d.logger.Info("relay target offline", "device_id", req.TargetDevice, "source", req.Source)
		return Result{}, fmt.Errorf("%w: %s", ErrTargetOffline, req.TargetDevice)
	}

	conn := rec.Conn()
	if !conn.IsOpen() {
		d.registry.RemoveRecord(rec, registry.ReasonNotOpen)
		d.logger.Info("relay target gone", "device_id", req.TargetDevice, "source", req.Source)
		return Result{}, fmt.Errorf("%w: %s", ErrTargetGone, req.TargetDevice)
	}

	messageID := NewMessageID(d.now())
	payload, err := stamp(req.Message, req.TargetDevice, messageID)
	if err != nil {
		return Result{}, err
	}

	if err := conn.Send(payload); err != nil {
		if errors.Is(err, registry.ErrConnClosed) {
			d.registry.RemoveRecord(rec, registry.ReasonNotOpen)
			d.logger.Info("relay target closed during send", "device_id", req.TargetDevice, "source", req.Source)
			return Result{}, fmt.Errorf("%w: %s", ErrTargetGone, req.TargetDevice)
		}
		d.logger.Warn("relay send failed", "device_id", req.TargetDevice, "source", req.Source, "error", err)
		_ = conn.Close()
		d.registry.RemoveRecord(rec, registry.ReasonSendFailed)
		return Result{}, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	status := rec.Status()
	d.logger.Info("message relayed",
		"device_id", req.TargetDevice,
		"message_id", messageID,
		"source", req.Source,
		"device_status", status,
	)
	return Result{MessageID: messageID, DeviceStatus: status}, nil
}

// stamp copies msg and adds the routing fields.
func stamp(msg map[string]json.RawMessage, target, messageID string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(msg)+2)
	for k, v := range msg {
		out[k] = v
	}

	targetJSON, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("encoding targetDevice: %w", err)
	}
	idJSON, err := json.Marshal(messageID)
	if err != nil {
		return nil, fmt.Errorf("encoding messageId: %w", err)
	}
	out["targetDevice"] = targetJSON
	out["messageId"] = idJSON
	return out, nil
}

// NewMessageID returns an id of the form msg_<unixMillis>_<8 hex chars>.
func NewMessageID(now time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("msg_%d_%x", now.UnixMilli(), u[:4])
}

func (d *Dispatcher) record(req Request, err error, elapsed time.Duration) {
	if d.recorder == nil {
		return
	}
	outcome := OutcomeDelivered
	switch {
	case err == nil:
	case errors.Is(err, ErrTargetOffline):
		outcome = OutcomeOffline
	case errors.Is(err, ErrTargetGone):
		outcome = OutcomeGone
	case errors.Is(err, ErrSendFailed):
		outcome = OutcomeFailed
	default:
		outcome = OutcomeRejected
	}
	d.recorder.RecordRelay(req.TargetDevice, req.Source, outcome, elapsed)
}
