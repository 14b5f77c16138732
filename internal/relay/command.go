package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrweisheng/wscontroller/internal/infrastructure/mqtt"
)

// commandTimeout bounds one MQTT-originated Send.
const commandTimeout = 5 * time.Second

// AckPublisher publishes command acknowledgements. *mqtt.Client implements it.
type AckPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Ack is published on the ack topic after each MQTT command.
type Ack struct {
	Success      bool   `json:"success"`
	MessageID    string `json:"messageId,omitempty"`
	DeviceStatus string `json:"deviceStatus,omitempty"`
	Error        string `json:"error,omitempty"`
	Code         int    `json:"code"`
}

// CommandHandler relays messages published on command topics.
//
// The device id comes from the topic and the payload is the message object,
// exactly as in the message field of POST /send. The outcome is published,
// not retained, on the ack topic for the same device.
type CommandHandler struct {
	dispatcher *Dispatcher
	topics     mqtt.Topics
	acks       AckPublisher
	qos        byte
	logger     Logger
}

// NewCommandHandler creates a handler that acknowledges through acks.
func NewCommandHandler(d *Dispatcher, topics mqtt.Topics, acks AckPublisher, qos byte) *CommandHandler {
	return &CommandHandler{
		dispatcher: d,
		topics:     topics,
		acks:       acks,
		qos:        qos,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger.
func (h *CommandHandler) SetLogger(logger Logger) {
	h.logger = logger
}

// Handle implements mqtt.MessageHandler.
func (h *CommandHandler) Handle(topic string, payload []byte) error {
	target, ok := h.topics.ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: not a command topic: %s", mqtt.ErrInvalidTopic, topic)
	}

	ack := h.relay(target, payload)

	body, err := json.Marshal(ack)
	if err != nil {
		return fmt.Errorf("encoding ack: %w", err)
	}
	if err := h.acks.Publish(h.topics.CommandAck(target), body, h.qos, false); err != nil {
		h.logger.Warn("command ack not published", "device_id", target, "error", err)
		return fmt.Errorf("publishing ack: %w", err)
	}
	return nil
}

func (h *CommandHandler) relay(target string, payload []byte) Ack {
	msg, err := ParseMessage(payload)
	if err != nil {
		h.dispatcher.record(Request{TargetDevice: target, Source: SourceMQTT}, err, 0)
		return failure(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res, err := h.dispatcher.Send(ctx, Request{TargetDevice: target, Message: msg, Source: SourceMQTT})
	if err != nil {
		return failure(err)
	}
	return Ack{
		Success:      true,
		MessageID:    res.MessageID,
		DeviceStatus: res.DeviceStatus,
		Code:         StatusCode(nil),
	}
}

func failure(err error) Ack {
	return Ack{Success: false, Error: UserMessage(err), Code: StatusCode(err)}
}
