package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mrweisheng/wscontroller/internal/infrastructure/mqtt"
	"github.com/mrweisheng/wscontroller/internal/registry"
)

// Publisher is the subset of the MQTT client the sink needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// State is the retained payload on a device's presence topic.
type State struct {
	DeviceID string `json:"deviceId"`
	Online   bool   `json:"online"`
	Reason   string `json:"reason,omitempty"`
	At       int64  `json:"at"`
}

// EventPayload is published on the connection events topic.
type EventPayload struct {
	Kind     string `json:"kind"`
	DeviceID string `json:"deviceId"`
	PrevID   string `json:"prevId,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Remote   string `json:"remote,omitempty"`
	Online   int    `json:"online"`
	At       int64  `json:"at"`
}

// MQTTSink publishes presence state and connection events.
//
// Presence topics are retained: connected and renamed publish online under
// the new id; removed publishes offline. A rename clears the retained
// message under the previous id with an empty payload. A replacement
// leaves presence untouched since the id stays online.
type MQTTSink struct {
	pub    Publisher
	topics mqtt.Topics
	qos    byte
}

// NewMQTTSink creates a sink publishing under topics with qos.
func NewMQTTSink(pub Publisher, topics mqtt.Topics, qos byte) *MQTTSink {
	return &MQTTSink{pub: pub, topics: topics, qos: qos}
}

// Deliver implements Sink.
func (s *MQTTSink) Deliver(_ context.Context, ev registry.Event) error {
	switch ev.Kind {
	case registry.EventConnected:
		if err := s.publishState(ev, true); err != nil {
			return err
		}
	case registry.EventRenamed:
		if ev.PrevID != "" && ev.PrevID != ev.DeviceID {
			if err := s.pub.Publish(s.topics.Presence(ev.PrevID), nil, s.qos, true); err != nil {
				return fmt.Errorf("clearing presence for %s: %w", ev.PrevID, err)
			}
		}
		if err := s.publishState(ev, true); err != nil {
			return err
		}
	case registry.EventRemoved:
		if err := s.publishState(ev, false); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(EventPayload{
		Kind:     string(ev.Kind),
		DeviceID: ev.DeviceID,
		PrevID:   ev.PrevID,
		Reason:   string(ev.Reason),
		Remote:   ev.Remote,
		Online:   ev.Online,
		At:       ev.At.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := s.pub.Publish(s.topics.ConnectionEvents(), payload, s.qos, false); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

func (s *MQTTSink) publishState(ev registry.Event, online bool) error {
	payload, err := json.Marshal(State{
		DeviceID: ev.DeviceID,
		Online:   online,
		Reason:   string(ev.Reason),
		At:       ev.At.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encoding presence: %w", err)
	}
	if err := s.pub.Publish(s.topics.Presence(ev.DeviceID), payload, s.qos, true); err != nil {
		return fmt.Errorf("publishing presence for %s: %w", ev.DeviceID, err)
	}
	return nil
}
