package protocol

import (
	"encoding/json"
	"time"
)

// Action is the value of a system frame's "action" field.
type Action string

// System actions sent by the hub.
const (
	ActionConnectionReplaced Action = "connection_replaced"
	ActionRegisterSuccess    Action = "register_success"
	ActionRegisterRejected   Action = "register_rejected"
)

// replacedNotice is the human-readable text shown on a replaced device.
const replacedNotice = "您的连接已被相同编号的新设备替换"

// rejectedNotice tells a device its proposed number was not accepted.
const rejectedNotice = "设备编号格式无效，必须是三位数字"

// Pong answers a Ping.
type Pong struct {
	Type      Type            `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Echo      json.RawMessage `json:"echo,omitempty"`
}

// System is a hub-to-device control frame.
type System struct {
	Type         Type   `json:"type"`
	Action       Action `json:"action"`
	Message      string `json:"message,omitempty"`
	DeviceNumber string `json:"deviceNumber,omitempty"`
}

// NewPong builds the reply to a ping received at now, echoing the client's
// timestamp unchanged.
func NewPong(now time.Time, echo json.RawMessage) Pong {
	return Pong{
		Type:      TypePong,
		Timestamp: now.UnixMilli(),
		Echo:      echo,
	}
}

// ConnectionReplaced is sent to a connection evicted by a newer one with the same id.
func ConnectionReplaced() System {
	return System{Type: TypeSystem, Action: ActionConnectionReplaced, Message: replacedNotice}
}

// RegisterSuccess confirms the id a connection is now registered under.
func RegisterSuccess(deviceID string) System {
	return System{Type: TypeSystem, Action: ActionRegisterSuccess, DeviceNumber: deviceID}
}

// RegisterRejected reports a register frame whose proposed id was refused.
func RegisterRejected(proposed string) System {
	return System{Type: TypeSystem, Action: ActionRegisterRejected, Message: rejectedNotice, DeviceNumber: proposed}
}
