package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Type is the value of a frame's "type" field.
type Type string

// Frame types.
const (
	TypePing       Type = "ping"
	TypePong       Type = "pong"
	TypeStatus     Type = "status"
	TypeRegister   Type = "register"
	TypeSystem     Type = "system"
	TypeDisconnect Type = "disconnect"
	TypeText       Type = "text"
)

// ErrMalformed is returned when a frame is not a JSON object.
var ErrMalformed = errors.New("protocol: malformed frame")

// Message is a decoded inbound frame.
type Message interface {
	Type() Type
}

// Ping is a heartbeat request. Timestamp is kept as raw JSON so the reply
// echoes exactly what the client sent.
type Ping struct {
	CheckConnection bool
	Timestamp       json.RawMessage
}

// Status carries an application-reported status string.
type Status struct {
	Status string
}

// Register proposes a new device number for the connection.
// Valid is false when deviceNumber was missing or not a JSON string.
type Register struct {
	DeviceNumber string
	Valid        bool
}

// Disconnect announces a client-initiated close.
type Disconnect struct{}

// Unrecognised is any frame whose type the hub does not handle.
type Unrecognised struct {
	Kind string
}

func (Ping) Type() Type { return TypePing }
func (Status) Type() Type { return TypeStatus }
func (Register) Type() Type { return TypeRegister }
func (Disconnect) Type() Type { return TypeDisconnect }
func (u Unrecognised) Type() Type { return Type(u.Kind) }

// Decode parses one inbound frame.
//
// Field decoding is lenient: a wrongly typed optional field never drops the
// whole frame. A frame without a string "type" decodes to Unrecognised.
func Decode(data []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null frame", ErrMalformed)
	}

	kind, _ := stringField(fields, "type")

	switch Type(kind) {
	case TypePing:
		return Ping{
			CheckConnection: truthy(fields["checkConnection"]),
			Timestamp:       fields["timestamp"],
		}, nil
	case TypeStatus:
		return Status{Status: looseString(fields["status"])}, nil
	case TypeRegister:
		number, ok := stringField(fields, "deviceNumber")
		return Register{DeviceNumber: number, Valid: ok}, nil
	case TypeDisconnect:
		return Disconnect{}, nil
	default:
		return Unrecognised{Kind: kind}, nil
	}
}

// stringField returns fields[key] when it is a JSON string.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// looseString renders a JSON value as a status string: strings unquoted,
// numbers and booleans as written, null or absent as empty.
func looseString(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// truthy reports whether raw holds a JSON value a client would treat as set.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
		return false
	case bytes.Equal(raw, []byte("true")):
		return true
	case raw[0] == '"':
		return len(raw) > 2
	case raw[0] == '[' || raw[0] == '{':
		return true
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		return err == nil && f != 0
	}
}
