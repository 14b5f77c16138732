package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Message
	}{
		{
			name:  "ping with timestamp",
			frame: `{"type":"ping","timestamp":1700000000123}`,
			want:  Ping{Timestamp: json.RawMessage(`1700000000123`)},
		},
		{
			name:  "connection check ping",
			frame: `{"type":"ping","checkConnection":true,"deviceId":"042"}`,
			want:  Ping{CheckConnection: true},
		},
		{
			name:  "status string",
			frame: `{"type":"status","status":"idle"}`,
			want:  Status{Status: "idle"},
		},
		{
			name:  "status number kept as text",
			frame: `{"type":"status","status":3}`,
			want:  Status{Status: "3"},
		},
		{
			name:  "register",
			frame: `{"type":"register","deviceNumber":"042","timestamp":1}`,
			want:  Register{DeviceNumber: "042", Valid: true},
		},
		{
			name:  "register without number",
			frame: `{"type":"register"}`,
			want:  Register{},
		},
		{
			name:  "register with numeric number",
			frame: `{"type":"register","deviceNumber":42}`,
			want:  Register{},
		},
		{
			name:  "disconnect",
			frame: `{"type":"disconnect"}`,
			want:  Disconnect{},
		},
		{
			name:  "unknown type",
			frame: `{"type":"subscribe"}`,
			want:  Unrecognised{Kind: "subscribe"},
		},
		{
			name:  "missing type",
			frame: `{"hello":"world"}`,
			want:  Unrecognised{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, frame := range []string{`not json`, `[1,2]`, `"ping"`, `null`, `{"type":`} {
		_, err := Decode([]byte(frame))
		assert.True(t, errors.Is(err, ErrMalformed), "frame %q: err = %v", frame, err)
	}
}

func TestTruthy(t *testing.T) {
	tests := map[string]bool{
		``:      false,
		`false`: false,
		`true`:  true,
		`0`:     false,
		`1`:     true,
		`""`:    false,
		`"yes"`: true,
		`null`:  false,
		`{}`:    true,
	}
	for raw, want := range tests {
		assert.Equal(t, want, truthy(json.RawMessage(raw)), "truthy(%q)", raw)
	}
}

func TestNewPong_EchoesTimestampVerbatim(t *testing.T) {
	now := time.UnixMilli(1700000000999)
	pong := NewPong(now, json.RawMessage(`1700000000123.50`))

	data, err := json.Marshal(pong)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong","timestamp":1700000000999,"echo":1700000000123.50}`, string(data))
	assert.Contains(t, string(data), `"echo":1700000000123.50`)
}

func TestNewPong_OmitsMissingEcho(t *testing.T) {
	data, err := json.Marshal(NewPong(time.UnixMilli(5), nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong","timestamp":5}`, string(data))
}

func TestSystemFrames(t *testing.T) {
	data, err := json.Marshal(RegisterSuccess("042"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"system","action":"register_success","deviceNumber":"042"}`, string(data))

	replaced := ConnectionReplaced()
	assert.Equal(t, ActionConnectionReplaced, replaced.Action)
	assert.NotEmpty(t, replaced.Message)

	rejected := RegisterRejected("42")
	assert.Equal(t, ActionRegisterRejected, rejected.Action)
	assert.Equal(t, "42", rejected.DeviceNumber)
}
