package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mrweisheng/wscontroller/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "wscontroller-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		TopicPrefix: "relay",
	}
}

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	l.lines = append(l.lines, level+" "+msg)
	l.mu.Unlock()
}

func (l *captureLogger) Info(msg string, _ ...any)  { l.add("INFO", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.add("WARN", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.add("ERROR", msg) }

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "relay/"}

	tests := []struct {
		got, want string
	}{
		{topics.SystemStatus(), "relay/system/status"},
		{topics.Presence("042"), "relay/presence/042"},
		{topics.ConnectionEvents(), "relay/events/connection"},
		{topics.Command("042"), "relay/command/042"},
		{topics.AllCommands(), "relay/command/+"},
		{topics.CommandAck("042"), "relay/ack/042"},
		{Topics{}.Command("001"), "wscontroller/command/001"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTopics_ParseCommand(t *testing.T) {
	topics := Topics{Prefix: "relay"}

	tests := []struct {
		topic  string
		want   string
		wantOk bool
	}{
		{"relay/command/042", "042", true},
		{"relay/command/anything", "anything", true},
		{"relay/command/", "", false},
		{"relay/command/042/extra", "", false},
		{"other/command/042", "", false},
		{"relay/ack/042", "", false},
	}
	for _, tt := range tests {
		got, ok := topics.ParseCommand(tt.topic)
		if got != tt.want || ok != tt.wantOk {
			t.Errorf("ParseCommand(%q) = (%q, %v), want (%q, %v)", tt.topic, got, ok, tt.want, tt.wantOk)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "hub"
	cfg.Auth.Password = "secret"
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "wscontroller-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "hub" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if !opts.WillEnabled || opts.WillTopic != "relay/system/status" || !opts.WillRetained {
		t.Errorf("will = enabled:%v topic:%q retained:%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	if opts.TLSConfig == nil {
		t.Error("TLS config not set")
	}
}

func TestStatusPayload(t *testing.T) {
	var got map[string]string
	if err := json.Unmarshal([]byte(statusPayload("hub", "offline", "graceful_shutdown")), &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got["status"] != "offline" || got["reason"] != "graceful_shutdown" || got["client_id"] != "hub" {
		t.Errorf("payload = %v", got)
	}

	if strings.Contains(statusPayload("hub", "online", ""), "reason") {
		t.Error("online payload should not carry a reason")
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := newClient(testConfig())

	if c.IsConnected() {
		t.Fatal("new client should not be connected")
	}
	if err := c.Publish("relay/x", []byte("{}"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := c.Subscribe("relay/x", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestPublishValidation(t *testing.T) {
	c := newClient(testConfig())

	if err := c.Publish("", nil, 0, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Publish("t", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v", err)
	}
	if err := c.Publish("t", make([]byte, maxPayloadSize+1), 0, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversize payload error = %v", err)
	}
	if err := c.Subscribe("t", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	c := newClient(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestDispatch_RecoversAndLogs(t *testing.T) {
	c := newClient(testConfig())
	logger := &captureLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "relay/command/001", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad") }, "relay/command/001", nil)
	c.dispatch(func(string, []byte) error { return nil }, "relay/command/001", nil)

	if len(logger.lines) != 2 {
		t.Fatalf("log lines = %v, want 2", logger.lines)
	}
	if !strings.HasPrefix(logger.lines[0], "ERROR") || !strings.HasPrefix(logger.lines[1], "WARN") {
		t.Errorf("log lines = %v", logger.lines)
	}
}
