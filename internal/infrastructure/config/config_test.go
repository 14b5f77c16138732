package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if len(cfg.Liveness.Sweeps) != 2 {
		t.Fatalf("len(Liveness.Sweeps) = %d, want 2", len(cfg.Liveness.Sweeps))
	}
	if cfg.Liveness.Sweeps[0].Interval != 15*time.Second {
		t.Errorf("fast sweep interval = %v, want 15s", cfg.Liveness.Sweeps[0].Interval)
	}
	if !cfg.Liveness.Sweeps[1].Terminate {
		t.Error("deep sweep should terminate without a close handshake")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("PORT", "")

	content := `
server:
  host: "127.0.0.1"
  port: 9100
liveness:
  sweeps:
    - name: "only"
      interval: 5s
      stale_after: 10s
      hard_close_after: 20s
      pong_grace: 2s
logging:
  level: "debug"
  format: "text"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr() != "127.0.0.1:9100" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), "127.0.0.1:9100")
	}
	if len(cfg.Liveness.Sweeps) != 1 || cfg.Liveness.Sweeps[0].PongGrace != 2*time.Second {
		t.Errorf("Liveness.Sweeps = %+v, want one sweep with 2s grace", cfg.Liveness.Sweeps)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9443")
	t.Setenv("WSCONTROLLER_LOG_LEVEL", "warn")
	t.Setenv("WSCONTROLLER_MQTT_HOST", "broker.local")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9443 {
		t.Errorf("Server.Port = %d, want 9443", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	t.Setenv("PORT", "ninety")

	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for non-numeric PORT, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name: "hard close shorter than stale",
			mutate: func(c *Config) {
				c.Liveness.Sweeps[0].HardCloseAfter = time.Second
			},
			wantErr: true,
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Liveness.Sweeps[1].Interval = 0 },
			wantErr: true,
		},
		{
			name: "journal without path",
			mutate: func(c *Config) {
				c.Journal.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name: "mqtt bad qos",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name:    "influx without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
		{
			name:    "mqtt disabled ignores qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 9 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
