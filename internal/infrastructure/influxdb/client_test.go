package influxdb_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/mrweisheng/wscontroller/internal/infrastructure/config"
	"github.com/mrweisheng/wscontroller/internal/infrastructure/influxdb"
)

// testConfig points at a local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "wscontroller-dev-token",
		Org:           "wscontroller",
		Bucket:        "telemetry",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// connectOrSkip returns a client, or skips when no server is reachable.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("set RUN_INTEGRATION to run against a local InfluxDB")
	}
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func tags(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func fields(p *write.Point) map[string]any {
	out := make(map[string]any)
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestNilClient(t *testing.T) {
	var c *influxdb.Client
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() on nil = %v, want ErrNotConnected", err)
	}
}

func TestRelayPoint(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	p := influxdb.RelayPoint("042", "http_get", "delivered", 1500*time.Microsecond, at)

	if p.Name() != influxdb.MeasurementRelay {
		t.Errorf("Name() = %q", p.Name())
	}
	got := tags(p)
	if got["device_id"] != "042" || got["source"] != "http_get" || got["outcome"] != "delivered" {
		t.Errorf("tags = %v", got)
	}
	if f := fields(p); f["latency_ms"] != 1.5 {
		t.Errorf("latency_ms = %v, want 1.5", f["latency_ms"])
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}
}

func TestSweepPoint(t *testing.T) {
	p := influxdb.SweepPoint("fast", 4, 1, 2, 3, time.Now())

	if tags(p)["sweep"] != "fast" {
		t.Errorf("tags = %v", tags(p))
	}
	f := fields(p)
	if len(f) != 4 {
		t.Errorf("fields = %v, want 4 entries", f)
	}
}

func TestPresencePoint_OmitsEmptyReason(t *testing.T) {
	p := influxdb.PresencePoint("connected", "tmp", "", 1, time.Now())
	if _, ok := tags(p)["reason"]; ok {
		t.Error("empty reason should not be tagged")
	}

	p = influxdb.PresencePoint("removed", "042", "hard_timeout", 0, time.Now())
	if tags(p)["reason"] != "hard_timeout" {
		t.Errorf("tags = %v", tags(p))
	}
}

func TestIntegration_WriteAndFlush(t *testing.T) {
	client := connectOrSkip(t)

	errCh := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WritePoint(influxdb.SweepPoint("test", 1, 0, 0, 1, time.Now()))
	client.Flush()

	select {
	case err := <-errCh:
		t.Fatalf("write error: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
