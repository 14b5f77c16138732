package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementRelay    = "relay"
	MeasurementSweep    = "liveness_sweep"
	MeasurementPresence = "presence"
)

// RelayPoint describes one relay attempt.
func RelayPoint(target, source, outcome string, elapsed time.Duration, at time.Time) *write.Point {
	return write.NewPoint(MeasurementRelay,
		map[string]string{
			"device_id": target,
			"source":    source,
			"outcome":   outcome,
		},
		map[string]any{
			"latency_ms": float64(elapsed.Microseconds()) / 1000,
			"count":      1,
		},
		at,
	)
}

// SweepPoint describes one liveness sweep or probe check.
func SweepPoint(sweep string, checked, probed, reaped, online int, at time.Time) *write.Point {
	return write.NewPoint(MeasurementSweep,
		map[string]string{
			"sweep": sweep,
		},
		map[string]any{
			"checked": checked,
			"probed":  probed,
			"reaped":  reaped,
			"online":  online,
		},
		at,
	)
}

// PresencePoint describes one registry transition.
func PresencePoint(kind, deviceID, reason string, online int, at time.Time) *write.Point {
	tags := map[string]string{
		"kind":      kind,
		"device_id": deviceID,
	}
	if reason != "" {
		tags["reason"] = reason
	}
	return write.NewPoint(MeasurementPresence, tags,
		map[string]any{
			"online": online,
		},
		at,
	)
}
