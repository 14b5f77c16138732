// Package telemetry turns relay outcomes, liveness sweeps, and registry
// events into InfluxDB points.
package telemetry
