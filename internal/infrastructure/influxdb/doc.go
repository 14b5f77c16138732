// Package influxdb writes hub telemetry to InfluxDB v2.
//
// Three measurements are recorded:
//   - relay: one point per send attempt, tagged by outcome and entry point
//   - liveness_sweep: one point per monitor sweep or probe check
//   - presence: one point per registry transition, with the online count
//
// Writes are non-blocking and batched by the client library; errors arrive
// asynchronously through SetOnError. Telemetry is optional: when disabled in
// configuration Connect returns ErrDisabled and the hub runs without it.
package influxdb
