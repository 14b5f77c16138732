// Package presence fans registry lifecycle events out to external sinks.
//
// The registry calls Observe synchronously after releasing its lock, so
// Fanout only queues the event. A single Run goroutine delivers queued
// events to every sink in order: the SQLite journal, MQTT presence topics,
// and InfluxDB telemetry. A slow or failing sink never stalls device
// traffic; when the queue is full the event is dropped and counted.
package presence
