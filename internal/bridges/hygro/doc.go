// Package hygro bridges sensor readings from the radio scanner to MQTT.
//
// # Pipeline
//
// Every reading passes through the same steps on a single event loop:
//
//	scanner.Session -> topic "{mqttTopic}/{suffix}" -> RateLimiter -> FormatMessage -> Publish
//
// The RateLimiter lets at most one reading per topic through every
// RateLimitWindow (10 s). Suppressed readings are dropped, not queued.
// Messages are JSON {"timestamp": <epoch ms>, "value": <number>} published
// retained, so a new subscriber immediately sees the last value.
//
// # Connection Lifecycle
//
// The bridge reacts to broker connection events:
//   - connect: log, then open one scanner session per device (first time only)
//   - reconnect: log
//   - close: log (the client has already stopped publishing)
//   - error: log and end the connection
//
// A device error event is logged and recorded; other devices keep working.
//
// # Optional Collaborators
//
// A StatusRecorder keeps last-seen and last-error per device. A StatsSink
// receives the bridge counters at a fixed interval through StatsReporter.
package hygro
