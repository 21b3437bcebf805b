package hygro

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/scanner"
)

// Bridge operation constants.
const (
	// deviceEventBuffer is the capacity of the merged device event channel.
	deviceEventBuffer = 64

	// statusTimeout bounds a single status store write.
	statusTimeout = 2 * time.Second
)

// Broker is the broker connection the bridge publishes through.
// This is satisfied by *mqtt.Client.
type Broker interface {
	// Events returns the connection lifecycle events.
	Events() <-chan mqtt.Event

	// Publish sends a retained message. It silently drops the message when
	// not connected.
	Publish(topic string, payload []byte)

	// IsConnected reports whether Publish currently sends.
	IsConnected() bool

	// End forcibly terminates the connection.
	End()
}

// StatusRecorder keeps per-device status.
// It is optional - if nil, the bridge does not record device status.
type StatusRecorder interface {
	// RecordSeen stores the time a device's reading was sent to a connected broker.
	RecordSeen(ctx context.Context, address, name string, at time.Time) error

	// RecordError stores the most recent error for a device.
	RecordError(ctx context.Context, address, name string, cause error, at time.Time) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// MQTT supplies the metric topic suffixes.
	MQTT config.MQTTConfig

	// Devices are the sensors to open sessions for. At least one is required.
	Devices []config.DeviceConfig

	// Broker is the broker connection.
	Broker Broker

	// Scanner opens per-device sessions.
	Scanner scanner.Scanner

	// Logger is optional structured logger.
	Logger Logger

	// Status is optional per-device status storage.
	Status StatusRecorder

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// deviceEvent is a scanner event tagged with its configured device.
type deviceEvent struct {
	device config.DeviceConfig
	event  scanner.Event
}

// Bridge routes scanner events to the broker.
//
// All bridge logic runs on the goroutine that calls Run. Per-session
// goroutines only forward events into a single channel.
type Bridge struct {
	devices  []config.DeviceConfig
	suffixes map[scanner.Metric]string
	broker   Broker
	scanner  scanner.Scanner
	status   StatusRecorder
	limiter  *RateLimiter
	stats    *Stats
	now      func() time.Time
	logger   Logger

	// Owned by the Run goroutine.
	setupDone bool
	sessions  []scanner.Session

	events  chan deviceEvent
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewBridge creates a new bridge instance.
// Call Run to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	if opts.Scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if len(opts.Devices) == 0 {
		return nil, ErrNoDevices
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return &Bridge{
		devices: opts.Devices,
		suffixes: map[scanner.Metric]string{
			scanner.Temperature: suffixOr(opts.MQTT.TemperatureTopic, config.DefaultTemperatureTopic),
			scanner.Humidity:    suffixOr(opts.MQTT.HumidityTopic, config.DefaultHumidityTopic),
			scanner.Battery:     suffixOr(opts.MQTT.BatteryTopic, config.DefaultBatteryTopic),
		},
		broker:  opts.Broker,
		scanner: opts.Scanner,
		status:  opts.Status,
		limiter: NewRateLimiter(),
		stats:   &Stats{},
		now:     now,
		logger:  opts.Logger,
		events:  make(chan deviceEvent, deviceEventBuffer),
		done:    make(chan struct{}),
	}, nil
}

func suffixOr(suffix, fallback string) string {
	if suffix == "" {
		return fallback
	}
	return suffix
}

// Run processes connection and device events until ctx is cancelled.
// Sessions opened by the bridge are closed before Run returns.
//
// Returns:
//   - error: ErrAlreadyRunning if Run was already called, otherwise nil
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer b.shutdown()

	b.logInfo("bridge started", "devices", len(b.devices))

	brokerEvents := b.broker.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-brokerEvents:
			b.handleConnectionEvent(ctx, ev)
		case de := <-b.events:
			b.handleDeviceEvent(ctx, de)
		}
	}
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() StatsSnapshot {
	snap := b.stats.Snapshot(b.now())
	snap.Topics = int64(b.limiter.Len())
	if d, ok := b.scanner.(interface{ Dropped() uint64 }); ok {
		snap.Dropped = int64(d.Dropped())
	}
	return snap
}

// handleConnectionEvent reacts to a broker lifecycle event.
func (b *Bridge) handleConnectionEvent(ctx context.Context, ev mqtt.Event) {
	switch ev.Kind {
	case mqtt.EventConnect:
		b.stats.connects.Add(1)
		b.logInfo("connected to mqtt broker")
		if !b.setupDone {
			b.setupDevices(ctx)
		}

	case mqtt.EventReconnect:
		b.stats.reconnects.Add(1)
		b.logInfo("reconnecting to mqtt broker")

	case mqtt.EventClose:
		b.stats.disconnects.Add(1)
		if ev.Err != nil {
			b.logInfo("mqtt connection closed", "reason", ev.Err.Error())
		} else {
			b.logInfo("mqtt connection closed")
		}

	case mqtt.EventError:
		b.stats.connectErrors.Add(1)
		b.logError("mqtt connection error", ev.Err)
		b.broker.End()
	}
}

// setupDevices opens one scanner session per device. It runs once; later
// connect events reuse the sessions.
func (b *Bridge) setupDevices(ctx context.Context) {
	b.setupDone = true

	for _, dev := range b.devices {
		session, err := b.scanner.Open(dev.Address, scanner.Options{BindKey: dev.BindKey})
		if err != nil {
			b.stats.deviceErrors.Add(1)
			b.logError("failed to open scanner session", err, "device", dev.Name, "address", dev.Address)
			b.recordError(ctx, dev, err)
			continue
		}

		b.sessions = append(b.sessions, session)
		b.wg.Add(1)
		go b.forward(dev, session)

		b.logInfo("scanning for device", "device", dev.Name, "address", dev.Address, "topic", dev.MQTTTopic)
	}

	b.stats.devices.Store(int64(len(b.sessions)))
}

// forward copies a session's events into the merged channel.
func (b *Bridge) forward(dev config.DeviceConfig, session scanner.Session) {
	defer b.wg.Done()

	for ev := range session.Events() {
		select {
		case b.events <- deviceEvent{device: dev, event: ev}:
		case <-b.done:
			return
		}
	}
}

// handleDeviceEvent routes one scanner event.
func (b *Bridge) handleDeviceEvent(ctx context.Context, de deviceEvent) {
	dev, ev := de.device, de.event

	metric, ok := ev.Metric()
	if !ok {
		b.stats.deviceErrors.Add(1)
		b.logError("device error", ev.Err, "device", dev.Name, "address", dev.Address)
		b.recordError(ctx, dev, ev.Err)
		return
	}

	b.stats.received.Add(1)
	topic := mqtt.JoinTopic(dev.MQTTTopic, b.suffixes[metric])

	b.logDebug("reading",
		metric.String(), ev.Value,
		"peripheral", ev.Peripheral.Identity(),
		"device", dev.Name)

	if !b.limiter.ShouldPublish(topic, b.now()) {
		b.stats.suppressed.Add(1)
		return
	}

	payload, err := FormatMessage(ev.Value, b.now())
	if err != nil {
		b.stats.formatErrors.Add(1)
		b.logWarn("dropping reading", "topic", topic, "error", err)
		return
	}

	connected := b.broker.IsConnected()
	b.broker.Publish(topic, payload)
	if !connected {
		b.stats.offline.Add(1)
		b.logDebug("broker offline, reading not sent", "topic", topic)
		return
	}
	b.stats.published.Add(1)
	b.recordSeen(ctx, dev)
}

// recordSeen updates the device's last-seen time, if a recorder is set.
func (b *Bridge) recordSeen(ctx context.Context, dev config.DeviceConfig) {
	if b.status == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	if err := b.status.RecordSeen(ctx, dev.Address, dev.Name, b.now()); err != nil {
		b.logWarn("failed to record device status", "device", dev.Name, "error", err)
	}
}

// recordError stores a device error, if a recorder is set.
func (b *Bridge) recordError(ctx context.Context, dev config.DeviceConfig, cause error) {
	if b.status == nil || cause == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	if err := b.status.RecordError(ctx, dev.Address, dev.Name, cause, b.now()); err != nil {
		b.logWarn("failed to record device error", "device", dev.Name, "error", err)
	}
}

// shutdown closes sessions and waits for the forwarders.
func (b *Bridge) shutdown() {
	close(b.done)
	for _, s := range b.sessions {
		if err := s.Close(); err != nil {
			b.logWarn("failed to close scanner session", "error", err)
		}
	}
	b.wg.Wait()
	b.logInfo("bridge stopped")
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error with optional context if logger is set.
func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
