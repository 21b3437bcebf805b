package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/config"
)

// eventBufferSize is the capacity of the lifecycle event channel.
const eventBufferSize = 16

// ConnectionState governs whether Publish is permitted.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

// String returns the state name for logging.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// EventKind identifies a connection lifecycle event.
type EventKind int

const (
	EventConnect EventKind = iota + 1
	EventReconnect
	EventClose
	EventError
)

// String returns the event name for logging.
func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventReconnect:
		return "reconnect"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a connection lifecycle notification.
// Err is set for EventError and, when paho supplies a cause, EventClose.
type Event struct {
	Kind EventKind
	Err  error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// pahoClient is the subset of pahomqtt.Client the bridge uses.
type pahoClient interface {
	Connect() pahomqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	IsConnected() bool
}

// newPahoClient constructs the underlying client. Replaced in tests.
var newPahoClient = func(opts *pahomqtt.ClientOptions) pahoClient {
	return pahomqtt.NewClient(opts)
}

// Client wraps paho.mqtt.golang with connection state tracking and an
// ordered lifecycle event stream.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Events are delivered in the order paho reported them.
type Client struct {
	client  pahoClient
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// retryPeriod is the delay before another connection attempt.
	// Zero means a failed attempt is final.
	retryPeriod time.Duration

	state   ConnectionState
	stateMu sync.RWMutex

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	// now is the clock used for status payloads.
	now func() time.Time

	logger   Logger
	loggerMu sync.RWMutex
}

// Connect starts connecting to the MQTT broker and returns immediately.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS, reconnect)
//  2. Configures the Last Will when a status topic is set
//  3. Binds the paho lifecycle callbacks to the event stream
//  4. Starts the connection attempts without waiting for the broker
//
// Every failed attempt emits EventError. With mqtt.reconnectPeriod > 0 the
// next attempt follows after that period, preceded by EventReconnect.
//
// Parameters:
//   - cfg: MQTT configuration
//
// Returns:
//   - *Client: Client in StateConnecting; watch Events() for the outcome
//   - error: If the URL or options are invalid
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts, err := buildClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	configureLWT(opts, cfg)

	c := newClient(cfg, opts)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.handleReconnecting()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})

	c.client = newPahoClient(opts)
	go c.connectLoop()

	return c, nil
}

// newClient creates a Client in StateConnecting without a paho client.
func newClient(cfg config.MQTTConfig, opts *pahomqtt.ClientOptions) *Client {
	return &Client{
		cfg:         cfg,
		options:     opts,
		retryPeriod: cfg.GetReconnectPeriod(),
		state:       StateConnecting,
		events:      make(chan Event, eventBufferSize),
		done:        make(chan struct{}),
		now:         time.Now,
	}
}

// connectLoop makes connection attempts until one succeeds, retrying is
// disabled, or the client is closed. Success is reported by the paho
// OnConnect handler; each failure is reported here as EventError.
func (c *Client) connectLoop() {
	for {
		token := c.client.Connect()
		select {
		case <-token.Done():
		case <-c.done:
			return
		}

		err := token.Error()
		if err == nil {
			return
		}
		c.handleConnectError(err)

		if c.retryPeriod <= 0 {
			return
		}
		timer := time.NewTimer(c.retryPeriod)
		select {
		case <-timer.C:
		case <-c.done:
			timer.Stop()
			return
		}
		c.handleReconnecting()
	}
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.setState(StateConnected)
	c.publishStatus("online", "")
	c.emit(Event{Kind: EventConnect})
}

// handleReconnecting is called before paho retries a lost connection.
func (c *Client) handleReconnecting() {
	c.setState(StateConnecting)
	c.emit(Event{Kind: EventReconnect})
}

// handleConnectionLost is called when an established connection drops.
func (c *Client) handleConnectionLost(err error) {
	c.setState(StateDisconnected)
	c.emit(Event{Kind: EventClose, Err: err})
}

// handleConnectError is called when a connection attempt fails.
func (c *Client) handleConnectError(err error) {
	c.setState(StateDisconnected)
	c.emit(Event{Kind: EventError, Err: fmt.Errorf("%w: %w", ErrConnectionFailed, err)})
}

// emit delivers an event unless the client has been closed.
func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// setState records the connection state.
func (c *Client) setState(s ConnectionState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// publishStatus publishes the retained availability message, if configured.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	if c.cfg.StatusTopic == "" || c.client == nil {
		return nil
	}
	payload := buildStatusPayload(status, c.cfg.ClientID, reason, c.now())
	return c.client.Publish(c.cfg.StatusTopic, byte(c.cfg.QoS), true, payload)
}

// Events returns the lifecycle event stream.
// The channel is never closed; stop reading when your context ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the last known connection state.
func (c *Client) State() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether Publish is currently permitted.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected && c.client != nil && c.client.IsConnected()
}

// End forcibly terminates the current connection or attempt with no
// quiesce. A failed initial attempt is still retried after reconnectPeriod;
// Close stops the client for good.
func (c *Client) End() {
	if c.client != nil {
		c.client.Disconnect(0)
	}
	c.setState(StateDisconnected)
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Publishes a graceful offline status (when a status topic is set)
//  2. Disconnects with a short quiesce for pending publishes
//  3. Stops event delivery
//
// Safe to call multiple times.
//
// Returns:
//   - error: Always nil; kept for symmetry with other infrastructure clients
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.client != nil {
			if c.IsConnected() {
				if token := c.publishStatus("offline", "graceful_shutdown"); token != nil {
					token.WaitTimeout(defaultPublishTimeout)
				}
			}
			c.client.Disconnect(defaultDisconnectQuiesce)
		}
		c.setState(StateDisconnected)
		close(c.done)
	})
	return nil
}

// HealthCheck reports whether the broker connection is up.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: nil if connected, ErrNotConnected otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// SetLogger sets a logger for publish failures.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}
