package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultPublishTimeout bounds the offline status publish during Close.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on Close.
	defaultDisconnectQuiesce = 250 // milliseconds

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// schemeMapping translates broker URL schemes to the ones paho dials, with
// the port used when the URL does not name one.
var schemeMapping = map[string]struct {
	scheme string
	port   string
}{
	"mqtt":  {"tcp", "1883"},
	"tcp":   {"tcp", "1883"},
	"mqtts": {"ssl", "8883"},
	"ssl":   {"ssl", "8883"},
	"tls":   {"ssl", "8883"},
	"ws":    {"ws", "80"},
	"wss":   {"wss", "443"},
}

// brokerURL normalises a configured broker URL into the form paho expects.
func brokerURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}

	mapping, ok := schemeMapping[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	out := *u
	out.Scheme = mapping.scheme
	out.User = nil
	if u.Port() == "" {
		out.Host = u.Hostname() + ":" + mapping.port
	}
	return &out, nil
}

// buildClientOptions creates paho MQTT options from the bridge config.
//
// This configures:
//   - Broker URL (mqtt:// and mqtts:// map to tcp:// and ssl://)
//   - Client ID and credentials (URL userinfo is used when no username is set)
//   - Clean session and keepalive
//   - Reconnect policy for dropped connections (reconnectPeriod 0 disables it)
//   - TLS for secure schemes
func buildClientOptions(cfg config.MQTTConfig) (*pahomqtt.ClientOptions, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	broker, err := brokerURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(broker.String())
	opts.SetClientID(cfg.ClientID)

	username, password := cfg.Username, cfg.Password
	if username == "" {
		if u, parseErr := url.Parse(cfg.URL); parseErr == nil && u.User != nil {
			username = u.User.Username()
			password, _ = u.User.Password()
		}
	}
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}

	opts.SetCleanSession(cfg.Clean)
	opts.SetKeepAlive(cfg.GetKeepAlive())
	if timeout := cfg.GetConnectTimeout(); timeout > 0 {
		opts.SetConnectTimeout(timeout)
	}

	// Failed initial attempts are retried by Client.connectLoop so each
	// failure surfaces as an EventError. paho only reconnects dropped
	// connections.
	opts.SetConnectRetry(false)
	if period := cfg.GetReconnectPeriod(); period > 0 {
		opts.SetAutoReconnect(true)
		opts.SetMaxReconnectInterval(period)
	} else {
		opts.SetAutoReconnect(false)
	}

	if broker.Scheme == "ssl" || broker.Scheme == "wss" {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts, nil
}

// statusMessage is the retained availability payload on the status topic.
type statusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// buildStatusPayload creates the JSON payload for availability messages.
func buildStatusPayload(status, clientID, reason string, now time.Time) []byte {
	payload, err := json.Marshal(statusMessage{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: now.UnixMilli(),
	})
	if err != nil {
		return []byte(`{"status":"` + status + `"}`)
	}
	return payload
}

// configureLWT sets up the Last Will so the broker marks the bridge offline
// when the connection drops without a graceful Close.
func configureLWT(opts *pahomqtt.ClientOptions, cfg config.MQTTConfig) {
	if cfg.StatusTopic == "" {
		return
	}
	payload := buildStatusPayload("offline", cfg.ClientID, "unexpected_disconnect", time.Now())
	opts.SetBinaryWill(cfg.StatusTopic, payload, byte(cfg.QoS), true)
}
