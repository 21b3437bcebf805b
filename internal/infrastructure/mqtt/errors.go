package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when a health check runs on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is reported when a connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrInvalidURL is returned when the broker URL cannot be used.
	ErrInvalidURL = errors.New("mqtt: invalid broker url")

	// ErrInvalidQoS is returned when an invalid QoS level is configured.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrPublishFailed is logged when the broker client reports a failed publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")
)
