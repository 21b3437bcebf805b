package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publish sends a retained message to topic at the configured QoS.
//
// The call is a silent no-op when the client is not connected, the topic is
// empty, or the payload is empty. Callers are not told about dropped
// messages; the next reading replaces them.
//
// Delivery is not awaited. A failure reported later by paho is logged at
// warn level and otherwise ignored.
//
// Parameters:
//   - topic: Fully qualified topic (e.g., "room1/temperature")
//   - payload: Message payload
func (c *Client) Publish(topic string, payload []byte) {
	if topic == "" || len(payload) == 0 {
		return
	}
	if !c.IsConnected() {
		return
	}

	if logger := c.getLogger(); logger != nil {
		logger.Debug("mqtt publish", "topic", topic, "payload", string(payload))
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
	go c.watchPublish(topic, token)
}

// watchPublish logs the outcome of an asynchronous publish.
func (c *Client) watchPublish(topic string, token pahomqtt.Token) {
	select {
	case <-token.Done():
	case <-c.done:
		return
	}

	if err := token.Error(); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("mqtt publish failed",
				"topic", topic,
				"error", fmt.Errorf("%w: %w", ErrPublishFailed, err),
			)
		}
	}
}
