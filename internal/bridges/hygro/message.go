package hygro

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the payload published for every reading.
type Message struct {
	// Timestamp is milliseconds since the Unix epoch, taken when formatted.
	Timestamp int64 `json:"timestamp"`

	// Value is the reading as reported by the sensor.
	Value float64 `json:"value"`
}

// FormatMessage encodes a reading as {"timestamp":<ms>,"value":<v>}.
//
// Returns an error for values JSON cannot represent (NaN, ±Inf).
func FormatMessage(value float64, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(Message{
		Timestamp: now.UnixMilli(),
		Value:     value,
	})
	if err != nil {
		return nil, fmt.Errorf("formatting reading: %w", err)
	}
	return payload, nil
}

// DecodeMessage parses a published payload.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}
	return msg, nil
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}
