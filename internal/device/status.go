package device

import "time"

// Status is the last known state of one sensor.
type Status struct {
	// Address is the sensor's radio address, upper-cased.
	Address string

	// Name is the configured display name.
	Name string

	// LastSeen is when a reading was last published. Nil if never.
	LastSeen *time.Time

	// LastError is the most recent error message, empty if none.
	LastError string

	// LastErrorAt is when LastError occurred. Nil if never.
	LastErrorAt *time.Time

	// Readings counts published readings.
	Readings int64

	// Errors counts errors.
	Errors int64

	// UpdatedAt is when the row last changed.
	UpdatedAt time.Time
}

// Stale reports whether the sensor has not been seen within maxAge of now.
// A sensor that was never seen is stale.
func (s Status) Stale(now time.Time, maxAge time.Duration) bool {
	if s.LastSeen == nil {
		return true
	}
	return now.Sub(*s.LastSeen) > maxAge
}
