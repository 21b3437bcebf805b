package hygro

import (
	"sync/atomic"
	"time"
)

// Stats holds the bridge counters. The zero value is ready to use.
type Stats struct {
	received      atomic.Int64
	published     atomic.Int64
	offline       atomic.Int64
	suppressed    atomic.Int64
	formatErrors  atomic.Int64
	deviceErrors  atomic.Int64
	connects      atomic.Int64
	reconnects    atomic.Int64
	disconnects   atomic.Int64
	connectErrors atomic.Int64
	devices       atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the bridge counters.
type StatsSnapshot struct {
	// Received counts metric readings from all devices.
	Received int64

	// Published counts readings sent while the broker was connected.
	Published int64

	// Offline counts readings that passed the rate limiter while the broker
	// was not connected. They are not sent.
	Offline int64

	// Suppressed counts readings dropped by the rate limiter.
	Suppressed int64

	FormatErrors  int64
	DeviceErrors  int64
	Connects      int64
	Reconnects    int64
	Disconnects   int64
	ConnectErrors int64

	// Devices is the number of open scanner sessions.
	Devices int64

	// Dropped counts events the scanner discarded because the bridge lagged.
	Dropped int64

	// Topics is the number of topics the rate limiter tracks.
	Topics int64

	// At is when the snapshot was taken.
	At time.Time
}

// Snapshot copies the counters.
func (s *Stats) Snapshot(at time.Time) StatsSnapshot {
	return StatsSnapshot{
		Received:      s.received.Load(),
		Published:     s.published.Load(),
		Offline:       s.offline.Load(),
		Suppressed:    s.suppressed.Load(),
		FormatErrors:  s.formatErrors.Load(),
		DeviceErrors:  s.deviceErrors.Load(),
		Connects:      s.connects.Load(),
		Reconnects:    s.reconnects.Load(),
		Disconnects:   s.disconnects.Load(),
		ConnectErrors: s.connectErrors.Load(),
		Devices:       s.devices.Load(),
		At:            at,
	}
}

// Fields returns the counters keyed by field name, for time-series sinks.
func (s StatsSnapshot) Fields() map[string]int64 {
	return map[string]int64{
		"received":       s.Received,
		"published":      s.Published,
		"offline":        s.Offline,
		"suppressed":     s.Suppressed,
		"format_errors":  s.FormatErrors,
		"device_errors":  s.DeviceErrors,
		"connects":       s.Connects,
		"reconnects":     s.Reconnects,
		"disconnects":    s.Disconnects,
		"connect_errors": s.ConnectErrors,
		"devices":        s.Devices,
		"dropped":        s.Dropped,
		"topics":         s.Topics,
	}
}
