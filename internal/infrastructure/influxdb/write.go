package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// bridgeStatsMeasurement is the measurement bridge counters are written to.
const bridgeStatsMeasurement = "bridge_stats"

// WriteBridgeStats writes one point of bridge counters, tagged with the
// bridge ID. The write is non-blocking.
//
// Example line protocol:
//
//	bridge_stats,bridge_id=hygrobridge published=42i,suppressed=7i 1700000000000000000
func (c *Client) WriteBridgeStats(bridgeID string, counters map[string]int64, at time.Time) {
	if !c.IsConnected() || len(counters) == 0 {
		return
	}
	c.writeAPI.WritePoint(newStatsPoint(bridgeID, counters, at))
}

// newStatsPoint builds the point written by WriteBridgeStats.
func newStatsPoint(bridgeID string, counters map[string]int64, at time.Time) *write.Point {
	fields := make(map[string]interface{}, len(counters))
	for name, v := range counters {
		fields[name] = v
	}
	return write.NewPoint(
		bridgeStatsMeasurement,
		map[string]string{"bridge_id": bridgeID},
		fields,
		at,
	)
}
