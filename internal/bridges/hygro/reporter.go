package hygro

import (
	"context"
	"sync"
	"time"
)

// defaultStatsInterval is used when no interval is configured.
const defaultStatsInterval = 60 * time.Second

// StatsSink receives bridge counters.
// This is satisfied by *influxdb.Client.
type StatsSink interface {
	WriteBridgeStats(bridgeID string, counters map[string]int64, at time.Time)
}

// StatsSource provides the counters to report.
// This is satisfied by *Bridge.
type StatsSource interface {
	Stats() StatsSnapshot
}

// StatsReporterConfig holds configuration for the stats reporter.
type StatsReporterConfig struct {
	// BridgeID tags every write.
	BridgeID string

	// Interval is how often counters are written.
	// Default: 60 seconds.
	Interval time.Duration

	// Source provides the counters.
	Source StatsSource

	// Sink receives the counters.
	Sink StatsSink
}

// StatsReporter periodically writes bridge counters to a StatsSink.
type StatsReporter struct {
	bridgeID string
	interval time.Duration
	source   StatsSource
	sink     StatsSink

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewStatsReporter creates a new stats reporter.
//
// Returns:
//   - *StatsReporter: Ready to start (call Start to begin reporting)
func NewStatsReporter(cfg StatsReporterConfig) *StatsReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultStatsInterval
	}

	return &StatsReporter{
		bridgeID: cfg.BridgeID,
		interval: interval,
		source:   cfg.Source,
		sink:     cfg.Sink,
		done:     make(chan struct{}),
	}
}

// Start begins periodic reporting. Call Stop to shut down.
func (r *StatsReporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.reportLoop(ctx)
}

// Stop stops reporting and writes the final counters.
// Safe to call multiple times.
func (r *StatsReporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.ReportNow()
	})
}

// ReportNow writes the current counters immediately.
func (r *StatsReporter) ReportNow() {
	if r.source == nil || r.sink == nil {
		return
	}
	snap := r.source.Stats()
	r.sink.WriteBridgeStats(r.bridgeID, snap.Fields(), snap.At)
}

// reportLoop runs the periodic reporting.
func (r *StatsReporter) reportLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.ReportNow()
		}
	}
}
