// Package stats tracks execution duration distributions and scrapes a
// running server's metrics endpoint for the CLI stats view.
package stats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Snapshot is a point-in-time view of the duration distribution.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	Count     int64 `json:"count"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Timeouts  int64 `json:"timeouts"`

	// Duration quantiles in seconds. Zero when no samples exist.
	P50Seconds float64 `json:"p50_seconds"`
	P95Seconds float64 `json:"p95_seconds"`
	P99Seconds float64 `json:"p99_seconds"`
	MaxSeconds float64 `json:"max_seconds"`
}

// Aggregator accumulates execution durations into a T-Digest sketch.
// Safe for concurrent use.
type Aggregator struct {
	mu sync.Mutex

	digest    *tdigest.TDigest
	count     int64
	successes int64
	failures  int64
	timeouts  int64
	max       float64
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		// ~100 centroids, ~10KB
		digest: tdigest.NewWithCompression(100),
	}
}

// Record adds one completed execution.
func (a *Aggregator) Record(duration time.Duration, success, timedOut bool) {
	secs := duration.Seconds()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.digest.Add(secs, 1)
	a.count++
	switch {
	case timedOut:
		a.timeouts++
	case success:
		a.successes++
	default:
		a.failures++
	}
	if secs > a.max {
		a.max = secs
	}
}

// Snapshot returns the current distribution.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Timestamp:  time.Now(),
		Count:      a.count,
		Successes:  a.successes,
		Failures:   a.failures,
		Timeouts:   a.timeouts,
		MaxSeconds: a.max,
	}
	if a.count > 0 {
		s.P50Seconds = a.digest.Quantile(0.50)
		s.P95Seconds = a.digest.Quantile(0.95)
		s.P99Seconds = a.digest.Quantile(0.99)
	}
	return s
}
