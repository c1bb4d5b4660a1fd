// Package metrics provides Prometheus metrics for go-script-runner.
//
// All metrics are aggregate: there is no per-script cardinality beyond the
// script name label on execution counters, which is bounded by the contents
// of the scripts directory.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for runnerExecutionsTotal.
const (
	OutcomeSuccess       = "success"
	OutcomeNonZeroExit   = "nonzero_exit"
	OutcomeTimeout       = "timeout"
	OutcomeNotFound      = "not_found"
	OutcomeLaunchFailure = "launch_failure"
	OutcomeInternalError = "internal_error"
)

var (
	runnerInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "script_runner_info",
			Help: "Information about the runner (value always 1)",
		},
		[]string{"version", "scripts_dir", "interpreter"},
	)

	runnerScriptsAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "script_runner_scripts_available",
			Help: "Number of scripts discovered by the most recent listing",
		},
	)

	runnerExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "script_runner_executions_total",
			Help: "Total script executions by outcome",
		},
		[]string{"outcome"},
	)

	runnerExecutionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "script_runner_executions_in_flight",
			Help: "Currently running script processes",
		},
	)

	runnerExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "script_runner_execution_duration_seconds",
			Help: "Wall-clock duration of script executions",
			// Automation scripts routinely run for minutes.
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	runnerValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "script_runner_validations_total",
			Help: "Total script validations by result",
		},
		[]string{"result"},
	)

	runnerHTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "script_runner_http_requests_total",
			Help: "HTTP requests served, by route and status code",
		},
		[]string{"route", "code"},
	)
)

// Collector owns metric registration and recording. A Collector is safe for
// concurrent use.
type Collector struct {
	startTime time.Time
	gatherer  prometheus.Gatherer

	totalExecutions atomic.Int64
	totalTimeouts   atomic.Int64
}

// CollectorConfig holds static labels for the info metric.
type CollectorConfig struct {
	Version     string
	ScriptsDir  string
	Interpreter string
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	c := newCollector(cfg, prometheus.DefaultRegisterer)
	c.gatherer = prometheus.DefaultGatherer
	return c
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry *prometheus.Registry) *Collector {
	c := newCollector(cfg, registry)
	c.gatherer = registry
	return c
}

func newCollector(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{startTime: time.Now()}

	registry.MustRegister(
		runnerInfo,
		runnerScriptsAvailable,
		runnerExecutionsTotal,
		runnerExecutionsInFlight,
		runnerExecutionDuration,
		runnerValidationsTotal,
		runnerHTTPRequestsTotal,
	)

	runnerInfo.WithLabelValues(cfg.Version, cfg.ScriptsDir, cfg.Interpreter).Set(1)

	return c
}

// ExecutionStarted records a spawned script process.
func (c *Collector) ExecutionStarted() {
	runnerExecutionsInFlight.Inc()
}

// ExecutionFinished records a completed execution with its outcome label.
func (c *Collector) ExecutionFinished(outcome string, duration time.Duration) {
	runnerExecutionsInFlight.Dec()
	runnerExecutionsTotal.WithLabelValues(outcome).Inc()
	runnerExecutionDuration.Observe(duration.Seconds())

	c.totalExecutions.Add(1)
	if outcome == OutcomeTimeout {
		c.totalTimeouts.Add(1)
	}
}

// ExecutionRejected records an execution that failed before a process was
// spawned (unknown script, missing secret, launch failure).
func (c *Collector) ExecutionRejected(outcome string) {
	runnerExecutionsTotal.WithLabelValues(outcome).Inc()
}

// ExecutionAborted records a started execution torn down without a result.
func (c *Collector) ExecutionAborted() {
	runnerExecutionsInFlight.Dec()
	runnerExecutionsTotal.WithLabelValues(OutcomeInternalError).Inc()
}

// ValidationRecorded records a validation outcome.
func (c *Collector) ValidationRecorded(valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	runnerValidationsTotal.WithLabelValues(result).Inc()
}

// ScriptsListed records the size of the most recent directory listing.
func (c *Collector) ScriptsListed(count int) {
	runnerScriptsAvailable.Set(float64(count))
}

// HTTPRequest records one served HTTP request.
func (c *Collector) HTTPRequest(route, code string) {
	runnerHTTPRequestsTotal.WithLabelValues(route, code).Inc()
}

// TotalExecutions returns the number of completed executions since start.
func (c *Collector) TotalExecutions() int64 {
	return c.totalExecutions.Load()
}

// TotalTimeouts returns the number of timed-out executions since start.
func (c *Collector) TotalTimeouts() int64 {
	return c.totalTimeouts.Load()
}

// Handler returns the Prometheus exposition handler for this collector's
// registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Uptime returns the time since the collector was created.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}
