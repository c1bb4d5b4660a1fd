package stats

import (
	"fmt"
	"io"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// ServerStats summarizes the runner metrics scraped from a server's
// /metrics endpoint.
type ServerStats struct {
	ScriptsAvailable   int64
	ExecutionsInFlight int64

	// Executions by outcome label.
	ExecutionsByOutcome map[string]int64

	// Validations by result label.
	ValidationsByResult map[string]int64

	// Duration histogram summary.
	ExecutionCount       int64
	ExecutionTotalSecond float64
}

// Scraper fetches and parses the Prometheus text exposition of a running
// go-script-runner server.
type Scraper struct {
	url        string
	httpClient *http.Client
}

// NewScraper creates a scraper for the given /metrics URL.
func NewScraper(url string) *Scraper {
	return &Scraper{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Scrape fetches the endpoint and extracts the runner metric families.
func (s *Scraper) Scrape() (*ServerStats, error) {
	resp, err := s.httpClient.Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	families, err := decodeFamilies(resp.Body)
	if err != nil {
		return nil, err
	}

	stats := &ServerStats{
		ExecutionsByOutcome: make(map[string]int64),
		ValidationsByResult: make(map[string]int64),
	}

	if mf, ok := families["script_runner_scripts_available"]; ok {
		stats.ScriptsAvailable = int64(firstGaugeValue(mf))
	}
	if mf, ok := families["script_runner_executions_in_flight"]; ok {
		stats.ExecutionsInFlight = int64(firstGaugeValue(mf))
	}
	if mf, ok := families["script_runner_executions_total"]; ok {
		for _, m := range mf.GetMetric() {
			outcome := labelValue(m, "outcome")
			stats.ExecutionsByOutcome[outcome] += int64(m.GetCounter().GetValue())
		}
	}
	if mf, ok := families["script_runner_validations_total"]; ok {
		for _, m := range mf.GetMetric() {
			result := labelValue(m, "result")
			stats.ValidationsByResult[result] += int64(m.GetCounter().GetValue())
		}
	}
	if mf, ok := families["script_runner_execution_duration_seconds"]; ok {
		for _, m := range mf.GetMetric() {
			h := m.GetHistogram()
			stats.ExecutionCount += int64(h.GetSampleCount())
			stats.ExecutionTotalSecond += h.GetSampleSum()
		}
	}

	return stats, nil
}

// decodeFamilies parses Prometheus text format into a name-keyed map.
func decodeFamilies(r io.Reader) (map[string]*dto.MetricFamily, error) {
	decoder := expfmt.NewDecoder(r, expfmt.NewFormat(expfmt.TypeTextPlain))
	families := make(map[string]*dto.MetricFamily)

	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode error: %w", err)
		}
		families[mf.GetName()] = &mf
	}

	return families, nil
}

func firstGaugeValue(mf *dto.MetricFamily) float64 {
	for _, m := range mf.GetMetric() {
		if g := m.GetGauge(); g != nil {
			return g.GetValue()
		}
	}
	return 0
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
