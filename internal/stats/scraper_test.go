package stats

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleExposition = `# HELP script_runner_scripts_available Number of scripts discovered by the most recent listing
# TYPE script_runner_scripts_available gauge
script_runner_scripts_available 4
# HELP script_runner_executions_in_flight Currently running script processes
# TYPE script_runner_executions_in_flight gauge
script_runner_executions_in_flight 2
# HELP script_runner_executions_total Total script executions by outcome
# TYPE script_runner_executions_total counter
script_runner_executions_total{outcome="success"} 10
script_runner_executions_total{outcome="nonzero_exit"} 3
script_runner_executions_total{outcome="timeout"} 1
# HELP script_runner_validations_total Total script validations by result
# TYPE script_runner_validations_total counter
script_runner_validations_total{result="valid"} 5
script_runner_validations_total{result="invalid"} 2
# HELP script_runner_execution_duration_seconds Wall-clock duration of script executions
# TYPE script_runner_execution_duration_seconds histogram
script_runner_execution_duration_seconds_bucket{le="1"} 8
script_runner_execution_duration_seconds_bucket{le="+Inf"} 14
script_runner_execution_duration_seconds_sum 42.5
script_runner_execution_duration_seconds_count 14
`

func TestScraper_Scrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sampleExposition))
	}))
	defer srv.Close()

	s := NewScraper(srv.URL + "/metrics")
	stats, err := s.Scrape()
	if err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}

	if stats.ScriptsAvailable != 4 {
		t.Errorf("ScriptsAvailable = %d, want 4", stats.ScriptsAvailable)
	}
	if stats.ExecutionsInFlight != 2 {
		t.Errorf("ExecutionsInFlight = %d, want 2", stats.ExecutionsInFlight)
	}
	if stats.ExecutionsByOutcome["success"] != 10 {
		t.Errorf("success = %d, want 10", stats.ExecutionsByOutcome["success"])
	}
	if stats.ExecutionsByOutcome["timeout"] != 1 {
		t.Errorf("timeout = %d, want 1", stats.ExecutionsByOutcome["timeout"])
	}
	if stats.ValidationsByResult["invalid"] != 2 {
		t.Errorf("invalid = %d, want 2", stats.ValidationsByResult["invalid"])
	}
	if stats.ExecutionCount != 14 {
		t.Errorf("ExecutionCount = %d, want 14", stats.ExecutionCount)
	}
	if stats.ExecutionTotalSecond != 42.5 {
		t.Errorf("ExecutionTotalSecond = %v, want 42.5", stats.ExecutionTotalSecond)
	}
}

func TestScraper_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewScraper(srv.URL)
	if _, err := s.Scrape(); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestScraper_Unreachable(t *testing.T) {
	s := NewScraper("http://127.0.0.1:1/metrics")
	if _, err := s.Scrape(); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestDecodeFamilies_Garbage(t *testing.T) {
	if _, err := decodeFamilies(strings.NewReader("{not prometheus}")); err == nil {
		t.Error("expected decode error for garbage input")
	}
}
