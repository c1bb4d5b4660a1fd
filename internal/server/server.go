// Package server exposes the script runner over HTTP.
//
// Routes:
//
//	GET  /health          liveness probe
//	GET  /scripts         list runnable scripts
//	GET  /validate/{name} syntax-check one script
//	POST /execute/{name}  run one script to completion
//	GET  /metrics         Prometheus exposition
//	GET  /stats           duration distribution snapshot
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/randomizedcoder/go-script-runner/internal/engine"
	"github.com/randomizedcoder/go-script-runner/internal/format"
	"github.com/randomizedcoder/go-script-runner/internal/metrics"
	"github.com/randomizedcoder/go-script-runner/internal/registry"
	"github.com/randomizedcoder/go-script-runner/internal/stats"
	"github.com/randomizedcoder/go-script-runner/internal/validator"
)

// ExecuteRequest is the POST /execute/{name} body. All fields are optional.
type ExecuteRequest struct {
	EnvVars map[string]string `json:"env_vars,omitempty"`
	Args    []string          `json:"args,omitempty"`

	// TimeoutSeconds overrides the engine default for this run.
	TimeoutSeconds float64 `json:"timeout,omitempty"`
}

// errorResponse is the error body for non-200 responses.
type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the HTTP API. Construct with New and run with Start.
type Server struct {
	registry   *registry.Registry
	engine     *engine.Engine
	collector  *metrics.Collector
	aggregator *stats.Aggregator
	logger     *slog.Logger
	server     *http.Server
}

// New creates a Server listening on addr.
func New(addr string, reg *registry.Registry, eng *engine.Engine, collector *metrics.Collector, aggregator *stats.Aggregator, logger *slog.Logger) *Server {
	s := &Server{
		registry:   reg,
		engine:     eng,
		collector:  collector,
		aggregator: aggregator,
		logger:     logger,
	}

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /execute responses wait for child processes
		// that may legitimately run for minutes.
		IdleTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /scripts", s.handleScripts)
	mux.HandleFunc("GET /validate/{name}", s.handleValidate)
	mux.HandleFunc("POST /execute/{name}", s.handleExecute)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.Handle("GET /metrics", s.collector.Handler())

	return mux
}

// Start starts the server in a goroutine. Use Shutdown to stop.
func (s *Server) Start() error {
	s.logger.Info("server_starting", "addr", s.server.Addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server_error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("server_shutting_down")
	return s.server.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, "/health", http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	scripts, err := s.registry.List()
	if err != nil {
		if errors.Is(err, registry.ErrDirectoryNotFound) {
			s.writeError(w, r, "/scripts", http.StatusNotFound, err)
			return
		}
		s.writeError(w, r, "/scripts", http.StatusInternalServerError, err)
		return
	}

	names := make([]string, 0, len(scripts))
	for _, script := range scripts {
		names = append(names, script.Name)
	}
	s.collector.ScriptsListed(len(names))

	s.writeJSON(w, r, "/scripts", http.StatusOK, format.ScriptListResponse{Scripts: names})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	script, err := s.registry.Resolve(name)
	if err != nil {
		s.writeError(w, r, "/validate", statusFor(err), err)
		return
	}

	res, err := validator.Validate(script)
	if err != nil {
		s.writeError(w, r, "/validate", http.StatusInternalServerError, err)
		return
	}
	s.collector.ValidationRecorded(res.Valid)

	s.writeJSON(w, r, "/validate", http.StatusOK, format.Validation(res))
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var body ExecuteRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, r, "/execute", http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	req := engine.Request{
		ScriptName: name,
		EnvVars:    body.EnvVars,
		Args:       body.Args,
		Timeout:    time.Duration(body.TimeoutSeconds * float64(time.Second)),
	}

	res, err := s.engine.Execute(r.Context(), req)
	if err != nil {
		s.collector.ExecutionRejected(rejectionOutcome(err))
		s.writeError(w, r, "/execute", statusFor(err), err)
		return
	}

	s.writeJSON(w, r, "/execute", http.StatusOK, format.Execution(res))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, "/stats", http.StatusOK, s.aggregator.Snapshot())
}

// statusFor maps engine and registry faults to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrScriptNotFound),
		errors.Is(err, registry.ErrDirectoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrMissingSecret):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// outcomeFor maps a completed result to its metrics outcome label.
func outcomeFor(res engine.Result) string {
	switch {
	case res.TimedOut:
		return metrics.OutcomeTimeout
	case res.Success:
		return metrics.OutcomeSuccess
	default:
		return metrics.OutcomeNonZeroExit
	}
}

// Instrumentation builds engine callbacks that feed the collector and the
// duration aggregator. Pass the result to engine.New.
func Instrumentation(collector *metrics.Collector, aggregator *stats.Aggregator) engine.Callbacks {
	return engine.Callbacks{
		OnStart: func(scriptName string, pid int) {
			collector.ExecutionStarted()
		},
		OnFinish: func(res engine.Result) {
			collector.ExecutionFinished(outcomeFor(res), res.Duration)
			aggregator.Record(res.Duration, res.Success, res.TimedOut)
		},
		OnAbort: func(scriptName string) {
			collector.ExecutionAborted()
		},
	}
}

// rejectionOutcome maps a pre-spawn fault to its metrics outcome label.
func rejectionOutcome(err error) string {
	switch {
	case errors.Is(err, registry.ErrScriptNotFound),
		errors.Is(err, registry.ErrDirectoryNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, engine.ErrMissingSecret),
		errors.Is(err, engine.ErrLaunchFailure):
		return metrics.OutcomeLaunchFailure
	default:
		return metrics.OutcomeInternalError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, route string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response_encode_failed", "route", route, "error", err)
	}

	s.collector.HTTPRequest(route, fmt.Sprintf("%d", status))
	s.logger.Info("http_request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
	)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, route string, status int, err error) {
	s.logger.Warn("http_request_failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
	s.collector.HTTPRequest(route, fmt.Sprintf("%d", status))
}
