package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-script-runner/internal/engine"
	"github.com/randomizedcoder/go-script-runner/internal/metrics"
	"github.com/randomizedcoder/go-script-runner/internal/preflight"
	"github.com/randomizedcoder/go-script-runner/internal/server"
	"github.com/randomizedcoder/go-script-runner/internal/stats"
	"github.com/randomizedcoder/go-script-runner/internal/version"
)

var (
	serveHost          string
	servePort          int
	serveSkipPrechecks bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the script runner over HTTP",
	Long: `Serve starts an HTTP server exposing script listing, validation and
execution, plus Prometheus metrics on /metrics and duration quantiles
on /stats.

The server runs until interrupted and shuts down gracefully.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveHost, "host", "", "listen address (default 0.0.0.0)")
	f.IntVar(&servePort, "port", 0, "listen port (default 8000)")
	f.BoolVar(&serveSkipPrechecks, "skip-prechecks", false, "skip startup preflight checks")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	if !serveSkipPrechecks {
		checks := preflight.RunAll(cfg.Interpreter, cfg.ScriptsDir, cfg.RequiredEnv)
		preflight.PrintResults(checks)
		if !checks.Passed {
			return fmt.Errorf("preflight checks failed")
		}
	}

	logger := newLogger(cfg)
	reg := newRegistry(cfg)

	collector := metrics.NewCollector(metrics.CollectorConfig{
		Version:     version.Version,
		ScriptsDir:  cfg.ScriptsDir,
		Interpreter: cfg.Interpreter,
	})
	aggregator := stats.NewAggregator()

	eng := engine.New(reg, cfg.EngineConfig(), logger, server.Instrumentation(collector, aggregator))
	srv := server.New(cfg.Addr(), reg, eng, collector, aggregator, logger)

	if err := srv.Start(); err != nil {
		return err
	}
	logger.Info("serving",
		"addr", cfg.Addr(),
		"scripts_dir", cfg.ScriptsDir,
		"interpreter", cfg.Interpreter,
		"version", version.Version,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
