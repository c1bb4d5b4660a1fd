// Package cli implements the CLI commands for go-script-runner.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-script-runner/internal/config"
	"github.com/randomizedcoder/go-script-runner/internal/logging"
	"github.com/randomizedcoder/go-script-runner/internal/registry"
	"github.com/randomizedcoder/go-script-runner/internal/version"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "go-script-runner",
	Short: "Discover, validate and execute automation scripts",
	Long: `go-script-runner executes JavaScript automation scripts from a scripts
directory as isolated child processes, with per-run environment overrides,
wall-clock timeouts and captured output.

It can run as a CLI or serve the same operations over HTTP.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagScriptsDir  string
	flagInterpreter string
	flagConfigFile  string
	flagLogFormat   string
	flagLogLevel    string
	flagVerbose     bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagScriptsDir, "scripts-dir", "", "directory containing scripts (default ./scripts)")
	pf.StringVar(&flagInterpreter, "interpreter", "", "script interpreter binary (default node)")
	pf.StringVar(&flagConfigFile, "config", "", "path to YAML config file")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: json or text")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and returns any error.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig builds the effective configuration: defaults, then the optional
// config file, then environment variables, then command-line flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	if flagConfigFile != "" {
		if err := cfg.LoadFile(flagConfigFile); err != nil {
			return nil, err
		}
	} else if err := cfg.LoadFileIfExists("script-runner.yaml"); err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if flagScriptsDir != "" {
		cfg.ScriptsDir = flagScriptsDir
	}
	if flagInterpreter != "" {
		cfg.Interpreter = flagInterpreter
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagVerbose {
		cfg.Verbose = true
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// newLogger builds the slog logger for the effective configuration.
func newLogger(cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
}

// newRegistry builds the registry for the effective configuration.
func newRegistry(cfg *config.Config) *registry.Registry {
	return registry.New(cfg.ScriptsDir, cfg.Extension)
}
