// Package config provides configuration management for go-script-runner.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/randomizedcoder/go-script-runner/internal/engine"
)

// Config holds all configuration options for the runner.
type Config struct {
	// Scripts
	ScriptsDir  string `yaml:"scripts_dir" json:"scripts_dir"`
	Extension   string `yaml:"extension" json:"extension"`
	Interpreter string `yaml:"interpreter" json:"interpreter"`

	// Execution
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout"`
	RequiredEnv    string        `yaml:"required_env" json:"required_env"`
	MaxOutputBytes int           `yaml:"max_output_bytes" json:"max_output_bytes"`

	// HTTP front end
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// Observability
	Verbose   bool   `yaml:"verbose" json:"verbose"`
	LogFormat string `yaml:"log_format" json:"log_format"` // json, text
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Scripts
		ScriptsDir:  "./scripts",
		Extension:   ".js",
		Interpreter: "node",

		// Execution
		DefaultTimeout: 5 * time.Minute,
		RequiredEnv:    "AUTOMATION_API_KEY",
		MaxOutputBytes: 10 << 20,

		// HTTP
		Host: "0.0.0.0",
		Port: 8000,

		// Observability
		Verbose:   false,
		LogFormat: "json",
		LogLevel:  "info",
	}
}

// ApplyEnv overlays process environment variables onto the config.
// Recognized: SCRIPTS_DIR, HOST, PORT, AUTOMATION_API_KEY_NAME.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("SCRIPTS_DIR"); v != "" {
		c.ScriptsDir = v
	}
	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v := os.Getenv("AUTOMATION_API_KEY_NAME"); v != "" {
		c.RequiredEnv = v
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EngineConfig converts the runner config into an engine configuration.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Interpreter:    c.Interpreter,
		DefaultTimeout: c.DefaultTimeout,
		RequiredEnv:    c.RequiredEnv,
		MaxOutputBytes: c.MaxOutputBytes,
	}
}
