package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileOverlay mirrors Config with pointer fields so only keys present in the
// YAML file override the existing values. Durations are written as strings
// ("90s", "5m") and parsed with time.ParseDuration.
type fileOverlay struct {
	ScriptsDir     *string `yaml:"scripts_dir"`
	Extension      *string `yaml:"extension"`
	Interpreter    *string `yaml:"interpreter"`
	DefaultTimeout *string `yaml:"default_timeout"`
	RequiredEnv    *string `yaml:"required_env"`
	MaxOutputBytes *int    `yaml:"max_output_bytes"`
	Host           *string `yaml:"host"`
	Port           *int    `yaml:"port"`
	Verbose        *bool   `yaml:"verbose"`
	LogFormat      *string `yaml:"log_format"`
	LogLevel       *string `yaml:"log_level"`
}

// LoadFile overlays a YAML config file onto the config. A missing file is an
// error; use LoadFileIfExists for the optional default file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if overlay.ScriptsDir != nil {
		c.ScriptsDir = *overlay.ScriptsDir
	}
	if overlay.Extension != nil {
		c.Extension = *overlay.Extension
	}
	if overlay.Interpreter != nil {
		c.Interpreter = *overlay.Interpreter
	}
	if overlay.DefaultTimeout != nil {
		d, err := time.ParseDuration(*overlay.DefaultTimeout)
		if err != nil {
			return fmt.Errorf("config file %s: default_timeout: %w", path, err)
		}
		c.DefaultTimeout = d
	}
	if overlay.RequiredEnv != nil {
		c.RequiredEnv = *overlay.RequiredEnv
	}
	if overlay.MaxOutputBytes != nil {
		c.MaxOutputBytes = *overlay.MaxOutputBytes
	}
	if overlay.Host != nil {
		c.Host = *overlay.Host
	}
	if overlay.Port != nil {
		c.Port = *overlay.Port
	}
	if overlay.Verbose != nil {
		c.Verbose = *overlay.Verbose
	}
	if overlay.LogFormat != nil {
		c.LogFormat = *overlay.LogFormat
	}
	if overlay.LogLevel != nil {
		c.LogLevel = *overlay.LogLevel
	}

	return nil
}

// LoadFileIfExists overlays the file when present and is a no-op otherwise.
func (c *Config) LoadFileIfExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return c.LoadFile(path)
}
