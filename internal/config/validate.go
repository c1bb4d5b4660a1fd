package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.ScriptsDir == "" {
		errs = append(errs, ValidationError{
			Field:   "scripts_dir",
			Message: "scripts directory is required",
		})
	}

	if cfg.Interpreter == "" {
		errs = append(errs, ValidationError{
			Field:   "interpreter",
			Message: "interpreter binary is required",
		})
	}

	if cfg.Extension != "" && !strings.HasPrefix(cfg.Extension, ".") {
		errs = append(errs, ValidationError{
			Field:   "extension",
			Message: fmt.Sprintf("must start with a dot (got %q)", cfg.Extension),
		})
	}

	if cfg.DefaultTimeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "default_timeout",
			Message: "must not be negative",
		})
	}

	if cfg.MaxOutputBytes < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_output_bytes",
			Message: "must not be negative",
		})
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "port",
			Message: fmt.Sprintf("must be in 1..65535 (got %d)", cfg.Port),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	return errors.Join(errs...)
}
