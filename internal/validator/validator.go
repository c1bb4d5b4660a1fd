// Package validator performs syntax-only checks of scripts.
//
// Validation parses and compiles the script with goja but never runs it, so
// no process is spawned and none of the script's side effects execute.
// Semantic problems (missing modules, runtime errors) surface only at
// execution time.
package validator

import (
	"fmt"
	"os"

	"github.com/dop251/goja"

	"github.com/randomizedcoder/go-script-runner/internal/registry"
)

// Result is the outcome of validating a single script.
type Result struct {
	// ScriptName is the identifier of the validated script.
	ScriptName string

	// Valid is true when the script parsed and compiled cleanly.
	Valid bool

	// Error is a human-readable syntax error, including the goja
	// line/column locator when available. Empty when Valid.
	Error string
}

// Validate checks the syntax of the given script without executing it.
//
// A read failure (script deleted between Resolve and Validate) is reported
// as an error return, not as a syntax problem.
func Validate(script registry.Script) (Result, error) {
	source, err := os.ReadFile(script.Path)
	if err != nil {
		return Result{}, fmt.Errorf("read script %q: %w", script.Name, err)
	}

	// Compile parses and compiles but does not evaluate, so top-level
	// side effects never run.
	if _, err := goja.Compile(script.Path, string(source), false); err != nil {
		return Result{
			ScriptName: script.Name,
			Valid:      false,
			Error:      err.Error(),
		}, nil
	}

	return Result{ScriptName: script.Name, Valid: true}, nil
}
