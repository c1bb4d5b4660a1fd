// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name    string // Name of the check
	Passed  bool   // Whether the check passed
	Warning bool   // True if it's a warning (non-fatal)
	Message string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(interpreterPath, scriptsDir, requiredEnv string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 3),
		Passed: true,
	}

	interpCheck := checkInterpreter(interpreterPath)
	result.Checks = append(result.Checks, interpCheck)
	if !interpCheck.Passed {
		result.Passed = false
	}

	dirCheck := checkScriptsDir(scriptsDir)
	result.Checks = append(result.Checks, dirCheck)
	if !dirCheck.Passed {
		result.Passed = false
	}

	// Secret check is a warning only: the key may arrive per request.
	if requiredEnv != "" {
		result.Checks = append(result.Checks, checkSecret(requiredEnv))
	}

	return result
}

// checkInterpreter verifies the script interpreter is available and working.
func checkInterpreter(path string) Check {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Check{
			Name:    "interpreter",
			Passed:  false,
			Message: fmt.Sprintf("%s not found in PATH: %v", path, err),
		}
	}

	// "node --version" prints e.g. "v22.11.0"
	output, err := exec.Command(resolved, "--version").Output()
	if err != nil {
		return Check{
			Name:    "interpreter",
			Passed:  false,
			Message: fmt.Sprintf("%s found but not runnable: %v", resolved, err),
		}
	}

	version := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	return Check{
		Name:    "interpreter",
		Passed:  true,
		Message: fmt.Sprintf("found at %s (version %s)", resolved, version),
	}
}

// checkScriptsDir verifies the scripts directory exists and is a directory.
func checkScriptsDir(dir string) Check {
	info, err := os.Stat(dir)
	if err != nil {
		return Check{
			Name:    "scripts_dir",
			Passed:  false,
			Message: fmt.Sprintf("%s: %v", dir, err),
		}
	}
	if !info.IsDir() {
		return Check{
			Name:    "scripts_dir",
			Passed:  false,
			Message: fmt.Sprintf("%s is not a directory", dir),
		}
	}
	return Check{
		Name:    "scripts_dir",
		Passed:  true,
		Message: dir,
	}
}

// checkSecret reports whether the required secret is present in the parent
// environment. Missing is a warning, not a failure: requests may supply it.
func checkSecret(name string) Check {
	if _, ok := os.LookupEnv(name); ok {
		return Check{
			Name:    "secret",
			Passed:  true,
			Message: fmt.Sprintf("%s is set", name),
		}
	}
	return Check{
		Name:    "secret",
		Passed:  true,
		Warning: true,
		Message: fmt.Sprintf("%s not set; executions will fail unless provided per request", name),
	}
}

// PrintResults prints the preflight check results to stdout.
func PrintResults(result *Result) {
	fmt.Println("Preflight checks:")
	for _, check := range result.Checks {
		fmt.Println(check.String())
		if !check.Passed {
			fmt.Printf("    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Println()
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "interpreter":
		return "install Node.js (apt install nodejs / brew install node) or set -interpreter"
	case "scripts_dir":
		return "create the scripts directory or point -scripts-dir at an existing one"
	default:
		return "see documentation"
	}
}
