package cli

import "fmt"

// ExitCodeError carries a specific process exit code up to main. Used so a
// script's own exit code, or the timeout sentinel 124, survives the trip
// through cobra.
type ExitCodeError struct {
	Code int
}

// NewExitCodeError creates an ExitCodeError with the given code.
func NewExitCodeError(code int) *ExitCodeError {
	return &ExitCodeError{Code: code}
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}
