package cli

import "fmt"

const usageLine = "Usage: labtriage <results_directory>"

// ExitError carries process exit code for command-specific failures.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit with code %d", e.Code)
	}
	return e.Message
}

// toolingError marks bad settings, policies or flags.
func toolingError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}
