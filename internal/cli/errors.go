package cli

import (
	"errors"
	"fmt"

	"github.com/koleo-cli/koleo/internal/cache"
	"github.com/koleo-cli/koleo/internal/koleo"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitUsage is used for failures the user can fix: unknown stations,
	// brands or trains, dates outside a train calendar, missing settings.
	ExitUsage = 2
)

// ExitError carries a user-facing message and the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// userErrorf returns an ExitError with ExitUsage.
func userErrorf(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// userWrap returns an ExitError with ExitUsage that keeps err in the chain.
func userWrap(err error, format string, args ...any) *ExitError {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...), Err: err}
}

// expectedAPIErrors map service failures that need no stack of context.
var expectedAPIErrors = []struct {
	target  error
	message string
}{
	{koleo.ErrAuthRequired, "this command needs credentials: set auth in config.yaml or KOLEO_AUTH_* variables"},
	{koleo.ErrUnauthorized, "credentials were rejected (401): log in again and update auth"},
	{koleo.ErrForbidden, "access denied (403)"},
	{koleo.ErrRateLimited, "rate limited by the service (429): try again later"},
	{koleo.ErrNotFound, "not found (404)"},
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	for _, e := range expectedAPIErrors {
		if errors.Is(err, e.target) {
			return ExitUsage
		}
	}
	return ExitFailure
}

// FormatError renders err for stderr. Expected failures print one concise
// line; anything else prints the full error chain.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Message != "" {
		return "Error: " + exitErr.Message
	}
	for _, e := range expectedAPIErrors {
		if errors.Is(err, e.target) {
			return "Error: " + e.message
		}
	}
	if errors.Is(err, cache.ErrCacheCorrupted) {
		return fmt.Sprintf("Error: %v\nRun 'koleo clear-cache' to reset it.", err)
	}
	return fmt.Sprintf("Error: %v", err)
}
