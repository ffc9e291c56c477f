package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// Short returns the error text without the suggestion, for one-line status output.
func Short(err error) string {
	if err == nil {
		return ""
	}
	var ews *ErrorWithSuggestion
	if errors.As(err, &ews) {
		return ews.Err.Error()
	}
	return err.Error()
}

// ErrNotLoggedIn is the sentinel behind NotLoggedIn errors.
var ErrNotLoggedIn = errors.New("not logged in")

// NotLoggedIn returns an error for operations that need an authenticated session.
func NotLoggedIn(backend string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w to %s", ErrNotLoggedIn, backend),
		Suggestion: "Run 'todoed login' or press ctrl+o in the editor",
	}
}

// ErrTaskIndexOutOfRange returns an error for a task position that does not exist.
func ErrTaskIndexOutOfRange(index, length int) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("task %d does not exist (list has %d tasks)", index, length),
		Suggestion: "Use 'todoed list' to see task numbers",
	}
}

// ErrBackendNotConfigured returns an error when a backend is not configured.
func ErrBackendNotConfigured(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("backend not configured: %s", name),
		Suggestion: fmt.Sprintf("Add %s configuration to your config file", name),
	}
}

// ErrUnknownBackend returns an error for a backend name that does not exist.
func ErrUnknownBackend(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("unknown backend: %s", name),
		Suggestion: "Valid backends: local, file, remote",
	}
}

// ErrBackendOffline returns an error when a backend is unreachable with smart suggestions.
func ErrBackendOffline(name, reason string) error {
	suggestion := getSmartSuggestion(reason)
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("backend %s is offline: %s", name, reason),
		Suggestion: suggestion,
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "no such host") || strings.Contains(lowerReason, "dns") {
		return "Check your DNS settings and internet connection"
	}

	if strings.Contains(lowerReason, "connection refused") {
		return "Check if the server is running and accessible"
	}

	if strings.Contains(lowerReason, "timeout") || strings.Contains(lowerReason, "i/o timeout") {
		return "The server may be slow or unreachable. Try again later"
	}

	return "Check your internet connection and try again"
}

// ErrCredentialsNotFound returns an error when credentials are missing.
func ErrCredentialsNotFound(backend string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("credentials not found for %s", backend),
		Suggestion: "Run 'todoed login' to sign in",
	}
}

// ErrAuthenticationFailed returns an error when authentication fails.
func ErrAuthenticationFailed(backend string, cause error) error {
	err := fmt.Errorf("authentication failed for %s", backend)
	if cause != nil {
		err = fmt.Errorf("authentication failed for %s: %w", backend, cause)
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: "Verify your OAuth client file is correct and try 'todoed login' again",
	}
}
