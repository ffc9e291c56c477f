package utils

import (
	"errors"
	"strings"
	"testing"
)

// TestErrorWithSuggestionImplementsError verifies interface compliance
func TestErrorWithSuggestionImplementsError(t *testing.T) {
	var _ error = &ErrorWithSuggestion{}
}

// TestErrorWithSuggestionError verifies Error() method output
func TestErrorWithSuggestionError(t *testing.T) {
	err := &ErrorWithSuggestion{
		Err:        errors.New("something went wrong"),
		Suggestion: "Try doing X",
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "something went wrong") {
		t.Errorf("Error() should contain error message, got: %s", errStr)
	}
	if !strings.Contains(errStr, "Suggestion: Try doing X") {
		t.Errorf("Error() should contain the suggestion, got: %s", errStr)
	}
}

// TestErrorWithSuggestionUnwrap verifies Unwrap() for error chain
func TestErrorWithSuggestionUnwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := WrapWithSuggestion(underlying, "suggestion")

	if errors.Unwrap(err) != underlying {
		t.Errorf("Unwrap() should return underlying error")
	}
	if !errors.Is(err, underlying) {
		t.Errorf("errors.Is should see through the wrapper")
	}
}

// TestShort verifies the suggestion is dropped for one-line output
func TestShort(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "boom"},
		{"wrapped", WrapWithSuggestion(errors.New("boom"), "fix it"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Short(tt.err); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestNotLoggedIn verifies the sentinel is reachable with errors.Is
func TestNotLoggedIn(t *testing.T) {
	err := NotLoggedIn("drive")
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("errors.Is(NotLoggedIn(), ErrNotLoggedIn) = false")
	}
	if !strings.Contains(err.Error(), "drive") {
		t.Errorf("error should name the backend, got: %s", err)
	}
}

// TestErrTaskIndexOutOfRange verifies index and length are reported
func TestErrTaskIndexOutOfRange(t *testing.T) {
	err := ErrTaskIndexOutOfRange(7, 3)
	msg := err.Error()
	if !strings.Contains(msg, "7") || !strings.Contains(msg, "3 tasks") {
		t.Errorf("unexpected message: %s", msg)
	}
}

// TestErrBackendOfflineSmartSuggestions verifies context-aware suggestions
func TestErrBackendOfflineSmartSuggestions(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"dial tcp: lookup example.com: no such host", "DNS"},
		{"dial tcp 127.0.0.1:443: connection refused", "server is running"},
		{"context deadline exceeded (Client.Timeout exceeded)", "slow or unreachable"},
		{"something else", "internet connection"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			err := ErrBackendOffline("drive", tt.reason)
			var ews *ErrorWithSuggestion
			if !errors.As(err, &ews) {
				t.Fatal("Should return *ErrorWithSuggestion")
			}
			if !strings.Contains(ews.GetSuggestion(), tt.want) {
				t.Errorf("suggestion %q should contain %q", ews.GetSuggestion(), tt.want)
			}
		})
	}
}

// TestErrAuthenticationFailedWrapsCause verifies the cause stays in the chain
func TestErrAuthenticationFailedWrapsCause(t *testing.T) {
	cause := errors.New("invalid_grant")
	err := ErrAuthenticationFailed("drive", cause)
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable with errors.Is")
	}

	err = ErrAuthenticationFailed("drive", nil)
	if !strings.Contains(err.Error(), "authentication failed for drive") {
		t.Errorf("unexpected message: %s", err)
	}
}

// TestErrUnknownBackend verifies valid names are suggested
func TestErrUnknownBackend(t *testing.T) {
	err := ErrUnknownBackend("carrier-pigeon")
	if !strings.Contains(err.Error(), "local, file, remote") {
		t.Errorf("suggestion should list valid backends, got: %s", err)
	}
}
