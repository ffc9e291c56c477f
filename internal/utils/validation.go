package utils

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the longest task title accepted, in characters.
const MaxTitleLength = 256

// ParseTaskNumber parses a 1-based task number as shown by 'todoed list'
// and returns the 0-based position. count is the current list length.
func ParseTaskNumber(s string, count int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1, &ErrorWithSuggestion{
			Err:        fmt.Errorf("invalid task number: %q", s),
			Suggestion: "Use the number shown by 'todoed list', e.g. 'todoed toggle 2'",
		}
	}
	if n < 1 || n > count {
		return -1, ErrTaskIndexOutOfRange(n, count)
	}
	return n - 1, nil
}

// ValidateTitle checks that a task title fits on one line and within
// MaxTitleLength.
func ValidateTitle(title string) error {
	if strings.ContainsAny(title, "\r\n") {
		return &ErrorWithSuggestion{
			Err:        fmt.Errorf("task title must be a single line"),
			Suggestion: "Add one task per line",
		}
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleLength {
		return &ErrorWithSuggestion{
			Err:        fmt.Errorf("task title is too long (%d characters)", n),
			Suggestion: fmt.Sprintf("Keep titles under %d characters", MaxTitleLength),
		}
	}
	return nil
}
