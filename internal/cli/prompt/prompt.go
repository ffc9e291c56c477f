// Package prompt handles interactive prompts with no-prompt mode support:
// filtered task selection and reading a new task's title.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"todoed/backend"
	"todoed/internal/markdown"
	"todoed/internal/utils"
)

// Sentinel errors for prompt operations.
var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrNoPromptMode       = errors.New("interactive prompts disabled (--no-prompt / -y)")
	ErrNoTasks            = errors.New("no tasks available")
	ErrNoMatches          = errors.New("no tasks match the filter")
)

// TaskSelector picks one task of a list, narrowing by a filter first.
type TaskSelector struct {
	Tasks    backend.TaskList
	Prompt   string
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
}

// Run executes the task selection prompt and returns the chosen task's
// 0-based position in Tasks.
// If NoPrompt is true, returns ErrNoPromptMode.
// If there is exactly one task, auto-selects it.
// Otherwise, prompts the user to filter and select a task.
func (s *TaskSelector) Run() (int, error) {
	if s.NoPrompt {
		return -1, ErrNoPromptMode
	}

	if len(s.Tasks) == 0 {
		return -1, ErrNoTasks
	}

	writer := s.Writer
	if writer == nil {
		writer = io.Discard
	}

	if len(s.Tasks) == 1 {
		_, _ = fmt.Fprintf(writer, "Auto-selected: %s\n", markdown.FormatTask(s.Tasks[0]))
		return 0, nil
	}

	scanner := bufio.NewScanner(s.Reader)

	// Step 1: Prompt for filter text
	_, _ = fmt.Fprintf(writer, "%s\nFilter (or press Enter to show all): ", s.Prompt)
	if !scanner.Scan() {
		return -1, ErrSelectionCancelled
	}
	filter := strings.ToLower(strings.TrimSpace(scanner.Text()))

	// Step 2: Apply filter, keeping list positions
	var matches []int
	for i, t := range s.Tasks {
		if filter == "" || strings.Contains(strings.ToLower(t.Title), filter) {
			matches = append(matches, i)
		}
	}

	if len(matches) == 0 {
		return -1, ErrNoMatches
	}

	// Auto-select if filter narrows to one
	if len(matches) == 1 {
		_, _ = fmt.Fprintf(writer, "Auto-selected: %s\n", markdown.FormatTask(s.Tasks[matches[0]]))
		return matches[0], nil
	}

	// Step 3: Display matches, numbered as in 'todoed list'
	for _, i := range matches {
		_, _ = fmt.Fprintf(writer, "  %d) %s\n", i+1, markdown.FormatTask(s.Tasks[i]))
	}

	// Step 4: Prompt for the task number
	_, _ = fmt.Fprintf(writer, "Select (0 to cancel): ")
	if !scanner.Scan() {
		return -1, ErrSelectionCancelled
	}

	input := strings.TrimSpace(scanner.Text())
	num, err := strconv.Atoi(input)
	if err != nil {
		return -1, fmt.Errorf("invalid selection: %s", input)
	}

	if num == 0 {
		return -1, ErrSelectionCancelled
	}

	for _, i := range matches {
		if i == num-1 {
			return i, nil
		}
	}
	return -1, fmt.Errorf("selection out of range: %d", num)
}

// TitleReader asks for a task title when 'todoed add' is run without one.
type TitleReader struct {
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
}

// Run prompts until it reads a valid, non-empty title. Closed input cancels.
func (r *TitleReader) Run() (string, error) {
	if r.NoPrompt {
		return "", ErrNoPromptMode
	}

	writer := r.Writer
	if writer == nil {
		writer = io.Discard
	}

	scanner := bufio.NewScanner(r.Reader)
	for {
		_, _ = fmt.Fprint(writer, "Title: ")
		if !scanner.Scan() {
			return "", ErrSelectionCancelled
		}

		title := strings.TrimSpace(scanner.Text())
		if title == "" {
			_, _ = fmt.Fprintln(writer, "Title is required")
			continue
		}
		if err := utils.ValidateTitle(title); err != nil {
			_, _ = fmt.Fprintf(writer, "%s\n", utils.Short(err))
			continue
		}
		return title, nil
	}
}
