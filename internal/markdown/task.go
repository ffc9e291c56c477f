// Package markdown provides shared utilities for parsing and formatting
// markdown checklists used by the file backend and the list command.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"

	"todoed/backend"
)

// checkboxPattern matches "- [ ] title" and "* [x] title" lines. The title is
// optional so a blank task survives editors that strip trailing spaces.
var checkboxPattern = regexp.MustCompile(`^\s*[-*+]\s+\[([ xX])\](?:\s(.*))?$`)

// A title is written on one line: backslashes, newlines and carriage
// returns are escaped, everything else is kept as is.
var (
	titleEscaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	titleUnescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

// ParseStatusChar converts a markdown checkbox character to a done flag.
func ParseStatusChar(char string) bool {
	return strings.EqualFold(char, "x")
}

// FormatStatusChar converts a done flag to a markdown checkbox character.
func FormatStatusChar(done bool) string {
	if done {
		return "x"
	}
	return " "
}

// FormatTask formats a single checklist line without a trailing newline.
func FormatTask(task backend.Task) string {
	return fmt.Sprintf("- [%s] %s", FormatStatusChar(task.Done), titleEscaper.Replace(task.Title))
}

// FormatList writes one checklist line per task, in order.
func FormatList(tasks backend.TaskList) string {
	var sb strings.Builder
	for _, task := range tasks {
		sb.WriteString(FormatTask(task))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ParseTask parses one checklist line. ok is false for any other line.
// Everything after the single space following the checkbox is the title,
// trailing whitespace included; only a CRLF line ending is dropped.
func ParseTask(line string) (task backend.Task, ok bool) {
	matches := checkboxPattern.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if matches == nil {
		return backend.Task{}, false
	}
	return backend.Task{
		Title: titleUnescaper.Replace(matches[2]),
		Done:  ParseStatusChar(matches[1]),
	}, true
}

// ParseList extracts every checklist line from content. Headings, prose and
// blank lines are ignored. The result is never nil.
func ParseList(content string) backend.TaskList {
	tasks := backend.TaskList{}
	for _, line := range strings.Split(content, "\n") {
		if task, ok := ParseTask(line); ok {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// Render renders the list as styled terminal output. width <= 0 disables
// word wrapping.
func Render(tasks backend.TaskList, width int) (string, error) {
	done := 0
	for _, task := range tasks {
		if task.Done {
			done++
		}
	}

	var sb strings.Builder
	sb.WriteString("# Tasks\n\n")
	if len(tasks) == 0 {
		sb.WriteString("_No tasks._\n")
	} else {
		sb.WriteString(FormatList(tasks))
	}
	fmt.Fprintf(&sb, "\n%d of %d done\n", done, len(tasks))

	opts := []glamour.TermRendererOption{glamour.WithStandardStyle("notty")}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(sb.String())
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
