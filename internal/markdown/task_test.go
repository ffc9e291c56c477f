package markdown

import (
	"strings"
	"testing"

	"todoed/backend"
)

func TestParseStatusChar(t *testing.T) {
	tests := []struct {
		name     string
		char     string
		expected bool
	}{
		{"empty checkbox", " ", false},
		{"completed x", "x", true},
		{"completed X", "X", true},
		{"unknown", "?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseStatusChar(tt.char)
			if got != tt.expected {
				t.Errorf("ParseStatusChar(%q) = %v, want %v", tt.char, got, tt.expected)
			}
		})
	}
}

func TestFormatTask(t *testing.T) {
	tests := []struct {
		name string
		task backend.Task
		want string
	}{
		{"open", backend.Task{Title: "buy milk"}, "- [ ] buy milk"},
		{"done", backend.Task{Title: "call mom", Done: true}, "- [x] call mom"},
		{"blank", backend.Task{}, "- [ ] "},
		{"newline escaped", backend.Task{Title: "a\nb"}, `- [ ] a\nb`},
		{"backslash escaped", backend.Task{Title: `C:\tmp`}, `- [ ] C:\\tmp`},
		{"trailing space kept", backend.Task{Title: "eggs "}, "- [ ] eggs "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTask(tt.task); got != tt.want {
				t.Errorf("FormatTask() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTask(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   backend.Task
		wantOK bool
	}{
		{"open", "- [ ] buy milk", backend.Task{Title: "buy milk"}, true},
		{"done upper", "- [X] ship it", backend.Task{Title: "ship it", Done: true}, true},
		{"star bullet", "* [x] starred", backend.Task{Title: "starred", Done: true}, true},
		{"indented", "  - [ ] nested", backend.Task{Title: "nested"}, true},
		{"blank with space", "- [ ] ", backend.Task{}, true},
		{"blank stripped", "- [ ]", backend.Task{}, true},
		{"crlf", "- [x] windows\r", backend.Task{Title: "windows", Done: true}, true},
		{"trailing whitespace kept", "- [ ] eggs \t", backend.Task{Title: "eggs \t"}, true},
		{"only the separator is dropped", "- [ ]   padded", backend.Task{Title: "  padded"}, true},
		{"escaped newline", `- [ ] line1\nline2`, backend.Task{Title: "line1\nline2"}, true},
		{"escaped backslash", `- [ ] a\\nb`, backend.Task{Title: `a\nb`}, true},
		{"heading", "# Tasks", backend.Task{}, false},
		{"plain bullet", "- not a task", backend.Task{}, false},
		{"in progress marker", "- [~] other tool", backend.Task{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTask(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseTask(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseTask(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	tasks := backend.TaskList{
		{Title: "", Done: true},
		{Title: "buy milk", Done: false},
		{Title: "[x] brackets in title", Done: false},
		{Title: "buy milk ", Done: false},
		{Title: "line1\nline2", Done: true},
		{Title: "tab\tinside\t", Done: false},
		{Title: `back\slash\n literal`, Done: false},
		{Title: "ends with cr\r", Done: true},
		{Title: " leading space", Done: false},
	}

	got := ParseList(FormatList(tasks))
	if !got.Equal(tasks) {
		t.Errorf("round trip = %+v, want %+v", got, tasks)
	}
}

func TestParseListIgnoresProse(t *testing.T) {
	content := "# Groceries\n\nSome notes.\n\n- [ ] eggs\n- [x] bread\n"

	got := ParseList(content)
	want := backend.TaskList{{Title: "eggs"}, {Title: "bread", Done: true}}
	if !got.Equal(want) {
		t.Errorf("ParseList() = %+v, want %+v", got, want)
	}
}

func TestParseListEmpty(t *testing.T) {
	got := ParseList("")
	if got == nil || len(got) != 0 {
		t.Errorf("ParseList(\"\") = %#v, want empty non-nil list", got)
	}
}

func TestRender(t *testing.T) {
	out, err := Render(backend.TaskList{{Title: "buy milk"}, {Title: "walk dog", Done: true}}, 80)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	for _, want := range []string{"Tasks", "buy milk", "walk dog", "1 of 2 done"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	out, err := Render(nil, 0)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "No tasks") {
		t.Errorf("Render(nil) should mention no tasks:\n%s", out)
	}
}
