package tui

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// noticeMsg is appended to the notice shown above the status bar.
type noticeMsg string

// NoticeWriter forwards text written to it, such as the sign-in URL printed
// by the OAuth flow, to a running editor. Writes made before Attach are
// held back and delivered on attach.
type NoticeWriter struct {
	mu      sync.Mutex
	program *tea.Program
	pending []string
}

// Attach sets the program that receives notices.
func (w *NoticeWriter) Attach(p *tea.Program) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.program = p
	if len(w.pending) == 0 {
		return
	}
	// Send blocks until the program runs.
	pending := w.pending
	w.pending = nil
	go func() {
		for _, s := range pending {
			p.Send(noticeMsg(s))
		}
	}()
}

// Write implements io.Writer.
func (w *NoticeWriter) Write(p []byte) (int, error) {
	s := strings.Join(strings.Fields(string(p)), " ")
	if s == "" {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.program == nil {
		w.pending = append(w.pending, s)
		return len(p), nil
	}
	w.program.Send(noticeMsg(s))
	return len(p), nil
}
