// Package tui provides the terminal task list editor.
//
// The editor owns a tasklist.List and projects it as one text field per row.
// Every mutation is dispatched through tasklist.List.Apply; the fields only
// mirror what the list holds.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todoed/backend"
	"todoed/internal/gate"
	"todoed/internal/session"
	"todoed/internal/tasklist"
	"todoed/internal/utils"
)

// Model represents the editor state
type Model struct {
	store   backend.Store
	session *session.Controller // nil for stores that need no sign-in
	gate    *gate.Gate
	ctx     context.Context

	// Data
	list   *tasklist.List
	inputs []textinput.Model // one per list row, same order
	counts tasklist.Counts

	// Selection
	focus int

	// Status
	status string
	notice string

	// UI
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	width   int
	height  int

	// Styles
	titleStyle     lipgloss.Style
	cursorStyle    lipgloss.Style
	completedStyle lipgloss.Style
	disabledStyle  lipgloss.Style
	errorStyle     lipgloss.Style
	noticeStyle    lipgloss.Style
	statusBarStyle lipgloss.Style
}

// Message types
type loadedMsg struct {
	ticket gate.Ticket
	tasks  backend.TaskList
	found  bool
	result backend.Result
}

type storedMsg struct {
	ticket gate.Ticket
	result backend.Result
}

type sessionMsg struct {
	action string // "restore", "login" or "logout"
	ok     bool
	err    error
}

// New creates an editor over store. sess is required when the store needs
// a signed-in user and nil otherwise.
func New(store backend.Store, sess *session.Controller) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		store:   store,
		session: sess,
		gate:    gate.New(),
		ctx:     context.Background(),
		list:    tasklist.New(),
		focus:   tasklist.FocusNone,
		keys:    defaultKeyMap().withSession(sess != nil),
		help:    help.New(),
		spinner: sp,
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		cursorStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		completedStyle: lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("240")),
		disabledStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		noticeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
	}
}

// SetContext sets the context passed to store and session calls.
func (m *Model) SetContext(ctx context.Context) {
	m.ctx = ctx
}

// Init starts the initial load, restoring the session first when one is
// required.
func (m *Model) Init() tea.Cmd {
	if m.session != nil {
		return m.restore()
	}
	return m.load()
}

// AddItem appends a row bound to data, or a blank task when data is empty,
// and focuses it.
func (m *Model) AddItem(data ...backend.Task) {
	var task backend.Task
	if len(data) > 0 {
		task = data[0]
	}
	m.dispatch(tasklist.Add(task))
}

// RemoveItem deletes row and focuses the row before it, or nothing when it
// was the first.
func (m *Model) RemoveItem(row int) {
	m.dispatch(tasklist.Remove(row))
}

// ToggleItem flips the done flag of row.
func (m *Model) ToggleItem(row int) {
	m.dispatch(tasklist.Toggle(row))
}

// ClearCompleted removes every done row in display order, each one the
// same way RemoveItem would.
func (m *Model) ClearCompleted() {
	m.dispatch(tasklist.ClearCompleted())
}

// FocusTask moves focus to row. Out of range rows are ignored.
func (m *Model) FocusTask(row int) {
	if row < 0 || row >= len(m.inputs) {
		return
	}
	m.setFocus(row)
}

// GetData returns the current tasks in display order.
func (m *Model) GetData() backend.TaskList {
	return m.list.Snapshot()
}

// UpdateCounts recomputes the total and done counters.
func (m *Model) UpdateCounts() {
	m.counts = m.list.Counts()
}

// Counts returns the counters as last computed.
func (m *Model) Counts() tasklist.Counts {
	return m.counts
}

// Focused returns the focused row, or tasklist.FocusNone.
func (m *Model) Focused() int {
	return m.focus
}

// Busy reports whether a load or store is pending.
func (m *Model) Busy() bool {
	return m.gate.Busy()
}

// Editable reports whether rows accept edits: nothing is pending and,
// when a session is required, the user is signed in.
func (m *Model) Editable() bool {
	if m.session != nil {
		return m.session.CanEdit(m.gate.Busy())
	}
	return !m.gate.Busy()
}

// Status returns the last persistence or session status line.
func (m *Model) Status() string {
	return m.status
}

// dispatch applies a to the list and brings the rows, counters and focus
// in line with the effect.
func (m *Model) dispatch(a tasklist.Action) tasklist.Effect {
	eff := m.list.Apply(a)
	if !eff.Applied {
		return eff
	}

	switch a.Kind {
	case tasklist.KindAdd:
		m.inputs = append(m.inputs, m.newInput(a.Task.Title))
	case tasklist.KindRemove, tasklist.KindClearCompleted:
		for _, pos := range eff.Removed {
			m.inputs = append(m.inputs[:pos], m.inputs[pos+1:]...)
		}
	}

	m.UpdateCounts()
	if eff.Focus != tasklist.FocusKeep {
		m.setFocus(eff.Focus)
	}
	return eff
}

func (m *Model) newInput(value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "What needs doing?"
	// No limit: a longer stored title must not be cut on its first edit.
	ti.CharLimit = 0
	ti.SetValue(value)
	if m.width > 0 {
		ti.Width = m.inputWidth()
	}
	return ti
}

func (m *Model) inputWidth() int {
	w := m.width - 8
	if w < 10 {
		w = 10
	}
	return w
}

// setFocus records row as focused; FocusNone clears focus.
func (m *Model) setFocus(row int) {
	if row < 0 || row >= len(m.inputs) {
		row = tasklist.FocusNone
	}
	m.focus = row
	m.syncFocus()
}

// syncFocus focuses the focused row's field only while editing is allowed.
func (m *Model) syncFocus() {
	editable := m.Editable()
	for i := range m.inputs {
		if i == m.focus && editable {
			_ = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

// wrap returns row moved by delta, wrapping around both ends.
func (m *Model) wrap(delta int) int {
	n := len(m.inputs)
	return ((m.focus+delta)%n + n) % n
}

// resetRows drops every row, as after signing out.
func (m *Model) resetRows() {
	m.list.Replace(nil)
	m.inputs = nil
	m.focus = tasklist.FocusNone
	m.UpdateCounts()
}

func (m *Model) load() tea.Cmd {
	wasBusy := m.gate.Busy()
	ticket := m.gate.Begin(gate.KindLoad)
	m.syncFocus()
	m.status = "loading"

	ctx, store := m.ctx, m.store
	load := func() tea.Msg {
		tasks, found, res := backend.LoadResult(ctx, store)
		return loadedMsg{ticket: ticket, tasks: tasks, found: found, result: res}
	}
	if wasBusy {
		return load
	}
	return tea.Batch(m.spinner.Tick, load)
}

// save stores the rows. Stores may overlap each other but never a load:
// until it settles the rows lack what it will bring.
func (m *Model) save() tea.Cmd {
	if m.session != nil && m.session.State() != session.Authenticated {
		m.status = "sign in to save"
		return nil
	}
	if m.gate.LoadPending() {
		m.status = "busy"
		return nil
	}

	tasks := m.GetData()
	wasBusy := m.gate.Busy()
	ticket := m.gate.Begin(gate.KindStore)
	m.syncFocus()
	m.status = "saving"

	ctx, store := m.ctx, m.store
	save := func() tea.Msg {
		return storedMsg{ticket: ticket, result: backend.SaveResult(ctx, store, tasks)}
	}
	if wasBusy {
		return save
	}
	return tea.Batch(m.spinner.Tick, save)
}

func (m *Model) restore() tea.Cmd {
	m.status = "signing in"
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		ok, err := sess.Restore(ctx)
		return sessionMsg{action: "restore", ok: ok, err: err}
	}
}

func (m *Model) login() tea.Cmd {
	if m.session == nil || m.session.State() != session.Anonymous {
		return nil
	}
	m.status = "signing in"
	m.notice = ""
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		err := sess.Login(ctx)
		return sessionMsg{action: "login", ok: err == nil, err: err}
	}
}

func (m *Model) logout() tea.Cmd {
	if m.session == nil || m.session.State() != session.Authenticated {
		return nil
	}
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		err := sess.Logout(ctx)
		return sessionMsg{action: "logout", ok: err == nil, err: err}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		for i := range m.inputs {
			m.inputs[i].Width = m.inputWidth()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.gate.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.handleLoaded(msg)
		return m, nil

	case storedMsg:
		m.handleStored(msg)
		return m, nil

	case sessionMsg:
		return m, m.handleSession(msg)

	case noticeMsg:
		m.notice = strings.TrimSpace(m.notice + " " + string(msg))
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

// handleLoaded materialises the loaded rows. Rows that already exist stay
// in place and the loaded ones follow them.
func (m *Model) handleLoaded(msg loadedMsg) {
	m.gate.End(msg.ticket, msg.result)

	if !msg.result.OK() {
		m.status = "load failed: " + utils.Short(msg.result.Err)
		utils.Warnf("load from %s failed: %v", m.store.Name(), msg.result.Err)
		m.syncFocus()
		return
	}
	if m.session != nil && m.session.State() != session.Authenticated {
		// Signed out while loading.
		m.syncFocus()
		return
	}

	switch {
	case msg.found:
		for _, task := range msg.tasks {
			m.AddItem(task)
		}
	case m.list.Len() == 0:
		m.AddItem()
	}
	m.status = "loaded"
	utils.Debugf("loaded %d tasks from %s", len(msg.tasks), m.store.Name())
	m.syncFocus()
}

func (m *Model) handleStored(msg storedMsg) {
	authoritative := m.gate.End(msg.ticket, msg.result)
	if authoritative {
		if msg.result.OK() {
			m.status = "saved"
		} else {
			m.status = "save failed: " + utils.Short(msg.result.Err)
			utils.Warnf("save to %s failed: %v", m.store.Name(), msg.result.Err)
		}
	} else {
		utils.Debugf("superseded save settled: %s", msg.result.Reason())
	}
	m.syncFocus()
}

func (m *Model) handleSession(msg sessionMsg) tea.Cmd {
	switch msg.action {
	case "restore":
		if msg.ok {
			return m.load()
		}
		if msg.err != nil {
			m.status = "sign-in failed: " + utils.Short(msg.err)
			utils.Warnf("restoring session failed: %v", msg.err)
		} else {
			m.status = "signed out"
		}

	case "login":
		if msg.ok {
			m.notice = ""
			return m.load()
		}
		m.status = "sign-in failed: " + utils.Short(msg.err)

	case "logout":
		m.resetRows()
		if msg.ok {
			m.status = "signed out"
		} else {
			m.status = "sign-out failed: " + utils.Short(msg.err)
		}
	}
	m.syncFocus()
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Save):
		return m.save()
	case key.Matches(msg, m.keys.Login):
		return m.login()
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	}

	if !m.Editable() {
		return nil
	}

	if key.Matches(msg, m.keys.Add) {
		m.AddItem()
		return nil
	}

	if m.focus == tasklist.FocusNone {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.FocusTask(m.wrap(-1))
		return nil
	case key.Matches(msg, m.keys.Down):
		m.FocusTask(m.wrap(1))
		return nil
	case key.Matches(msg, m.keys.Toggle):
		m.ToggleItem(m.focus)
		return nil
	case key.Matches(msg, m.keys.Delete):
		m.RemoveItem(m.focus)
		return nil
	case key.Matches(msg, m.keys.ClearCompleted):
		m.ClearCompleted()
		return nil
	case key.Matches(msg, m.keys.Backspace):
		// Emptiness is judged before the key reaches the field.
		if m.inputs[m.focus].Value() == "" {
			m.RemoveItem(m.focus)
			return nil
		}
	}

	row := m.focus
	before := m.inputs[row].Value()
	var cmd tea.Cmd
	m.inputs[row], cmd = m.inputs[row].Update(msg)
	if after := m.inputs[row].Value(); after != before {
		m.dispatch(tasklist.Edit(row, after))
	}
	return cmd
}

// View renders the editor
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.titleStyle.Render("Tasks"))
	b.WriteString(m.disabledStyle.Render(" · " + m.store.Name()))
	b.WriteString("\n\n")

	if len(m.inputs) == 0 {
		b.WriteString(m.disabledStyle.Render("  No tasks. Press enter to add one."))
		b.WriteString("\n")
	}

	editable := m.Editable()
	for i, in := range m.inputs {
		task, _ := m.list.At(i)

		cursor := "  "
		if i == m.focus {
			cursor = m.cursorStyle.Render("> ")
		}
		box := "[ ] "
		if task.Done {
			box = "[x] "
		}

		var field string
		switch {
		case i == m.focus && editable:
			field = in.View()
		case task.Done:
			field = m.completedStyle.Render(task.Title)
		case !editable:
			field = m.disabledStyle.Render(task.Title)
		default:
			field = task.Title
		}
		b.WriteString(cursor + box + field + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(m.noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m *Model) renderStatusBar() string {
	left := fmt.Sprintf("total %d · done %d", m.counts.Total, m.counts.Done)

	status := m.status
	if n := m.gate.Pending(); n > 1 {
		status = fmt.Sprintf("%s %s (%d pending)", m.spinner.View(), status, n)
	} else if n == 1 {
		status = m.spinner.View() + " " + status
	} else if strings.Contains(status, "failed") {
		status = m.errorStyle.Render(status)
	}
	if status != "" {
		left += " · " + status
	}

	right := ""
	if m.session != nil {
		if user, ok := m.session.User(); ok {
			right = user.Username
		} else {
			right = m.session.State().String()
		}
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return m.statusBarStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}
