package tasklist

import (
	"fmt"

	"todoed/backend"
)

// Focus targets carried by an Effect besides a concrete row position.
const (
	FocusNone = -1 // no row keeps focus
	FocusKeep = -2 // focus is unchanged
)

// Kind enumerates the mutations a row can dispatch.
type Kind int

const (
	KindAdd Kind = iota
	KindRemove
	KindToggle
	KindEdit
	KindClearCompleted
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	case KindToggle:
		return "toggle"
	case KindEdit:
		return "edit"
	case KindClearCompleted:
		return "clear-completed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is a single mutation request.
type Action struct {
	Kind  Kind
	Index int
	Task  backend.Task // KindAdd
	Title string       // KindEdit
}

// Add returns an action appending task.
func Add(task backend.Task) Action { return Action{Kind: KindAdd, Task: task} }

// Remove returns an action deleting the task at i.
func Remove(i int) Action { return Action{Kind: KindRemove, Index: i} }

// Toggle returns an action flipping the done flag at i.
func Toggle(i int) Action { return Action{Kind: KindToggle, Index: i} }

// Edit returns an action replacing the title at i.
func Edit(i int, title string) Action { return Action{Kind: KindEdit, Index: i, Title: title} }

// ClearCompleted returns an action removing every done task.
func ClearCompleted() Action { return Action{Kind: KindClearCompleted} }

// Effect describes what an applied action changed.
type Effect struct {
	Applied bool
	// Removed lists the positions removed, each relative to the list as it
	// was right before that removal.
	Removed []int
	// Focus is the row to focus next, FocusNone or FocusKeep.
	Focus  int
	Counts Counts
}

// Apply performs a and returns its effect. Counters are always recomputed,
// so Effect.Counts matches the list after every call.
func (l *List) Apply(a Action) Effect {
	eff := Effect{Focus: FocusKeep}

	switch a.Kind {
	case KindAdd:
		eff.Focus = l.Add(a.Task)
		eff.Applied = true

	case KindRemove:
		focus, ok := l.Remove(a.Index)
		if ok {
			eff.Applied = true
			eff.Removed = []int{a.Index}
			eff.Focus = focus
		}

	case KindToggle:
		eff.Applied = l.Toggle(a.Index)

	case KindEdit:
		eff.Applied = l.SetTitle(a.Index, a.Title)

	case KindClearCompleted:
		// Remove one at a time in display order so focus follows the same
		// rule as a manual deletion of each row.
		for n, idx := range l.DoneIndexes() {
			pos := idx - n
			focus, ok := l.Remove(pos)
			if !ok {
				continue
			}
			eff.Applied = true
			eff.Removed = append(eff.Removed, pos)
			eff.Focus = focus
		}
	}

	eff.Counts = l.Counts()
	return eff
}
