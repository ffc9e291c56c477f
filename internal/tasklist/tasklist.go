// Package tasklist holds the in-memory task list that the editor projects.
//
// Every mutation goes through Apply so that the list, the counters and the
// focus rule change together.
package tasklist

import (
	"todoed/backend"
)

// Counts are the derived aggregate counters of a list.
type Counts struct {
	Total int
	Done  int
}

// List is an ordered, position-identified list of tasks.
type List struct {
	tasks []backend.Task
}

// New creates a list holding a copy of tasks.
func New(tasks ...backend.Task) *List {
	l := &List{tasks: make([]backend.Task, 0, len(tasks))}
	l.tasks = append(l.tasks, tasks...)
	return l
}

// Len returns the number of tasks.
func (l *List) Len() int {
	return len(l.tasks)
}

// At returns the task at position i.
func (l *List) At(i int) (backend.Task, bool) {
	if !l.valid(i) {
		return backend.Task{}, false
	}
	return l.tasks[i], true
}

func (l *List) valid(i int) bool {
	return i >= 0 && i < len(l.tasks)
}

// Add appends task and returns its position.
func (l *List) Add(task backend.Task) int {
	l.tasks = append(l.tasks, task)
	return len(l.tasks) - 1
}

// Remove deletes the task at i. It returns the position that should receive
// focus afterwards: the preceding task, or -1 when i was the first.
func (l *List) Remove(i int) (focus int, ok bool) {
	if !l.valid(i) {
		return -1, false
	}
	l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
	return i - 1, true
}

// SetTitle replaces the title of the task at i.
func (l *List) SetTitle(i int, title string) bool {
	if !l.valid(i) {
		return false
	}
	l.tasks[i].Title = title
	return true
}

// Toggle flips the done flag of the task at i.
func (l *List) Toggle(i int) bool {
	if !l.valid(i) {
		return false
	}
	l.tasks[i].Done = !l.tasks[i].Done
	return true
}

// Counts recomputes the aggregate counters.
func (l *List) Counts() Counts {
	c := Counts{Total: len(l.tasks)}
	for _, t := range l.tasks {
		if t.Done {
			c.Done++
		}
	}
	return c
}

// DoneIndexes returns the positions of done tasks in display order.
func (l *List) DoneIndexes() []int {
	var idx []int
	for i, t := range l.tasks {
		if t.Done {
			idx = append(idx, i)
		}
	}
	return idx
}

// Snapshot returns a copy of the current tasks in display order.
// It never mutates the list.
func (l *List) Snapshot() backend.TaskList {
	out := make(backend.TaskList, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Replace swaps the whole content for tasks.
func (l *List) Replace(tasks backend.TaskList) {
	l.tasks = append(l.tasks[:0:0], tasks...)
}
