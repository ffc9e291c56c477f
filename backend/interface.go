package backend

import (
	"context"
	"errors"
)

// Task represents a single todo entry. It has no identifier; a task is
// identified by its position in the TaskList.
type Task struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// TaskList is the ordered collection of tasks and the unit of persistence.
type TaskList []Task

// Clone returns a copy of the list that shares no backing array with l.
func (l TaskList) Clone() TaskList {
	if l == nil {
		return nil
	}
	out := make(TaskList, len(l))
	copy(out, l)
	return out
}

// Equal reports whether both lists hold the same tasks in the same order.
func (l TaskList) Equal(other TaskList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Store defines the interface for task list persistence backends.
// Every backend reads and writes the whole list at once.
type Store interface {
	// Load returns the persisted list. The boolean is false when nothing
	// has been stored yet, which callers treat as "start with one blank task".
	Load(ctx context.Context) (TaskList, bool, error)

	// Save replaces the persisted list with tasks.
	Save(ctx context.Context, tasks TaskList) error

	// Name identifies the backend in logs and status output.
	Name() string

	// Connection management
	Close() error
}

// Outcome classifies a Result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

// Result is the explicit outcome of a load or store. Callers branch on it
// instead of inspecting raw errors.
type Result struct {
	Outcome Outcome
	Err     error
}

// Success returns a successful Result.
func Success() Result {
	return Result{Outcome: OutcomeSuccess}
}

// Failure returns a failed Result carrying the reason.
func Failure(err error) Result {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result{Outcome: OutcomeFailure, Err: err}
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Reason returns the failure reason, or "" on success.
func (r Result) Reason() string {
	if r.OK() || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// LoadResult runs s.Load and folds its error into a Result.
func LoadResult(ctx context.Context, s Store) (TaskList, bool, Result) {
	tasks, found, err := s.Load(ctx)
	if err != nil {
		return nil, false, Failure(err)
	}
	return tasks, found, Success()
}

// SaveResult runs s.Save and folds its error into a Result.
func SaveResult(ctx context.Context, s Store, tasks TaskList) Result {
	if err := s.Save(ctx, tasks); err != nil {
		return Failure(err)
	}
	return Success()
}
