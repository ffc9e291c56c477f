package backend

import (
	"context"
	"errors"
	"testing"
)

type stubStore struct {
	tasks   TaskList
	found   bool
	loadErr error
	saveErr error
	saved   TaskList
}

func (s *stubStore) Load(ctx context.Context) (TaskList, bool, error) {
	return s.tasks, s.found, s.loadErr
}

func (s *stubStore) Save(ctx context.Context, tasks TaskList) error {
	s.saved = tasks
	return s.saveErr
}

func (s *stubStore) Name() string { return "stub" }
func (s *stubStore) Close() error { return nil }

func TestResult(t *testing.T) {
	ok := Success()
	if !ok.OK() || ok.Reason() != "" {
		t.Errorf("Success() = %+v", ok)
	}

	failed := Failure(errors.New("network down"))
	if failed.OK() {
		t.Error("Failure().OK() = true")
	}
	if failed.Reason() != "network down" {
		t.Errorf("Reason() = %q", failed.Reason())
	}

	if Failure(nil).Reason() == "" {
		t.Error("Failure(nil) should still carry a reason")
	}
}

func TestLoadResult(t *testing.T) {
	ctx := context.Background()

	tasks, found, r := LoadResult(ctx, &stubStore{tasks: TaskList{{Title: "a"}}, found: true})
	if !r.OK() || !found || len(tasks) != 1 {
		t.Errorf("LoadResult() = %+v, %v, %+v", tasks, found, r)
	}

	tasks, found, r = LoadResult(ctx, &stubStore{tasks: TaskList{{Title: "a"}}, found: true, loadErr: errors.New("boom")})
	if r.OK() || found || tasks != nil {
		t.Errorf("LoadResult() on error = %+v, %v, %+v", tasks, found, r)
	}
}

func TestSaveResult(t *testing.T) {
	ctx := context.Background()
	s := &stubStore{}

	if r := SaveResult(ctx, s, TaskList{{Title: "x"}}); !r.OK() {
		t.Errorf("SaveResult() = %+v", r)
	}
	if len(s.saved) != 1 {
		t.Errorf("saved = %+v", s.saved)
	}

	s.saveErr = errors.New("denied")
	if r := SaveResult(ctx, s, nil); r.OK() || r.Reason() != "denied" {
		t.Errorf("SaveResult() on error = %+v", r)
	}
}

func TestTaskListCloneAndEqual(t *testing.T) {
	orig := TaskList{{Title: "a"}, {Title: "b", Done: true}}
	clone := orig.Clone()
	if !clone.Equal(orig) {
		t.Fatal("clone should equal original")
	}
	clone[0].Title = "changed"
	if orig[0].Title != "a" {
		t.Error("Clone shares backing array with original")
	}
	if clone.Equal(orig) {
		t.Error("Equal should detect field changes")
	}
	if TaskList(nil).Clone() != nil {
		t.Error("Clone(nil) should be nil")
	}
	if !TaskList(nil).Equal(TaskList{}) {
		t.Error("nil and empty lists should be equal")
	}
}
