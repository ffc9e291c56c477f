package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"todoed/backend"
)

// mustNewBackend creates an in-memory backend and registers cleanup
func mustNewBackend(t *testing.T) (*Backend, context.Context) {
	t.Helper()
	b, err := New(":memory:", "")
	if err != nil {
		t.Fatalf("New(:memory:) error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b, context.Background()
}

// TestBackendImplementsInterface verifies the Backend type implements Store.
func TestBackendImplementsInterface(t *testing.T) {
	var _ backend.Store = (*Backend)(nil)
}

func TestDefaultKey(t *testing.T) {
	b, _ := mustNewBackend(t)
	if b.key != DefaultKey {
		t.Errorf("key = %q, want %q", b.key, DefaultKey)
	}
	if b.Name() != "local" {
		t.Errorf("Name() = %q, want local", b.Name())
	}
}

// TestLoadMissingKeyIsAbsent verifies a fresh database reports no list.
func TestLoadMissingKeyIsAbsent(t *testing.T) {
	b, ctx := mustNewBackend(t)

	tasks, found, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if found {
		t.Errorf("Load() found = true, want false (tasks: %+v)", tasks)
	}
}

// TestSaveLoadRoundTrip verifies order and fields survive a store/load.
func TestSaveLoadRoundTrip(t *testing.T) {
	b, ctx := mustNewBackend(t)

	want := backend.TaskList{
		{Title: "", Done: true},
		{Title: "buy milk", Done: false},
		{Title: "café ☕", Done: true},
	}
	if err := b.Save(ctx, want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, found, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !found {
		t.Fatal("Load() found = false after Save")
	}
	if !got.Equal(want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

// TestSaveOverwrites verifies writes are unconditional.
func TestSaveOverwrites(t *testing.T) {
	b, ctx := mustNewBackend(t)

	_ = b.Save(ctx, backend.TaskList{{Title: "first"}})
	if err := b.Save(ctx, backend.TaskList{{Title: "second", Done: true}}); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	got, _, _ := b.Load(ctx)
	want := backend.TaskList{{Title: "second", Done: true}}
	if !got.Equal(want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

// TestSaveEmptyListIsPresent verifies an empty list is distinct from absent.
func TestSaveEmptyListIsPresent(t *testing.T) {
	b, ctx := mustNewBackend(t)

	if err := b.Save(ctx, nil); err != nil {
		t.Fatalf("Save(nil) error: %v", err)
	}
	got, found, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !found || len(got) != 0 {
		t.Errorf("Load() = %+v, %v; want empty, true", got, found)
	}
}

// TestLoadCorruptValue verifies malformed data is a load failure.
func TestLoadCorruptValue(t *testing.T) {
	b, ctx := mustNewBackend(t)

	_, err := b.db.ExecContext(ctx,
		"INSERT INTO local_storage (key, value) VALUES (?, ?)",
		DefaultKey, `{"title":"not a list"}`)
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}

	_, _, err = b.Load(ctx)
	if !errors.Is(err, backend.ErrInvalidDocument) {
		t.Errorf("Load() error = %v, want ErrInvalidDocument", err)
	}
}

// TestKeysAreIndependent verifies two keys in one database don't collide.
func TestKeysAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todoed.db")
	ctx := context.Background()

	work, err := New(path, "work")
	if err != nil {
		t.Fatalf("New(work) error: %v", err)
	}
	defer func() { _ = work.Close() }()
	if err := work.Save(ctx, backend.TaskList{{Title: "report"}}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	home, err := New(path, "home")
	if err != nil {
		t.Fatalf("New(home) error: %v", err)
	}
	defer func() { _ = home.Close() }()

	if _, found, _ := home.Load(ctx); found {
		t.Error("home key should be absent")
	}
}

// TestPersistsAcrossReopen verifies data is written to disk.
func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todoed.db")
	ctx := context.Background()

	b, err := New(path, "")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	_ = b.Save(ctx, backend.TaskList{{Title: "persist me", Done: true}})
	_ = b.Close()

	b2, err := New(path, "")
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer func() { _ = b2.Close() }()

	got, found, err := b2.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load() = %v, %v", found, err)
	}
	if len(got) != 1 || got[0].Title != "persist me" || !got[0].Done {
		t.Errorf("Load() = %+v", got)
	}
}

func TestLoadResultAndSaveResult(t *testing.T) {
	b, ctx := mustNewBackend(t)

	if r := backend.SaveResult(ctx, b, backend.TaskList{{Title: "a"}}); !r.OK() {
		t.Fatalf("SaveResult() = %+v", r)
	}
	tasks, found, r := backend.LoadResult(ctx, b)
	if !r.OK() || !found || len(tasks) != 1 {
		t.Errorf("LoadResult() = %+v, %v, %+v", tasks, found, r)
	}

	_ = b.Close()
	if r := backend.SaveResult(ctx, b, nil); r.OK() {
		t.Error("SaveResult() on closed database should fail")
	}
}
