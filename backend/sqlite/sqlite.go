// Package sqlite implements the local backend: a key/value table in an
// SQLite database holding the serialized task list under a single key.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"todoed/backend"
	"todoed/internal/utils"
)

// DefaultKey is the storage key the task list is kept under.
const DefaultKey = "tasks"

// Backend implements backend.Store using SQLite
type Backend struct {
	db  *sql.DB
	key string
}

// New opens (or creates) the database at path and initializes the schema.
// An empty key selects DefaultKey.
func New(path, key string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if key == "" {
		key = DefaultKey
	}
	b := &Backend{db: db, key: key}
	if err := b.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return b, nil
}

// initSchema creates the database tables if they don't exist
func (b *Backend) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS local_storage (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	_, err := b.db.Exec(schema)
	return err
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "local"
}

// Load reads the list stored under the backend's key. A missing key is
// reported as absent, not as an error.
func (b *Backend) Load(ctx context.Context) (backend.TaskList, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		"SELECT value FROM local_storage WHERE key = ?",
		b.key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		utils.Debugf("local: no list stored under %q", b.key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read local storage: %w", err)
	}

	tasks, err := backend.DecodeDocument([]byte(value))
	if err != nil {
		return nil, false, err
	}
	return tasks, true, nil
}

// Save writes the list unconditionally, replacing any previous value.
func (b *Backend) Save(ctx context.Context, tasks backend.TaskList) error {
	data, err := backend.EncodeDocument(tasks)
	if err != nil {
		return err
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO local_storage (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		b.key, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to write local storage: %w", err)
	}
	utils.Debugf("local: saved %d tasks under %q", len(tasks), b.key)
	return nil
}

// Close closes the database connection
func (b *Backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Verify interface compliance at compile time
var _ backend.Store = (*Backend)(nil)
