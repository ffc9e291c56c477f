// Package file implements a Store backend that keeps the task list in a
// markdown checklist file.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"todoed/backend"
	"todoed/internal/markdown"
	"todoed/internal/utils"
)

// Config holds file backend configuration
type Config struct {
	FilePath string // Path to task file
}

// Backend implements backend.Store for file-based storage
type Backend struct {
	config   Config
	filePath string // Resolved absolute path

	mu   sync.Mutex
	seen *string // content last read or written; nil before the first
}

// New creates a new file backend
func New(cfg Config) (*Backend, error) {
	filePath := cfg.FilePath
	if filePath == "" {
		filePath = "tasks.md"
	}

	// Resolve relative paths
	if !filepath.IsAbs(filePath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		filePath = filepath.Join(wd, filePath)
	}

	return &Backend{
		config:   cfg,
		filePath: filePath,
	}, nil
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "file"
}

// Path returns the resolved file path.
func (b *Backend) Path() string {
	return b.filePath
}

// Close closes the backend
func (b *Backend) Close() error {
	return nil
}

// Load parses the checklist file. A missing file is reported as absent.
func (b *Backend) Load(ctx context.Context) (backend.TaskList, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(b.filePath)
	if errors.Is(err, os.ErrNotExist) {
		utils.Debugf("file: %s does not exist", b.filePath)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", b.filePath, err)
	}

	b.remember(string(data))
	return markdown.ParseList(string(data)), true, nil
}

// Save writes the checklist file, replacing it atomically.
func (b *Backend) Save(ctx context.Context, tasks backend.TaskList) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Ensure parent directory exists
	dir := filepath.Dir(b.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Tasks\n\n")
	sb.WriteString(markdown.FormatList(tasks))

	tmp, err := os.CreateTemp(dir, ".todoed-*.md")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(sb.String()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", b.filePath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", b.filePath, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	// Remember before the rename so a watcher never sees our own write as foreign.
	prev := b.remember(sb.String())
	if err := os.Rename(tmpName, b.filePath); err != nil {
		b.restore(prev)
		return fmt.Errorf("failed to replace %s: %w", b.filePath, err)
	}
	return nil
}

// Changed reports whether the file on disk differs from what this backend
// last read or wrote. It is false until the file has been read or written.
func (b *Backend) Changed() (bool, error) {
	b.mu.Lock()
	seen := b.seen
	b.mu.Unlock()
	if seen == nil {
		return false, nil
	}

	data, err := os.ReadFile(b.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", b.filePath, err)
	}
	return string(data) != *seen, nil
}

func (b *Backend) remember(content string) *string {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.seen
	b.seen = &content
	return prev
}

func (b *Backend) restore(prev *string) {
	b.mu.Lock()
	b.seen = prev
	b.mu.Unlock()
}

// Verify interface compliance at compile time
var _ backend.Store = (*Backend)(nil)
