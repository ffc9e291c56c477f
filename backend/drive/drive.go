// Package drive provides the remote backend: the task list is kept as one
// JSON document in the Google Drive application data folder.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"todoed/backend"
	"todoed/internal/session"
	"todoed/internal/utils"
)

const (
	// DefaultDocument is the name of the document holding the task list.
	DefaultDocument = "todoed.json"

	// DefaultTimeout bounds a single load or save.
	DefaultTimeout = 30 * time.Second

	// appDataFolder is the hidden per-application Drive space.
	appDataFolder = "appDataFolder"

	documentMimeType = "application/json"
)

// Config holds remote document settings
type Config struct {
	Document string
	Timeout  time.Duration
}

// Backend implements backend.Store against a Drive appDataFolder document.
type Backend struct {
	svc      *drivev3.Service
	document string
	timeout  time.Duration

	mu     sync.Mutex
	fileID string // cached after the first lookup
}

// New creates a backend using httpClient, which must already carry
// authorization. Extra options are passed to the Drive client.
func New(ctx context.Context, httpClient *http.Client, cfg Config, opts ...option.ClientOption) (*Backend, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	document := cfg.Document
	if document == "" {
		document = DefaultDocument
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Backend{
		svc:      svc,
		document: document,
		timeout:  timeout,
	}, nil
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "remote"
}

// Close closes the backend
func (b *Backend) Close() error {
	return nil
}

// Load downloads the document. A missing document is reported as absent.
func (b *Backend) Load(ctx context.Context) (backend.TaskList, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	id, err := b.lookup(ctx)
	if err != nil {
		return nil, false, wrapError(err)
	}
	if id == "" {
		utils.Debugf("remote: document %q not found", b.document)
		return nil, false, nil
	}

	resp, err := b.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			b.forget()
			return nil, false, nil
		}
		return nil, false, wrapError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, wrapError(err)
	}

	tasks, err := backend.DecodeDocument(data)
	if err != nil {
		return nil, false, err
	}
	return tasks, true, nil
}

// Save creates the document on first use and replaces its content after.
func (b *Backend) Save(ctx context.Context, tasks backend.TaskList) error {
	data, err := backend.EncodeDocument(tasks)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	id, err := b.lookup(ctx)
	if err != nil {
		return wrapError(err)
	}

	if id != "" {
		_, err = b.svc.Files.Update(id, &drivev3.File{}).
			Media(bytes.NewReader(data), googleapi.ContentType(documentMimeType)).
			Fields("id").
			Context(ctx).
			Do()
		if err == nil {
			utils.Debugf("remote: updated %s (%d tasks)", b.document, len(tasks))
			return nil
		}
		if !isNotFound(err) {
			return wrapError(err)
		}
		// Deleted behind our back; create it again.
		b.forget()
	}

	created, err := b.svc.Files.Create(&drivev3.File{
		Name:     b.document,
		Parents:  []string{appDataFolder},
		MimeType: documentMimeType,
	}).
		Media(bytes.NewReader(data), googleapi.ContentType(documentMimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return wrapError(err)
	}

	b.mu.Lock()
	b.fileID = created.Id
	b.mu.Unlock()
	utils.Debugf("remote: created %s (%d tasks)", b.document, len(tasks))
	return nil
}

// Identity returns the Drive account's display name and photo.
func (b *Backend) Identity(ctx context.Context) (session.User, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	about, err := b.svc.About.Get().Fields("user").Context(ctx).Do()
	if err != nil {
		return session.User{}, wrapError(err)
	}
	if about.User == nil {
		return session.User{}, errors.New("drive returned no user")
	}

	name := about.User.DisplayName
	if name == "" {
		name = about.User.EmailAddress
	}
	return session.User{Username: name, AvatarURL: about.User.PhotoLink}, nil
}

// lookup returns the document's file ID, or "" when it does not exist.
func (b *Backend) lookup(ctx context.Context) (string, error) {
	b.mu.Lock()
	id := b.fileID
	b.mu.Unlock()
	if id != "" {
		return id, nil
	}

	list, err := b.svc.Files.List().
		Spaces(appDataFolder).
		Q(fmt.Sprintf("name = '%s' and trashed = false", escapeQuery(b.document))).
		Fields("files(id, name)").
		PageSize(10).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	if len(list.Files) > 1 {
		utils.Warnf("remote: %d documents named %q, using the first", len(list.Files), b.document)
	}

	b.mu.Lock()
	b.fileID = list.Files[0].Id
	b.mu.Unlock()
	return list.Files[0].Id, nil
}

func (b *Backend) forget() {
	b.mu.Lock()
	b.fileID = ""
	b.mu.Unlock()
}

// escapeQuery escapes a value for a Drive query string literal.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// wrapError classifies Drive and transport errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return utils.ErrAuthenticationFailed("remote", err)
		case http.StatusForbidden:
			if strings.Contains(strings.ToLower(gerr.Message), "rate") {
				return utils.ErrBackendOffline("remote", "rate limit exceeded")
			}
			return utils.ErrAuthenticationFailed("remote", err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return utils.ErrBackendOffline("remote", "request timeout")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return utils.ErrBackendOffline("remote", err.Error())
	}
	return err
}

// Verify interface compliance at compile time
var _ backend.Store = (*Backend)(nil)
