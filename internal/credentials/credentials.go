// Package credentials provides secure storage of OAuth tokens for remote
// backends using the OS-native keyring, with fallback to environment
// variables, plus the interactive OAuth sign-in flow.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// Source indicates where credentials were retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// tokenAccount is the keyring account the OAuth token is stored under.
const tokenAccount = "oauth-token"

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, secret string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles credential operations
type Manager struct {
	keyring Keyring
	getenv  func(string) string
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// WithGetenv replaces environment lookup, for tests.
func WithGetenv(getenv func(string) string) ManagerOption {
	return func(m *Manager) {
		m.getenv = getenv
	}
}

// NewManager creates a new credential manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		keyring: &systemKeyring{},
		getenv:  os.Getenv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// normalizeBackend normalizes backend names to lowercase
func normalizeBackend(backend string) string {
	return strings.ToLower(strings.TrimSpace(backend))
}

// serviceName returns the keyring service name for a backend
func serviceName(backend string) string {
	return fmt.Sprintf("todoed-%s", normalizeBackend(backend))
}

// envTokenKey returns the environment variable holding a refresh token,
// e.g. TODOED_REMOTE_TOKEN.
func envTokenKey(backend string) string {
	return fmt.Sprintf("TODOED_%s_TOKEN", strings.ToUpper(normalizeBackend(backend)))
}

// SetToken stores an OAuth token in the keyring
func (m *Manager) SetToken(ctx context.Context, backend string, token *oauth2.Token) error {
	if token == nil {
		return errors.New("token is nil")
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return m.keyring.Set(serviceName(backend), tokenAccount, string(data))
}

// GetToken retrieves the OAuth token (keyring first, then env var).
// It returns ErrNotFound when neither source has one.
func (m *Manager) GetToken(ctx context.Context, backend string) (*oauth2.Token, Source, error) {
	// Priority 1: Try keyring
	data, err := m.keyring.Get(serviceName(backend), tokenAccount)
	if err == nil && data != "" {
		var token oauth2.Token
		if err := json.Unmarshal([]byte(data), &token); err != nil {
			return nil, SourceKeyring, fmt.Errorf("stored token for %s is corrupt: %w", backend, err)
		}
		return &token, SourceKeyring, nil
	}

	// Priority 2: A refresh token in the environment
	if refresh := m.getenv(envTokenKey(backend)); refresh != "" {
		return &oauth2.Token{RefreshToken: refresh}, SourceEnvironment, nil
	}

	return nil, SourceNone, ErrNotFound
}

// DeleteToken removes the stored token. It is idempotent.
func (m *Manager) DeleteToken(ctx context.Context, backend string) error {
	err := m.keyring.Delete(serviceName(backend), tokenAccount)
	if err != nil && errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// PersistingTokenSource writes refreshed tokens back to the keyring so a
// rotated refresh token survives restarts.
type PersistingTokenSource struct {
	ctx     context.Context
	src     oauth2.TokenSource
	manager *Manager
	backend string
	last    string
}

// NewPersistingTokenSource wraps src.
func (m *Manager) NewPersistingTokenSource(ctx context.Context, backend string, src oauth2.TokenSource) *PersistingTokenSource {
	return &PersistingTokenSource{ctx: ctx, src: src, manager: m, backend: backend}
}

// Token implements oauth2.TokenSource.
func (p *PersistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != p.last {
		p.last = token.AccessToken
		// Best effort: a keyring failure must not fail the request.
		_ = p.manager.SetToken(p.ctx, p.backend, token)
	}
	return token, nil
}
