package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"todoed/backend"
	"todoed/internal/credentials"
	"todoed/internal/ratelimit"
	"todoed/internal/session"
	"todoed/internal/utils"
)

// credentialName is the credentials.Manager backend name for stored tokens.
const credentialName = "remote"

// LoginFunc runs an interactive sign-in and returns the token.
type LoginFunc func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)

// LoadOAuthConfig reads an installed-app client secrets file as downloaded
// from the Google Cloud console.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.WrapWithSuggestion(
			fmt.Errorf("failed to read OAuth client file: %w", err),
			"Download an OAuth client (Desktop app) JSON and set remote.client_secrets in your config",
		)
	}
	cfg, err := google.ConfigFromJSON(clientJSON, drivev3.DriveAppdataScope)
	if err != nil {
		return nil, fmt.Errorf("invalid OAuth client file %s: %w", path, err)
	}
	return cfg, nil
}

// RemoteOptions configures a Remote.
type RemoteOptions struct {
	Config      Config
	OAuth       *oauth2.Config
	Credentials *credentials.Manager
	RateLimit   ratelimit.Config

	// Login overrides the interactive flow. The default runs
	// credentials.OAuthFlow and prints the URL to Prompt.
	Login  LoginFunc
	Prompt io.Writer

	// ClientOptions are passed to the Drive client, e.g. an endpoint override.
	ClientOptions []option.ClientOption
}

// Remote is the remote Store together with the session provider that signs
// it in. Load and Save fail with utils.ErrNotLoggedIn until Login or Restore
// has succeeded.
type Remote struct {
	opts RemoteOptions

	mu    sync.Mutex
	store *Backend
}

// NewRemote creates a signed-out Remote.
func NewRemote(opts RemoteOptions) *Remote {
	if opts.Credentials == nil {
		opts.Credentials = credentials.NewManager()
	}
	if opts.Login == nil {
		prompt := opts.Prompt
		opts.Login = func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
			return credentials.NewOAuthFlow(cfg, prompt).Run(ctx)
		}
	}
	if opts.RateLimit.Backend == "" {
		opts.RateLimit.Backend = "remote"
	}
	return &Remote{opts: opts}
}

// Name returns the backend name
func (r *Remote) Name() string {
	return "remote"
}

// Close closes the backend
func (r *Remote) Close() error {
	return nil
}

func (r *Remote) current() (*Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return nil, utils.NotLoggedIn("remote")
	}
	return r.store, nil
}

// Load implements backend.Store.
func (r *Remote) Load(ctx context.Context) (backend.TaskList, bool, error) {
	store, err := r.current()
	if err != nil {
		return nil, false, err
	}
	return store.Load(ctx)
}

// Save implements backend.Store.
func (r *Remote) Save(ctx context.Context, tasks backend.TaskList) error {
	store, err := r.current()
	if err != nil {
		return err
	}
	return store.Save(ctx, tasks)
}

// Login implements session.Provider: it runs the OAuth flow, stores the
// token and connects.
func (r *Remote) Login(ctx context.Context) (session.User, error) {
	if r.opts.OAuth == nil {
		return session.User{}, utils.ErrBackendNotConfigured("remote")
	}

	token, err := r.opts.Login(ctx, r.opts.OAuth)
	if err != nil {
		if errors.Is(err, credentials.ErrLoginCancelled) {
			return session.User{}, err
		}
		return session.User{}, utils.ErrAuthenticationFailed("remote", err)
	}

	if err := r.opts.Credentials.SetToken(ctx, credentialName, token); err != nil {
		// Still signed in for this run; the next start will need a new login.
		utils.Warnf("could not store remote token: %v", err)
	}
	return r.connect(ctx, token)
}

// Restore implements session.Provider using the stored token.
func (r *Remote) Restore(ctx context.Context) (session.User, bool, error) {
	if r.opts.OAuth == nil {
		return session.User{}, false, nil
	}

	token, source, err := r.opts.Credentials.GetToken(ctx, credentialName)
	if errors.Is(err, credentials.ErrNotFound) {
		return session.User{}, false, nil
	}
	if err != nil {
		return session.User{}, false, err
	}
	utils.Debugf("remote: restoring session from %s", source)

	user, err := r.connect(ctx, token)
	if err != nil {
		return session.User{}, false, err
	}
	return user, true, nil
}

// Logout implements session.Provider: it disconnects and deletes the stored token.
func (r *Remote) Logout(ctx context.Context) error {
	r.mu.Lock()
	r.store = nil
	r.mu.Unlock()
	return r.opts.Credentials.DeleteToken(ctx, credentialName)
}

// connect builds an authorized Drive backend and verifies it by fetching
// the user's identity.
func (r *Remote) connect(ctx context.Context, token *oauth2.Token) (session.User, error) {
	paced := ratelimit.NewTransport(nil, r.opts.RateLimit)

	// Token refreshes outlive the login context, and go through the same
	// paced transport.
	refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: paced})
	src := r.opts.Credentials.NewPersistingTokenSource(refreshCtx, credentialName, r.opts.OAuth.TokenSource(refreshCtx, token))

	httpClient := &http.Client{Transport: &oauth2.Transport{Source: src, Base: paced}}
	store, err := New(ctx, httpClient, r.opts.Config, r.opts.ClientOptions...)
	if err != nil {
		return session.User{}, err
	}

	user, err := store.Identity(ctx)
	if err != nil {
		return session.User{}, err
	}

	r.mu.Lock()
	r.store = store
	r.mu.Unlock()
	return user, nil
}

// Verify interface compliance at compile time
var (
	_ backend.Store    = (*Remote)(nil)
	_ session.Provider = (*Remote)(nil)
)
