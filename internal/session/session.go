// Package session tracks sign-in state for the remote backend and decides
// whether editing is allowed.
package session

import (
	"context"
	"errors"
	"sync"

	"todoed/internal/utils"
)

// State is the sign-in state of a Controller.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// ErrLoginInProgress is returned when Login or Logout is called while a
// sign-in is still running.
var ErrLoginInProgress = errors.New("login already in progress")

// User is the signed-in identity.
type User struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Provider performs the backend-specific parts of signing in and out.
type Provider interface {
	// Login runs an interactive sign-in.
	Login(ctx context.Context) (User, error)
	// Logout forgets stored credentials.
	Logout(ctx context.Context) error
	// Restore signs in from stored credentials without user interaction.
	// The boolean is false when there is nothing to restore.
	Restore(ctx context.Context) (User, bool, error)
}

// Controller is the session state machine. It is safe for concurrent use;
// listeners run outside the lock on the goroutine that caused the transition.
type Controller struct {
	provider Provider

	mu       sync.Mutex
	state    State
	user     User
	onLogin  []func(User)
	onLogout []func()
}

// New creates an anonymous controller backed by p.
func New(p Provider) *Controller {
	return &Controller{provider: p}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// User returns the signed-in user. The boolean is false unless authenticated.
func (c *Controller) User() (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Authenticated {
		return User{}, false
	}
	return c.user, true
}

// CanEdit reports whether editing is allowed: signed in and nothing pending.
func (c *Controller) CanEdit(busy bool) bool {
	return c.State() == Authenticated && !busy
}

// OnLogin registers fn to run on every transition into Authenticated.
func (c *Controller) OnLogin(fn func(User)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLogin = append(c.onLogin, fn)
}

// OnLogout registers fn to run on every transition out of Authenticated.
func (c *Controller) OnLogout(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLogout = append(c.onLogout, fn)
}

// Login signs in interactively. It is a no-op when already authenticated.
// On failure the controller returns to Anonymous and the error is returned.
func (c *Controller) Login(ctx context.Context) error {
	if !c.begin() {
		if c.State() == Authenticated {
			return nil
		}
		return ErrLoginInProgress
	}

	user, err := c.provider.Login(ctx)
	if err != nil {
		c.fail()
		utils.Debugf("login failed: %v", err)
		return err
	}
	c.succeed(user)
	return nil
}

// Restore attempts a silent sign-in from stored credentials. It reports
// whether the controller is now authenticated.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	if !c.begin() {
		if c.State() == Authenticated {
			return true, nil
		}
		return false, ErrLoginInProgress
	}

	user, ok, err := c.provider.Restore(ctx)
	if err != nil || !ok {
		c.fail()
		return false, err
	}
	c.succeed(user)
	return true, nil
}

// Logout forgets stored credentials and returns to Anonymous. Stored
// credentials are removed even when this controller never signed in.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Authenticating {
		c.mu.Unlock()
		return ErrLoginInProgress
	}
	wasAuthenticated := c.state == Authenticated
	c.state = Anonymous
	c.user = User{}
	listeners := append([]func(){}, c.onLogout...)
	c.mu.Unlock()

	err := c.provider.Logout(ctx)

	if wasAuthenticated {
		utils.Debugf("session: signed out")
		for _, fn := range listeners {
			fn()
		}
	}
	return err
}

// begin moves Anonymous to Authenticating. It returns false if the
// controller was in any other state.
func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Anonymous {
		return false
	}
	c.state = Authenticating
	return true
}

func (c *Controller) fail() {
	c.mu.Lock()
	c.state = Anonymous
	c.mu.Unlock()
}

func (c *Controller) succeed(user User) {
	c.mu.Lock()
	c.state = Authenticated
	c.user = user
	listeners := append([]func(User){}, c.onLogin...)
	c.mu.Unlock()

	utils.Debugf("session: signed in as %s", user.Username)
	for _, fn := range listeners {
		fn(user)
	}
}
