package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// OAuth callback timeout
	defaultCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	defaultExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	defaultStartPort = 8085

	// Max port attempts
	defaultMaxPortAttempts = 5
)

// ErrLoginCancelled is returned when the flow ends without an authorization code.
var ErrLoginCancelled = errors.New("login cancelled")

// OAuthFlow runs the installed-app authorization code flow with PKCE and a
// loopback redirect.
type OAuthFlow struct {
	Config *oauth2.Config

	// StartPort is the first loopback port tried; 0 picks any free port.
	StartPort       int
	MaxPortAttempts int
	CallbackTimeout time.Duration
	ExchangeTimeout time.Duration

	// OpenURL presents the authorization URL to the user. The default
	// prints it to Prompt.
	OpenURL func(authURL string) error
	Prompt  io.Writer
}

// NewOAuthFlow creates a flow with default ports and timeouts.
func NewOAuthFlow(cfg *oauth2.Config, prompt io.Writer) *OAuthFlow {
	return &OAuthFlow{
		Config:          cfg,
		StartPort:       defaultStartPort,
		MaxPortAttempts: defaultMaxPortAttempts,
		CallbackTimeout: defaultCallbackTimeout,
		ExchangeTimeout: defaultExchangeTimeout,
		Prompt:          prompt,
	}
}

// Run performs the flow and returns the exchanged token.
func (f *OAuthFlow) Run(ctx context.Context) (*oauth2.Token, error) {
	if f.Config == nil {
		return nil, errors.New("oauth config is required")
	}

	port, listener, err := f.listen()
	if err != nil {
		return nil, fmt.Errorf("could not bind to local port for OAuth callback: %w", err)
	}
	defer func() { _ = listener.Close() }()

	cfg := *f.Config
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			sendErr(errCh, errors.New("oauth state mismatch"))
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "Authorization denied", http.StatusForbidden)
			sendErr(errCh, fmt.Errorf("%w: %s", ErrLoginCancelled, e))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			sendErr(errCh, errors.New("no code in callback"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body><h1>Signed in to todoed</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendErr(errCh, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := f.present(authURL); err != nil {
		return nil, err
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(f.callbackTimeout()):
		return nil, fmt.Errorf("%w: oauth callback timed out", ErrLoginCancelled)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrLoginCancelled, ctx.Err())
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, f.exchangeTimeout())
	defer cancel()

	token, err := cfg.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

func (f *OAuthFlow) present(authURL string) error {
	if f.OpenURL != nil {
		return f.OpenURL(authURL)
	}
	if f.Prompt != nil {
		_, _ = fmt.Fprintln(f.Prompt, "Open this URL in your browser:")
		_, _ = fmt.Fprintln(f.Prompt, authURL)
	}
	return nil
}

// listen tries to find an available port starting from StartPort.
func (f *OAuthFlow) listen() (int, net.Listener, error) {
	if f.StartPort == 0 {
		l, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			return 0, nil, err
		}
		return l.Addr().(*net.TCPAddr).Port, l, nil
	}

	attempts := f.MaxPortAttempts
	if attempts <= 0 {
		attempts = defaultMaxPortAttempts
	}
	for i := 0; i < attempts; i++ {
		port := f.StartPort + i
		l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return port, l, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}

func (f *OAuthFlow) callbackTimeout() time.Duration {
	if f.CallbackTimeout <= 0 {
		return defaultCallbackTimeout
	}
	return f.CallbackTimeout
}

func (f *OAuthFlow) exchangeTimeout() time.Duration {
	if f.ExchangeTimeout <= 0 {
		return defaultExchangeTimeout
	}
	return f.ExchangeTimeout
}
