// Package oauth runs the browser side of an OAuth2 authorization code flow:
// a loopback callback server, the consent URL and the code exchange.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoRefreshToken is returned when the provider grants no refresh token.
var ErrNoRefreshToken = errors.New("oauth: provider returned no refresh token")

// openBrowser is replaced in tests.
var openBrowser = OpenBrowser

// CallbackServer receives the authorization redirect on 127.0.0.1.
type CallbackServer struct {
	mu            sync.Mutex
	port          int
	expectedState string
	codeChan      chan string
	errChan       chan error
	server        *http.Server
}

// NewCallbackServer creates a callback server. Port 0 picks a free port.
func NewCallbackServer(port int, expectedState string) *CallbackServer {
	return &CallbackServer{
		port:          port,
		expectedState: expectedState,
		codeChan:      make(chan string, 1),
		errChan:       make(chan error, 1),
	}
}

// Start listens and serves /callback in the background.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(err)
		}
	}()
	return nil
}

func (s *CallbackServer) fail(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if errParam := q.Get("error"); errParam != "" {
		desc := q.Get("error_description")
		s.fail(fmt.Errorf("oauth error: %s - %s", errParam, desc))
		fmt.Fprint(w, callbackPage("Authorization failed", desc))
		return
	}
	if q.Get("state") != s.expectedState {
		s.fail(errors.New("oauth: state mismatch"))
		fmt.Fprint(w, callbackPage("Authorization failed", "invalid state parameter"))
		return
	}
	code := q.Get("code")
	if code == "" {
		s.fail(errors.New("oauth: no authorization code received"))
		fmt.Fprint(w, callbackPage("Authorization failed", "no code received"))
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}
	fmt.Fprint(w, callbackPage("Authorization successful", "You can close this window and return to sercha-hub."))
}

// WaitForCode blocks until a code or an error arrives, or ctx ends.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts the server down.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Port returns the listening port.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// RedirectURI returns the redirect URI to register with the provider.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d/callback", s.Port())
}

func callbackPage(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>sercha-hub</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}

// OpenBrowser opens the default browser at url.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// Authorize runs the authorization code flow with PKCE against cfg and
// returns the granted token. cfg.RedirectURL is set to the loopback server.
// notify receives the consent URL, for when no browser can be opened.
func Authorize(ctx context.Context, cfg *oauth2.Config, notify func(url string)) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	server := NewCallbackServer(0, state)
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer func() { _ = server.Stop() }()

	flow := *cfg
	flow.RedirectURL = server.RedirectURI()
	verifier := oauth2.GenerateVerifier()
	url := flow.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier),
	)
	if notify != nil {
		notify(url)
	}
	_ = openBrowser(url)

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := flow.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	return tok, nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
