// Package oauth provides the local callback server and browser utilities
// for the authorization-code redirect leg. It is a thin collaborator: the
// state comparison and code exchange live in the core services; this server
// only catches the redirect and relays code and state to the CLI.
package oauth

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// Callback carries the query parameters the provider sent back. The state
// is relayed verbatim so the core's ExchangeCode can perform the CSRF check.
type Callback struct {
	Code  string
	State string
}

// CallbackServer handles the OAuth redirect callback.
// It starts a local HTTP server to receive the authorization code.
type CallbackServer struct {
	mu           sync.Mutex
	port         int
	callbackChan chan Callback
	errChan      chan error
	server       *http.Server
	listener     net.Listener
}

// NewCallbackServer creates a callback server for the given port.
// Port 0 picks a random available port.
func NewCallbackServer(port int) *CallbackServer {
	return &CallbackServer{
		port:         port,
		callbackChan: make(chan Callback, 1),
		errChan:      make(chan error, 1),
	}
}

// Start starts the callback server.
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
	s.listener = listener

	// Store the actual port (important when port was 0)
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	return nil
}

// handleCallback relays the provider's redirect parameters to the waiting
// CLI. It performs no validation beyond requiring a code: state checking is
// the core's job.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		errDesc := r.URL.Query().Get("error_description")
		select {
		case s.errChan <- fmt.Errorf("provider returned error: %s - %s", errParam, errDesc):
		default:
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, resultHTML(fmt.Sprintf("Authorization failed: %s", html.EscapeString(errDesc)), ""))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		select {
		case s.errChan <- fmt.Errorf("no authorization code received"):
		default:
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, resultHTML("Authorization failed: no code received", ""))
		return
	}

	select {
	case s.callbackChan <- Callback{Code: code, State: r.URL.Query().Get("state")}:
	default:
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, resultHTML("Authorization received", "You can close this window and return to the terminal."))
}

// Wait blocks until the redirect arrives or the timeout elapses.
func (s *CallbackServer) Wait(timeout time.Duration) (Callback, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case cb := <-s.callbackChan:
		return cb, nil
	case err := <-s.errChan:
		return Callback{}, err
	case <-ctx.Done():
		return Callback{}, fmt.Errorf("timeout waiting for authorization callback")
	}
}

// Stop shuts down the callback server.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Port returns the port the server is listening on.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// RedirectURI returns the redirect URI for this callback server.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d/callback", s.Port())
}

func resultHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>awair-export</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 20vh;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, title, message)
}

// OpenBrowser opens the default browser to the given URL.
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
