package payment

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Listener is a short-lived local HTTP server the checkout page
// redirects to when the user finishes paying. It delivers the first
// valid reference it receives and ignores the rest; verification is
// idempotent anyway, so a duplicate redirect is harmless.
type Listener struct {
	server  *http.Server
	tlsCert *tls.Certificate
	refs    chan string
	errs    chan error
	addr    string
}

// NewListener creates a listener bound to 127.0.0.1 on the given port.
// Port 0 picks a free port.
func NewListener(port int) *Listener {
	return &Listener{
		addr: fmt.Sprintf("127.0.0.1:%d", port),
		refs: make(chan string, 1),
		errs: make(chan error, 1),
	}
}

// UseTLS makes the listener serve HTTPS with the given certificate.
// Must be called before Start.
func (l *Listener) UseTLS(cert tls.Certificate) {
	l.tlsCert = &cert
}

// Start begins serving in the background. The returned URL is the
// redirect target to register with the checkout.
func (l *Listener) Start() (string, error) {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return "", fmt.Errorf("failed to bind callback listener: %w", err)
	}

	scheme := "http"
	if l.tlsCert != nil {
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{*l.tlsCert},
			MinVersion:   tls.VersionTLS12,
		})
		scheme = "https"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, l.handleCallback)

	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.errs <- fmt.Errorf("callback listener failed: %w", err)
		}
	}()

	url := fmt.Sprintf("%s://%s%s", scheme, ln.Addr().String(), callbackPath)
	slog.Debug("callback listener started", "url", url)
	return url, nil
}

// References delivers the first reference received by the listener.
func (l *Listener) References() <-chan string {
	return l.refs
}

// Errors delivers a fatal listener error, if one occurs.
func (l *Listener) Errors() <-chan error {
	return l.errs
}

// Close shuts the listener down.
func (l *Listener) Close(ctx context.Context) error {
	if l.server == nil {
		return nil
	}
	return l.server.Shutdown(ctx)
}

func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		http.Error(w, "missing reference", http.StatusBadRequest)
		return
	}

	select {
	case l.refs <- reference:
	default:
		// A reference is already queued; drop the duplicate.
	}

	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Payment received - pesa</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 80px;">
    <h1>Payment received</h1>
    <p>You can close this window and return to your terminal.</p>
</body>
</html>`)
}
