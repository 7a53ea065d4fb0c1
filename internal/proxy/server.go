package proxy

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server wraps http.Server with scangate configuration.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates a new Server with timeouts sized for scan traffic.
// Timeout rationale:
//   - ReadHeaderTimeout: 10s - protect against slowloris; bodies may be
//     megabytes so the full-read timeout stays unset
//   - WriteTimeout: 60s - downstream calls are bounded at 30s
//   - IdleTimeout: 120s - reasonable keep-alive
//
// If enableHTTP2 is true, enables HTTP/2 cleartext (h2c) support for
// non-TLS connections.
func NewServer(addr string, handler http.Handler, enableHTTP2 bool) *Server {
	finalHandler := handler
	if enableHTTP2 {
		h2s := &http2.Server{}
		finalHandler = h2c.NewHandler(handler, h2s)
	}

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           finalHandler,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ListenAndServe starts the server (blocks).
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
