package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"tudor/internal/service"
)

const (
	allowRemoteEnvKey = "TUDOR_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second

	authMaxFailures = 5
	authWindow      = time.Minute
	authBlockedFor  = 5 * time.Minute
)

// Options tunes request admission.
type Options struct {
	// RateLimitRPS and RateLimitBurst bound requests per client address.
	// Zero disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	// SchemaVersion is reported by /health when set.
	SchemaVersion int
}

// Server wraps HTTP handlers for the tudor API.
type Server struct {
	addr          string
	svc           *service.Service
	logger        *slog.Logger
	schemaVersion int

	// mu serializes requests: the unit of work behind svc has a single
	// writer.
	mu           sync.Mutex
	limiter      *clientLimiter
	authFailures *authFailureLimiter
}

// New creates a new server instance.
func New(addr string, svc *service.Service, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:          addr,
		svc:           svc,
		logger:        logger,
		schemaVersion: opts.SchemaVersion,
		limiter:       newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		authFailures:  newAuthFailureLimiter(authMaxFailures, authWindow, authBlockedFor),
	}
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withRateLimit(s.withSerialization(s.withAuth(s.routes()))))
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// withSerialization runs one request at a time.
func (s *Server) withSerialization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
