package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/faultd/faultd/pkg/pipeline"
)

// Options configures the proxy server group.
type Options struct {
	// Ports are the intercepted ports. One HTTP server is started per
	// port so matching can distinguish which port traffic arrived on.
	Ports []int

	// Pipeline evaluates and applies the fault rules.
	Pipeline *pipeline.Pipeline

	// Logger for exchange logging. Nil disables logging.
	Logger *slog.Logger

	// Transport performs upstream round trips. Defaults to a transport
	// that never follows redirects and never reuses a proxy.
	Transport http.RoundTripper

	// ShutdownTimeout bounds graceful drain on Shutdown.
	ShutdownTimeout time.Duration
}

// Server is a group of per-port interception servers sharing one rule
// pipeline.
type Server struct {
	pipeline  *pipeline.Pipeline
	logger    *slog.Logger
	transport http.RoundTripper
	timeout   time.Duration

	mu      sync.Mutex
	servers map[int]*http.Server
}

// New creates a server group. It does not listen until Start.
func New(opts Options) (*Server, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("proxy: pipeline is required")
	}
	if len(opts.Ports) == 0 {
		return nil, errors.New("proxy: at least one port is required")
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 nil,
			DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
		}
	}

	timeout := opts.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	s := &Server{
		pipeline:  opts.Pipeline,
		logger:    opts.Logger,
		transport: transport,
		timeout:   timeout,
		servers:   make(map[int]*http.Server, len(opts.Ports)),
	}
	for _, port := range opts.Ports {
		if _, dup := s.servers[port]; dup {
			return nil, fmt.Errorf("proxy: duplicate port %d", port)
		}
		s.servers[port] = &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           &portHandler{server: s, port: port},
			ReadHeaderTimeout: 30 * time.Second,
		}
	}
	return s, nil
}

// Start listens on every configured port and blocks until ctx is
// cancelled or any server fails, then drains the rest gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, len(s.servers))

	s.mu.Lock()
	for port, srv := range s.servers {
		s.logInfo("proxy listening", "port", port)
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Shutdown drains all servers, bounded by the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for port, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("port %d: %w", port, err)
		}
	}
	s.logInfo("proxy stopped")
	return firstErr
}

func (s *Server) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Server) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
