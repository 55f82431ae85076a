package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/discovery"
	"ccproxy-hq/ccproxy/pkg/proxy/handlers"
	"ccproxy-hq/ccproxy/pkg/proxy/middleware"
	"ccproxy-hq/ccproxy/pkg/registry"
	"ccproxy-hq/ccproxy/pkg/relay"
	"ccproxy-hq/ccproxy/pkg/security/auth"
	"ccproxy-hq/ccproxy/pkg/telemetry/health"
	"ccproxy-hq/ccproxy/pkg/telemetry/metrics"
	"ccproxy-hq/ccproxy/pkg/telemetry/tracing"
)

// BuildInfo is reported by /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Options carries the collaborators of a Server. Registry, Forwarder,
// Relay and Discovery are required.
type Options struct {
	Registry  *registry.Registry
	Forwarder *relay.Forwarder
	Relay     *relay.Relay
	Discovery *discovery.Service
	Metrics   *metrics.Collector
	Logger    *slog.Logger
	Build     BuildInfo
}

// Server is the ccproxy HTTP server.
type Server struct {
	config    config.ServerConfig
	telemetry config.TelemetryConfig
	opts      Options
	logger    *slog.Logger
	health    *health.Checker

	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server for cfg. Listener and static settings are
// taken from cfg once; relay settings are read from the registry on every
// request so reloads apply without a restart.
func NewServer(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:       cfg.Server,
		telemetry:    cfg.Telemetry,
		opts:         opts,
		logger:       logger.With("component", "server"),
		health:       health.New(0),
		shutdownChan: make(chan struct{}),
	}
	s.registerHealthChecks()
	return s
}

func (s *Server) registerHealthChecks() {
	reg := s.opts.Registry
	s.health.Register("providers", func(context.Context) error {
		if len(reg.Providers()) == 0 {
			return errors.New("no providers configured")
		}
		return nil
	})
	s.health.Register("selection", func(context.Context) error {
		if _, ok := reg.Selected(); !ok {
			return errors.New("no provider selected")
		}
		return nil
	})
}

// Start listens on the configured address and serves until ctx is
// cancelled or Stop is called, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}

	// WriteTimeout stays zero: responses are model streams that may run
	// for many minutes. proxy.api_timeout bounds them instead.
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
	}
	s.listener = ln
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting proxy server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown gracefully shuts down the server, waiting up to
// server.shutdown_timeout for in-flight streams.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("proxy server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.withMiddleware(s.routes())
}

func (s *Server) routes() http.Handler {
	reg := s.opts.Registry
	authn := auth.NewAuthenticator(
		auth.NewAPIKeyValidator(func() string { return reg.Settings().APIKey }),
		s.opts.Logger,
	)

	messages := handlers.NewMessagesHandler(reg, authn, s.opts.Forwarder, s.opts.Relay, s.opts.Metrics, s.opts.Logger)
	control := handlers.NewControlHandler(reg, s.opts.Discovery, s.opts.Forwarder, s.opts.Logger)
	static := handlers.NewStaticHandler(s.config.WebDir, s.config.DocsDir, s.opts.Logger)

	ui := func(h http.HandlerFunc) http.Handler { return authn.RequireUI(h) }

	mux := http.NewServeMux()

	// Relay
	mux.Handle("POST /v1/messages", messages)

	// Control plane
	mux.Handle("GET /api/state", ui(control.State))
	mux.Handle("POST /api/select", ui(control.Select))
	mux.Handle("POST /api/refresh-models", ui(control.RefreshModels))
	mux.Handle("POST /api/reload", ui(control.Reload))
	mux.Handle("POST /api/reset", ui(control.Reset))
	mux.Handle("POST /api/provider-auth", ui(control.ProviderAuth))
	mux.Handle("POST /api/test-provider", ui(control.TestProvider))
	mux.Handle("POST /api/refresh-and-test", ui(control.RefreshAndTest))

	// Web UI and docs
	mux.Handle("GET /{$}", ui(static.Index))
	mux.Handle("GET /app.js", ui(static.AppJS))
	mux.Handle("GET /styles.css", ui(static.Styles))
	mux.HandleFunc("GET /docs", static.Docs)

	// Operational
	mux.HandleFunc("/health", s.health.LivenessHandler())
	mux.HandleFunc("/ready", s.health.ReadinessHandler())
	mux.HandleFunc("GET /version", health.VersionHandler(s.opts.Build.Version, s.opts.Build.Commit, s.opts.Build.BuildDate))
	if s.telemetry.Metrics.IsEnabled() && s.opts.Metrics != nil {
		mux.Handle("GET "+s.telemetry.Metrics.Path, s.opts.Metrics.Handler())
	}

	return mux
}

// withMiddleware applies the chain, outermost first: CORS, request ID,
// trace extraction, logging, recovery. Recovery sits inside logging so a
// recovered panic is logged with its 500.
func (s *Server) withMiddleware(h http.Handler) http.Handler {
	logger := s.opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h = middleware.RecoveryMiddleware(logger)(h)
	h = middleware.LoggingMiddleware(logger)(h)
	h = tracing.HTTPMiddleware(h)
	h = middleware.RequestIDMiddleware(h)
	h = middleware.CORSMiddleware(s.config.CORS)(h)
	return h
}
