package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nahid270/MovieHub-sub000/internal/api"
	"github.com/nahid270/MovieHub-sub000/internal/clock"
	"github.com/nahid270/MovieHub-sub000/internal/config"
	"github.com/nahid270/MovieHub-sub000/internal/httpclient"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	client *httpclient.Client
	logger *zap.Logger
	server *http.Server

	mu   sync.Mutex
	addr net.Addr
}

// Option configures App construction.
type Option func(*options)

type options struct {
	clock         clock.Clock
	clientOptions []httpclient.Option
}

// WithClock overrides the application time source.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithClientOptions passes extra options to the outbound HTTP client.
func WithClientOptions(opts ...httpclient.Option) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, opts...)
	}
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{clock: clock.System()}
	for _, opt := range opts {
		opt(&o)
	}

	client, err := httpclient.New(cfg.Upstream, logger.Named("upstream"), o.clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream client: %w", err)
	}

	handler := api.NewHandler(
		api.WithClock(o.clock),
		api.WithLogger(logger.Named("api")),
		api.WithUpstreamCheck(client, cfg.Upstream.HealthPath),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		client: client,
		logger: logger,
		server: NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler mounts the API under /api/. Everything else is 404.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.NotFoundHandler())
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start binds the listen address and serves in a goroutine. Bind failures,
// such as a port already in use, are returned to the caller.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}

	a.mu.Lock()
	a.addr = ln.Addr()
	a.mu.Unlock()

	a.logger.Info("server listening", zap.Stringer("addr", ln.Addr()))
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

// Addr reports the bound address once Start has succeeded, or nil before.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Shutdown drains in-flight requests until ctx expires, then force-closes any
// remaining connections. Pooled upstream connections are released either way.
func (a *App) Shutdown(ctx context.Context) error {
	defer a.client.CloseIdleConnections()

	err := a.server.Shutdown(ctx)
	if err == nil {
		return nil
	}

	a.logger.Warn("graceful shutdown failed", zap.Error(err))
	if closeErr := a.server.Close(); closeErr != nil {
		a.logger.Error("forced close failed", zap.Error(closeErr))
		return errors.Join(err, closeErr)
	}
	return err
}

// Server returns the underlying HTTP server.
func (a *App) Server() *http.Server {
	return a.server
}

// Client returns the outbound HTTP client shared by the application.
func (a *App) Client() *httpclient.Client {
	return a.client
}
