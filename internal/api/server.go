// Package api serves the library over HTTP. Handlers translate JSON
// requests into store and lending calls and map their errors onto status
// codes; no lending rule lives here.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mesh-intelligence/biblio/internal/credential"
	"github.com/mesh-intelligence/biblio/internal/lending"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

// Config holds the listener address and per-client rate limit.
// A RateLimit of zero or less disables rate limiting.
type Config struct {
	Addr      string  `yaml:"addr" mapstructure:"addr"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// Defaults for Config.
const (
	DefaultAddr      = ":4000"
	DefaultRateLimit = 2
	DefaultRateBurst = 4
)

// shutdownTimeout bounds how long in-flight requests may run after Serve's
// context is cancelled.
const shutdownTimeout = 20 * time.Second

// Server holds the dependencies shared by every handler.
type Server struct {
	config Config
	store  types.Store
	lender *lending.Lender
	creds  *credential.Registry
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the source of the default "today" for the overdue report.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds a Server. creds may be nil, in which case passwords supplied
// when creating users are rejected.
func New(config Config, store types.Store, lender *lending.Lender, creds *credential.Registry, logger *slog.Logger, opts ...Option) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.RateBurst <= 0 {
		config.RateBurst = DefaultRateBurst
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		config: config,
		store:  store,
		lender: lender,
		creds:  creds,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server", "reason", context.Cause(ctx).Error())

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	s.logger.Info("starting server", "addr", srv.Addr)
	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownErr; err != nil {
		return err
	}
	s.logger.Info("server stopped", "addr", srv.Addr)
	return nil
}
