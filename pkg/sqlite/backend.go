// Package sqlite provides the public API for the SQLite biblio store.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/biblio/internal/sqlite"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

// Option configures a backend created by NewBackend.
type Option = sqlite.Option

// Logger receives backend diagnostics. *slog.Logger satisfies it.
type Logger = sqlite.Logger

// WithLogger sets the logger for the backend.
func WithLogger(logger Logger) Option {
	return sqlite.WithLogger(logger)
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewBackend()
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".biblio-db",
//	})
//	defer store.Detach()
func NewBackend(opts ...Option) types.Store {
	return sqlite.NewBackend(opts...)
}
