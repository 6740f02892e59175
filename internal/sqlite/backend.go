package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

// Compile-time interface check.
var _ types.Store = (*Backend)(nil)

// Logger receives backend diagnostics. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger for the Backend.
// Debug level: statements and JSONL writes. Info level: attach and detach.
// Error level: failed commits and persistence.
func WithLogger(logger Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// Backend implements the Store interface using SQLite as the query engine
// and JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sqlx.DB
	dialect  goqu.DialectWrapper
	logger   Logger

	syncStrategy string
	pendingMu    sync.Mutex
	pending      map[string]bool // tables whose JSONL write is deferred to Detach
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		dialect: goqu.Dialect("sqlite3"),
		pending: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, rebuilds the SQLite schema, and
// loads the JSONL files. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	if config.DataDir == "" {
		config.DataDir = "."
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is a cache of the JSONL files; start from a fresh schema.
	dbPath := filepath.Join(config.DataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// One writer at a time; also keeps SQLITE_BUSY out of the picture.
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := initJSONLFiles(config.DataDir); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.config = config
	b.syncStrategy = config.GetSyncStrategy()
	b.pending = make(map[string]bool)

	if err := b.loadAllJSONL(context.Background()); err != nil {
		db.Close()
		b.db = nil
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.attached = true
	b.logDebug("store attached", "data_dir", config.DataDir, "sync_strategy", b.syncStrategy)
	return nil
}

// Detach releases all resources held by the backend. Pending JSONL writes
// are flushed first. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if err := b.flushPendingLocked(context.Background()); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.logDebug("store detached", "data_dir", b.config.DataDir)
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// View runs fn inside a transaction that is always rolled back.
func (b *Backend) View(ctx context.Context, fn func(types.Records) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	sqlTx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	return fn(newTx(b, sqlTx))
}

// Update runs fn inside a read-write transaction. Updates are serialized by
// the backend lock. On success the touched tables are persisted to JSONL
// according to the sync strategy.
func (b *Backend) Update(ctx context.Context, fn func(types.Records) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	sqlTx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	t := newTx(b, sqlTx)
	if err := fn(t); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		b.logError("commit failed", "error", err.Error())
		return fmt.Errorf("committing transaction: %w", err)
	}

	return b.persistLocked(ctx, t.dirty)
}

// persistLocked writes or queues the JSONL files of the dirty tables.
// The caller must hold b.mu.
func (b *Backend) persistLocked(ctx context.Context, dirty map[string]bool) error {
	if len(dirty) == 0 {
		return nil
	}
	if b.syncStrategy == types.SyncOnClose {
		b.pendingMu.Lock()
		for table := range dirty {
			b.pending[table] = true
		}
		b.pendingMu.Unlock()
		return nil
	}
	for _, f := range jsonlFiles {
		if !dirty[f.table] {
			continue
		}
		if err := b.persistTable(ctx, f.table); err != nil {
			b.logError("persisting JSONL failed", "table", f.table, "error", err.Error())
			return fmt.Errorf("persisting %s: %w", f.file, err)
		}
	}
	return nil
}

// flushPendingLocked writes every queued table. The caller must hold b.mu.
func (b *Backend) flushPendingLocked(ctx context.Context) error {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	for _, f := range jsonlFiles {
		if !b.pending[f.table] {
			continue
		}
		if err := b.persistTable(ctx, f.table); err != nil {
			return fmt.Errorf("flush %s: %w", f.table, err)
		}
		delete(b.pending, f.table)
	}
	return nil
}

func (b *Backend) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Backend) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Backend) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}
