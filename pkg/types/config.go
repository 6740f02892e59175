package types

import "errors"

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend      string        `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir      string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	SyncStrategy string        `json:"sync_strategy,omitempty" yaml:"sync_strategy,omitempty" mapstructure:"sync_strategy"`
	StrictUpdate bool          `json:"strict_updates,omitempty" yaml:"strict_updates,omitempty" mapstructure:"strict_updates"`
	Lending      LendingConfig `json:"lending" yaml:"lending" mapstructure:"lending"`
}

// LendingConfig holds the borrowing policy knobs.
type LendingConfig struct {
	MaxActiveLoans int `json:"max_active_loans" yaml:"max_active_loans" mapstructure:"max_active_loans"`
	OverdueDays    int `json:"overdue_days" yaml:"overdue_days" mapstructure:"overdue_days"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Sync strategies control when JSONL files are rewritten.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
)

// Lending defaults.
const (
	DefaultMaxActiveLoans = 3
	DefaultOverdueDays    = 30
)

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrSyncStrategyUnknown = errors.New("unknown sync strategy")
	ErrInvalidLoanLimit    = errors.New("max active loans must be positive")
	ErrInvalidOverdueDays  = errors.New("overdue days must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. Zero lending values are accepted and mean
// "use the default".
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.SyncStrategy {
	case "", SyncImmediate, SyncOnClose:
	default:
		return ErrSyncStrategyUnknown
	}
	if c.Lending.MaxActiveLoans < 0 {
		return ErrInvalidLoanLimit
	}
	if c.Lending.OverdueDays < 0 {
		return ErrInvalidOverdueDays
	}
	return nil
}

// GetSyncStrategy returns the effective sync strategy.
func (c Config) GetSyncStrategy() string {
	if c.SyncStrategy == "" {
		return SyncImmediate
	}
	return c.SyncStrategy
}

// GetMaxActiveLoans returns the loan limit, falling back to the default.
func (c LendingConfig) GetMaxActiveLoans() int {
	if c.MaxActiveLoans <= 0 {
		return DefaultMaxActiveLoans
	}
	return c.MaxActiveLoans
}

// GetOverdueDays returns the overdue threshold, falling back to the default.
func (c LendingConfig) GetOverdueDays() int {
	if c.OverdueDays <= 0 {
		return DefaultOverdueDays
	}
	return c.OverdueDays
}
