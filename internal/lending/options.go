package lending

import (
	"errors"
	"time"
)

// Logger receives lending diagnostics. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures a Lender.
type Option func(*Lender) error

// Option errors.
var (
	ErrNilClock          = errors.New("clock must not be nil")
	ErrInvalidLoanLimit  = errors.New("max active loans must be positive")
	ErrInvalidOverdueAge = errors.New("overdue days must be positive")
)

// WithClock sets the source of "today" for Borrow and Return. Only the
// calendar date of the returned time is used.
func WithClock(now func() time.Time) Option {
	return func(l *Lender) error {
		if now == nil {
			return ErrNilClock
		}
		l.now = now
		return nil
	}
}

// WithMaxActiveLoans sets how many books one user may hold at once.
func WithMaxActiveLoans(n int) Option {
	return func(l *Lender) error {
		if n <= 0 {
			return ErrInvalidLoanLimit
		}
		l.maxActiveLoans = n
		return nil
	}
}

// WithOverdueDays sets the number of days after which a loan is overdue.
// A loan is overdue when strictly more than n days have elapsed.
func WithOverdueDays(n int) Option {
	return func(l *Lender) error {
		if n <= 0 {
			return ErrInvalidOverdueAge
		}
		l.overdueDays = n
		return nil
	}
}

// WithLogger sets the logger for the Lender.
// Info level: successful borrows and returns. Warn level: policy refusals.
func WithLogger(logger Logger) Option {
	return func(l *Lender) error {
		l.logger = logger
		return nil
	}
}
