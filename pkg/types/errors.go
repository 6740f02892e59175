package types

import "errors"

// Store and lending errors. Every one is recoverable: the operation that
// returns it leaves the store in its prior state.
var (
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknownUser       = errors.New("unknown user")
	ErrUnknownBook       = errors.New("unknown book")
	ErrAlreadyLoaned     = errors.New("book is already loaned")
	ErrNotLoaned         = errors.New("book is not loaned")
	ErrLoanLimitExceeded = errors.New("loan limit exceeded")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrNotFound          = errors.New("record not found")
	ErrUserHasLoans      = errors.New("user has active loans")
	ErrInvalidData       = errors.New("invalid entity data")
	ErrInvalidFilter     = errors.New("invalid filter value")
	ErrInvalidRole       = errors.New("invalid role")
)

// IsPolicyError reports whether err is a lending policy violation rather
// than a storage fault.
func IsPolicyError(err error) bool {
	for _, target := range []error{
		ErrUnknownUser, ErrUnknownBook, ErrAlreadyLoaned,
		ErrNotLoaned, ErrLoanLimitExceeded, ErrUserHasLoans,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
