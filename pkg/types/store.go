package types

import (
	"context"
	"errors"
)

// Records is keyed access to users, books and loan history. Store methods
// run each call in its own transaction; inside Store.Update the same
// methods share one transaction.
type Records interface {
	// InsertUser persists u. Returns ErrDuplicateKey if the id exists.
	InsertUser(ctx context.Context, u *User) error

	// GetUser returns the user with the given id or ErrNotFound.
	GetUser(ctx context.Context, id string) (*User, error)

	// UpdateUser replaces the name fields of the user.
	// Returns ErrNotFound if the id does not exist.
	UpdateUser(ctx context.Context, id, firstName, lastName string) error

	// DeleteUser removes the user. Deleting a missing id succeeds.
	DeleteUser(ctx context.Context, id string) error

	// ListUsers returns every user ordered by id.
	ListUsers(ctx context.Context) ([]*User, error)

	// InsertBook persists b, keeping b.Loan if set.
	// Returns ErrDuplicateKey if the title exists.
	InsertBook(ctx context.Context, b *Book) error

	// GetBook returns the book with the given title or ErrNotFound.
	GetBook(ctx context.Context, title string) (*Book, error)

	// UpdateBook renames the book and replaces its author, preserving its
	// loan state. Returns ErrNotFound if title does not exist and
	// ErrDuplicateKey if newTitle belongs to another book.
	UpdateBook(ctx context.Context, title, newTitle, newAuthor string) error

	// DeleteBook removes the book. Deleting a missing title succeeds.
	DeleteBook(ctx context.Context, title string) error

	// ListBooks returns the books matching filter ordered by title.
	ListBooks(ctx context.Context, filter BookFilter) ([]*Book, error)

	// CountActiveLoans returns the number of books loaned to userID.
	CountActiveLoans(ctx context.Context, userID string) (int, error)

	// SetLoan records the loan state of a book; nil marks it available.
	// Returns ErrNotFound if the title does not exist.
	SetLoan(ctx context.Context, title string, loan *Loan) error

	// AppendLoanEvent adds e to the loan history, assigning its EventID.
	AppendLoanEvent(ctx context.Context, e *LoanEvent) error

	// ListLoanEvents returns the history of title in append order, or of
	// every book when title is empty.
	ListLoanEvents(ctx context.Context, title string) ([]*LoanEvent, error)
}

// Store is the durable owner of users, books and loan history. Callers
// attach to a backend, run operations, and detach when done.
type Store interface {
	Records

	// Attach opens the backend described by config. Returns
	// ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Records) error) error

	// Update runs fn in a read-write transaction. Updates are serialized;
	// fn's writes commit together or not at all.
	Update(ctx context.Context, fn func(Records) error) error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
