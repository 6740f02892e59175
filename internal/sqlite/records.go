package sqlite

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

// The Backend methods below run one Records call in its own transaction.

// InsertUser persists u in its own transaction.
func (b *Backend) InsertUser(ctx context.Context, u *types.User) error {
	return b.Update(ctx, func(r types.Records) error {
		return r.InsertUser(ctx, u)
	})
}

// GetUser returns the user with the given id or ErrNotFound.
func (b *Backend) GetUser(ctx context.Context, id string) (*types.User, error) {
	var u *types.User
	err := b.View(ctx, func(r types.Records) error {
		var err error
		u, err = r.GetUser(ctx, id)
		return err
	})
	return u, err
}

// UpdateUser replaces the name fields of the user. A missing id is a silent
// no-op unless the backend was attached with StrictUpdate.
func (b *Backend) UpdateUser(ctx context.Context, id, firstName, lastName string) error {
	return b.Update(ctx, func(r types.Records) error {
		return b.softenMissing(r.UpdateUser(ctx, id, firstName, lastName))
	})
}

// DeleteUser removes the user. Deleting a missing id succeeds.
func (b *Backend) DeleteUser(ctx context.Context, id string) error {
	return b.Update(ctx, func(r types.Records) error {
		return r.DeleteUser(ctx, id)
	})
}

// ListUsers returns every user ordered by id.
func (b *Backend) ListUsers(ctx context.Context) ([]*types.User, error) {
	var users []*types.User
	err := b.View(ctx, func(r types.Records) error {
		var err error
		users, err = r.ListUsers(ctx)
		return err
	})
	return users, err
}

// InsertBook persists bk in its own transaction.
func (b *Backend) InsertBook(ctx context.Context, bk *types.Book) error {
	return b.Update(ctx, func(r types.Records) error {
		return r.InsertBook(ctx, bk)
	})
}

// GetBook returns the book with the given title or ErrNotFound.
func (b *Backend) GetBook(ctx context.Context, title string) (*types.Book, error) {
	var bk *types.Book
	err := b.View(ctx, func(r types.Records) error {
		var err error
		bk, err = r.GetBook(ctx, title)
		return err
	})
	return bk, err
}

// UpdateBook renames the book and replaces its author. A missing title is
// a silent no-op unless the backend was attached with StrictUpdate.
func (b *Backend) UpdateBook(ctx context.Context, title, newTitle, newAuthor string) error {
	return b.Update(ctx, func(r types.Records) error {
		return b.softenMissing(r.UpdateBook(ctx, title, newTitle, newAuthor))
	})
}

// DeleteBook removes the book. Deleting a missing title succeeds.
func (b *Backend) DeleteBook(ctx context.Context, title string) error {
	return b.Update(ctx, func(r types.Records) error {
		return r.DeleteBook(ctx, title)
	})
}

// ListBooks returns the books matching filter ordered by title.
func (b *Backend) ListBooks(ctx context.Context, filter types.BookFilter) ([]*types.Book, error) {
	var books []*types.Book
	err := b.View(ctx, func(r types.Records) error {
		var err error
		books, err = r.ListBooks(ctx, filter)
		return err
	})
	return books, err
}

// CountActiveLoans returns the number of books loaned to userID.
func (b *Backend) CountActiveLoans(ctx context.Context, userID string) (int, error) {
	var n int
	err := b.View(ctx, func(r types.Records) error {
		var err error
		n, err = r.CountActiveLoans(ctx, userID)
		return err
	})
	return n, err
}

// SetLoan writes the loan state of a book in its own transaction.
func (b *Backend) SetLoan(ctx context.Context, title string, loan *types.Loan) error {
	return b.Update(ctx, func(r types.Records) error {
		return r.SetLoan(ctx, title, loan)
	})
}

// AppendLoanEvent adds e to the loan history in its own transaction.
func (b *Backend) AppendLoanEvent(ctx context.Context, e *types.LoanEvent) error {
	return b.Update(ctx, func(r types.Records) error {
		return r.AppendLoanEvent(ctx, e)
	})
}

// ListLoanEvents returns the loan history of title, or all history.
func (b *Backend) ListLoanEvents(ctx context.Context, title string) ([]*types.LoanEvent, error) {
	var events []*types.LoanEvent
	err := b.View(ctx, func(r types.Records) error {
		var err error
		events, err = r.ListLoanEvents(ctx, title)
		return err
	})
	return events, err
}

// softenMissing drops ErrNotFound in the default (legacy) update mode.
// Called with b.mu held.
func (b *Backend) softenMissing(err error) error {
	if err != nil && !b.config.StrictUpdate && errors.Is(err, types.ErrNotFound) {
		return nil
	}
	return err
}
