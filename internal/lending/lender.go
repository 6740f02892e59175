package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

// Lender runs borrow, return and overdue operations against a Store.
type Lender struct {
	store          types.Store
	now            func() time.Time
	maxActiveLoans int
	overdueDays    int
	logger         Logger
}

// New creates a Lender over store with the default policy: three active
// loans per user and a thirty day overdue threshold.
func New(store types.Store, opts ...Option) (*Lender, error) {
	if store == nil {
		return nil, errors.New("lending: store must not be nil")
	}
	l := &Lender{
		store:          store,
		now:            time.Now,
		maxActiveLoans: types.DefaultMaxActiveLoans,
		overdueDays:    types.DefaultOverdueDays,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// MaxActiveLoans returns the per-user loan limit.
func (l *Lender) MaxActiveLoans() int { return l.maxActiveLoans }

// OverdueDays returns the overdue threshold in days.
func (l *Lender) OverdueDays() int { return l.overdueDays }

// Borrow lends title to userID as of today's date and returns the book in
// its new state. It fails with ErrUnknownUser, ErrUnknownBook,
// ErrAlreadyLoaned or ErrLoanLimitExceeded, checked in that order.
func (l *Lender) Borrow(ctx context.Context, title, userID string) (*types.Book, error) {
	userID = types.NormalizeID(userID)
	today := types.DateOf(l.now())

	var book *types.Book
	err := l.store.Update(ctx, func(r types.Records) error {
		s, err := projectBorrow(ctx, r, title, userID)
		if err != nil {
			return err
		}
		if err := decideBorrow(s, title, userID, l.maxActiveLoans); err != nil {
			return err
		}

		loan := types.LoanedTo(userID, today)
		if err := r.SetLoan(ctx, title, loan); err != nil {
			return err
		}
		if err := r.AppendLoanEvent(ctx, &types.LoanEvent{
			Kind:       types.LoanEventLent,
			Title:      title,
			UserID:     userID,
			OccurredOn: today,
		}); err != nil {
			return err
		}
		s.book.Loan = loan
		book = s.book
		return nil
	})
	if err != nil {
		l.logRefusal("borrow refused", err, "title", title, "user_id", userID)
		return nil, err
	}
	l.logInfo("book lent", "title", title, "user_id", userID, "loan_date", today.Format(types.DateLayout))
	return book, nil
}

// Return puts title back on the shelf and returns the book in its new
// state. It fails with ErrUnknownBook or ErrNotLoaned.
func (l *Lender) Return(ctx context.Context, title string) (*types.Book, error) {
	today := types.DateOf(l.now())

	var book *types.Book
	err := l.store.Update(ctx, func(r types.Records) error {
		s, err := projectReturn(ctx, r, title)
		if err != nil {
			return err
		}
		if err := decideReturn(s, title); err != nil {
			return err
		}

		holder := s.book.Loan.BorrowerID
		if err := r.SetLoan(ctx, title, nil); err != nil {
			return err
		}
		if err := r.AppendLoanEvent(ctx, &types.LoanEvent{
			Kind:       types.LoanEventReturned,
			Title:      title,
			UserID:     holder,
			OccurredOn: today,
		}); err != nil {
			return err
		}
		s.book.Loan = nil
		book = s.book
		return nil
	})
	if err != nil {
		l.logRefusal("return refused", err, "title", title)
		return nil, err
	}
	l.logInfo("book returned", "title", title)
	return book, nil
}

// OverdueLoans lists the loans that have run strictly longer than the
// overdue threshold as of today, ordered by title. today is supplied by the
// caller; the engine never reads the clock here.
func (l *Lender) OverdueLoans(ctx context.Context, today time.Time) ([]types.OverdueLoan, error) {
	var books []*types.Book
	err := l.store.View(ctx, func(r types.Records) error {
		var err error
		books, err = r.ListBooks(ctx, types.FilterLoaned)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing loaned books: %w", err)
	}
	return overdue(books, today, l.overdueDays), nil
}

// RemoveUser deletes userID unless the user still holds books, in which
// case it fails with ErrUserHasLoans. Removing an unknown user succeeds.
func (l *Lender) RemoveUser(ctx context.Context, userID string) error {
	userID = types.NormalizeID(userID)
	err := l.store.Update(ctx, func(r types.Records) error {
		n, err := r.CountActiveLoans(ctx, userID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s holds %d", types.ErrUserHasLoans, userID, n)
		}
		return r.DeleteUser(ctx, userID)
	})
	if err != nil {
		l.logRefusal("remove user refused", err, "user_id", userID)
		return err
	}
	l.logInfo("user removed", "user_id", userID)
	return nil
}

// History returns the lent and returned events of title in the order they
// happened, or of every book when title is empty.
func (l *Lender) History(ctx context.Context, title string) ([]*types.LoanEvent, error) {
	return l.store.ListLoanEvents(ctx, title)
}

// projectBorrow reads the user, the book and the user's loan count.
func projectBorrow(ctx context.Context, r types.Records, title, userID string) (borrowState, error) {
	var s borrowState

	if _, err := r.GetUser(ctx, userID); err == nil {
		s.userExists = true
	} else if !errors.Is(err, types.ErrNotFound) {
		return s, err
	}

	book, err := r.GetBook(ctx, title)
	switch {
	case err == nil:
		s.book = book
	case !errors.Is(err, types.ErrNotFound):
		return s, err
	}

	if s.userExists {
		n, err := r.CountActiveLoans(ctx, userID)
		if err != nil {
			return s, err
		}
		s.activeLoans = n
	}
	return s, nil
}

// projectReturn reads the book.
func projectReturn(ctx context.Context, r types.Records, title string) (returnState, error) {
	book, err := r.GetBook(ctx, title)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return returnState{}, nil
		}
		return returnState{}, err
	}
	return returnState{book: book}, nil
}

func (l *Lender) logInfo(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

// logRefusal logs policy errors at info level, since the caller reports
// them, and anything else at error.
func (l *Lender) logRefusal(msg string, err error, args ...any) {
	if l.logger == nil {
		return
	}
	args = append(args, "error", err.Error())
	if types.IsPolicyError(err) {
		l.logger.Info(msg, args...)
		return
	}
	l.logger.Error(msg, args...)
}
