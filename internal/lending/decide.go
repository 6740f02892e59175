package lending

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

// borrowState is what Borrow needs to know before it may lend a book.
type borrowState struct {
	userExists  bool
	book        *types.Book // nil when the title is unknown
	activeLoans int
}

// returnState is what Return needs to know before it may take a book back.
type returnState struct {
	book *types.Book
}

// decideBorrow applies the borrow rules in order: the user must exist, the
// book must exist, the book must be on the shelf, and the user must be
// under the loan limit.
func decideBorrow(s borrowState, title, userID string, limit int) error {
	if !s.userExists {
		return fmt.Errorf("%w: %s", types.ErrUnknownUser, userID)
	}
	if s.book == nil {
		return fmt.Errorf("%w: %q", types.ErrUnknownBook, title)
	}
	if !s.book.Available() {
		return fmt.Errorf("%w: %q is held by %s", types.ErrAlreadyLoaned, title, s.book.Loan.BorrowerID)
	}
	if s.activeLoans >= limit {
		return fmt.Errorf("%w: %s holds %d of %d", types.ErrLoanLimitExceeded, userID, s.activeLoans, limit)
	}
	return nil
}

// decideReturn applies the return rules: the book must exist and be loaned.
func decideReturn(s returnState, title string) error {
	if s.book == nil {
		return fmt.Errorf("%w: %q", types.ErrUnknownBook, title)
	}
	if s.book.Available() {
		return fmt.Errorf("%w: %q", types.ErrNotLoaned, title)
	}
	return nil
}

// overdue returns the loans among books that have run strictly longer than
// days as of today, in the order of books.
func overdue(books []*types.Book, today time.Time, days int) []types.OverdueLoan {
	out := make([]types.OverdueLoan, 0)
	for _, b := range books {
		if b.Loan == nil {
			continue
		}
		elapsed := types.DaysBetween(b.Loan.LoanDate, today)
		if elapsed > days {
			out = append(out, types.OverdueLoan{
				Title:       b.Title,
				UserID:      b.Loan.BorrowerID,
				LoanDate:    b.Loan.LoanDate,
				DaysElapsed: elapsed,
			})
		}
	}
	return out
}
