package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

// bookRow is both the SQLite row and the books.jsonl record. BorrowerID
// holds types.AvailableMarker for a book on the shelf.
type bookRow struct {
	Title      string  `db:"title" json:"title"`
	Author     string  `db:"author" json:"author"`
	BorrowerID string  `db:"borrower_id" json:"borrower_id"`
	LoanDate   *string `db:"loan_date" json:"loan_date"`
}

// toBook hydrates the explicit loan state from the sentinel columns.
func (r bookRow) toBook() (*types.Book, error) {
	b := &types.Book{Title: r.Title, Author: r.Author}
	if r.BorrowerID == "" || r.BorrowerID == types.AvailableMarker {
		return b, nil
	}
	loan := &types.Loan{BorrowerID: r.BorrowerID}
	if r.LoanDate != nil && *r.LoanDate != "" {
		d, err := types.ParseDate(*r.LoanDate)
		if err != nil {
			return nil, fmt.Errorf("parsing loan_date of %q: %w", r.Title, err)
		}
		loan.LoanDate = d
	}
	b.Loan = loan
	return b, nil
}

// loanColumns dehydrates a loan into borrower_id and loan_date values.
func loanColumns(loan *types.Loan) goqu.Record {
	if loan == nil {
		return goqu.Record{"borrower_id": types.AvailableMarker, "loan_date": nil}
	}
	return goqu.Record{
		"borrower_id": types.NormalizeID(loan.BorrowerID),
		"loan_date":   types.DateOf(loan.LoanDate).Format(types.DateLayout),
	}
}

// InsertBook persists b with its loan state (available when b.Loan is nil).
// Returns ErrDuplicateKey if the title is taken.
func (t *tx) InsertBook(ctx context.Context, b *types.Book) error {
	if b == nil {
		return types.ErrInvalidData
	}
	title := strings.TrimSpace(b.Title)
	if title == "" {
		return fmt.Errorf("%w: empty title", types.ErrInvalidData)
	}
	if b.Loan != nil && types.NormalizeID(b.Loan.BorrowerID) == "" {
		return fmt.Errorf("%w: loan without borrower", types.ErrInvalidData)
	}

	taken, err := t.exists(ctx, tableBooks, goqu.C("title").Eq(title))
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: book %q", types.ErrDuplicateKey, title)
	}

	rec := loanColumns(b.Loan)
	rec["title"] = title
	rec["author"] = b.Author
	ds := t.backend.dialect.Insert(tableBooks).Rows(rec).Prepared(true)
	if _, err := t.exec(ctx, ds); err != nil {
		return fmt.Errorf("inserting book %q: %w", title, err)
	}
	b.Title = title
	t.dirty[tableBooks] = true
	return nil
}

// GetBook returns the book with the given title or ErrNotFound.
func (t *tx) GetBook(ctx context.Context, title string) (*types.Book, error) {
	var row bookRow
	ds := t.backend.dialect.From(tableBooks).
		Select(bookColumns...).
		Where(goqu.C("title").Eq(title)).
		Prepared(true)
	if err := t.get(ctx, &row, ds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting book %q: %w", title, err)
	}
	return row.toBook()
}

// UpdateBook renames the book and sets its author. The loan columns are
// untouched, and the loan history follows the rename.
func (t *tx) UpdateBook(ctx context.Context, title, newTitle, newAuthor string) error {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return fmt.Errorf("%w: empty title", types.ErrInvalidData)
	}

	found, err := t.exists(ctx, tableBooks, goqu.C("title").Eq(title))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: book %q", types.ErrNotFound, title)
	}

	if newTitle != title {
		taken, err := t.exists(ctx, tableBooks, goqu.C("title").Eq(newTitle))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: book %q", types.ErrDuplicateKey, newTitle)
		}
	}

	ds := t.backend.dialect.Update(tableBooks).
		Set(goqu.Record{"title": newTitle, "author": newAuthor}).
		Where(goqu.C("title").Eq(title)).
		Prepared(true)
	if _, err := t.exec(ctx, ds); err != nil {
		return fmt.Errorf("updating book %q: %w", title, err)
	}
	t.dirty[tableBooks] = true

	if newTitle != title {
		hist := t.backend.dialect.Update(tableLoanEvents).
			Set(goqu.Record{"title": newTitle}).
			Where(goqu.C("title").Eq(title)).
			Prepared(true)
		n, err := t.exec(ctx, hist)
		if err != nil {
			return fmt.Errorf("renaming loan history of %q: %w", title, err)
		}
		if n > 0 {
			t.dirty[tableLoanEvents] = true
		}
	}
	return nil
}

// DeleteBook removes the book. A missing title is not an error.
func (t *tx) DeleteBook(ctx context.Context, title string) error {
	ds := t.backend.dialect.Delete(tableBooks).
		Where(goqu.C("title").Eq(title)).
		Prepared(true)
	n, err := t.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("deleting book %q: %w", title, err)
	}
	if n > 0 {
		t.dirty[tableBooks] = true
	}
	return nil
}

// ListBooks returns the books matching filter ordered by title.
// Never returns nil.
func (t *tx) ListBooks(ctx context.Context, filter types.BookFilter) ([]*types.Book, error) {
	ds := t.backend.dialect.From(tableBooks).
		Select(bookColumns...).
		Order(goqu.C("title").Asc()).
		Prepared(true)

	switch filter {
	case types.FilterAll:
	case types.FilterAvailable:
		ds = ds.Where(goqu.C("borrower_id").Eq(types.AvailableMarker))
	case types.FilterLoaned:
		ds = ds.Where(goqu.C("borrower_id").Neq(types.AvailableMarker))
	default:
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidFilter, filter)
	}

	var rows []bookRow
	if err := t.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	books := make([]*types.Book, 0, len(rows))
	for _, r := range rows {
		b, err := r.toBook()
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

// CountActiveLoans returns the number of books loaned to userID.
func (t *tx) CountActiveLoans(ctx context.Context, userID string) (int, error) {
	userID = types.NormalizeID(userID)
	var n int
	ds := t.backend.dialect.From(tableBooks).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("borrower_id").Eq(userID)).
		Prepared(true)
	if err := t.get(ctx, &n, ds); err != nil {
		return 0, fmt.Errorf("counting loans of %s: %w", userID, err)
	}
	return n, nil
}

// SetLoan writes the loan state of a book. nil marks it available.
// Returns ErrNotFound if the title does not exist.
func (t *tx) SetLoan(ctx context.Context, title string, loan *types.Loan) error {
	if loan != nil && types.NormalizeID(loan.BorrowerID) == "" {
		return fmt.Errorf("%w: loan without borrower", types.ErrInvalidData)
	}
	ds := t.backend.dialect.Update(tableBooks).
		Set(loanColumns(loan)).
		Where(goqu.C("title").Eq(title)).
		Prepared(true)
	n, err := t.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("setting loan of %q: %w", title, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: book %q", types.ErrNotFound, title)
	}
	t.dirty[tableBooks] = true
	return nil
}
