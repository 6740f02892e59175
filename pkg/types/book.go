package types

import (
	"fmt"
	"strings"
	"time"
)

// AvailableMarker is the persisted borrower_id value of a book on the shelf.
// It never appears in memory: an available Book has a nil Loan.
const AvailableMarker = "0"

// DateLayout is the persisted calendar date format.
const DateLayout = "2006-01-02"

// Book is a catalog entry keyed by title.
type Book struct {
	Title  string `json:"title"`          // Primary key, unique.
	Author string `json:"author"`         // Mutable.
	Loan   *Loan  `json:"loan,omitempty"` // nil while the book is Available.
}

// Loan is the LoanedTo state of a book: who holds it and since when.
type Loan struct {
	BorrowerID string    `json:"borrower_id"`
	LoanDate   time.Time `json:"loan_date"` // Calendar date, UTC midnight.
}

// NewBook builds an available Book.
func NewBook(title, author string) *Book {
	return &Book{
		Title:  strings.TrimSpace(title),
		Author: strings.TrimSpace(author),
	}
}

// Available reports whether the book is on the shelf.
func (b *Book) Available() bool {
	return b.Loan == nil
}

// BorrowerID returns the persisted borrower value: the holder's id or
// AvailableMarker.
func (b *Book) BorrowerID() string {
	if b.Loan == nil {
		return AvailableMarker
	}
	return b.Loan.BorrowerID
}

// LoanedTo returns a Loan for userID on the calendar date of on.
func LoanedTo(userID string, on time.Time) *Loan {
	return &Loan{BorrowerID: NormalizeID(userID), LoanDate: DateOf(on)}
}

// Status is the human-readable loan state.
func (b *Book) Status() string {
	if b.Loan == nil {
		return "Available"
	}
	return fmt.Sprintf("Loaned to %s since %s", b.Loan.BorrowerID, b.Loan.LoanDate.Format(DateLayout))
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", ErrInvalidFormat, s, err)
	}
	return t, nil
}

// DaysBetween returns the number of whole calendar days from from to to.
func DaysBetween(from, to time.Time) int {
	return int((DateOf(to).Unix() - DateOf(from).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// BookFilter selects a subset of books by loan state.
type BookFilter int

// Book filters.
const (
	FilterAll BookFilter = iota
	FilterAvailable
	FilterLoaned
)

var bookFilterNames = map[BookFilter]string{
	FilterAll:       "all",
	FilterAvailable: "available",
	FilterLoaned:    "loaned",
}

// String returns the filter name.
func (f BookFilter) String() string {
	if name, ok := bookFilterNames[f]; ok {
		return name
	}
	return fmt.Sprintf("BookFilter(%d)", int(f))
}

// ParseBookFilter maps "all", "available" or "loaned" to a BookFilter. An
// empty string means FilterAll.
func ParseBookFilter(s string) (BookFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "available":
		return FilterAvailable, nil
	case "loaned":
		return FilterLoaned, nil
	default:
		return FilterAll, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}
