package types

import "time"

// Loan event kinds recorded in the loan history.
const (
	LoanEventLent     = "lent"
	LoanEventReturned = "returned"
)

// LoanEvent is one entry of the loan history of a book.
type LoanEvent struct {
	EventID    string    `json:"event_id"` // UUID v7, generated on append.
	Kind       string    `json:"kind"`     // LoanEventLent or LoanEventReturned.
	Title      string    `json:"title"`
	UserID     string    `json:"user_id"`
	OccurredOn time.Time `json:"occurred_on"` // Calendar date.
}

// OverdueLoan is a loaned book whose loan has run past the overdue threshold.
type OverdueLoan struct {
	Title       string    `json:"title"`
	UserID      string    `json:"user_id"`
	LoanDate    time.Time `json:"loan_date"`
	DaysElapsed int       `json:"days_elapsed"`
}
