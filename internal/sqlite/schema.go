// Package sqlite implements the SQLite storage backend for biblio.
package sqlite

// Table and file names.
const (
	tableUsers      = "users"
	tableBooks      = "books"
	tableLoanEvents = "loan_events"

	dbFileName         = "library.db"
	usersFileName      = "users.jsonl"
	booksFileName      = "books.jsonl"
	loanEventsFileName = "loan_events.jsonl"
)

// Schema DDL. borrower_id is not a foreign key: the lending engine checks
// that the borrower exists, the store does not.
const (
	createUsers = `CREATE TABLE users (
    id TEXT PRIMARY KEY,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL
);`

	createBooks = `CREATE TABLE books (
    title TEXT PRIMARY KEY,
    author TEXT NOT NULL,
    borrower_id TEXT NOT NULL DEFAULT '0',
    loan_date TEXT
);`

	createLoanEvents = `CREATE TABLE loan_events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    title TEXT NOT NULL,
    user_id TEXT NOT NULL,
    occurred_on TEXT NOT NULL
);`
)

// Index DDL for common queries.
const (
	idxBooksBorrower   = `CREATE INDEX idx_books_borrower ON books(borrower_id);`
	idxLoanEventsTitle = `CREATE INDEX idx_loan_events_title ON loan_events(title);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createUsers,
	createBooks,
	createLoanEvents,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxBooksBorrower,
	idxLoanEventsTitle,
}

// jsonlFiles maps each table to the JSONL file that is its source of truth.
// Load order follows this slice.
var jsonlFiles = []struct {
	table string
	file  string
}{
	{tableUsers, usersFileName},
	{tableBooks, booksFileName},
	{tableLoanEvents, loanEventsFileName},
}

// Column lists.
var (
	userColumns      = []any{"id", "first_name", "last_name"}
	bookColumns      = []any{"title", "author", "borrower_id", "loan_date"}
	loanEventColumns = []any{"event_id", "kind", "title", "user_id", "occurred_on"}
)
