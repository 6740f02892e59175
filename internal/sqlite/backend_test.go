package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

func setupBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b, dir
}

func reattach(t *testing.T, b *Backend, config types.Config) *Backend {
	t.Helper()
	require.NoError(t, b.Detach())
	nb := NewBackend()
	require.NoError(t, nb.Attach(config))
	t.Cleanup(func() { nb.Detach() })
	return nb
}

func date(s string) time.Time {
	d, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBackend_Attach(t *testing.T) {
	b, dir := setupBackend(t)

	for _, name := range []string{dbFileName, usersFileName, booksFileName, loanEventsFileName} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir})
	assert.ErrorIs(t, err, types.ErrAlreadyAttached)
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config types.Config
		want   error
	}{
		{"empty backend", types.Config{DataDir: t.TempDir()}, types.ErrBackendEmpty},
		{"unknown backend", types.Config{Backend: "dolt", DataDir: t.TempDir()}, types.ErrBackendUnknown},
		{"unknown sync", types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(), SyncStrategy: "batch"}, types.ErrSyncStrategyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBackend().Attach(tt.config)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBackend_Detach(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should be a no-op")

	_, err := b.ListUsers(ctx)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, b.InsertUser(ctx, types.NewUser("12345678Z", "A", "B")), types.ErrStoreDetached)
}

func TestUsers_CRUD(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.InsertUser(ctx, types.NewUser("12345678z", "Ada", "Lovelace")))

	u, err := b.GetUser(ctx, "12345678Z")
	require.NoError(t, err)
	assert.Equal(t, "12345678Z", u.ID)
	assert.Equal(t, "Ada Lovelace", u.FullName())

	err = b.InsertUser(ctx, types.NewUser("12345678Z", "Other", "Person"))
	assert.ErrorIs(t, err, types.ErrDuplicateKey)

	require.NoError(t, b.UpdateUser(ctx, "12345678Z", "Augusta", "King"))
	u, err = b.GetUser(ctx, "12345678Z")
	require.NoError(t, err)
	assert.Equal(t, "Augusta", u.FirstName)
	assert.Equal(t, "King", u.LastName)

	require.NoError(t, b.InsertUser(ctx, types.NewUser("00000001R", "Alan", "Turing")))
	users, err := b.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "00000001R", users[0].ID)

	require.NoError(t, b.DeleteUser(ctx, "12345678Z"))
	require.NoError(t, b.DeleteUser(ctx, "12345678Z"), "delete is idempotent")
	_, err = b.GetUser(ctx, "12345678Z")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBooks_CRUD(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.InsertBook(ctx, types.NewBook("Dune", "Herbert")))
	err := b.InsertBook(ctx, types.NewBook("Dune", "Someone"))
	assert.ErrorIs(t, err, types.ErrDuplicateKey)

	bk, err := b.GetBook(ctx, "Dune")
	require.NoError(t, err)
	assert.True(t, bk.Available())
	assert.Equal(t, "Available", bk.Status())

	require.NoError(t, b.UpdateBook(ctx, "Dune", "Dune Messiah", "Frank Herbert"))
	_, err = b.GetBook(ctx, "Dune")
	assert.ErrorIs(t, err, types.ErrNotFound)
	bk, err = b.GetBook(ctx, "Dune Messiah")
	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", bk.Author)

	require.NoError(t, b.DeleteBook(ctx, "Dune Messiah"))
	require.NoError(t, b.DeleteBook(ctx, "Dune Messiah"))
	books, err := b.ListBooks(ctx, types.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.NotNil(t, books)
}

func TestBooks_UpdateToTakenTitle(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.InsertBook(ctx, types.NewBook("A", "x")))
	require.NoError(t, b.InsertBook(ctx, types.NewBook("B", "y")))

	err := b.UpdateBook(ctx, "A", "B", "z")
	assert.ErrorIs(t, err, types.ErrDuplicateKey)
}

func TestBooks_ListFilter(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.InsertBook(ctx, types.NewBook("Alpha", "a")))
	require.NoError(t, b.InsertBook(ctx, types.NewBook("Beta", "b")))
	require.NoError(t, b.InsertBook(ctx, types.NewBook("Gamma", "c")))
	require.NoError(t, b.SetLoan(ctx, "Beta", types.LoanedTo("12345678Z", date("2024-03-01"))))

	tests := []struct {
		filter types.BookFilter
		want   []string
	}{
		{types.FilterAll, []string{"Alpha", "Beta", "Gamma"}},
		{types.FilterAvailable, []string{"Alpha", "Gamma"}},
		{types.FilterLoaned, []string{"Beta"}},
	}
	for _, tt := range tests {
		t.Run(tt.filter.String(), func(t *testing.T) {
			books, err := b.ListBooks(ctx, tt.filter)
			require.NoError(t, err)
			var titles []string
			for _, bk := range books {
				titles = append(titles, bk.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	_, err := b.ListBooks(ctx, types.BookFilter(9))
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
}

func TestBooks_SetLoanAndCount(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.InsertBook(ctx, types.NewBook("One", "a")))
	require.NoError(t, b.InsertBook(ctx, types.NewBook("Two", "b")))
	require.NoError(t, b.SetLoan(ctx, "One", types.LoanedTo("12345678z", date("2024-01-10"))))
	require.NoError(t, b.SetLoan(ctx, "Two", types.LoanedTo("12345678Z", date("2024-01-11"))))

	n, err := b.CountActiveLoans(ctx, "12345678Z")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	bk, err := b.GetBook(ctx, "One")
	require.NoError(t, err)
	assert.Equal(t, "Loaned to 12345678Z since 2024-01-10", bk.Status())

	require.NoError(t, b.SetLoan(ctx, "One", nil))
	n, err = b.CountActiveLoans(ctx, "12345678Z")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = b.SetLoan(ctx, "Missing", nil)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBooks_RenameKeepsLoanAndHistory(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.InsertBook(ctx, types.NewBook("Old", "a")))
	require.NoError(t, b.SetLoan(ctx, "Old", types.LoanedTo("12345678Z", date("2024-02-02"))))
	require.NoError(t, b.AppendLoanEvent(ctx, &types.LoanEvent{
		Kind: types.LoanEventLent, Title: "Old", UserID: "12345678Z", OccurredOn: date("2024-02-02"),
	}))

	require.NoError(t, b.UpdateBook(ctx, "Old", "New", "b"))

	bk, err := b.GetBook(ctx, "New")
	require.NoError(t, err)
	require.NotNil(t, bk.Loan)
	assert.Equal(t, "12345678Z", bk.Loan.BorrowerID)

	events, err := b.ListLoanEvents(ctx, "New")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestUpdateMissing_LegacyAndStrict(t *testing.T) {
	ctx := context.Background()

	legacy, _ := setupBackend(t)
	assert.NoError(t, legacy.UpdateUser(ctx, "99999999R", "X", "Y"))
	assert.NoError(t, legacy.UpdateBook(ctx, "Nope", "Nope", "X"))
	users, err := legacy.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users, "silent update must not insert")

	strict := NewBackend()
	require.NoError(t, strict.Attach(types.Config{
		Backend: types.BackendSQLite, DataDir: t.TempDir(), StrictUpdate: true,
	}))
	t.Cleanup(func() { strict.Detach() })
	assert.ErrorIs(t, strict.UpdateUser(ctx, "99999999R", "X", "Y"), types.ErrNotFound)
	assert.ErrorIs(t, strict.UpdateBook(ctx, "Nope", "Nope", "X"), types.ErrNotFound)
}

func TestLoanEvents_AppendAndList(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	lent := &types.LoanEvent{Kind: types.LoanEventLent, Title: "A", UserID: "12345678z", OccurredOn: date("2024-01-01")}
	require.NoError(t, b.AppendLoanEvent(ctx, lent))
	assert.NotEmpty(t, lent.EventID)
	require.NoError(t, b.AppendLoanEvent(ctx, &types.LoanEvent{
		Kind: types.LoanEventReturned, Title: "A", UserID: "12345678Z", OccurredOn: date("2024-01-05"),
	}))
	require.NoError(t, b.AppendLoanEvent(ctx, &types.LoanEvent{
		Kind: types.LoanEventLent, Title: "B", UserID: "12345678Z", OccurredOn: date("2024-01-06"),
	}))

	events, err := b.ListLoanEvents(ctx, "A")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.LoanEventLent, events[0].Kind)
	assert.Equal(t, types.LoanEventReturned, events[1].Kind)
	assert.Equal(t, "12345678Z", events[0].UserID)

	all, err := b.ListLoanEvents(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	err = b.AppendLoanEvent(ctx, &types.LoanEvent{Kind: "stolen", Title: "A"})
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	err := b.Update(ctx, func(r types.Records) error {
		if err := r.InsertUser(ctx, types.NewUser("12345678Z", "A", "B")); err != nil {
			return err
		}
		return types.ErrLoanLimitExceeded
	})
	assert.ErrorIs(t, err, types.ErrLoanLimitExceeded)

	_, err = b.GetUser(ctx, "12345678Z")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPersistence_ReloadAfterReattach(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.InsertUser(ctx, types.NewUser("12345678Z", "Ada", "Lovelace")))
	require.NoError(t, b.InsertBook(ctx, types.NewBook("Dune", "Herbert")))
	require.NoError(t, b.InsertBook(ctx, types.NewBook("Emma", "Austen")))
	require.NoError(t, b.SetLoan(ctx, "Dune", types.LoanedTo("12345678Z", date("2023-05-06"))))
	require.NoError(t, b.AppendLoanEvent(ctx, &types.LoanEvent{
		Kind: types.LoanEventLent, Title: "Dune", UserID: "12345678Z", OccurredOn: date("2023-05-06"),
	}))

	b2 := reattach(t, b, types.Config{Backend: types.BackendSQLite, DataDir: dir})

	u, err := b2.GetUser(ctx, "12345678Z")
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", u.LastName)

	dune, err := b2.GetBook(ctx, "Dune")
	require.NoError(t, err)
	require.NotNil(t, dune.Loan)
	assert.Equal(t, date("2023-05-06"), dune.Loan.LoanDate)

	emma, err := b2.GetBook(ctx, "Emma")
	require.NoError(t, err)
	assert.True(t, emma.Available())

	events, err := b2.ListLoanEvents(ctx, "Dune")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPersistence_AvailableMarkerOnDisk(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.InsertBook(ctx, types.NewBook("Dune", "Herbert")))

	data, err := os.ReadFile(filepath.Join(dir, booksFileName))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"title":"Dune","author":"Herbert","borrower_id":"0","loan_date":null}`,
		string(data[:len(data)-1]))
}

func TestLoader_SkipsBadRecordsAndUnknownFields(t *testing.T) {
	dir := t.TempDir()
	users := `{"id":"12345678Z","first_name":"Ada","last_name":"Lovelace","nickname":"countess"}
not json
{"id":"12345678Z","first_name":"Dup","last_name":"Dup"}
{"first_name":"NoID"}
{"id":" 00000000t ","first_name":"Alan","last_name":"Turing"}
`
	books := `{"title":"Dune","author":"Herbert","borrower_id":"12345678Z","loan_date":"2022-01-01"}
{"title":"Emma","author":"Austen","borrower_id":"0","loan_date":null}
{"title":"Bad Date","author":"X","borrower_id":"12345678Z","loan_date":"not-a-date"}
{"title":"No Date","author":"X","borrower_id":"12345678Z","loan_date":null}
{"title":"Lower","author":"Y","borrower_id":"00000000t","loan_date":"2022-01-05"}
{"title":"Blank","author":"Z","borrower_id":"","loan_date":"2022-01-05"}
`
	events := `{"event_id":"e1","kind":"lent","title":"Lower","user_id":"00000000t","occurred_on":"2022-01-05"}
{"event_id":"e2","kind":"lent","title":"Dune","user_id":"12345678Z","occurred_on":"yesterday"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, usersFileName), []byte(users), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, booksFileName), []byte(books), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, loanEventsFileName), []byte(events), 0o644))

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	ctx := context.Background()

	all, err := b.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "00000000T", all[0].ID)
	assert.Equal(t, "Ada", all[1].FirstName)

	u, err := b.GetUser(ctx, "00000000T")
	require.NoError(t, err, "lower-case id on disk must be found by its normalized form")
	assert.Equal(t, "Alan", u.FirstName)

	listed, err := b.ListBooks(ctx, types.FilterAll)
	require.NoError(t, err, "a corrupt loan must not break listing")
	titles := make([]string, 0, len(listed))
	for _, bk := range listed {
		titles = append(titles, bk.Title)
	}
	assert.Equal(t, []string{"Blank", "Dune", "Emma", "Lower"}, titles)

	loaned, err := b.ListBooks(ctx, types.FilterLoaned)
	require.NoError(t, err)
	require.Len(t, loaned, 2)
	assert.Equal(t, "Dune", loaned[0].Title)
	assert.Equal(t, "Lower", loaned[1].Title)
	assert.Equal(t, "00000000T", loaned[1].Loan.BorrowerID)
	assert.Equal(t, date("2022-01-05"), loaned[1].Loan.LoanDate)

	n, err := b.CountActiveLoans(ctx, "00000000T")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	history, err := b.ListLoanEvents(ctx, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "00000000T", history[0].UserID)
}

func TestSyncStrategy_OnCloseDefersWrites(t *testing.T) {
	dir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir, SyncStrategy: types.SyncOnClose}
	b := NewBackend()
	require.NoError(t, b.Attach(config))
	ctx := context.Background()

	require.NoError(t, b.InsertUser(ctx, types.NewUser("12345678Z", "Ada", "Lovelace")))

	data, err := os.ReadFile(filepath.Join(dir, usersFileName))
	require.NoError(t, err)
	assert.Empty(t, data, "on_close must not write before Detach")

	require.NoError(t, b.Detach())

	data, err = os.ReadFile(filepath.Join(dir, usersFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "12345678Z")
}

func TestSyncStrategy_ImmediateWrites(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.InsertUser(ctx, types.NewUser("12345678Z", "Ada", "Lovelace")))

	data, err := os.ReadFile(filepath.Join(dir, usersFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "12345678Z")
}
