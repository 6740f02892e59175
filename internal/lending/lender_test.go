package lending_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/biblio/internal/lending"
	"github.com/mesh-intelligence/biblio/internal/sqlite"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

func day(s string) time.Time {
	d, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedClock(s string) func() time.Time {
	return func() time.Time { return day(s) }
}

func setupStore(t *testing.T) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func setupLender(t *testing.T, store types.Store, opts ...lending.Option) *lending.Lender {
	t.Helper()
	l, err := lending.New(store, opts...)
	require.NoError(t, err)
	return l
}

func seed(t *testing.T, store types.Store, userIDs []string, titles []string) {
	t.Helper()
	ctx := context.Background()
	for i, id := range userIDs {
		require.NoError(t, store.InsertUser(ctx, types.NewUser(id, fmt.Sprintf("First%d", i), "Last")))
	}
	for _, title := range titles {
		require.NoError(t, store.InsertBook(ctx, types.NewBook(title, "Author")))
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	store := setupStore(t)

	_, err := lending.New(store, lending.WithMaxActiveLoans(0))
	assert.ErrorIs(t, err, lending.ErrInvalidLoanLimit)

	_, err = lending.New(store, lending.WithOverdueDays(-1))
	assert.ErrorIs(t, err, lending.ErrInvalidOverdueAge)

	_, err = lending.New(store, lending.WithClock(nil))
	assert.ErrorIs(t, err, lending.ErrNilClock)

	_, err = lending.New(nil)
	assert.Error(t, err)
}

func TestBorrow_Success(t *testing.T) {
	store := setupStore(t)
	seed(t, store, []string{"12345678Z"}, []string{"Dune"})
	l := setupLender(t, store, lending.WithClock(fixedClock("2024-03-10")))
	ctx := context.Background()

	book, err := l.Borrow(ctx, "Dune", "12345678z")
	require.NoError(t, err)
	require.NotNil(t, book.Loan)
	assert.Equal(t, "12345678Z", book.Loan.BorrowerID)
	assert.Equal(t, day("2024-03-10"), book.Loan.LoanDate)

	stored, err := store.GetBook(ctx, "Dune")
	require.NoError(t, err)
	assert.Equal(t, book.Loan, stored.Loan)

	events, err := l.History(ctx, "Dune")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.LoanEventLent, events[0].Kind)
}

func TestBorrow_Failures(t *testing.T) {
	store := setupStore(t)
	seed(t, store, []string{"12345678Z", "00000000T"}, []string{"Dune", "Emma"})
	l := setupLender(t, store, lending.WithClock(fixedClock("2024-03-10")))
	ctx := context.Background()

	_, err := l.Borrow(ctx, "Emma", "00000000T")
	require.NoError(t, err)

	tests := []struct {
		name   string
		title  string
		userID string
		want   error
	}{
		{"unknown user", "Dune", "99999999R", types.ErrUnknownUser},
		{"unknown user and unknown book", "Nope", "99999999R", types.ErrUnknownUser},
		{"unknown book", "Nope", "12345678Z", types.ErrUnknownBook},
		{"already loaned", "Emma", "12345678Z", types.ErrAlreadyLoaned},
		{"already loaned to same user", "Emma", "00000000T", types.ErrAlreadyLoaned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Borrow(ctx, tt.title, tt.userID)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	dune, err := store.GetBook(ctx, "Dune")
	require.NoError(t, err)
	assert.True(t, dune.Available(), "failed borrows must not change state")
}

func TestBorrow_LoanLimit(t *testing.T) {
	store := setupStore(t)
	titles := []string{"B1", "B2", "B3", "B4"}
	seed(t, store, []string{"12345678Z"}, titles)
	l := setupLender(t, store, lending.WithClock(fixedClock("2024-03-10")))
	ctx := context.Background()

	for _, title := range titles[:3] {
		_, err := l.Borrow(ctx, title, "12345678Z")
		require.NoError(t, err, title)
	}

	_, err := l.Borrow(ctx, "B4", "12345678Z")
	assert.ErrorIs(t, err, types.ErrLoanLimitExceeded)

	b4, err := store.GetBook(ctx, "B4")
	require.NoError(t, err)
	assert.True(t, b4.Available())
	assert.Equal(t, types.AvailableMarker, b4.BorrowerID())

	events, err := l.History(ctx, "B4")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestBorrow_CustomLimit(t *testing.T) {
	store := setupStore(t)
	seed(t, store, []string{"12345678Z"}, []string{"B1", "B2"})
	l := setupLender(t, store, lending.WithMaxActiveLoans(1))
	ctx := context.Background()

	_, err := l.Borrow(ctx, "B1", "12345678Z")
	require.NoError(t, err)
	_, err = l.Borrow(ctx, "B2", "12345678Z")
	assert.ErrorIs(t, err, types.ErrLoanLimitExceeded)
	assert.Equal(t, 1, l.MaxActiveLoans())
}

func TestReturn(t *testing.T) {
	store := setupStore(t)
	seed(t, store, []string{"12345678Z"}, []string{"Dune"})
	l := setupLender(t, store, lending.WithClock(fixedClock("2024-03-10")))
	ctx := context.Background()

	before, err := store.GetBook(ctx, "Dune")
	require.NoError(t, err)

	_, err = l.Return(ctx, "Dune")
	assert.ErrorIs(t, err, types.ErrNotLoaned)
	_, err = l.Return(ctx, "Nope")
	assert.ErrorIs(t, err, types.ErrUnknownBook)

	_, err = l.Borrow(ctx, "Dune", "12345678Z")
	require.NoError(t, err)
	book, err := l.Return(ctx, "Dune")
	require.NoError(t, err)
	assert.True(t, book.Available())

	after, err := store.GetBook(ctx, "Dune")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	n, err := store.CountActiveLoans(ctx, "12345678Z")
	require.NoError(t, err)
	assert.Zero(t, n)

	events, err := l.History(ctx, "Dune")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.LoanEventReturned, events[1].Kind)
	assert.Equal(t, "12345678Z", events[1].UserID)
}

func TestOverdueLoans(t *testing.T) {
	store := setupStore(t)
	seed(t, store, []string{"12345678Z"}, []string{"Old", "Recent", "Shelf"})
	ctx := context.Background()

	setupLender(t, store, lending.WithClock(fixedClock("2022-01-01"))).Borrow(ctx, "Old", "12345678Z")
	setupLender(t, store, lending.WithClock(fixedClock("2022-02-05"))).Borrow(ctx, "Recent", "12345678Z")

	l := setupLender(t, store)
	got, err := l.OverdueLoans(ctx, day("2022-02-15"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Old", got[0].Title)
	assert.Equal(t, "12345678Z", got[0].UserID)
	assert.Equal(t, 45, got[0].DaysElapsed)

	strict := setupLender(t, store, lending.WithOverdueDays(5))
	got, err = strict.OverdueLoans(ctx, day("2022-02-15"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRemoveUser(t *testing.T) {
	store := setupStore(t)
	seed(t, store, []string{"12345678Z", "00000000T"}, []string{"Dune"})
	l := setupLender(t, store)
	ctx := context.Background()

	_, err := l.Borrow(ctx, "Dune", "12345678Z")
	require.NoError(t, err)

	err = l.RemoveUser(ctx, "12345678Z")
	assert.ErrorIs(t, err, types.ErrUserHasLoans)
	_, err = store.GetUser(ctx, "12345678Z")
	assert.NoError(t, err)

	require.NoError(t, l.RemoveUser(ctx, "00000000T"))
	require.NoError(t, l.RemoveUser(ctx, "00000000T"), "removing twice succeeds")
	_, err = store.GetUser(ctx, "00000000T")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBorrow_ConcurrentSameBook(t *testing.T) {
	store := setupStore(t)
	users := []string{"00000001R", "00000002W", "00000003A", "00000004G", "00000005M", "00000006Y"}
	seed(t, store, users, []string{"Dune"})
	l := setupLender(t, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, id := range users {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = l.Borrow(ctx, "Dune", id)
		}(i, id)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, types.ErrAlreadyLoaned)
	}
	assert.Equal(t, 1, wins)

	events, err := l.History(ctx, "Dune")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestBorrow_ConcurrentLoanLimit(t *testing.T) {
	store := setupStore(t)
	titles := []string{"B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8"}
	seed(t, store, []string{"12345678Z"}, titles)
	l := setupLender(t, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, len(titles))
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			_, errs[i] = l.Borrow(ctx, title, "12345678Z")
		}(i, title)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, types.ErrLoanLimitExceeded):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, types.DefaultMaxActiveLoans, wins)

	n, err := store.CountActiveLoans(ctx, "12345678Z")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultMaxActiveLoans, n)
}
