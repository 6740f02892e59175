package cli

import (
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/biblio/internal/credential"
	"github.com/mesh-intelligence/biblio/internal/lending"
	"github.com/mesh-intelligence/biblio/internal/report"
	"github.com/mesh-intelligence/biblio/internal/sqlite"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

// bcryptCost is the hashing cost for new credentials. Tests lower it.
var bcryptCost = bcrypt.DefaultCost

// open attaches the store and builds the lending engine and credential
// registry from the loaded settings. Failing to attach is a system error.
func (a *app) open() error {
	store := sqlite.NewBackend(sqlite.WithLogger(a.logger.With("component", "store")))
	if err := store.Attach(a.settings.Config); err != nil {
		return fmt.Errorf("attach store: %w", err)
	}

	limits := store.Config().Lending
	lender, err := lending.New(store,
		lending.WithClock(now),
		lending.WithLogger(a.logger.With("component", "lending")),
		lending.WithMaxActiveLoans(limits.GetMaxActiveLoans()),
		lending.WithOverdueDays(limits.GetOverdueDays()),
	)
	if err != nil {
		store.Detach()
		return fmt.Errorf("configure lending: %w", err)
	}

	creds, err := credential.Open(a.settings.DataDir, credential.WithCost(bcryptCost))
	if err != nil {
		store.Detach()
		return err
	}

	a.store, a.lender, a.creds = store, lender, creds
	return nil
}

// close detaches the store if a command opened it.
func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Detach()
	a.store = nil
	if err != nil {
		return fmt.Errorf("detach store: %w", err)
	}
	return nil
}

// print renders v as JSON in --json mode, or with table otherwise.
func (a *app) print(w io.Writer, v any, table func(io.Writer) error) error {
	if a.flags.jsonMode {
		return report.JSON(w, v)
	}
	return table(w)
}

// printMessage prints a confirmation line, or {"message": ...} in --json mode.
func (a *app) printMessage(w io.Writer, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if a.flags.jsonMode {
		return report.JSON(w, map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

// checkUserID normalizes id and reports a malformed one as ErrInvalidFormat.
func checkUserID(id string) (string, error) {
	norm, err := types.CheckUserID(id)
	if err != nil {
		return "", fmt.Errorf("user id %q must be eight digits followed by a control letter: %w", id, err)
	}
	return norm, nil
}
