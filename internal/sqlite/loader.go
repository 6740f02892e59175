// This file loads the JSONL files into SQLite on Attach.

package sqlite

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/biblio/internal/jsonl"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

// loadAllJSONL reads each JSONL file from the data dir and inserts its
// records in one transaction: all load or the database stays empty.
// Malformed lines, records that violate a constraint (for example a
// repeated primary key) and loans or events without a valid date are
// skipped. Ids are normalized to upper case. Unknown fields are ignored.
func (b *Backend) loadAllJSONL(ctx context.Context) error {
	sqlTx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var loaded, skipped int
	insert := func(table string, rec goqu.Record) error {
		query, args, err := b.dialect.Insert(table).Rows(rec).Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("building insert for %s: %w", table, err)
		}
		if _, err := sqlTx.ExecContext(ctx, query, args...); err != nil {
			skipped++
			return nil
		}
		loaded++
		return nil
	}

	users, err := jsonl.ReadAll[userRow](b.jsonlPath(tableUsers))
	if err != nil {
		return fmt.Errorf("reading %s: %w", usersFileName, err)
	}
	for _, u := range users {
		id := types.NormalizeID(u.ID)
		if id == "" {
			skipped++
			continue
		}
		if err := insert(tableUsers, goqu.Record{
			"id": id, "first_name": u.FirstName, "last_name": u.LastName,
		}); err != nil {
			return err
		}
	}

	books, err := jsonl.ReadAll[bookRow](b.jsonlPath(tableBooks))
	if err != nil {
		return fmt.Errorf("reading %s: %w", booksFileName, err)
	}
	for _, bk := range books {
		if bk.Title == "" {
			skipped++
			continue
		}
		borrower := types.NormalizeID(bk.BorrowerID)
		var loanDate any
		if borrower == "" || borrower == types.AvailableMarker {
			borrower = types.AvailableMarker
		} else {
			// A loaned book must carry a valid loan_date.
			if bk.LoanDate == nil {
				skipped++
				continue
			}
			d, err := types.ParseDate(*bk.LoanDate)
			if err != nil {
				skipped++
				continue
			}
			loanDate = d.Format(types.DateLayout)
		}
		if err := insert(tableBooks, goqu.Record{
			"title": bk.Title, "author": bk.Author,
			"borrower_id": borrower, "loan_date": loanDate,
		}); err != nil {
			return err
		}
	}

	events, err := jsonl.ReadAll[loanEventRow](b.jsonlPath(tableLoanEvents))
	if err != nil {
		return fmt.Errorf("reading %s: %w", loanEventsFileName, err)
	}
	for _, e := range events {
		if e.EventID == "" || e.Title == "" {
			skipped++
			continue
		}
		if _, err := types.ParseDate(e.OccurredOn); err != nil {
			skipped++
			continue
		}
		if err := insert(tableLoanEvents, goqu.Record{
			"event_id": e.EventID, "kind": e.Kind, "title": e.Title,
			"user_id": types.NormalizeID(e.UserID), "occurred_on": e.OccurredOn,
		}); err != nil {
			return err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	b.logDebug("loaded JSONL", "records", loaded, "skipped", skipped)
	return nil
}
