package sqlite

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

// loanEventRow is both the SQLite row and the loan_events.jsonl record.
// seq only orders rows inside SQLite; file order carries it on disk.
type loanEventRow struct {
	EventID    string `db:"event_id" json:"event_id"`
	Kind       string `db:"kind" json:"kind"`
	Title      string `db:"title" json:"title"`
	UserID     string `db:"user_id" json:"user_id"`
	OccurredOn string `db:"occurred_on" json:"occurred_on"`
}

func (r loanEventRow) toLoanEvent() (*types.LoanEvent, error) {
	on, err := types.ParseDate(r.OccurredOn)
	if err != nil {
		return nil, fmt.Errorf("parsing occurred_on of event %s: %w", r.EventID, err)
	}
	return &types.LoanEvent{
		EventID:    r.EventID,
		Kind:       r.Kind,
		Title:      r.Title,
		UserID:     r.UserID,
		OccurredOn: on,
	}, nil
}

// newUUID generates a UUID v7 string.
func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating UUID v7: %w", err)
	}
	return id.String(), nil
}

// AppendLoanEvent records e in the loan history and sets e.EventID.
func (t *tx) AppendLoanEvent(ctx context.Context, e *types.LoanEvent) error {
	if e == nil || e.Title == "" {
		return types.ErrInvalidData
	}
	switch e.Kind {
	case types.LoanEventLent, types.LoanEventReturned:
	default:
		return fmt.Errorf("%w: loan event kind %q", types.ErrInvalidData, e.Kind)
	}

	id, err := newUUID()
	if err != nil {
		return err
	}
	ds := t.backend.dialect.Insert(tableLoanEvents).
		Rows(goqu.Record{
			"event_id":    id,
			"kind":        e.Kind,
			"title":       e.Title,
			"user_id":     types.NormalizeID(e.UserID),
			"occurred_on": types.DateOf(e.OccurredOn).Format(types.DateLayout),
		}).
		Prepared(true)
	if _, err := t.exec(ctx, ds); err != nil {
		return fmt.Errorf("appending loan event: %w", err)
	}
	e.EventID = id
	t.dirty[tableLoanEvents] = true
	return nil
}

// ListLoanEvents returns the history of title in append order, or the
// whole history when title is empty.
func (t *tx) ListLoanEvents(ctx context.Context, title string) ([]*types.LoanEvent, error) {
	ds := t.backend.dialect.From(tableLoanEvents).
		Select(loanEventColumns...).
		Order(goqu.C("seq").Asc()).
		Prepared(true)
	if title != "" {
		ds = ds.Where(goqu.C("title").Eq(title))
	}

	var rows []loanEventRow
	if err := t.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("listing loan events: %w", err)
	}
	events := make([]*types.LoanEvent, 0, len(rows))
	for _, r := range rows {
		e, err := r.toLoanEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
