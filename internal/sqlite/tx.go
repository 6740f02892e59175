package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

// Compile-time interface check.
var _ types.Records = (*tx)(nil)

// tx implements Records over one SQL transaction and remembers which
// tables it wrote so the backend can persist them after commit.
type tx struct {
	backend *Backend
	tx      *sqlx.Tx
	dirty   map[string]bool
}

func newTx(b *Backend, sqlTx *sqlx.Tx) *tx {
	return &tx{backend: b, tx: sqlTx, dirty: make(map[string]bool)}
}

// sqlBuilder is implemented by every goqu dataset.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// exec builds and runs a write statement, returning the rows affected.
func (t *tx) exec(ctx context.Context, ds sqlBuilder) (int64, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("building statement: %w", err)
	}
	t.backend.logDebug("exec", "query", query)
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// get builds a select and scans one row into dest.
// Returns sql.ErrNoRows unchanged so callers can map it.
func (t *tx) get(ctx context.Context, dest any, ds sqlBuilder) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	t.backend.logDebug("get", "query", query)
	return t.tx.GetContext(ctx, dest, query, args...)
}

// selectAll builds a select and scans every row into dest.
func (t *tx) selectAll(ctx context.Context, dest any, ds sqlBuilder) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	t.backend.logDebug("select", "query", query)
	return t.tx.SelectContext(ctx, dest, query, args...)
}

// exists reports whether table has a row matching where.
func (t *tx) exists(ctx context.Context, table string, where exp.Expression) (bool, error) {
	var one int
	ds := t.backend.dialect.From(table).
		Select(goqu.L("1")).
		Where(where).
		Limit(1).
		Prepared(true)
	err := t.get(ctx, &one, ds)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s existence: %w", table, err)
	}
	return true, nil
}
