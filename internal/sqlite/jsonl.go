// This file persists SQLite tables to their JSONL files.

package sqlite

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/biblio/internal/jsonl"
)

// initJSONLFiles creates empty JSONL files that do not exist yet.
func initJSONLFiles(dataDir string) error {
	for _, f := range jsonlFiles {
		if err := jsonl.Touch(filepath.Join(dataDir, f.file)); err != nil {
			return err
		}
	}
	return nil
}

// persistTable reads every row of table and atomically rewrites its JSONL
// file. The caller must hold b.mu.
func (b *Backend) persistTable(ctx context.Context, table string) error {
	path := b.jsonlPath(table)
	b.logDebug("persisting JSONL", "table", table, "path", path)

	switch table {
	case tableUsers:
		var rows []userRow
		if err := b.selectForPersist(ctx, &rows, b.dialect.From(tableUsers).
			Select(userColumns...).Order(goqu.C("id").Asc())); err != nil {
			return err
		}
		return jsonl.WriteAll(path, rows)
	case tableBooks:
		var rows []bookRow
		if err := b.selectForPersist(ctx, &rows, b.dialect.From(tableBooks).
			Select(bookColumns...).Order(goqu.C("title").Asc())); err != nil {
			return err
		}
		return jsonl.WriteAll(path, rows)
	case tableLoanEvents:
		var rows []loanEventRow
		if err := b.selectForPersist(ctx, &rows, b.dialect.From(tableLoanEvents).
			Select(loanEventColumns...).Order(goqu.C("seq").Asc())); err != nil {
			return err
		}
		return jsonl.WriteAll(path, rows)
	default:
		return fmt.Errorf("no JSONL file for table %q", table)
	}
}

func (b *Backend) selectForPersist(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	if err := b.db.SelectContext(ctx, dest, query, args...); err != nil {
		return fmt.Errorf("querying for JSONL: %w", err)
	}
	return nil
}

// jsonlPath returns the JSONL file of table inside the data dir.
func (b *Backend) jsonlPath(table string) string {
	for _, f := range jsonlFiles {
		if f.table == table {
			return filepath.Join(b.config.DataDir, f.file)
		}
	}
	return ""
}
