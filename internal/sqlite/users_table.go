package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

// userRow is both the SQLite row and the users.jsonl record.
type userRow struct {
	ID        string `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

func (r userRow) toUser() *types.User {
	return &types.User{ID: r.ID, FirstName: r.FirstName, LastName: r.LastName}
}

// InsertUser persists u. Returns ErrDuplicateKey if the id is taken.
func (t *tx) InsertUser(ctx context.Context, u *types.User) error {
	if u == nil {
		return types.ErrInvalidData
	}
	id := types.NormalizeID(u.ID)
	if id == "" {
		return fmt.Errorf("%w: empty user id", types.ErrInvalidData)
	}

	taken, err := t.exists(ctx, tableUsers, goqu.C("id").Eq(id))
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: user %s", types.ErrDuplicateKey, id)
	}

	ds := t.backend.dialect.Insert(tableUsers).
		Rows(goqu.Record{"id": id, "first_name": u.FirstName, "last_name": u.LastName}).
		Prepared(true)
	if _, err := t.exec(ctx, ds); err != nil {
		return fmt.Errorf("inserting user %s: %w", id, err)
	}
	u.ID = id
	t.dirty[tableUsers] = true
	return nil
}

// GetUser returns the user with the given id or ErrNotFound.
func (t *tx) GetUser(ctx context.Context, id string) (*types.User, error) {
	id = types.NormalizeID(id)
	var row userRow
	ds := t.backend.dialect.From(tableUsers).
		Select(userColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true)
	if err := t.get(ctx, &row, ds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return row.toUser(), nil
}

// UpdateUser replaces the name fields. Returns ErrNotFound if id is absent.
func (t *tx) UpdateUser(ctx context.Context, id, firstName, lastName string) error {
	id = types.NormalizeID(id)
	ds := t.backend.dialect.Update(tableUsers).
		Set(goqu.Record{"first_name": firstName, "last_name": lastName}).
		Where(goqu.C("id").Eq(id)).
		Prepared(true)
	n, err := t.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s", types.ErrNotFound, id)
	}
	t.dirty[tableUsers] = true
	return nil
}

// DeleteUser removes the user. A missing id is not an error.
func (t *tx) DeleteUser(ctx context.Context, id string) error {
	id = types.NormalizeID(id)
	ds := t.backend.dialect.Delete(tableUsers).
		Where(goqu.C("id").Eq(id)).
		Prepared(true)
	n, err := t.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	if n > 0 {
		t.dirty[tableUsers] = true
	}
	return nil
}

// ListUsers returns every user ordered by id. Never returns nil.
func (t *tx) ListUsers(ctx context.Context) ([]*types.User, error) {
	var rows []userRow
	ds := t.backend.dialect.From(tableUsers).
		Select(userColumns...).
		Order(goqu.C("id").Asc())
	if err := t.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]*types.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}
