package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var ErrNotFound = errors.New("not found")

func (s *Store) GetState(ctx context.Context, clientID, key string) (string, error) {
	q := s.sql.Select("value").
		From("client_state").
		Where(sq.Eq{"client_id": clientID, "key": key})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build get state query: %w", err)
	}

	var value string
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get state: %w", err)
	}
	return value, nil
}

func (s *Store) PutState(ctx context.Context, clientID, key, value string) error {
	q := s.sql.Insert("client_state").
		Columns("client_id", "key", "value", "updated_at").
		Values(clientID, key, value, nowExpr(s.driver)).
		Suffix("ON CONFLICT(client_id, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build put state query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("put state: %w", err)
	}
	return nil
}

func (s *Store) DeleteState(ctx context.Context, clientID, key string) error {
	q := s.sql.Delete("client_state").Where(sq.Eq{"client_id": clientID, "key": key})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete state query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

func (s *Store) ListState(ctx context.Context, clientID string) ([]StateEntry, error) {
	q := s.sql.Select("client_id", "key", "value", "updated_at").
		From("client_state").
		Where(sq.Eq{"client_id": clientID}).
		OrderBy("key ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list state query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	defer rows.Close()

	out := make([]StateEntry, 0)
	for rows.Next() {
		var e StateEntry
		if err := rows.Scan(&e.ClientID, &e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan state row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state rows: %w", err)
	}
	return out, nil
}

// DeleteClient drops every persisted key of one client. It returns the number
// of removed keys.
func (s *Store) DeleteClient(ctx context.Context, clientID string) (int64, error) {
	q := s.sql.Delete("client_state").Where(sq.Eq{"client_id": clientID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete client query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("delete client: %w", err)
	}
	return removedRows(res)
}

func removedRows(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete client rows affected: %w", err)
	}
	return n, nil
}

// ClientState scopes the key-value table to one client.
type ClientState struct {
	store    *Store
	clientID string
}

func (s *Store) ForClient(clientID string) *ClientState {
	return &ClientState{store: s, clientID: clientID}
}

func (c *ClientState) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.store.GetState(ctx, c.clientID, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *ClientState) Set(ctx context.Context, key, value string) error {
	return c.store.PutState(ctx, c.clientID, key, value)
}

func (c *ClientState) Delete(ctx context.Context, key string) error {
	return c.store.DeleteState(ctx, c.clientID, key)
}

func nowExpr(driver string) any {
	if driver == "postgres" {
		return sq.Expr("NOW()")
	}
	return sq.Expr("CURRENT_TIMESTAMP")
}
