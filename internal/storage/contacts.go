package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

func (s *Store) InsertContactRequest(ctx context.Context, r ContactRequest) (int64, error) {
	if r.Status == "" {
		r.Status = ContactPending
	}
	q := s.sql.Insert("contact_requests").
		Columns("client_id", "vendor_id", "vendor_email", "enc_payload", "status").
		Values(r.ClientID, r.VendorID, r.VendorEmail, r.EncPayload, r.Status)

	if s.driver == "postgres" {
		q = q.Suffix("RETURNING id")
		sqlStr, args, err := q.ToSql()
		if err != nil {
			return 0, fmt.Errorf("build contact insert query: %w", err)
		}
		var id int64
		if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert contact request: %w", err)
		}
		return id, nil
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build contact insert query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("insert contact request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("contact request id: %w", err)
	}
	return id, nil
}

func (s *Store) ListContactRequests(ctx context.Context, status string, limit uint64) ([]ContactRequest, error) {
	q := s.sql.Select("id", "client_id", "vendor_id", "vendor_email", "enc_payload", "status", "created_at").
		From("contact_requests").
		OrderBy("created_at ASC", "id ASC")
	if status != "" {
		q = q.Where(sq.Eq{"status": status})
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list contacts query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list contact requests: %w", err)
	}
	defer rows.Close()

	out := make([]ContactRequest, 0)
	for rows.Next() {
		var r ContactRequest
		if err := rows.Scan(&r.ID, &r.ClientID, &r.VendorID, &r.VendorEmail, &r.EncPayload, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact rows: %w", err)
	}
	return out, nil
}

func (s *Store) SetContactStatus(ctx context.Context, id int64, status string) error {
	q := s.sql.Update("contact_requests").
		Set("status", status).
		Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build contact status query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("set contact status: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) LogAction(ctx context.Context, e AuditEntry) error {
	if strings.TrimSpace(e.MetaJSON) == "" {
		e.MetaJSON = "{}"
	}
	if !json.Valid([]byte(e.MetaJSON)) {
		e.MetaJSON = "{}"
	}

	q := s.sql.Insert("audit_log").
		Columns("client_id", "action", "meta_json").
		Values(e.ClientID, e.Action, e.MetaJSON)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) CountActions(ctx context.Context, clientID, action string) (int64, error) {
	q := s.sql.Select("COUNT(*)").From("audit_log").Where(sq.Eq{"client_id": clientID, "action": action})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count actions query: %w", err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}

// UpdateContactPayload replaces the sealed payload of one row, used after a
// key rotation.
func (s *Store) UpdateContactPayload(ctx context.Context, id int64, encPayload string) error {
	q := s.sql.Update("contact_requests").
		Set("enc_payload", encPayload).
		Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build contact payload query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("update contact payload: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
