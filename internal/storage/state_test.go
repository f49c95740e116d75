package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite3", ":memory:", true)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStatePutGetOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetState(ctx, "tg:1", "budget.v1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.PutState(ctx, "tg:1", "budget.v1", `[]`); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutState(ctx, "tg:1", "budget.v1", `[{"id":"a"}]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.GetState(ctx, "tg:1", "budget.v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != `[{"id":"a"}]` {
		t.Fatalf("unexpected value %q", got)
	}

	if _, err := s.GetState(ctx, "tg:2", "budget.v1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("state leaked across clients: %v", err)
	}
}

func TestClientStateScopesKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := s.ForClient("tg:1")
	b := s.ForClient("tg:2")
	if err := a.Set(ctx, "catalog.v1", "A"); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := b.Set(ctx, "catalog.v1", "B"); err != nil {
		t.Fatalf("set b: %v", err)
	}

	v, found, err := a.Get(ctx, "catalog.v1")
	if err != nil || !found || v != "A" {
		t.Fatalf("client a: v=%q found=%v err=%v", v, found, err)
	}
	if err := a.Delete(ctx, "catalog.v1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := a.Get(ctx, "catalog.v1"); found {
		t.Fatalf("expected key deleted")
	}
	if v, _, _ := b.Get(ctx, "catalog.v1"); v != "B" {
		t.Fatalf("client b affected by delete: %q", v)
	}
}

func TestDeleteClientAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"budget.v1", "catalog.v1", "client_state"} {
		if err := s.PutState(ctx, "tg:7", k, "{}"); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	entries, err := s.ListState(ctx, "tg:7")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 || entries[0].Key != "budget.v1" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	n, err := s.DeleteClient(ctx, "tg:7")
	if err != nil {
		t.Fatalf("delete client: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 removed keys, got %d", n)
	}
}

type noRowCount struct{ sql.Result }

func (noRowCount) RowsAffected() (int64, error) { return 0, errors.New("not supported by driver") }

func TestRemovedRowsSurfacesCountError(t *testing.T) {
	if _, err := removedRows(noRowCount{}); err == nil {
		t.Fatalf("expected rows affected error")
	}
	if n, err := removedRows(driverResult(2)); err != nil || n != 2 {
		t.Fatalf("got %d, %v", n, err)
	}
}

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return 0, nil }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }

func TestContactOutbox(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertContactRequest(ctx, ContactRequest{
		ClientID:    "tg:1",
		VendorID:    "3",
		VendorEmail: "bookings@djyassin.nl",
		EncPayload:  `{"key_id":"k1"}`,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := s.ListContactRequests(ctx, ContactPending, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id || pending[0].VendorID != "3" {
		t.Fatalf("unexpected pending rows %+v", pending)
	}

	if err := s.SetContactStatus(ctx, id, ContactDelivered); err != nil {
		t.Fatalf("set status: %v", err)
	}
	pending, err = s.ListContactRequests(ctx, ContactPending, 10)
	if err != nil {
		t.Fatalf("list after delivery: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}
	if err := s.SetContactStatus(ctx, id+100, ContactFailed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestLogActionSanitizesMeta(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.LogAction(ctx, AuditEntry{ClientID: "tg:1", Action: "vendor_add", MetaJSON: "not json"}); err != nil {
		t.Fatalf("log action: %v", err)
	}
	if err := s.LogAction(ctx, AuditEntry{ClientID: "tg:1", Action: "vendor_add"}); err != nil {
		t.Fatalf("log action: %v", err)
	}
	n, err := s.CountActions(ctx, "tg:1", "vendor_add")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
}
