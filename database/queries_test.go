package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/evently/walletpass/pass"
)

func TestLookupQuery(t *testing.T) {
	t.Parallel()

	query, err := lookupQuery("events", "name", 100)
	if err != nil {
		t.Fatal(err)
	}
	if query != `SELECT * FROM "events" WHERE "name" = $1 LIMIT 100` {
		t.Fatalf("unexpected query %q", query)
	}
	for _, testcase := range []struct{ table, field string }{
		{"events; DROP TABLE tickets", "id"},
		{"events", `name" OR 1=1 --`},
		{"", "id"},
		{"events", "1id"},
		{"public.events", "id"},
	} {
		if _, err := lookupQuery(testcase.table, testcase.field, 1); err == nil {
			t.Fatalf("expected %q.%q to be rejected", testcase.table, testcase.field)
		}
	}
}

func TestFindByField(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	name := "Gala " + suffix
	_, err := db.Exec(`INSERT INTO events(id, name, date, location) VALUES
		($1, $3, '2023-06-01T20:00:00Z', 'Old Hall'),
		($2, $3, '2024-06-01T20:00:00Z', 'New Hall')`, "E1-"+suffix, "E2-"+suffix, name)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`INSERT INTO tickets(id, event_id, ticket_code) VALUES ($1, $2, 'CODE-1')`, "T1-"+suffix, "E1-"+suffix)
	if err != nil {
		t.Fatal(err)
	}

	rec, err := db.FindByField(ctx, "tickets", "id", "T1-"+suffix)
	if err != nil {
		t.Fatalf("failed to find ticket: %v", err)
	}
	if rec["ticket_code"] != "CODE-1" || rec["event_id"] != "E1-"+suffix {
		t.Fatalf("unexpected ticket record %v", rec)
	}

	rec, err = db.FindByField(ctx, "events", "id", "E2-"+suffix)
	if err != nil {
		t.Fatalf("failed to find event: %v", err)
	}
	if _, ok := rec["date"].(time.Time); !ok {
		t.Fatalf("expected the event date as a time, got %T", rec["date"])
	}
	if rec["image_url"] != nil {
		t.Fatalf("expected a null image url, got %v", rec["image_url"])
	}

	recs, err := db.FindAllByField(ctx, "events", "name", name)
	if err != nil {
		t.Fatalf("failed to find events by name: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recs))
	}

	if _, err := db.FindByField(ctx, "tickets", "id", "missing-"+suffix); !errors.Is(err, pass.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	recs, err = db.FindAllByField(ctx, "events", "name", "missing-"+suffix)
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected no events and no error, got %d %v", len(recs), err)
	}
	if _, err := db.FindByField(ctx, "no_such_table", "id", "x"); err == nil {
		t.Fatal("expected an error querying a missing table")
	}
}

func TestCredentialStore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	name := fmt.Sprintf("pass-%d.p12", time.Now().UnixNano())
	if err := db.PutCredential(ctx, name, []byte{0x30, 0x82, 0x00}); err != nil {
		t.Fatal(err)
	}
	if err := db.PutCredential(ctx, name, []byte{0x30, 0x82, 0x01}); err != nil {
		t.Fatal(err)
	}
	data, err := db.Credentials().Get(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "\x30\x82\x01" {
		t.Fatalf("expected the replaced credential, got %x", data)
	}
	if _, err := db.Credentials().Get(ctx, "missing-"+name); err == nil {
		t.Fatal("expected an error for a missing credential")
	}
}
