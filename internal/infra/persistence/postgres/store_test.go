package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"foundrycore/internal/infra/persistence/postgres/testutil"
	"foundrycore/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			t.Fatalf("unexpected driver %q", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore("postgres://stub", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return store, conn
}

func TestStoreSnapshotsAfterCommit(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateCapture(domain.Capture{Base: domain.Base{Owner: "alice"}, Type: domain.CaptureTask, Title: "T"})
		return err
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	for _, bucket := range postgresBuckets {
		if _, ok := conn.State[bucket]; !ok {
			t.Fatalf("expected bucket %q persisted", bucket)
		}
	}
	if payload := string(conn.State["captures"]); !strings.Contains(payload, `"title":"T"`) {
		t.Fatalf("captures payload missing record: %s", payload)
	}
}

func TestStoreHydratesFromExistingSnapshot(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, err := tx.CreateCapture(domain.Capture{Base: domain.Base{Owner: "alice"}, Type: domain.CaptureIdea, Title: "Hydrate"})
		id = c.ID
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Reopen against the same stub state; the new store must hydrate it.
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) {
		db, fresh := testutil.NewStubDB()
		fresh.State = conn.State
		return db, nil
	})
	defer restore()
	reopened, err := NewStore("postgres://stub", nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.GetCapture(id)
	if !ok {
		t.Fatalf("expected hydrated capture")
	}
	if got.Title != "Hydrate" {
		t.Fatalf("unexpected capture: %+v", got)
	}
}

func TestStorePersistFailureSurfaces(t *testing.T) {
	store, conn := openStub(t)
	conn.FailCommit = true
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateCapture(domain.Capture{Base: domain.Base{Owner: "alice"}, Type: domain.CaptureTask, Title: "T"})
		return e
	})
	if err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore("", nil); err == nil {
		t.Fatalf("expected ping failure")
	}
}
