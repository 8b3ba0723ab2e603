package memory

import (
	"context"
	"fmt"
	"testing"

	"foundrycore/pkg/domain"
)

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindCapture("missing"); ok {
			t.Fatalf("expected missing capture lookup")
		}
		created, err := tx.CreateCapture(domain.Capture{
			Base:  domain.Base{Owner: "alice"},
			Type:  domain.CaptureIdea,
			Title: "First",
		})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		if created.Status != domain.CaptureStatusDraft {
			t.Fatalf("expected draft default, got %s", created.Status)
		}
		if created.Priority != domain.PriorityMedium {
			t.Fatalf("expected medium default, got %s", created.Priority)
		}
		view := tx.Snapshot()
		if len(view.ListCaptures()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListCaptures()) != 1 {
		t.Fatalf("expected persisted capture")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListCaptures()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListCaptures()) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
}

func TestStoreRollbackOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateCapture(domain.Capture{Base: domain.Base{Owner: "alice"}, Type: domain.CaptureTask, Title: "kept?"}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
	if len(store.ListCaptures()) != 0 {
		t.Fatalf("expected no partial state after failed transaction")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateCapture(domain.Capture{Base: domain.Base{Owner: "alice"}, Type: domain.CaptureIdea, Title: "Fail"})
		return e
	})
	if err == nil {
		t.Fatalf("expected rule violation error")
	}
	if len(store.ListCaptures()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	res.Merge(domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}})
	return res, nil
}

func TestStoreWarningsSurfaceInResult(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(warningRule{})
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateCapture(domain.Capture{Base: domain.Base{Owner: "alice"}, Type: domain.CaptureIdea, Title: "Warned"})
		return e
	})
	if err != nil {
		t.Fatalf("warn severity must not block commit: %v", err)
	}
	if len(res.Warnings()) != 1 {
		t.Fatalf("expected one warning, got %d", len(res.Warnings()))
	}
	if len(store.ListCaptures()) != 1 {
		t.Fatalf("expected committed capture despite warning")
	}
}

type warningRule struct{}

func (warningRule) Name() string { return "warn" }

func (warningRule) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "warn", Severity: domain.SeverityWarn}}}, nil
}

func TestMigrateSnapshotClearsDanglingReferences(t *testing.T) {
	store := NewStore(nil)
	missing := "missing-parent"
	store.ImportState(Snapshot{
		Captures: map[string]Capture{
			"c1": {Base: domain.Base{ID: "c1", Owner: "alice"}, Type: domain.CaptureTask, Title: "orphan", ParentID: &missing},
		},
		Sprints: map[string]Sprint{
			"s1": {Base: domain.Base{ID: "s1", Owner: "alice"}, Name: "Sprint", CaptureIDs: []string{"c1", "c1", "ghost"}},
		},
		Documents: map[string]Document{
			"d1": {Base: domain.Base{ID: "d1", Owner: "alice"}, WorkspaceID: "ghost-ws", Title: "dropped"},
		},
	})
	c, ok := store.GetCapture("c1")
	if !ok {
		t.Fatalf("expected capture to survive")
	}
	if c.ParentID != nil {
		t.Fatalf("expected dangling parent to be cleared")
	}
	if c.Status != domain.CaptureStatusDraft || c.Priority != domain.PriorityMedium {
		t.Fatalf("expected defaults filled on import")
	}
	sp, _ := store.GetSprint("s1")
	if len(sp.CaptureIDs) != 1 || sp.CaptureIDs[0] != "c1" {
		t.Fatalf("expected deduped membership without ghosts, got %v", sp.CaptureIDs)
	}
	if _, ok := store.GetDocument("d1"); ok {
		t.Fatalf("expected document with missing workspace to be dropped")
	}
}

func TestViewIsolatedFromMutations(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, err := tx.CreateCapture(domain.Capture{Base: domain.Base{Owner: "alice"}, Type: domain.CaptureTask, Title: "One", Fields: map[string]domain.FieldValue{
			"labels": domain.LabelsValue("a"),
		}})
		id = c.ID
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.View(ctx, func(view domain.TransactionView) error {
		c, ok := view.FindCapture(id)
		if !ok {
			return fmt.Errorf("capture missing in view")
		}
		c.Fields["labels"] = domain.LabelsValue("mutated")
		c.Title = "mutated"
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	c, _ := store.GetCapture(id)
	if c.Title != "One" || c.Fields["labels"].Labels[0] != "a" {
		t.Fatalf("view mutation leaked into committed state")
	}
}
