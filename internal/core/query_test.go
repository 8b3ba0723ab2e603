package core

import (
	"context"
	"testing"
	"time"

	"foundrycore/pkg/domain"
)

func seedQueryFixture(t *testing.T, svc *Service) (sprintID string, ids map[string]string) {
	t.Helper()
	ctx := context.Background()
	ids = make(map[string]string)

	specs := []struct {
		key      string
		capture  Capture
		inSprint bool
	}{
		{"idea", Capture{Type: CaptureIdea, Title: "Braindump"}, false},
		{"task", Capture{
			Type: CaptureTask, Title: "Write report", Priority: domain.PriorityHigh,
			Fields: map[string]FieldValue{"labels": domain.LabelsValue("work", "urgent")},
		}, true},
		{"project", Capture{
			Type: CaptureProject, Title: "Quarterly Plan",
			Fields: map[string]FieldValue{"labels": domain.LabelsValue("work")},
		}, false},
		{"done", Capture{Type: CaptureTask, Title: "Old chore", Status: domain.CaptureStatusCompleted}, false},
	}
	for _, spec := range specs {
		ids[spec.key] = mustCreateCapture(t, svc, "alice", spec.capture).ID
	}
	// A foreign record that must never appear in alice's listings.
	mustCreateCapture(t, svc, "bob", Capture{Type: CaptureTask, Title: "Write report"})

	sprint, _, err := svc.CreateSprint(ctx, "alice", Sprint{Name: "Iteration"})
	if err != nil {
		t.Fatalf("create sprint: %v", err)
	}
	for _, spec := range specs {
		if spec.inSprint {
			if _, _, err := svc.AddSprintCapture(ctx, "alice", sprint.ID, ids[spec.key]); err != nil {
				t.Fatalf("add member: %v", err)
			}
		}
	}
	return sprint.ID, ids
}

func TestListCapturesEmptyFilterReturnsAllOwned(t *testing.T) {
	svc := newTestService(t)
	seedQueryFixture(t, svc)
	page, err := svc.ListCaptures(context.Background(), "alice", CaptureFilter{}, Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 || len(page.Items) != 4 {
		t.Fatalf("expected all owned records, got total=%d items=%d", page.Total, len(page.Items))
	}
	if page.Limit != DefaultPageLimit {
		t.Fatalf("default limit not applied: %d", page.Limit)
	}
	for _, item := range page.Items {
		if item.Owner != "alice" {
			t.Fatalf("foreign record leaked: %+v", item.Base)
		}
	}
	for i := 1; i < len(page.Items); i++ {
		prev, cur := page.Items[i-1], page.Items[i]
		if cur.CreatedAt.Before(prev.CreatedAt) {
			t.Fatalf("listing not ordered by creation time")
		}
		if cur.CreatedAt.Equal(prev.CreatedAt) && cur.ID < prev.ID {
			t.Fatalf("id tiebreak not applied")
		}
	}
}

func TestListCapturesConjunctiveFilter(t *testing.T) {
	svc := newTestService(t)
	sprintID, ids := seedQueryFixture(t, svc)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter CaptureFilter
		want   []string
	}{
		{"by type", CaptureFilter{Types: []CaptureType{CaptureProject}}, []string{ids["project"]}},
		{"by status", CaptureFilter{Statuses: []CaptureStatus{domain.CaptureStatusCompleted}}, []string{ids["done"]}},
		{"by priority", CaptureFilter{Priorities: []Priority{domain.PriorityHigh}}, []string{ids["task"]}},
		{"by sprint", CaptureFilter{SprintID: &sprintID}, []string{ids["task"]}},
		{"labels all required", CaptureFilter{Labels: []string{"work", "urgent"}}, []string{ids["task"]}},
		{"single label", CaptureFilter{Labels: []string{"work"}}, []string{ids["task"], ids["project"]}},
		{"title substring", CaptureFilter{TitleContains: "REPORT"}, []string{ids["task"]}},
		{"conjunction", CaptureFilter{Types: []CaptureType{CaptureTask}, Labels: []string{"work"}}, []string{ids["task"]}},
		{"no match", CaptureFilter{Types: []CaptureType{CaptureCalendar}}, nil},
	}
	for _, tc := range cases {
		page, err := svc.ListCaptures(ctx, "alice", tc.filter, Page{})
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		got := make(map[string]struct{}, len(page.Items))
		for _, item := range page.Items {
			got[item.ID] = struct{}{}
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%s: expected %d records, got %d", tc.name, len(tc.want), len(got))
		}
		for _, id := range tc.want {
			if _, ok := got[id]; !ok {
				t.Fatalf("%s: missing %s", tc.name, id)
			}
		}
	}
}

func TestListCapturesCreatedRange(t *testing.T) {
	svc := newTestService(t)
	store, ok := svc.Store().(interface{ SetNowFunc(func() time.Time) })
	if !ok {
		t.Fatalf("store does not support a test clock")
	}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	current := base
	store.SetNowFunc(func() time.Time { return current })

	early := mustCreateCapture(t, svc, "alice", Capture{Type: CaptureIdea, Title: "Early"})
	current = base.Add(48 * time.Hour)
	late := mustCreateCapture(t, svc, "alice", Capture{Type: CaptureIdea, Title: "Late"})

	cutoff := base.Add(24 * time.Hour)
	page, err := svc.ListCaptures(context.Background(), "alice", CaptureFilter{CreatedAfter: &cutoff}, Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != late.ID {
		t.Fatalf("expected only late capture, got %+v", page.Items)
	}
	page, err = svc.ListCaptures(context.Background(), "alice", CaptureFilter{CreatedBefore: &cutoff}, Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != early.ID {
		t.Fatalf("expected only early capture, got %+v", page.Items)
	}
}

func TestListCapturesPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		mustCreateCapture(t, svc, "alice", Capture{Type: CaptureIdea, Title: "Item"})
	}

	first, err := svc.ListCaptures(ctx, "alice", CaptureFilter{}, Page{Limit: 3})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if first.Total != 7 || len(first.Items) != 3 {
		t.Fatalf("unexpected first page: total=%d items=%d", first.Total, len(first.Items))
	}
	last, err := svc.ListCaptures(ctx, "alice", CaptureFilter{}, Page{Offset: 6, Limit: 3})
	if err != nil {
		t.Fatalf("last page: %v", err)
	}
	if last.Total != 7 || len(last.Items) != 1 {
		t.Fatalf("unexpected last page: total=%d items=%d", last.Total, len(last.Items))
	}
	beyond, err := svc.ListCaptures(ctx, "alice", CaptureFilter{}, Page{Offset: 100})
	if err != nil {
		t.Fatalf("beyond: %v", err)
	}
	if beyond.Total != 7 || len(beyond.Items) != 0 {
		t.Fatalf("offset past end should return empty page: %+v", beyond)
	}
}

func TestListCapturesForeignSprintFilterMatchesNothing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	capture := mustCreateCapture(t, svc, "bob", Capture{Type: CaptureTask, Title: "Bob's"})
	sprint, _, err := svc.CreateSprint(ctx, "bob", Sprint{Name: "Bob's sprint"})
	if err != nil {
		t.Fatalf("create sprint: %v", err)
	}
	if _, _, err := svc.AddSprintCapture(ctx, "bob", sprint.ID, capture.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	page, err := svc.ListCaptures(ctx, "alice", CaptureFilter{SprintID: &sprint.ID}, Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("foreign sprint filter must not leak records: %+v", page)
	}
}
