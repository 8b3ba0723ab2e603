package domain

import (
	"context"
	"errors"
	"testing"
)

type staticRule struct {
	name string
	res  Result
	err  error
}

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return r.res, r.err
}

type emptyView struct{}

func (emptyView) ListCaptures() []Capture               { return nil }
func (emptyView) ListSprints() []Sprint                 { return nil }
func (emptyView) ListWorkspaces() []Workspace           { return nil }
func (emptyView) ListDocuments() []Document             { return nil }
func (emptyView) ListTemplates() []Template             { return nil }
func (emptyView) FindCapture(string) (Capture, bool)    { return Capture{}, false }
func (emptyView) FindSprint(string) (Sprint, bool)      { return Sprint{}, false }
func (emptyView) FindWorkspace(string) (Workspace, bool) {
	return Workspace{}, false
}
func (emptyView) FindDocument(string) (Document, bool) { return Document{}, false }
func (emptyView) FindTemplate(string) (Template, bool) { return Template{}, false }

func TestResultMergeAndInspection(t *testing.T) {
	var res Result
	res.Merge(Result{})
	if len(res.Violations) != 0 {
		t.Fatalf("empty merge changed result")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "a", Severity: SeverityWarn}}})
	res.Merge(Result{Violations: []Violation{{Rule: "b", Severity: SeverityBlock}}})
	if len(res.Violations) != 2 {
		t.Fatalf("merge lost violations: %+v", res)
	}
	if !res.HasBlocking() {
		t.Fatalf("blocking violation not detected")
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "a" {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
}

func TestRulesEngineAggregates(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "warns", res: Result{Violations: []Violation{{Rule: "warns", Severity: SeverityWarn}}}})
	engine.Register(staticRule{name: "blocks", res: Result{Violations: []Violation{{Rule: "blocks", Severity: SeverityBlock}}}})

	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || !res.HasBlocking() {
		t.Fatalf("unexpected aggregate: %+v", res)
	}
}

func TestRulesEnginePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "ok"})
	engine.Register(staticRule{name: "fails", err: boom})

	if _, err := engine.Evaluate(context.Background(), emptyView{}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected rule error, got %v", err)
	}
}

func TestRuleViolationError(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{{Rule: "x", Severity: SeverityBlock}}}}
	if err.Error() == "" {
		t.Fatalf("empty error message")
	}
	var rve RuleViolationError
	if !errors.As(error(err), &rve) || len(rve.Result.Violations) != 1 {
		t.Fatalf("violations not carried: %+v", rve)
	}
}

func TestTypedErrorPredicates(t *testing.T) {
	if !IsNotFound(NotFoundError{Entity: EntityCapture, ID: "x"}) {
		t.Fatalf("IsNotFound failed")
	}
	if !IsNotOwner(NotOwnerError{Entity: EntityTemplate, ID: "x"}) {
		t.Fatalf("IsNotOwner failed")
	}
	if !IsInvalidField(InvalidFieldError{CaptureType: CaptureTask, Field: "f"}) {
		t.Fatalf("IsInvalidField failed")
	}
	if IsNotFound(errors.New("other")) || IsNotOwner(nil) || IsInvalidField(nil) {
		t.Fatalf("predicates matched unrelated errors")
	}
}
