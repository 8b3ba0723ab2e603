package core

import (
	"context"
	"fmt"

	"foundrycore/pkg/domain"
)

// NewCaptureHierarchyRule returns the commit-time rule enforcing parent chain
// integrity: parents exist, share the child's owner, and chains stay acyclic
// within the depth bound.
func NewCaptureHierarchyRule() domain.Rule {
	return captureHierarchyRule{}
}

type captureHierarchyRule struct{}

func (captureHierarchyRule) Name() string { return "capture_hierarchy" }

func (captureHierarchyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, capture := range view.ListCaptures() {
		if capture.ParentID == nil {
			continue
		}
		if v, bad := checkChain(view, capture); bad {
			res.Violations = append(res.Violations, v)
		}
	}
	return res, nil
}

func checkChain(view domain.RuleView, capture domain.Capture) (domain.Violation, bool) {
	violation := func(msg string) domain.Violation {
		return domain.Violation{
			Rule:     "capture_hierarchy",
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   domain.EntityCapture,
			EntityID: capture.ID,
		}
	}
	seen := map[string]struct{}{capture.ID: {}}
	current := *capture.ParentID
	for depth := 1; ; depth++ {
		if depth > domain.MaxCaptureDepth {
			return violation(fmt.Sprintf("capture %s parent chain exceeds depth %d", capture.ID, domain.MaxCaptureDepth)), true
		}
		parent, ok := view.FindCapture(current)
		if !ok {
			return violation(fmt.Sprintf("capture %s references missing parent %s", capture.ID, current)), true
		}
		if parent.Owner != capture.Owner {
			return violation(fmt.Sprintf("capture %s parent %s has a different owner", capture.ID, current)), true
		}
		if _, cycles := seen[parent.ID]; cycles {
			return violation(fmt.Sprintf("capture %s parent chain contains a cycle", capture.ID)), true
		}
		seen[parent.ID] = struct{}{}
		if parent.ParentID == nil {
			return domain.Violation{}, false
		}
		current = *parent.ParentID
	}
}
