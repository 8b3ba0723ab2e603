package core

import (
	"context"
	"fmt"

	"foundrycore/pkg/domain"
)

// NewReferenceIntegrityRule returns the commit-time rule verifying that every
// cross-record reference resolves to an existing record with the same owner:
// sprint memberships, document anchors and folder nodes, and capture `related`
// field references.
func NewReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(entity domain.EntityType, id, msg string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "reference_integrity",
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   entity,
			EntityID: id,
		})
	}

	for _, sprint := range view.ListSprints() {
		for _, captureID := range sprint.CaptureIDs {
			capture, ok := view.FindCapture(captureID)
			if !ok {
				block(domain.EntitySprint, sprint.ID, fmt.Sprintf("sprint %s references missing capture %s", sprint.ID, captureID))
				continue
			}
			if capture.Owner != sprint.Owner {
				block(domain.EntitySprint, sprint.ID, fmt.Sprintf("sprint %s references capture %s with a different owner", sprint.ID, captureID))
			}
		}
	}

	for _, document := range view.ListDocuments() {
		workspace, ok := view.FindWorkspace(document.WorkspaceID)
		if !ok {
			block(domain.EntityDocument, document.ID, fmt.Sprintf("document %s references missing workspace %s", document.ID, document.WorkspaceID))
			continue
		}
		if workspace.Owner != document.Owner {
			block(domain.EntityDocument, document.ID, fmt.Sprintf("document %s references workspace %s with a different owner", document.ID, document.WorkspaceID))
			continue
		}
		if document.FolderNodeID != nil {
			if _, ok := domain.FindFolderNode(workspace.Folders, *document.FolderNodeID); !ok {
				block(domain.EntityDocument, document.ID, fmt.Sprintf("document %s references missing folder node %s", document.ID, *document.FolderNodeID))
			}
		}
	}

	for _, capture := range view.ListCaptures() {
		for _, relatedID := range capture.RelatedCaptureIDs() {
			related, ok := view.FindCapture(relatedID)
			if !ok {
				block(domain.EntityCapture, capture.ID, fmt.Sprintf("capture %s references missing capture %s", capture.ID, relatedID))
				continue
			}
			if related.Owner != capture.Owner {
				block(domain.EntityCapture, capture.ID, fmt.Sprintf("capture %s references capture %s with a different owner", capture.ID, relatedID))
			}
		}
	}

	return res, nil
}
