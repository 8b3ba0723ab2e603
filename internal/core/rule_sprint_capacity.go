package core

import (
	"context"
	"fmt"

	"foundrycore/pkg/domain"
)

// NewSprintCapacityRule returns the advisory rule comparing each sprint's
// committed load (sum of member estimate fields) against its capacity.
// Over-capacity commits succeed with a warning.
func NewSprintCapacityRule() domain.Rule {
	return sprintCapacityRule{}
}

type sprintCapacityRule struct{}

func (sprintCapacityRule) Name() string { return "sprint_capacity" }

func (sprintCapacityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, sprint := range view.ListSprints() {
		if sprint.Capacity == nil {
			continue
		}
		var load float64
		for _, captureID := range sprint.CaptureIDs {
			if capture, ok := view.FindCapture(captureID); ok {
				load += capture.Estimate()
			}
		}
		if load > *sprint.Capacity {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "sprint_capacity",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("sprint %s (%s) over capacity: %.1f/%.1f points", sprint.Name, sprint.ID, load, *sprint.Capacity),
				Entity:   domain.EntitySprint,
				EntityID: sprint.ID,
			})
		}
	}
	return res, nil
}
