package core

import (
	"sort"
	"strings"
	"time"

	"foundrycore/pkg/domain"
)

// DefaultPageLimit caps a page when the caller does not specify a limit.
const DefaultPageLimit = 50

// CaptureFilter selects captures by conjunction of its populated criteria.
// Ownership filtering is applied before any criterion and cannot be bypassed.
type CaptureFilter struct {
	Types         []CaptureType
	Statuses      []CaptureStatus
	Priorities    []Priority
	ParentID      *string
	SprintID      *string
	Labels        []string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	TitleContains string
}

// Page selects a window of an ordered result set.
type Page struct {
	Offset int
	Limit  int
}

// CapturePage is one window of a filtered capture listing.
type CapturePage struct {
	Items  []Capture `json:"items"`
	Total  int       `json:"total"`
	Offset int       `json:"offset"`
	Limit  int       `json:"limit"`
}

func queryCaptures(view TransactionView, caller Principal, filter CaptureFilter, page Page) CapturePage {
	var sprintMembers map[string]struct{}
	if filter.SprintID != nil {
		sprintMembers = make(map[string]struct{})
		if sprint, ok := view.FindSprint(*filter.SprintID); ok && sprint.Owner == caller {
			for _, id := range sprint.CaptureIDs {
				sprintMembers[id] = struct{}{}
			}
		}
	}

	var matched []Capture
	for _, capture := range view.ListCaptures() {
		if capture.Owner != caller {
			continue
		}
		if !filter.matches(capture, sprintMembers) {
			continue
		}
		matched = append(matched, capture)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return CapturePage{Items: matched[offset:end], Total: total, Offset: offset, Limit: limit}
}

func (f CaptureFilter) matches(c Capture, sprintMembers map[string]struct{}) bool {
	if len(f.Types) > 0 && !containsCaptureType(f.Types, c.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, c.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, c.Priority) {
		return false
	}
	if f.ParentID != nil {
		if c.ParentID == nil || *c.ParentID != *f.ParentID {
			return false
		}
	}
	if sprintMembers != nil {
		if _, ok := sprintMembers[c.ID]; !ok {
			return false
		}
	}
	if len(f.Labels) > 0 && !hasAllLabels(c, f.Labels) {
		return false
	}
	if f.CreatedAfter != nil && c.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && c.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	if f.TitleContains != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.TitleContains)) {
		return false
	}
	return true
}

func hasAllLabels(c Capture, wanted []string) bool {
	value, ok := c.Fields["labels"]
	if !ok || value.Kind != domain.FieldLabels {
		return false
	}
	have := make(map[string]struct{}, len(value.Labels))
	for _, label := range value.Labels {
		have[label] = struct{}{}
	}
	for _, label := range wanted {
		if _, ok := have[label]; !ok {
			return false
		}
	}
	return true
}

func containsCaptureType(set []CaptureType, t CaptureType) bool {
	for _, candidate := range set {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsStatus(set []CaptureStatus, s CaptureStatus) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(set []Priority, p Priority) bool {
	for _, candidate := range set {
		if candidate == p {
			return true
		}
	}
	return false
}
