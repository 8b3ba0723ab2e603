package domain

import "testing"

func TestValidCaptureStatus(t *testing.T) {
	for _, valid := range []CaptureStatus{
		CaptureStatusDraft, CaptureStatusActive, CaptureStatusInProgress,
		CaptureStatusBlocked, CaptureStatusCompleted, CaptureStatusArchived,
		CaptureStatusCancelled,
	} {
		if !ValidCaptureStatus(valid) {
			t.Fatalf("%s should be valid", valid)
		}
	}
	if ValidCaptureStatus("") || ValidCaptureStatus("paused") {
		t.Fatalf("unknown status accepted")
	}
}

func TestValidPriority(t *testing.T) {
	for _, valid := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		if !ValidPriority(valid) {
			t.Fatalf("%s should be valid", valid)
		}
	}
	if ValidPriority("") || ValidPriority("urgent") {
		t.Fatalf("unknown priority accepted")
	}
}

func TestValidSprintStatus(t *testing.T) {
	for _, valid := range []SprintStatus{
		SprintStatusPlanning, SprintStatusActive, SprintStatusReview,
		SprintStatusCompleted, SprintStatusCancelled,
	} {
		if !ValidSprintStatus(valid) {
			t.Fatalf("%s should be valid", valid)
		}
	}
	if ValidSprintStatus("") || ValidSprintStatus("retro") {
		t.Fatalf("unknown sprint status accepted")
	}
}
