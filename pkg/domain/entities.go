// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by foundrycore.
package domain

import "time"

// Principal identifies the owner of a record. Values are opaque identity
// strings resolved by the external auth layer.
type Principal string

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCapture identifies a user-authored capture record.
	EntityCapture EntityType = "capture"
	// EntitySprint identifies a sprint record.
	EntitySprint EntityType = "sprint"
	// EntityWorkspace identifies a workspace record.
	EntityWorkspace EntityType = "workspace"
	// EntityDocument identifies a document record.
	EntityDocument EntityType = "document"
	// EntityTemplate identifies a template record.
	EntityTemplate EntityType = "template"
)

// CaptureType enumerates the kinds of captures a user can author.
type CaptureType string

// Canonical capture types. The type selects the dynamic field schema that
// applies to the capture (see FieldSchemaFor).
const (
	CaptureIdea       CaptureType = "idea"
	CaptureTask       CaptureType = "task"
	CaptureProject    CaptureType = "project"
	CaptureReflection CaptureType = "reflection"
	CaptureOutline    CaptureType = "outline"
	CaptureCalendar   CaptureType = "calendar"
)

// CaptureStatus enumerates capture workflow states.
type CaptureStatus string

// Canonical capture statuses. New captures default to draft.
const (
	CaptureStatusDraft      CaptureStatus = "draft"
	CaptureStatusActive     CaptureStatus = "active"
	CaptureStatusInProgress CaptureStatus = "in_progress"
	CaptureStatusBlocked    CaptureStatus = "blocked"
	CaptureStatusCompleted  CaptureStatus = "completed"
	CaptureStatusArchived   CaptureStatus = "archived"
	CaptureStatusCancelled  CaptureStatus = "cancelled"
)

// ValidCaptureStatus reports whether s is one of the canonical capture
// statuses.
func ValidCaptureStatus(s CaptureStatus) bool {
	switch s {
	case CaptureStatusDraft, CaptureStatusActive, CaptureStatusInProgress,
		CaptureStatusBlocked, CaptureStatusCompleted, CaptureStatusArchived,
		CaptureStatusCancelled:
		return true
	default:
		return false
	}
}

// Priority expresses relative urgency of a capture.
type Priority string

// Canonical priorities. New captures default to medium.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ValidPriority reports whether p is one of the canonical priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// SprintStatus enumerates sprint lifecycle states.
type SprintStatus string

// Canonical sprint statuses. New sprints default to planning.
const (
	SprintStatusPlanning  SprintStatus = "planning"
	SprintStatusActive    SprintStatus = "active"
	SprintStatusReview    SprintStatus = "review"
	SprintStatusCompleted SprintStatus = "completed"
	SprintStatusCancelled SprintStatus = "cancelled"
)

// ValidSprintStatus reports whether s is one of the canonical sprint
// statuses.
func ValidSprintStatus(s SprintStatus) bool {
	switch s {
	case SprintStatusPlanning, SprintStatusActive, SprintStatusReview,
		SprintStatusCompleted, SprintStatusCancelled:
		return true
	default:
		return false
	}
}

// TemplateKind distinguishes capture templates from document templates.
type TemplateKind string

// Canonical template kinds.
const (
	TemplateKindCapture  TemplateKind = "capture"
	TemplateKindDocument TemplateKind = "document"
)

// Visibility controls whether a template crosses the tenant boundary.
type Visibility string

// Canonical visibilities. Templates default to private; public templates are
// readable by any principal but remain mutable only by their owner.
const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn surfaces a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// MaxCaptureDepth bounds the length of a capture parent chain.
const MaxCaptureDepth = 32

// Base contains common fields for all domain records. Owner is fixed at
// creation and never transfers.
type Base struct {
	ID        string    `json:"id"`
	Owner     Principal `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Capture represents a single user-authored record: an idea, task, project,
// reflection, outline, or calendar entry.
type Capture struct {
	Base
	Type        CaptureType           `json:"type"`
	Title       string                `json:"title"`
	Description *string               `json:"description,omitempty"`
	Content     *string               `json:"content,omitempty"`
	Status      CaptureStatus         `json:"status"`
	Priority    Priority              `json:"priority"`
	ParentID    *string               `json:"parent_id"`
	Fields      map[string]FieldValue `json:"fields,omitempty"`
}

// Sprint groups captures into a time-boxed iteration.
type Sprint struct {
	Base
	Name       string       `json:"name"`
	Goal       *string      `json:"goal,omitempty"`
	Status     SprintStatus `json:"status"`
	StartDate  *time.Time   `json:"start_date"`
	EndDate    *time.Time   `json:"end_date"`
	Capacity   *float64     `json:"capacity"`
	CaptureIDs []string     `json:"capture_ids"`
}

// Workspace anchors a folder tree of documents.
type Workspace struct {
	Base
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Icon        *string      `json:"icon,omitempty"`
	Archived    bool         `json:"archived"`
	Folders     []FolderNode `json:"folders"`
}

// Document is a markdown page anchored to a workspace, optionally filed under
// one of the workspace's folder nodes.
type Document struct {
	Base
	WorkspaceID  string  `json:"workspace_id"`
	FolderNodeID *string `json:"folder_node_id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	TemplateID   *string `json:"template_id"`
}

// Template is a reusable starting point for captures or documents.
// Instantiation copies defaults by value; there is no live link back.
type Template struct {
	Base
	Kind           TemplateKind          `json:"kind"`
	Name           string                `json:"name"`
	Description    *string               `json:"description,omitempty"`
	Visibility     Visibility            `json:"visibility"`
	CaptureType    *CaptureType          `json:"capture_type,omitempty"`
	DefaultFields  map[string]FieldValue `json:"default_fields,omitempty"`
	DefaultContent *string               `json:"default_content,omitempty"`
}

// Config holds tenant-independent installation state persisted alongside the
// record tables.
type Config struct {
	AuthService string      `json:"auth_service,omitempty"`
	Admins      []Principal `json:"admins"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
