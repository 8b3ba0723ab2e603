package core

import "foundrycore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Principal          = domain.Principal
	CaptureType        = domain.CaptureType
	CaptureStatus      = domain.CaptureStatus
	Priority           = domain.Priority
	SprintStatus       = domain.SprintStatus
	TemplateKind       = domain.TemplateKind
	Visibility         = domain.Visibility
	Severity           = domain.Severity
	Base               = domain.Base
	Capture            = domain.Capture
	Sprint             = domain.Sprint
	Workspace          = domain.Workspace
	Document           = domain.Document
	Template           = domain.Template
	FolderNode         = domain.FolderNode
	FieldValue         = domain.FieldValue
	Config             = domain.Config
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityCapture   = domain.EntityCapture
	EntitySprint    = domain.EntitySprint
	EntityWorkspace = domain.EntityWorkspace
	EntityDocument  = domain.EntityDocument
	EntityTemplate  = domain.EntityTemplate
)

const (
	CaptureIdea       = domain.CaptureIdea
	CaptureTask       = domain.CaptureTask
	CaptureProject    = domain.CaptureProject
	CaptureReflection = domain.CaptureReflection
	CaptureOutline    = domain.CaptureOutline
	CaptureCalendar   = domain.CaptureCalendar
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

const (
	VisibilityPrivate = domain.VisibilityPrivate
	VisibilityPublic  = domain.VisibilityPublic
)
