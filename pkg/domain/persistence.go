package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Multi-record semantics live here:
// DeleteCapture re-parents direct children and strips sprint membership, and
// DeleteWorkspace cascades the workspace's documents.
type Transaction interface {
	Snapshot() TransactionView
	CreateCapture(Capture) (Capture, error)
	UpdateCapture(id string, mutator func(*Capture) error) (Capture, error)
	DeleteCapture(id string) error
	CreateSprint(Sprint) (Sprint, error)
	UpdateSprint(id string, mutator func(*Sprint) error) (Sprint, error)
	DeleteSprint(id string) error
	AddSprintCapture(sprintID, captureID string) (Sprint, error)
	RemoveSprintCapture(sprintID, captureID string) (Sprint, error)
	CreateWorkspace(Workspace) (Workspace, error)
	UpdateWorkspace(id string, mutator func(*Workspace) error) (Workspace, error)
	DeleteWorkspace(id string) error
	CreateDocument(Document) (Document, error)
	UpdateDocument(id string, mutator func(*Document) error) (Document, error)
	DeleteDocument(id string) error
	CreateTemplate(Template) (Template, error)
	UpdateTemplate(id string, mutator func(*Template) error) (Template, error)
	DeleteTemplate(id string) error
	FindCapture(id string) (Capture, bool)
	FindSprint(id string) (Sprint, bool)
	FindWorkspace(id string) (Workspace, bool)
	FindDocument(id string) (Document, bool)
	FindTemplate(id string) (Template, bool)
	SetAuthService(ref string) error
	AuthService() string
	Admins() []Principal
	AddAdmin(p Principal) error
}

// TransactionView provides read-only access to snapshot data for rules and
// query evaluation.
type TransactionView interface {
	RuleView
	AuthService() string
	Admins() []Principal
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCapture(id string) (Capture, bool)
	ListCaptures() []Capture
	GetSprint(id string) (Sprint, bool)
	ListSprints() []Sprint
	GetWorkspace(id string) (Workspace, bool)
	ListWorkspaces() []Workspace
	GetDocument(id string) (Document, bool)
	ListDocuments() []Document
	GetTemplate(id string) (Template, bool)
	ListTemplates() []Template
}
