// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"foundrycore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Capture aliases domain.Capture for in-memory persistence operations.
	Capture = domain.Capture
	// Sprint aliases domain.Sprint.
	Sprint = domain.Sprint
	// Workspace aliases domain.Workspace.
	Workspace = domain.Workspace
	// Document aliases domain.Document.
	Document = domain.Document
	// Template aliases domain.Template.
	Template = domain.Template
	// Config aliases domain.Config.
	Config = domain.Config
	// Principal aliases domain.Principal.
	Principal = domain.Principal
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	captures   map[string]Capture
	sprints    map[string]Sprint
	workspaces map[string]Workspace
	documents  map[string]Document
	templates  map[string]Template
	config     Config
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Captures   map[string]Capture   `json:"captures"`
	Sprints    map[string]Sprint    `json:"sprints"`
	Workspaces map[string]Workspace `json:"workspaces"`
	Documents  map[string]Document  `json:"documents"`
	Templates  map[string]Template  `json:"templates"`
	Config     Config               `json:"config"`
}

func newMemoryState() memoryState {
	return memoryState{
		captures:   make(map[string]Capture),
		sprints:    make(map[string]Sprint),
		workspaces: make(map[string]Workspace),
		documents:  make(map[string]Document),
		templates:  make(map[string]Template),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Captures:   make(map[string]Capture, len(state.captures)),
		Sprints:    make(map[string]Sprint, len(state.sprints)),
		Workspaces: make(map[string]Workspace, len(state.workspaces)),
		Documents:  make(map[string]Document, len(state.documents)),
		Templates:  make(map[string]Template, len(state.templates)),
		Config:     cloneConfig(state.config),
	}
	for k, v := range state.captures {
		s.Captures[k] = cloneCapture(v)
	}
	for k, v := range state.sprints {
		s.Sprints[k] = cloneSprint(v)
	}
	for k, v := range state.workspaces {
		s.Workspaces[k] = cloneWorkspace(v)
	}
	for k, v := range state.documents {
		s.Documents[k] = cloneDocument(v)
	}
	for k, v := range state.templates {
		s.Templates[k] = cloneTemplate(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Captures {
		state.captures[k] = cloneCapture(v)
	}
	for k, v := range s.Sprints {
		state.sprints[k] = cloneSprint(v)
	}
	for k, v := range s.Workspaces {
		state.workspaces[k] = cloneWorkspace(v)
	}
	for k, v := range s.Documents {
		state.documents[k] = cloneDocument(v)
	}
	for k, v := range s.Templates {
		state.templates[k] = cloneTemplate(v)
	}
	state.config = cloneConfig(s.Config)
	return state
}

// migrateSnapshot normalizes snapshots from older builds or hand-edited
// imports: nil tables become empty, dangling references are cleared or the
// dependent record dropped, and membership sets are deduplicated.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Captures == nil {
		snapshot.Captures = map[string]Capture{}
	}
	if snapshot.Sprints == nil {
		snapshot.Sprints = map[string]Sprint{}
	}
	if snapshot.Workspaces == nil {
		snapshot.Workspaces = map[string]Workspace{}
	}
	if snapshot.Documents == nil {
		snapshot.Documents = map[string]Document{}
	}
	if snapshot.Templates == nil {
		snapshot.Templates = map[string]Template{}
	}

	captureOwned := func(id string, owner Principal) bool {
		c, ok := snapshot.Captures[id]
		return ok && c.Owner == owner
	}

	for id, capture := range snapshot.Captures {
		if capture.Status == "" {
			capture.Status = domain.CaptureStatusDraft
		}
		if capture.Priority == "" {
			capture.Priority = domain.PriorityMedium
		}
		if capture.ParentID != nil && !captureOwned(*capture.ParentID, capture.Owner) {
			capture.ParentID = nil
		}
		snapshot.Captures[id] = capture
	}

	for id, sprint := range snapshot.Sprints {
		if sprint.Status == "" {
			sprint.Status = domain.SprintStatusPlanning
		}
		owner := sprint.Owner
		filtered, changed := filterIDs(sprint.CaptureIDs, func(cid string) bool { return captureOwned(cid, owner) })
		if changed {
			sprint.CaptureIDs = filtered
		}
		snapshot.Sprints[id] = sprint
	}

	for id, workspace := range snapshot.Workspaces {
		domain.AssignFolderIDs(workspace.Folders)
		if err := domain.ValidateFolders(workspace.Folders); err != nil {
			workspace.Folders = nil
		}
		snapshot.Workspaces[id] = workspace
	}

	for id, document := range snapshot.Documents {
		ws, ok := snapshot.Workspaces[document.WorkspaceID]
		if !ok || ws.Owner != document.Owner {
			delete(snapshot.Documents, id)
			continue
		}
		if document.FolderNodeID != nil {
			if _, ok := domain.FindFolderNode(ws.Folders, *document.FolderNodeID); !ok {
				document.FolderNodeID = nil
			}
		}
		snapshot.Documents[id] = document
	}

	for id, template := range snapshot.Templates {
		if template.Visibility == "" {
			template.Visibility = domain.VisibilityPrivate
		}
		snapshot.Templates[id] = template
	}

	snapshot.Config.Admins = dedupePrincipals(snapshot.Config.Admins)
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.captures {
		cloned.captures[k] = cloneCapture(v)
	}
	for k, v := range s.sprints {
		cloned.sprints[k] = cloneSprint(v)
	}
	for k, v := range s.workspaces {
		cloned.workspaces[k] = cloneWorkspace(v)
	}
	for k, v := range s.documents {
		cloned.documents[k] = cloneDocument(v)
	}
	for k, v := range s.templates {
		cloned.templates[k] = cloneTemplate(v)
	}
	cloned.config = cloneConfig(s.config)
	return cloned
}

func cloneCapture(c Capture) Capture {
	cp := c
	cp.Description = cloneStringPtr(c.Description)
	cp.Content = cloneStringPtr(c.Content)
	cp.ParentID = cloneStringPtr(c.ParentID)
	cp.Fields = domain.CloneFieldValues(c.Fields)
	return cp
}

func cloneSprint(s Sprint) Sprint {
	cp := s
	cp.Goal = cloneStringPtr(s.Goal)
	cp.StartDate = cloneTimePtr(s.StartDate)
	cp.EndDate = cloneTimePtr(s.EndDate)
	if s.Capacity != nil {
		v := *s.Capacity
		cp.Capacity = &v
	}
	cp.CaptureIDs = append([]string(nil), s.CaptureIDs...)
	return cp
}

func cloneWorkspace(w Workspace) Workspace {
	cp := w
	cp.Description = cloneStringPtr(w.Description)
	cp.Icon = cloneStringPtr(w.Icon)
	cp.Folders = domain.CloneFolders(w.Folders)
	return cp
}

func cloneDocument(d Document) Document {
	cp := d
	cp.FolderNodeID = cloneStringPtr(d.FolderNodeID)
	cp.TemplateID = cloneStringPtr(d.TemplateID)
	return cp
}

func cloneTemplate(t Template) Template {
	cp := t
	cp.Description = cloneStringPtr(t.Description)
	cp.DefaultContent = cloneStringPtr(t.DefaultContent)
	cp.DefaultFields = domain.CloneFieldValues(t.DefaultFields)
	if t.CaptureType != nil {
		ct := *t.CaptureType
		cp.CaptureType = &ct
	}
	return cp
}

func cloneConfig(c Config) Config {
	cp := c
	cp.Admins = append([]Principal(nil), c.Admins...)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func containsString(values []string, id string) bool {
	for _, existing := range values {
		if existing == id {
			return true
		}
	}
	return false
}

func dedupePrincipals(values []Principal) []Principal {
	if len(values) <= 1 {
		return append([]Principal(nil), values...)
	}
	seen := make(map[Principal]struct{}, len(values))
	out := make([]Principal, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func filterIDs(values []string, exists func(string) bool) ([]string, bool) {
	if len(values) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	changed := false
	for _, v := range values {
		if _, ok := seen[v]; ok {
			changed = true
			continue
		}
		seen[v] = struct{}{}
		if !exists(v) {
			changed = true
			continue
		}
		out = append(out, v)
	}
	if !changed && len(out) == len(values) {
		return values, false
	}
	return out, true
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider. Intended for deterministic tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListCaptures returns all captures within the transaction snapshot.
func (v transactionView) ListCaptures() []Capture {
	out := make([]Capture, 0, len(v.state.captures))
	for _, c := range v.state.captures {
		out = append(out, cloneCapture(c))
	}
	return out
}

// ListSprints returns all sprints in the snapshot.
func (v transactionView) ListSprints() []Sprint {
	out := make([]Sprint, 0, len(v.state.sprints))
	for _, s := range v.state.sprints {
		out = append(out, cloneSprint(s))
	}
	return out
}

// ListWorkspaces returns all workspaces in the snapshot.
func (v transactionView) ListWorkspaces() []Workspace {
	out := make([]Workspace, 0, len(v.state.workspaces))
	for _, w := range v.state.workspaces {
		out = append(out, cloneWorkspace(w))
	}
	return out
}

// ListDocuments returns all documents in the snapshot.
func (v transactionView) ListDocuments() []Document {
	out := make([]Document, 0, len(v.state.documents))
	for _, d := range v.state.documents {
		out = append(out, cloneDocument(d))
	}
	return out
}

// ListTemplates returns all templates in the snapshot.
func (v transactionView) ListTemplates() []Template {
	out := make([]Template, 0, len(v.state.templates))
	for _, t := range v.state.templates {
		out = append(out, cloneTemplate(t))
	}
	return out
}

// FindCapture retrieves a capture by ID from the snapshot.
func (v transactionView) FindCapture(id string) (Capture, bool) {
	c, ok := v.state.captures[id]
	if !ok {
		return Capture{}, false
	}
	return cloneCapture(c), true
}

// FindSprint retrieves a sprint by ID from the snapshot.
func (v transactionView) FindSprint(id string) (Sprint, bool) {
	s, ok := v.state.sprints[id]
	if !ok {
		return Sprint{}, false
	}
	return cloneSprint(s), true
}

// FindWorkspace retrieves a workspace by ID from the snapshot.
func (v transactionView) FindWorkspace(id string) (Workspace, bool) {
	w, ok := v.state.workspaces[id]
	if !ok {
		return Workspace{}, false
	}
	return cloneWorkspace(w), true
}

// FindDocument retrieves a document by ID from the snapshot.
func (v transactionView) FindDocument(id string) (Document, bool) {
	d, ok := v.state.documents[id]
	if !ok {
		return Document{}, false
	}
	return cloneDocument(d), true
}

// FindTemplate retrieves a template by ID from the snapshot.
func (v transactionView) FindTemplate(id string) (Template, bool) {
	t, ok := v.state.templates[id]
	if !ok {
		return Template{}, false
	}
	return cloneTemplate(t), true
}

// AuthService returns the configured auth service reference.
func (v transactionView) AuthService() string {
	return v.state.config.AuthService
}

// Admins returns the configured administrative principals.
func (v transactionView) Admins() []Principal {
	return append([]Principal(nil), v.state.config.Admins...)
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindCapture exposes capture lookup within the transaction scope.
func (tx *transaction) FindCapture(id string) (Capture, bool) {
	c, ok := tx.state.captures[id]
	if !ok {
		return Capture{}, false
	}
	return cloneCapture(c), true
}

// FindSprint exposes sprint lookup within the transaction scope.
func (tx *transaction) FindSprint(id string) (Sprint, bool) {
	s, ok := tx.state.sprints[id]
	if !ok {
		return Sprint{}, false
	}
	return cloneSprint(s), true
}

// FindWorkspace exposes workspace lookup within the transaction scope.
func (tx *transaction) FindWorkspace(id string) (Workspace, bool) {
	w, ok := tx.state.workspaces[id]
	if !ok {
		return Workspace{}, false
	}
	return cloneWorkspace(w), true
}

// FindDocument exposes document lookup within the transaction scope.
func (tx *transaction) FindDocument(id string) (Document, bool) {
	d, ok := tx.state.documents[id]
	if !ok {
		return Document{}, false
	}
	return cloneDocument(d), true
}

// FindTemplate exposes template lookup within the transaction scope.
func (tx *transaction) FindTemplate(id string) (Template, bool) {
	t, ok := tx.state.templates[id]
	if !ok {
		return Template{}, false
	}
	return cloneTemplate(t), true
}

// checkParentChain verifies the capture's prospective parent link: the parent
// must exist, share the capture's owner, and the resulting ancestor chain must
// stay acyclic within MaxCaptureDepth.
func (tx *transaction) checkParentChain(captureID string, owner Principal, parentID string) error {
	parent, ok := tx.state.captures[parentID]
	if !ok || parent.Owner != owner {
		return domain.NotFoundError{Entity: domain.EntityCapture, ID: parentID}
	}
	depth := 0
	current := parentID
	for {
		if current == captureID {
			return domain.CyclicRelationshipError{CaptureID: captureID, ParentID: parentID}
		}
		depth++
		if depth > domain.MaxCaptureDepth {
			return domain.CyclicRelationshipError{CaptureID: captureID, ParentID: parentID}
		}
		node, ok := tx.state.captures[current]
		if !ok || node.ParentID == nil {
			return nil
		}
		current = *node.ParentID
	}
}

func (tx *transaction) checkRelatedCaptures(c Capture) error {
	for _, id := range c.RelatedCaptureIDs() {
		ref, ok := tx.state.captures[id]
		if !ok || ref.Owner != c.Owner {
			return domain.DanglingReferenceError{Entity: domain.EntityCapture, EntityID: c.ID, Reference: "capture " + id}
		}
	}
	return nil
}

func (tx *transaction) validateCapture(c Capture) error {
	if !domain.ValidCaptureType(c.Type) {
		return fmt.Errorf("unknown capture type %q", c.Type)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("capture requires a title")
	}
	if !domain.ValidCaptureStatus(c.Status) {
		return fmt.Errorf("unknown capture status %q", c.Status)
	}
	if !domain.ValidPriority(c.Priority) {
		return fmt.Errorf("unknown priority %q", c.Priority)
	}
	if err := domain.ValidateFields(c.Type, c.Fields); err != nil {
		return err
	}
	if c.ParentID != nil {
		if err := tx.checkParentChain(c.ID, c.Owner, *c.ParentID); err != nil {
			return err
		}
	}
	return tx.checkRelatedCaptures(c)
}

// CreateCapture stores a new capture within the transaction.
func (tx *transaction) CreateCapture(c Capture) (Capture, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.captures[c.ID]; exists {
		return Capture{}, fmt.Errorf("capture %q already exists", c.ID)
	}
	if c.Owner == "" {
		return Capture{}, fmt.Errorf("capture requires an owner")
	}
	if c.Status == "" {
		c.Status = domain.CaptureStatusDraft
	}
	if c.Priority == "" {
		c.Priority = domain.PriorityMedium
	}
	if err := tx.validateCapture(c); err != nil {
		return Capture{}, err
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.captures[c.ID] = cloneCapture(c)
	tx.recordChange(Change{Entity: domain.EntityCapture, Action: domain.ActionCreate, After: cloneCapture(c)})
	return cloneCapture(c), nil
}

// UpdateCapture mutates a capture using the provided mutator function. Owner
// and creation time are immutable.
func (tx *transaction) UpdateCapture(id string, mutator func(*Capture) error) (Capture, error) {
	current, ok := tx.state.captures[id]
	if !ok {
		return Capture{}, domain.NotFoundError{Entity: domain.EntityCapture, ID: id}
	}
	before := cloneCapture(current)
	if err := mutator(&current); err != nil {
		return Capture{}, err
	}
	current.ID = id
	current.Owner = before.Owner
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if err := tx.validateCapture(current); err != nil {
		return Capture{}, err
	}
	tx.state.captures[id] = cloneCapture(current)
	tx.recordChange(Change{Entity: domain.EntityCapture, Action: domain.ActionUpdate, Before: before, After: cloneCapture(current)})
	return cloneCapture(current), nil
}

// DeleteCapture removes a capture. Direct children are re-parented to the
// deleted node's parent and the capture is stripped from every sprint
// membership set, all inside this transaction.
func (tx *transaction) DeleteCapture(id string) error {
	current, ok := tx.state.captures[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityCapture, ID: id}
	}
	for childID, child := range tx.state.captures {
		if child.ParentID == nil || *child.ParentID != id {
			continue
		}
		before := cloneCapture(child)
		child.ParentID = cloneStringPtr(current.ParentID)
		child.UpdatedAt = tx.now
		tx.state.captures[childID] = cloneCapture(child)
		tx.recordChange(Change{Entity: domain.EntityCapture, Action: domain.ActionUpdate, Before: before, After: cloneCapture(child)})
	}
	for sprintID, sprint := range tx.state.sprints {
		if !containsString(sprint.CaptureIDs, id) {
			continue
		}
		before := cloneSprint(sprint)
		filtered := make([]string, 0, len(sprint.CaptureIDs)-1)
		for _, cid := range sprint.CaptureIDs {
			if cid != id {
				filtered = append(filtered, cid)
			}
		}
		sprint.CaptureIDs = filtered
		sprint.UpdatedAt = tx.now
		tx.state.sprints[sprintID] = cloneSprint(sprint)
		tx.recordChange(Change{Entity: domain.EntitySprint, Action: domain.ActionUpdate, Before: before, After: cloneSprint(sprint)})
	}
	delete(tx.state.captures, id)
	tx.recordChange(Change{Entity: domain.EntityCapture, Action: domain.ActionDelete, Before: cloneCapture(current)})
	return nil
}

func (tx *transaction) validateSprint(s Sprint) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("sprint requires a name")
	}
	if !domain.ValidSprintStatus(s.Status) {
		return fmt.Errorf("unknown sprint status %q", s.Status)
	}
	for _, cid := range s.CaptureIDs {
		c, ok := tx.state.captures[cid]
		if !ok || c.Owner != s.Owner {
			return domain.DanglingReferenceError{Entity: domain.EntitySprint, EntityID: s.ID, Reference: "capture " + cid}
		}
	}
	return nil
}

// CreateSprint stores a new sprint.
func (tx *transaction) CreateSprint(s Sprint) (Sprint, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := tx.state.sprints[s.ID]; exists {
		return Sprint{}, fmt.Errorf("sprint %q already exists", s.ID)
	}
	if s.Owner == "" {
		return Sprint{}, fmt.Errorf("sprint requires an owner")
	}
	if s.Status == "" {
		s.Status = domain.SprintStatusPlanning
	}
	s.CaptureIDs = dedupeStrings(s.CaptureIDs)
	if err := tx.validateSprint(s); err != nil {
		return Sprint{}, err
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.sprints[s.ID] = cloneSprint(s)
	tx.recordChange(Change{Entity: domain.EntitySprint, Action: domain.ActionCreate, After: cloneSprint(s)})
	return cloneSprint(s), nil
}

// UpdateSprint mutates an existing sprint.
func (tx *transaction) UpdateSprint(id string, mutator func(*Sprint) error) (Sprint, error) {
	current, ok := tx.state.sprints[id]
	if !ok {
		return Sprint{}, domain.NotFoundError{Entity: domain.EntitySprint, ID: id}
	}
	before := cloneSprint(current)
	if err := mutator(&current); err != nil {
		return Sprint{}, err
	}
	current.ID = id
	current.Owner = before.Owner
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	current.CaptureIDs = dedupeStrings(current.CaptureIDs)
	if err := tx.validateSprint(current); err != nil {
		return Sprint{}, err
	}
	tx.state.sprints[id] = cloneSprint(current)
	tx.recordChange(Change{Entity: domain.EntitySprint, Action: domain.ActionUpdate, Before: before, After: cloneSprint(current)})
	return cloneSprint(current), nil
}

// DeleteSprint removes a sprint. Member captures survive; only the membership
// set is discarded.
func (tx *transaction) DeleteSprint(id string) error {
	current, ok := tx.state.sprints[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntitySprint, ID: id}
	}
	delete(tx.state.sprints, id)
	tx.recordChange(Change{Entity: domain.EntitySprint, Action: domain.ActionDelete, Before: cloneSprint(current)})
	return nil
}

// AddSprintCapture adds a capture to a sprint's membership set. Adding an
// already-assigned capture is an idempotent no-op.
func (tx *transaction) AddSprintCapture(sprintID, captureID string) (Sprint, error) {
	sprint, ok := tx.state.sprints[sprintID]
	if !ok {
		return Sprint{}, domain.NotFoundError{Entity: domain.EntitySprint, ID: sprintID}
	}
	capture, ok := tx.state.captures[captureID]
	if !ok || capture.Owner != sprint.Owner {
		return Sprint{}, domain.NotFoundError{Entity: domain.EntityCapture, ID: captureID}
	}
	if containsString(sprint.CaptureIDs, captureID) {
		return cloneSprint(sprint), nil
	}
	before := cloneSprint(sprint)
	sprint.CaptureIDs = append(sprint.CaptureIDs, captureID)
	sprint.UpdatedAt = tx.now
	tx.state.sprints[sprintID] = cloneSprint(sprint)
	tx.recordChange(Change{Entity: domain.EntitySprint, Action: domain.ActionUpdate, Before: before, After: cloneSprint(sprint)})
	return cloneSprint(sprint), nil
}

// RemoveSprintCapture removes a capture from a sprint's membership set.
// Removing an unassigned capture is a no-op.
func (tx *transaction) RemoveSprintCapture(sprintID, captureID string) (Sprint, error) {
	sprint, ok := tx.state.sprints[sprintID]
	if !ok {
		return Sprint{}, domain.NotFoundError{Entity: domain.EntitySprint, ID: sprintID}
	}
	if !containsString(sprint.CaptureIDs, captureID) {
		return cloneSprint(sprint), nil
	}
	before := cloneSprint(sprint)
	filtered := make([]string, 0, len(sprint.CaptureIDs)-1)
	for _, cid := range sprint.CaptureIDs {
		if cid != captureID {
			filtered = append(filtered, cid)
		}
	}
	sprint.CaptureIDs = filtered
	sprint.UpdatedAt = tx.now
	tx.state.sprints[sprintID] = cloneSprint(sprint)
	tx.recordChange(Change{Entity: domain.EntitySprint, Action: domain.ActionUpdate, Before: before, After: cloneSprint(sprint)})
	return cloneSprint(sprint), nil
}

// checkDocumentAnchors verifies every document anchored to the workspace still
// resolves to a live folder node after a structural edit.
func (tx *transaction) checkDocumentAnchors(ws Workspace) error {
	ids := domain.FolderNodeIDs(ws.Folders)
	for _, doc := range tx.state.documents {
		if doc.WorkspaceID != ws.ID || doc.FolderNodeID == nil {
			continue
		}
		if _, ok := ids[*doc.FolderNodeID]; !ok {
			return domain.DanglingReferenceError{Entity: domain.EntityDocument, EntityID: doc.ID, Reference: "folder node " + *doc.FolderNodeID}
		}
	}
	return nil
}

// CreateWorkspace stores a new workspace, assigning ids to any folder nodes
// that lack them.
func (tx *transaction) CreateWorkspace(w Workspace) (Workspace, error) {
	if w.ID == "" {
		w.ID = tx.store.newID()
	}
	if _, exists := tx.state.workspaces[w.ID]; exists {
		return Workspace{}, fmt.Errorf("workspace %q already exists", w.ID)
	}
	if w.Owner == "" {
		return Workspace{}, fmt.Errorf("workspace requires an owner")
	}
	if strings.TrimSpace(w.Name) == "" {
		return Workspace{}, fmt.Errorf("workspace requires a name")
	}
	domain.AssignFolderIDs(w.Folders)
	if err := domain.ValidateFolders(w.Folders); err != nil {
		return Workspace{}, err
	}
	w.CreatedAt = tx.now
	w.UpdatedAt = tx.now
	tx.state.workspaces[w.ID] = cloneWorkspace(w)
	tx.recordChange(Change{Entity: domain.EntityWorkspace, Action: domain.ActionCreate, After: cloneWorkspace(w)})
	return cloneWorkspace(w), nil
}

// UpdateWorkspace mutates an existing workspace. Folder edits that would
// orphan a document's folder reference are rejected.
func (tx *transaction) UpdateWorkspace(id string, mutator func(*Workspace) error) (Workspace, error) {
	current, ok := tx.state.workspaces[id]
	if !ok {
		return Workspace{}, domain.NotFoundError{Entity: domain.EntityWorkspace, ID: id}
	}
	before := cloneWorkspace(current)
	if err := mutator(&current); err != nil {
		return Workspace{}, err
	}
	current.ID = id
	current.Owner = before.Owner
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if strings.TrimSpace(current.Name) == "" {
		return Workspace{}, fmt.Errorf("workspace requires a name")
	}
	domain.AssignFolderIDs(current.Folders)
	if err := domain.ValidateFolders(current.Folders); err != nil {
		return Workspace{}, err
	}
	if err := tx.checkDocumentAnchors(current); err != nil {
		return Workspace{}, err
	}
	tx.state.workspaces[id] = cloneWorkspace(current)
	tx.recordChange(Change{Entity: domain.EntityWorkspace, Action: domain.ActionUpdate, Before: before, After: cloneWorkspace(current)})
	return cloneWorkspace(current), nil
}

// DeleteWorkspace removes a workspace and cascades deletion to every document
// anchored to it.
func (tx *transaction) DeleteWorkspace(id string) error {
	current, ok := tx.state.workspaces[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityWorkspace, ID: id}
	}
	for docID, doc := range tx.state.documents {
		if doc.WorkspaceID != id {
			continue
		}
		delete(tx.state.documents, docID)
		tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionDelete, Before: cloneDocument(doc)})
	}
	delete(tx.state.workspaces, id)
	tx.recordChange(Change{Entity: domain.EntityWorkspace, Action: domain.ActionDelete, Before: cloneWorkspace(current)})
	return nil
}

func (tx *transaction) validateDocument(d Document) error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("document requires a title")
	}
	ws, ok := tx.state.workspaces[d.WorkspaceID]
	if !ok || ws.Owner != d.Owner {
		return domain.NotFoundError{Entity: domain.EntityWorkspace, ID: d.WorkspaceID}
	}
	if d.FolderNodeID != nil {
		if _, ok := domain.FindFolderNode(ws.Folders, *d.FolderNodeID); !ok {
			return domain.DanglingReferenceError{Entity: domain.EntityDocument, EntityID: d.ID, Reference: "folder node " + *d.FolderNodeID}
		}
	}
	return nil
}

// CreateDocument stores a new document.
func (tx *transaction) CreateDocument(d Document) (Document, error) {
	if d.ID == "" {
		d.ID = tx.store.newID()
	}
	if _, exists := tx.state.documents[d.ID]; exists {
		return Document{}, fmt.Errorf("document %q already exists", d.ID)
	}
	if d.Owner == "" {
		return Document{}, fmt.Errorf("document requires an owner")
	}
	if err := tx.validateDocument(d); err != nil {
		return Document{}, err
	}
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.documents[d.ID] = cloneDocument(d)
	tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionCreate, After: cloneDocument(d)})
	return cloneDocument(d), nil
}

// UpdateDocument mutates an existing document.
func (tx *transaction) UpdateDocument(id string, mutator func(*Document) error) (Document, error) {
	current, ok := tx.state.documents[id]
	if !ok {
		return Document{}, domain.NotFoundError{Entity: domain.EntityDocument, ID: id}
	}
	before := cloneDocument(current)
	if err := mutator(&current); err != nil {
		return Document{}, err
	}
	current.ID = id
	current.Owner = before.Owner
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if err := tx.validateDocument(current); err != nil {
		return Document{}, err
	}
	tx.state.documents[id] = cloneDocument(current)
	tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionUpdate, Before: before, After: cloneDocument(current)})
	return cloneDocument(current), nil
}

// DeleteDocument removes a document.
func (tx *transaction) DeleteDocument(id string) error {
	current, ok := tx.state.documents[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityDocument, ID: id}
	}
	delete(tx.state.documents, id)
	tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionDelete, Before: cloneDocument(current)})
	return nil
}

func (tx *transaction) validateTemplate(t Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template requires a name")
	}
	switch t.Kind {
	case domain.TemplateKindCapture:
		if t.CaptureType == nil {
			return fmt.Errorf("capture template requires a capture type")
		}
		if !domain.ValidCaptureType(*t.CaptureType) {
			return fmt.Errorf("unknown capture type %q", *t.CaptureType)
		}
		if err := domain.ValidateFields(*t.CaptureType, t.DefaultFields); err != nil {
			return err
		}
	case domain.TemplateKindDocument:
	default:
		return fmt.Errorf("unknown template kind %q", t.Kind)
	}
	switch t.Visibility {
	case domain.VisibilityPrivate, domain.VisibilityPublic:
	default:
		return fmt.Errorf("unknown template visibility %q", t.Visibility)
	}
	return nil
}

// CreateTemplate stores a new template. Visibility defaults to private.
func (tx *transaction) CreateTemplate(t Template) (Template, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if _, exists := tx.state.templates[t.ID]; exists {
		return Template{}, fmt.Errorf("template %q already exists", t.ID)
	}
	if t.Owner == "" {
		return Template{}, fmt.Errorf("template requires an owner")
	}
	if t.Visibility == "" {
		t.Visibility = domain.VisibilityPrivate
	}
	if err := tx.validateTemplate(t); err != nil {
		return Template{}, err
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.templates[t.ID] = cloneTemplate(t)
	tx.recordChange(Change{Entity: domain.EntityTemplate, Action: domain.ActionCreate, After: cloneTemplate(t)})
	return cloneTemplate(t), nil
}

// UpdateTemplate mutates an existing template.
func (tx *transaction) UpdateTemplate(id string, mutator func(*Template) error) (Template, error) {
	current, ok := tx.state.templates[id]
	if !ok {
		return Template{}, domain.NotFoundError{Entity: domain.EntityTemplate, ID: id}
	}
	before := cloneTemplate(current)
	if err := mutator(&current); err != nil {
		return Template{}, err
	}
	current.ID = id
	current.Owner = before.Owner
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if current.Visibility == "" {
		current.Visibility = domain.VisibilityPrivate
	}
	if err := tx.validateTemplate(current); err != nil {
		return Template{}, err
	}
	tx.state.templates[id] = cloneTemplate(current)
	tx.recordChange(Change{Entity: domain.EntityTemplate, Action: domain.ActionUpdate, Before: before, After: cloneTemplate(current)})
	return cloneTemplate(current), nil
}

// DeleteTemplate removes a template. Records instantiated from it keep their
// copied defaults; only the provenance marker goes stale, which is permitted.
func (tx *transaction) DeleteTemplate(id string) error {
	current, ok := tx.state.templates[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityTemplate, ID: id}
	}
	delete(tx.state.templates, id)
	tx.recordChange(Change{Entity: domain.EntityTemplate, Action: domain.ActionDelete, Before: cloneTemplate(current)})
	return nil
}

// SetAuthService replaces the external auth service reference.
func (tx *transaction) SetAuthService(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("auth service reference cannot be empty")
	}
	tx.state.config.AuthService = ref
	return nil
}

// AuthService returns the configured auth service reference.
func (tx *transaction) AuthService() string {
	return tx.state.config.AuthService
}

// Admins returns the configured administrative principals.
func (tx *transaction) Admins() []Principal {
	return append([]Principal(nil), tx.state.config.Admins...)
}

// AddAdmin appends a principal to the admin set. Adding an existing admin is
// an idempotent no-op.
func (tx *transaction) AddAdmin(p Principal) error {
	if p == "" {
		return fmt.Errorf("admin principal cannot be empty")
	}
	for _, existing := range tx.state.config.Admins {
		if existing == p {
			return nil
		}
	}
	tx.state.config.Admins = append(tx.state.config.Admins, p)
	return nil
}

func dedupeStrings(values []string) []string {
	if len(values) <= 1 {
		return append([]string(nil), values...)
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// GetCapture retrieves a capture from committed state.
func (s *Store) GetCapture(id string) (Capture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.captures[id]
	if !ok {
		return Capture{}, false
	}
	return cloneCapture(c), true
}

// ListCaptures returns all committed captures sorted by creation time, ties
// broken by id.
func (s *Store) ListCaptures() []Capture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Capture, 0, len(s.state.captures))
	for _, c := range s.state.captures {
		out = append(out, cloneCapture(c))
	}
	sortByCreation(out, func(c Capture) (time.Time, string) { return c.CreatedAt, c.ID })
	return out
}

// GetSprint retrieves a sprint from committed state.
func (s *Store) GetSprint(id string) (Sprint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.state.sprints[id]
	if !ok {
		return Sprint{}, false
	}
	return cloneSprint(sp), true
}

// ListSprints returns all committed sprints sorted by creation time.
func (s *Store) ListSprints() []Sprint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Sprint, 0, len(s.state.sprints))
	for _, sp := range s.state.sprints {
		out = append(out, cloneSprint(sp))
	}
	sortByCreation(out, func(sp Sprint) (time.Time, string) { return sp.CreatedAt, sp.ID })
	return out
}

// GetWorkspace retrieves a workspace from committed state.
func (s *Store) GetWorkspace(id string) (Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.state.workspaces[id]
	if !ok {
		return Workspace{}, false
	}
	return cloneWorkspace(w), true
}

// ListWorkspaces returns all committed workspaces sorted by creation time.
func (s *Store) ListWorkspaces() []Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Workspace, 0, len(s.state.workspaces))
	for _, w := range s.state.workspaces {
		out = append(out, cloneWorkspace(w))
	}
	sortByCreation(out, func(w Workspace) (time.Time, string) { return w.CreatedAt, w.ID })
	return out
}

// GetDocument retrieves a document from committed state.
func (s *Store) GetDocument(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.state.documents[id]
	if !ok {
		return Document{}, false
	}
	return cloneDocument(d), true
}

// ListDocuments returns all committed documents sorted by creation time.
func (s *Store) ListDocuments() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.state.documents))
	for _, d := range s.state.documents {
		out = append(out, cloneDocument(d))
	}
	sortByCreation(out, func(d Document) (time.Time, string) { return d.CreatedAt, d.ID })
	return out
}

// GetTemplate retrieves a template from committed state.
func (s *Store) GetTemplate(id string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.templates[id]
	if !ok {
		return Template{}, false
	}
	return cloneTemplate(t), true
}

// ListTemplates returns all committed templates sorted by creation time.
func (s *Store) ListTemplates() []Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Template, 0, len(s.state.templates))
	for _, t := range s.state.templates {
		out = append(out, cloneTemplate(t))
	}
	sortByCreation(out, func(t Template) (time.Time, string) { return t.CreatedAt, t.ID })
	return out
}

func sortByCreation[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti.Equal(tj) {
			return idi < idj
		}
		return ti.Before(tj)
	})
}
