package core

import (
	"context"
	"fmt"

	"foundrycore/pkg/domain"
)

// CreateWorkspace persists a new workspace owned by the caller. Folder nodes
// without ids receive stable store-assigned ids.
func (s *Service) CreateWorkspace(ctx context.Context, caller Principal, workspace Workspace) (Workspace, Result, error) {
	var created Workspace
	var res Result
	err := s.instrument(ctx, "create_workspace", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		workspace.ID = ""
		workspace.Owner = caller
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateWorkspace(workspace)
			return err
		})
		return txErr
	})
	return created, res, err
}

// GetWorkspace returns a caller-owned workspace; others read as NotFound.
func (s *Service) GetWorkspace(ctx context.Context, caller Principal, id string) (Workspace, error) {
	var workspace Workspace
	err := s.instrument(ctx, "get_workspace", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		got, ok := s.store.GetWorkspace(id)
		if !ok || got.Owner != caller {
			return domain.NotFoundError{Entity: EntityWorkspace, ID: id}
		}
		workspace = got
		return nil
	})
	return workspace, err
}

// ListWorkspaces returns the caller's workspaces ordered by creation time.
func (s *Service) ListWorkspaces(ctx context.Context, caller Principal) ([]Workspace, error) {
	var out []Workspace
	err := s.instrument(ctx, "list_workspaces", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		for _, workspace := range s.store.ListWorkspaces() {
			if workspace.Owner == caller {
				out = append(out, workspace)
			}
		}
		return nil
	})
	return out, err
}

// UpdateWorkspace mutates a caller-owned workspace. Structural folder edits
// are re-validated; an edit that would orphan a document's folder reference
// fails with DanglingReference.
func (s *Service) UpdateWorkspace(ctx context.Context, caller Principal, id string, mutator func(*Workspace) error) (Workspace, Result, error) {
	var updated Workspace
	var res Result
	err := s.instrument(ctx, "update_workspace", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindWorkspace(id); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntityWorkspace, ID: id}
			}
			var err error
			updated, err = tx.UpdateWorkspace(id, mutator)
			return err
		})
		return txErr
	})
	return updated, res, err
}

// DeleteWorkspace removes a caller-owned workspace and cascades the deletion
// to every document anchored to it within the same transaction.
func (s *Service) DeleteWorkspace(ctx context.Context, caller Principal, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_workspace", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindWorkspace(id); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntityWorkspace, ID: id}
			}
			return tx.DeleteWorkspace(id)
		})
		return txErr
	})
	return res, err
}

// CreateDocument persists a new document anchored to a caller-owned workspace.
func (s *Service) CreateDocument(ctx context.Context, caller Principal, document Document) (Document, Result, error) {
	var created Document
	var res Result
	err := s.instrument(ctx, "create_document", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		document.ID = ""
		document.Owner = caller
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateDocument(document)
			return err
		})
		return txErr
	})
	return created, res, err
}

// CreateDocumentFromTemplate instantiates a document template: the template's
// default content is copied by value when the input carries none, and the
// document records the template id as provenance.
func (s *Service) CreateDocumentFromTemplate(ctx context.Context, caller Principal, templateID string, document Document) (Document, Result, error) {
	var created Document
	var res Result
	err := s.instrument(ctx, "create_document_from_template", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		document.ID = ""
		document.Owner = caller
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			tmpl, ok := tx.FindTemplate(templateID)
			if !ok || !templateReadable(tmpl, caller) {
				return domain.NotFoundError{Entity: EntityTemplate, ID: templateID}
			}
			if tmpl.Kind != domain.TemplateKindDocument {
				return fmt.Errorf("template %s is not a document template", templateID)
			}
			if document.Content == "" && tmpl.DefaultContent != nil {
				document.Content = *tmpl.DefaultContent
			}
			document.TemplateID = &tmpl.ID
			var err error
			created, err = tx.CreateDocument(document)
			return err
		})
		return txErr
	})
	return created, res, err
}

// GetDocument returns a caller-owned document; others read as NotFound.
func (s *Service) GetDocument(ctx context.Context, caller Principal, id string) (Document, error) {
	var document Document
	err := s.instrument(ctx, "get_document", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		got, ok := s.store.GetDocument(id)
		if !ok || got.Owner != caller {
			return domain.NotFoundError{Entity: EntityDocument, ID: id}
		}
		document = got
		return nil
	})
	return document, err
}

// ListDocuments returns the caller's documents, optionally restricted to one
// workspace.
func (s *Service) ListDocuments(ctx context.Context, caller Principal, workspaceID string) ([]Document, error) {
	var out []Document
	err := s.instrument(ctx, "list_documents", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		for _, document := range s.store.ListDocuments() {
			if document.Owner != caller {
				continue
			}
			if workspaceID != "" && document.WorkspaceID != workspaceID {
				continue
			}
			out = append(out, document)
		}
		return nil
	})
	return out, err
}

// UpdateDocument mutates a caller-owned document. Title and content replace
// whole-value.
func (s *Service) UpdateDocument(ctx context.Context, caller Principal, id string, mutator func(*Document) error) (Document, Result, error) {
	var updated Document
	var res Result
	err := s.instrument(ctx, "update_document", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindDocument(id); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntityDocument, ID: id}
			}
			var err error
			updated, err = tx.UpdateDocument(id, mutator)
			return err
		})
		return txErr
	})
	return updated, res, err
}

// DeleteDocument removes a caller-owned document.
func (s *Service) DeleteDocument(ctx context.Context, caller Principal, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_document", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindDocument(id); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntityDocument, ID: id}
			}
			return tx.DeleteDocument(id)
		})
		return txErr
	})
	return res, err
}
