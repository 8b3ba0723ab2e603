package core

import (
	"context"
	"fmt"

	"foundrycore/pkg/domain"
)

// CapturePatch describes a partial capture update. Nil pointer fields are left
// unchanged; Clear flags reset optional fields; SetFields merges into the
// field map and UnsetFields removes entries.
type CapturePatch struct {
	Type             *CaptureType
	Title            *string
	Description      *string
	ClearDescription bool
	Content          *string
	ClearContent     bool
	Status           *CaptureStatus
	Priority         *Priority
	ParentID         *string
	ClearParent      bool
	SetFields        map[string]FieldValue
	UnsetFields      []string
}

func (p CapturePatch) apply(c *Capture) {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = p.Description
	}
	if p.ClearDescription {
		c.Description = nil
	}
	if p.Content != nil {
		c.Content = p.Content
	}
	if p.ClearContent {
		c.Content = nil
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Priority != nil {
		c.Priority = *p.Priority
	}
	if p.ParentID != nil {
		c.ParentID = p.ParentID
	}
	if p.ClearParent {
		c.ParentID = nil
	}
	if len(p.SetFields) > 0 {
		if c.Fields == nil {
			c.Fields = make(map[string]FieldValue, len(p.SetFields))
		}
		for name, value := range p.SetFields {
			c.Fields[name] = value
		}
	}
	for _, name := range p.UnsetFields {
		delete(c.Fields, name)
	}
}

// CreateCapture persists a new capture owned by the caller.
func (s *Service) CreateCapture(ctx context.Context, caller Principal, capture Capture) (Capture, Result, error) {
	var created Capture
	var res Result
	err := s.instrument(ctx, "create_capture", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		// The store mints ids. Honoring a caller-supplied id would turn
		// duplicate-id errors into an existence oracle across tenants.
		capture.ID = ""
		capture.Owner = caller
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateCapture(capture)
			return err
		})
		return txErr
	})
	return created, res, err
}

// CreateCaptureFromTemplate instantiates a capture template and persists the
// result. Template defaults are copied by value; explicit fields on the input
// win over the template's defaults.
func (s *Service) CreateCaptureFromTemplate(ctx context.Context, caller Principal, templateID string, capture Capture) (Capture, Result, error) {
	var created Capture
	var res Result
	err := s.instrument(ctx, "create_capture_from_template", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		capture.ID = ""
		capture.Owner = caller
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			tmpl, ok := tx.FindTemplate(templateID)
			if !ok || !templateReadable(tmpl, caller) {
				return domain.NotFoundError{Entity: EntityTemplate, ID: templateID}
			}
			if tmpl.Kind != domain.TemplateKindCapture {
				return fmt.Errorf("template %s is not a capture template", templateID)
			}
			if capture.Type == "" && tmpl.CaptureType != nil {
				capture.Type = *tmpl.CaptureType
			}
			if len(tmpl.DefaultFields) > 0 {
				merged := domain.CloneFieldValues(tmpl.DefaultFields)
				for name, value := range capture.Fields {
					merged[name] = value
				}
				capture.Fields = merged
			}
			if capture.Content == nil && tmpl.DefaultContent != nil {
				content := *tmpl.DefaultContent
				capture.Content = &content
			}
			var err error
			created, err = tx.CreateCapture(capture)
			return err
		})
		return txErr
	})
	return created, res, err
}

// GetCapture returns a caller-owned capture. Captures owned by other
// principals read as NotFound.
func (s *Service) GetCapture(ctx context.Context, caller Principal, id string) (Capture, error) {
	var capture Capture
	err := s.instrument(ctx, "get_capture", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		got, ok := s.store.GetCapture(id)
		if !ok || got.Owner != caller {
			return domain.NotFoundError{Entity: EntityCapture, ID: id}
		}
		capture = got
		return nil
	})
	return capture, err
}

// UpdateCapture applies a partial patch to a caller-owned capture. Changing
// the parent re-runs the cycle check; changing the type re-validates every
// surviving field against the new type's schema.
func (s *Service) UpdateCapture(ctx context.Context, caller Principal, id string, patch CapturePatch) (Capture, Result, error) {
	var updated Capture
	var res Result
	err := s.instrument(ctx, "update_capture", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindCapture(id); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntityCapture, ID: id}
			}
			var err error
			updated, err = tx.UpdateCapture(id, func(c *Capture) error {
				patch.apply(c)
				return nil
			})
			return err
		})
		return txErr
	})
	return updated, res, err
}

// DeleteCapture removes a caller-owned capture. Direct children are
// re-parented to the deleted node's parent and the capture is stripped from
// every sprint membership set in the same transaction.
func (s *Service) DeleteCapture(ctx context.Context, caller Principal, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_capture", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindCapture(id); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntityCapture, ID: id}
			}
			return tx.DeleteCapture(id)
		})
		return txErr
	})
	return res, err
}

// ListCaptures returns the caller's captures matching the filter, ordered by
// creation time with ID tiebreak, paginated.
func (s *Service) ListCaptures(ctx context.Context, caller Principal, filter CaptureFilter, page Page) (CapturePage, error) {
	var out CapturePage
	err := s.instrument(ctx, "list_captures", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		return s.store.View(ctx, func(view TransactionView) error {
			out = queryCaptures(view, caller, filter, page)
			return nil
		})
	})
	return out, err
}
