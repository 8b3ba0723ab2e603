package core

import (
	"context"

	"foundrycore/pkg/domain"
)

// templateReadable reports whether the caller may read the template. Public
// templates cross the tenant boundary; private ones do not.
func templateReadable(t Template, caller Principal) bool {
	return t.Owner == caller || t.Visibility == VisibilityPublic
}

// CreateTemplate persists a new template owned by the caller. Visibility
// defaults to private.
func (s *Service) CreateTemplate(ctx context.Context, caller Principal, template Template) (Template, Result, error) {
	var created Template
	var res Result
	err := s.instrument(ctx, "create_template", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		template.ID = ""
		template.Owner = caller
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateTemplate(template)
			return err
		})
		return txErr
	})
	return created, res, err
}

// GetTemplate returns a template visible to the caller. Private templates of
// other principals read as NotFound.
func (s *Service) GetTemplate(ctx context.Context, caller Principal, id string) (Template, error) {
	var template Template
	err := s.instrument(ctx, "get_template", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		got, ok := s.store.GetTemplate(id)
		if !ok || !templateReadable(got, caller) {
			return domain.NotFoundError{Entity: EntityTemplate, ID: id}
		}
		template = got
		return nil
	})
	return template, err
}

// ListTemplates returns the caller's own templates.
func (s *Service) ListTemplates(ctx context.Context, caller Principal) ([]Template, error) {
	var out []Template
	err := s.instrument(ctx, "list_templates", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		for _, template := range s.store.ListTemplates() {
			if template.Owner == caller {
				out = append(out, template)
			}
		}
		return nil
	})
	return out, err
}

// ListPublicTemplates returns every public template regardless of owner.
func (s *Service) ListPublicTemplates(ctx context.Context, caller Principal) ([]Template, error) {
	var out []Template
	err := s.instrument(ctx, "list_public_templates", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		for _, template := range s.store.ListTemplates() {
			if template.Visibility == VisibilityPublic {
				out = append(out, template)
			}
		}
		return nil
	})
	return out, err
}

// UpdateTemplate mutates a template. Mutating another principal's public
// template fails with NotOwner; their private templates read as NotFound.
func (s *Service) UpdateTemplate(ctx context.Context, caller Principal, id string, mutator func(*Template) error) (Template, Result, error) {
	var updated Template
	var res Result
	err := s.instrument(ctx, "update_template", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := guardTemplateMutation(tx, caller, id); err != nil {
				return err
			}
			var err error
			updated, err = tx.UpdateTemplate(id, mutator)
			return err
		})
		return txErr
	})
	return updated, res, err
}

// DeleteTemplate removes a template under the same ownership policy as
// UpdateTemplate. Records instantiated from the template are unaffected.
func (s *Service) DeleteTemplate(ctx context.Context, caller Principal, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_template", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := guardTemplateMutation(tx, caller, id); err != nil {
				return err
			}
			return tx.DeleteTemplate(id)
		})
		return txErr
	})
	return res, err
}

func guardTemplateMutation(tx Transaction, caller Principal, id string) error {
	existing, ok := tx.FindTemplate(id)
	if !ok {
		return domain.NotFoundError{Entity: EntityTemplate, ID: id}
	}
	if existing.Owner == caller {
		return nil
	}
	if existing.Visibility == VisibilityPublic {
		return domain.NotOwnerError{Entity: EntityTemplate, ID: id}
	}
	return domain.NotFoundError{Entity: EntityTemplate, ID: id}
}
