package core

import (
	"context"
	"sort"

	"foundrycore/pkg/domain"
)

// CreateSprint persists a new sprint owned by the caller.
func (s *Service) CreateSprint(ctx context.Context, caller Principal, sprint Sprint) (Sprint, Result, error) {
	var created Sprint
	var res Result
	err := s.instrument(ctx, "create_sprint", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		sprint.ID = ""
		sprint.Owner = caller
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateSprint(sprint)
			return err
		})
		return txErr
	})
	return created, res, err
}

// GetSprint returns a caller-owned sprint; other principals' sprints read as NotFound.
func (s *Service) GetSprint(ctx context.Context, caller Principal, id string) (Sprint, error) {
	var sprint Sprint
	err := s.instrument(ctx, "get_sprint", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		got, ok := s.store.GetSprint(id)
		if !ok || got.Owner != caller {
			return domain.NotFoundError{Entity: EntitySprint, ID: id}
		}
		sprint = got
		return nil
	})
	return sprint, err
}

// ListSprints returns the caller's sprints ordered by creation time.
func (s *Service) ListSprints(ctx context.Context, caller Principal) ([]Sprint, error) {
	var out []Sprint
	err := s.instrument(ctx, "list_sprints", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		for _, sprint := range s.store.ListSprints() {
			if sprint.Owner == caller {
				out = append(out, sprint)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID < out[j].ID
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

// UpdateSprint mutates a caller-owned sprint.
func (s *Service) UpdateSprint(ctx context.Context, caller Principal, id string, mutator func(*Sprint) error) (Sprint, Result, error) {
	var updated Sprint
	var res Result
	err := s.instrument(ctx, "update_sprint", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindSprint(id); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntitySprint, ID: id}
			}
			var err error
			updated, err = tx.UpdateSprint(id, mutator)
			return err
		})
		return txErr
	})
	return updated, res, err
}

// DeleteSprint removes a caller-owned sprint. Only the membership set is
// discarded; member captures survive.
func (s *Service) DeleteSprint(ctx context.Context, caller Principal, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_sprint", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindSprint(id); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntitySprint, ID: id}
			}
			return tx.DeleteSprint(id)
		})
		return txErr
	})
	return res, err
}

// AddSprintCapture adds a caller-owned capture to a caller-owned sprint.
// Duplicate adds are idempotent no-ops. When the resulting load exceeds the
// sprint's capacity the commit succeeds and the Result carries a warning.
func (s *Service) AddSprintCapture(ctx context.Context, caller Principal, sprintID, captureID string) (Sprint, Result, error) {
	var updated Sprint
	var res Result
	err := s.instrument(ctx, "add_sprint_capture", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindSprint(sprintID); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntitySprint, ID: sprintID}
			}
			var err error
			updated, err = tx.AddSprintCapture(sprintID, captureID)
			return err
		})
		return txErr
	})
	return updated, res, err
}

// RemoveSprintCapture removes a capture from a caller-owned sprint's
// membership set. Removing an unassigned capture is a no-op.
func (s *Service) RemoveSprintCapture(ctx context.Context, caller Principal, sprintID, captureID string) (Sprint, Result, error) {
	var updated Sprint
	var res Result
	err := s.instrument(ctx, "remove_sprint_capture", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if existing, ok := tx.FindSprint(sprintID); !ok || existing.Owner != caller {
				return domain.NotFoundError{Entity: EntitySprint, ID: sprintID}
			}
			var err error
			updated, err = tx.RemoveSprintCapture(sprintID, captureID)
			return err
		})
		return txErr
	})
	return updated, res, err
}
