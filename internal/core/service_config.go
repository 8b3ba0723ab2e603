package core

import (
	"context"
	"errors"
)

// ErrNotAdmin is returned when a configuration mutation requires an
// administrative principal.
var ErrNotAdmin = errors.New("caller is not an administrator")

// SetAuthService records the external auth-service reference. Admin-only.
func (s *Service) SetAuthService(ctx context.Context, caller Principal, ref string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "set_auth_service", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if !isAdmin(tx.Admins(), caller) {
				return ErrNotAdmin
			}
			return tx.SetAuthService(ref)
		})
		return txErr
	})
	return res, err
}

// AuthService returns the recorded auth-service reference.
func (s *Service) AuthService(ctx context.Context) (string, error) {
	var ref string
	err := s.instrument(ctx, "get_auth_service", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			ref = view.AuthService()
			return nil
		})
	})
	return ref, err
}

// Admins returns the administrative principal set.
func (s *Service) Admins(ctx context.Context) ([]Principal, error) {
	var admins []Principal
	err := s.instrument(ctx, "list_admins", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			admins = view.Admins()
			return nil
		})
	})
	return admins, err
}

// AddAdmin grants administrative rights to a principal. The first add on an
// empty admin set bootstraps the installation; afterwards only admins may add.
func (s *Service) AddAdmin(ctx context.Context, caller, p Principal) (Result, error) {
	var res Result
	err := s.instrument(ctx, "add_admin", func(ctx context.Context) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		if p == "" {
			return errors.New("admin principal required")
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			admins := tx.Admins()
			if len(admins) > 0 && !isAdmin(admins, caller) {
				return ErrNotAdmin
			}
			return tx.AddAdmin(p)
		})
		return txErr
	})
	return res, err
}

func isAdmin(admins []Principal, caller Principal) bool {
	for _, admin := range admins {
		if admin == caller {
			return true
		}
	}
	return false
}
