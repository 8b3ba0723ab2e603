package core

import (
	"context"
	"errors"
	"testing"
)

func TestAdminBootstrapAndGuard(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// First add on an empty admin set bootstraps the installation.
	if _, err := svc.AddAdmin(ctx, "alice", "alice"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	admins, err := svc.Admins(ctx)
	if err != nil {
		t.Fatalf("admins: %v", err)
	}
	if len(admins) != 1 || admins[0] != "alice" {
		t.Fatalf("unexpected admins: %v", admins)
	}

	// Non-admins cannot extend the set afterwards.
	if _, err := svc.AddAdmin(ctx, "mallory", "mallory"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	// Admins can.
	if _, err := svc.AddAdmin(ctx, "alice", "bob"); err != nil {
		t.Fatalf("admin add: %v", err)
	}
	// Re-adding is idempotent.
	if _, err := svc.AddAdmin(ctx, "alice", "bob"); err != nil {
		t.Fatalf("repeat add: %v", err)
	}
	admins, err = svc.Admins(ctx)
	if err != nil {
		t.Fatalf("admins: %v", err)
	}
	if len(admins) != 2 {
		t.Fatalf("unexpected admins after repeat add: %v", admins)
	}
}

func TestSetAuthServiceIsAdminOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Nobody is an admin yet, so nobody may set the reference.
	if _, err := svc.SetAuthService(ctx, "alice", "https://auth.example.com"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin before bootstrap, got %v", err)
	}
	if _, err := svc.AddAdmin(ctx, "alice", "alice"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := svc.SetAuthService(ctx, "alice", "https://auth.example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := svc.SetAuthService(ctx, "mallory", "https://evil.example.com"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	ref, err := svc.AuthService(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ref != "https://auth.example.com" {
		t.Fatalf("unexpected reference %q", ref)
	}
}
