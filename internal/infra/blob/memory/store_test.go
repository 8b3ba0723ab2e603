package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"foundrycore/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	if _, err := store.Put(ctx, "a", strings.NewReader("payload"), core.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "a", strings.NewReader("again"), core.PutOptions{}); err == nil {
		t.Fatalf("expected create-only rejection")
	}
	info, rc, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "payload" || info.ContentType != "text/plain" {
		t.Fatalf("unexpected blob: %q %+v", body, info)
	}
	if ok, err := store.Delete(ctx, "a"); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, err := store.Head(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreListOrdersKeys(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"z", "m/1", "m/0"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "m/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "m/0" || infos[1].Key != "m/1" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}
