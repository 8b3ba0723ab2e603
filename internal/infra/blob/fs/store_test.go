package fs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"foundrycore/internal/blob/core"
)

func TestStorePutGetRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	info, err := store.Put(ctx, "snapshots/2026/a.json", strings.NewReader(`{"v":1}`), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"kind": "snapshot"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ETag == "" {
		t.Fatalf("unexpected info: %+v", info)
	}
	got, rc, err := store.Get(ctx, "snapshots/2026/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != `{"v":1}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got.ContentType != "application/json" || got.Metadata["kind"] != "snapshot" {
		t.Fatalf("metadata lost: %+v", got)
	}
}

func TestStorePutIsCreateOnly(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatalf("expected overwrite rejection")
	}
}

func TestStoreMissingKey(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if _, _, err := store.Get(ctx, "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected not found, got %v", err)
	}
	if _, err := store.Head(ctx, "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: expected not found, got %v", err)
	}
	if ok, err := store.Delete(ctx, "absent"); err != nil || ok {
		t.Fatalf("delete absent: ok=%v err=%v", ok, err)
	}
}

func TestStoreListByPrefix(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"snapshots/b", "snapshots/a", "other/c"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "snapshots/a" || infos[1].Key != "snapshots/b" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestStoreRejectsTraversalKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "../escape", "/abs"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestStorePresignURL(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	u, err := store.PresignURL(ctx, "k", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(u, "http://local.blob/") {
		t.Fatalf("unexpected url %q", u)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}
