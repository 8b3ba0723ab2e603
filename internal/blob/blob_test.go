package blob_test

import (
	"context"
	"testing"

	"foundrycore/internal/blob"
)

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	t.Setenv("FOUNDRYCORE_BLOB_DRIVER", "memory")
	store, err := blob.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != blob.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("FOUNDRYCORE_BLOB_DRIVER", "")
	t.Setenv("FOUNDRYCORE_BLOB_FS_ROOT", t.TempDir())
	store, err := blob.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != blob.DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Setenv("FOUNDRYCORE_BLOB_DRIVER", "carrierpigeon")
	if _, err := blob.Open(context.Background()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
