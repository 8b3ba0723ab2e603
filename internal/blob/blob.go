// Package blob selects and re-exports the blob storage backends used for
// snapshot archives. Higher layers depend on this package; the concrete
// drivers live under internal/infra/blob.
package blob

import (
	"context"
	"fmt"
	"os"

	"foundrycore/internal/blob/core"
	fsblob "foundrycore/internal/infra/blob/fs"
	memoryblob "foundrycore/internal/infra/blob/memory"
	s3blob "foundrycore/internal/infra/blob/s3"
)

// Re-exported core types so callers need a single import.
type (
	Store            = core.Store
	Driver           = core.Driver
	Info             = core.Info
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
)

// NewFilesystem returns a filesystem-backed store rooted at root.
func NewFilesystem(root string) (Store, error) { return fsblob.New(root) }

// NewMemory returns an in-memory store.
func NewMemory() Store { return memoryblob.New() }

// Open selects a Store implementation using environment variables.
//
//	FOUNDRYCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	FOUNDRYCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./archivedata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("FOUNDRYCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("FOUNDRYCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return s3blob.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
