package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"foundrycore/internal/blob"
	"foundrycore/internal/infra/persistence/memory"
)

const archiveContentType = "application/json"

// Archiver writes timestamped state snapshots to a blob store and can restore
// the most recent one. Archive keys sort lexicographically by capture time.
type Archiver struct {
	store  SnapshotStore
	blobs  blob.Store
	prefix string
	nowFn  func() time.Time
}

// NewArchiver constructs an archiver over the given store and blob backend.
// An empty prefix defaults to "snapshots".
func NewArchiver(store SnapshotStore, blobs blob.Store, prefix string) *Archiver {
	if prefix == "" {
		prefix = "snapshots"
	}
	return &Archiver{store: store, blobs: blobs, prefix: prefix, nowFn: time.Now}
}

// SetNowFunc overrides the archiver clock. Intended for tests.
func (a *Archiver) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		a.nowFn = fn
	}
}

// Archive exports the committed state and writes it as a new blob.
func (a *Archiver) Archive(ctx context.Context) (blob.Info, error) {
	snapshot := a.store.ExportState()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode snapshot: %w", err)
	}
	key := fmt.Sprintf("%s/%s.json", a.prefix, a.nowFn().UTC().Format("20060102T150405.000000000Z"))
	info, err := a.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: archiveContentType,
		Metadata:    map[string]string{"snapshot": "state"},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive snapshot: %w", err)
	}
	return info, nil
}

// List returns all archived snapshots in key (and therefore time) order.
func (a *Archiver) List(ctx context.Context) ([]blob.Info, error) {
	return a.blobs.List(ctx, a.prefix+"/")
}

// RestoreLatest imports the most recent archived snapshot into the store and
// returns its key. Durable backends persist the restored state on the next
// committed transaction.
func (a *Archiver) RestoreLatest(ctx context.Context) (string, error) {
	infos, err := a.List(ctx)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", blob.ErrNotFound
	}
	latest := infos[len(infos)-1].Key
	_, rc, err := a.blobs.Get(ctx, latest)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	var snapshot memory.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return "", fmt.Errorf("decode archive %s: %w", latest, err)
	}
	a.store.ImportState(snapshot)
	return latest, nil
}
