package tileconn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/colorstore"
)

// CurrentName is the blob holding the name of the published snapshot. Stores
// that commit it atomically (blobstore/s3.DDBCommitStore) use the same name.
const CurrentName = "CURRENT"

// SnapshotPrefix is the blob prefix Publish writes snapshots under.
const SnapshotPrefix = "snapshots/"

// Save writes the current snapshot to store under name.
func (m *Map) Save(ctx context.Context, store blobstore.BlobStore, name string) (err error) {
	defer func() { m.opts.logger.LogSnapshot(ctx, "save", name, err) }()

	snap := m.current.Load()
	if snap == nil {
		return ErrNotBuilt
	}
	return m.save(ctx, store, name, snap)
}

func (m *Map) save(ctx context.Context, store blobstore.BlobStore, name string, snap *colorstore.Snapshot) error {
	data, err := colorstore.Encode(snap, m.opts.codec)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("tileconn: write snapshot %s: %w", name, err)
	}
	return nil
}

// Load replaces the current snapshot with the one stored under name. Every
// level of the snapshot must exist in the hierarchy with the same tile count.
func (m *Map) Load(ctx context.Context, store blobstore.BlobStore, name string) (err error) {
	defer func() { m.opts.logger.LogSnapshot(ctx, "load", name, err) }()

	data, err := blobstore.Get(ctx, store, name)
	if err != nil {
		return fmt.Errorf("tileconn: read snapshot %s: %w", name, err)
	}
	snap, err := colorstore.Decode(data)
	if err != nil {
		return fmt.Errorf("tileconn: snapshot %s: %w", name, err)
	}
	for _, l := range snap.Levels() {
		hl, ok := m.h.Level(l.ID())
		if !ok {
			return &LevelError{Level: l.ID(), cause: fmt.Errorf("%w: snapshot level not in hierarchy", ErrInvalidArgument)}
		}
		if hl.Grid.TileCount() != l.TileCount() {
			return &LevelError{
				Level: l.ID(),
				cause: fmt.Errorf("%w: snapshot has %d tiles, grid has %d", ErrInvalidArgument, l.TileCount(), hl.Grid.TileCount()),
			}
		}
	}

	m.publishMu.Lock()
	m.current.Store(snap)
	m.publishMu.Unlock()
	return nil
}

// Publish saves the current snapshot under SnapshotPrefix and points
// CurrentName at it. It returns the snapshot blob name.
func (m *Map) Publish(ctx context.Context, store blobstore.BlobStore) (name string, err error) {
	snap := m.current.Load()
	if snap == nil {
		return "", ErrNotBuilt
	}
	name = SnapshotPrefix + snap.ID().String() + ".tcs"
	defer func() { m.opts.logger.LogSnapshot(ctx, "publish", name, err) }()

	if err := m.save(ctx, store, name, snap); err != nil {
		return "", err
	}
	if err := store.Put(ctx, CurrentName, []byte(name)); err != nil {
		return "", fmt.Errorf("tileconn: update %s: %w", CurrentName, err)
	}
	return name, nil
}

// LoadCurrent loads the snapshot CurrentName points at. It returns an error
// matching blobstore.ErrNotFound when nothing was published yet.
func (m *Map) LoadCurrent(ctx context.Context, store blobstore.BlobStore) error {
	data, err := blobstore.Get(ctx, store, CurrentName)
	if err != nil {
		return fmt.Errorf("tileconn: read %s: %w", CurrentName, err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return errors.New("tileconn: empty " + CurrentName)
	}
	return m.Load(ctx, store, name)
}
