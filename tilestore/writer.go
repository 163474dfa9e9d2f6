package tilestore

import (
	"context"

	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/hierarchy"
	"github.com/hupe1980/tileconn/tile"
)

// Writer encodes tiles into a blob store.
type Writer struct {
	store       blobstore.BlobStore
	h           *hierarchy.Hierarchy
	compression tile.Compression
}

// NewWriter creates a tile writer. Payloads are compressed with c.
func NewWriter(store blobstore.BlobStore, h *hierarchy.Hierarchy, c tile.Compression) *Writer {
	return &Writer{store: store, h: h, compression: c}
}

// WriteTile encodes t and stores it at its tile path.
func (w *Writer) WriteTile(ctx context.Context, t *tile.Tile) error {
	name, err := PathIn(w.h, t.ID)
	if err != nil {
		return err
	}
	data, err := tile.Encode(t, w.compression)
	if err != nil {
		return err
	}
	return w.store.Put(ctx, name, data)
}
