package tilestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/hierarchy"
	"github.com/hupe1980/tileconn/resource"
	"github.com/hupe1980/tileconn/tile"
)

var (
	// ErrUnknownLevel is returned for a level the hierarchy does not define.
	ErrUnknownLevel = errors.New("tilestore: unknown level")
	// ErrOutOfRange is returned for a tile index outside its level's grid.
	ErrOutOfRange = errors.New("tilestore: tile index out of range")
)

// Reader loads tiles from a blob store.
type Reader struct {
	store blobstore.BlobStore
	h     *hierarchy.Hierarchy
	rc    *resource.Controller
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithResourceController throttles tile reads through rc's IO limit.
func WithResourceController(rc *resource.Controller) ReaderOption {
	return func(r *Reader) { r.rc = rc }
}

// NewReader creates a tile reader over store laid out for h.
func NewReader(store blobstore.BlobStore, h *hierarchy.Hierarchy, opts ...ReaderOption) *Reader {
	r := &Reader{store: store, h: h}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ReadTile loads and decodes one tile. A missing tile yields an error satisfying
// errors.Is(err, blobstore.ErrNotFound).
func (r *Reader) ReadTile(ctx context.Context, id graphid.TileID) (*tile.Tile, error) {
	name, err := PathIn(r.h, id)
	if err != nil {
		return nil, err
	}

	b, err := r.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := r.rc.AcquireIO(ctx, int(b.Size())); err != nil {
		return nil, err
	}

	data, err := blobstore.ReadAll(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("tilestore: read %s: %w", name, err)
	}

	t, err := tile.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("tilestore: %s: %w", name, err)
	}
	if t.ID != id {
		return nil, fmt.Errorf("tilestore: %s: %w: header names tile %s", name, tile.ErrCorrupt, t.ID)
	}
	return t, nil
}

// ListTiles returns the indices of all tiles of a level present in the store.
// Blobs that are not tile paths, or whose index lies outside the grid, are skipped.
func (r *Reader) ListTiles(ctx context.Context, level uint8) (*roaring.Bitmap, error) {
	l, ok := r.h.Level(level)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}

	names, err := r.store.List(ctx, LevelPrefix(level))
	if err != nil {
		return nil, err
	}

	bm := roaring.New()
	for _, name := range names {
		id, err := ParsePath(name)
		if err != nil || id.Level != level || !l.Grid.Contains(id.Index) {
			continue
		}
		bm.Add(id.Index)
	}
	return bm, nil
}
