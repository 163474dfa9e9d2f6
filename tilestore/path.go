package tilestore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/hierarchy"
)

// Extension is the file extension of encoded tiles.
const Extension = ".gph"

// digits returns the padded width of tile indices for a grid of tileCount tiles.
func digits(tileCount int) int {
	n := len(strconv.Itoa(max(tileCount-1, 0)))
	return (n + 2) / 3 * 3
}

// Path returns the blob name of a tile within a level of tileCount tiles.
func Path(id graphid.TileID, tileCount int) string {
	s := fmt.Sprintf("%0*d", digits(tileCount), id.Index)

	var b strings.Builder
	b.WriteString(strconv.Itoa(int(id.Level)))
	for i := 0; i < len(s); i += 3 {
		b.WriteByte('/')
		b.WriteString(s[i : i+3])
	}
	b.WriteString(Extension)
	return b.String()
}

// LevelPrefix returns the blob name prefix of all tiles of a level.
func LevelPrefix(level uint8) string {
	return strconv.Itoa(int(level)) + "/"
}

// ParsePath parses a blob name produced by Path.
func ParsePath(name string) (graphid.TileID, error) {
	rest, ok := strings.CutSuffix(name, Extension)
	if !ok {
		return graphid.TileID{}, fmt.Errorf("tilestore: %q is not a tile path", name)
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 2 {
		return graphid.TileID{}, fmt.Errorf("tilestore: %q is not a tile path", name)
	}

	level, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || level > graphid.MaxLevel {
		return graphid.TileID{}, fmt.Errorf("tilestore: %q: bad level", name)
	}

	var idx strings.Builder
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return graphid.TileID{}, fmt.Errorf("tilestore: %q: bad index component %q", name, p)
		}
		idx.WriteString(p)
	}
	index, err := strconv.ParseUint(idx.String(), 10, 32)
	if err != nil || index > graphid.MaxTileIndex {
		return graphid.TileID{}, fmt.Errorf("tilestore: %q: bad index", name)
	}

	return graphid.TileID{Level: uint8(level), Index: uint32(index)}, nil
}

// PathIn returns the blob name of a tile using the tile count of its level in h.
func PathIn(h *hierarchy.Hierarchy, id graphid.TileID) (string, error) {
	l, ok := h.Level(id.Level)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownLevel, id.Level)
	}
	if !l.Grid.Contains(id.Index) {
		return "", fmt.Errorf("%w: tile %s", ErrOutOfRange, id)
	}
	return Path(id, l.Grid.TileCount()), nil
}
