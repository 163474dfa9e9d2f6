package tilestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/hierarchy"
)

func TestPath(t *testing.T) {
	tests := []struct {
		id    graphid.TileID
		count int
		want  string
	}{
		{graphid.TileID{Level: 2, Index: 415_000}, 1_036_800, "2/000/415/000.gph"},
		{graphid.TileID{Level: 2, Index: 7}, 1_036_800, "2/000/000/007.gph"},
		{graphid.TileID{Level: 0, Index: 3015}, 4050, "0/003/015.gph"},
		{graphid.TileID{Level: 1, Index: 64_799}, 64_800, "1/064/799.gph"},
		{graphid.TileID{Level: 3, Index: 2}, 4, "3/002.gph"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Path(tt.id, tt.count))

		got, err := ParsePath(tt.want)
		require.NoError(t, err)
		assert.Equal(t, tt.id, got)
	}
}

func TestParsePathInvalid(t *testing.T) {
	for _, name := range []string{
		"CURRENT",
		"snapshots/abc.tcs",
		"2/000/415/000.bin",
		"x/000/001.gph",
		"9/000/001.gph",
		"2/00/001.gph",
		"2.gph",
		"2/abc.gph",
	} {
		_, err := ParsePath(name)
		assert.Error(t, err, name)
	}
}

func TestPathIn(t *testing.T) {
	h := hierarchy.Default()

	name, err := PathIn(h, graphid.TileID{Level: 2, Index: 415_000})
	require.NoError(t, err)
	assert.Equal(t, "2/000/415/000.gph", name)

	_, err = PathIn(h, graphid.TileID{Level: 6})
	require.ErrorIs(t, err, ErrUnknownLevel)

	_, err = PathIn(h, graphid.TileID{Level: 0, Index: 5000})
	require.ErrorIs(t, err, ErrOutOfRange)
}
