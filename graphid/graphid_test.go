package graphid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Fields(t *testing.T) {
	tests := []struct {
		level uint8
		tile  uint32
		id    uint32
	}{
		{0, 0, 0},
		{2, 756425, 10},
		{3, MaxTileIndex, MaxID},
		{MaxLevel, 1, 1},
	}

	for _, tt := range tests {
		g, err := New(tt.level, tt.tile, tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.level, g.Level())
		assert.Equal(t, tt.tile, g.TileIndex())
		assert.Equal(t, tt.id, g.ID())
		assert.Equal(t, TileID{Level: tt.level, Index: tt.tile}, g.Tile())
		assert.True(t, g.Valid())
	}
}

func TestNew_OutOfRange(t *testing.T) {
	_, err := New(MaxLevel+1, 0, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = New(0, MaxTileIndex+1, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = New(0, 0, MaxID+1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	assert.Panics(t, func() { MustNew(0, MaxTileIndex+1, 0) })
}

func TestGraphID_StringParse(t *testing.T) {
	g := MustNew(2, 756425, 10)
	assert.Equal(t, "2/756425/10", g.String())

	parsed, err := Parse(g.String())
	require.NoError(t, err)
	assert.Equal(t, g, parsed)

	for _, bad := range []string{"", "1/2", "a/1/1", "1/b/1", "1/1/c", "1/1/1/1", "9/0/0"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, "invalid", Invalid.String())
	assert.False(t, Invalid.Valid())
}

func TestTileID_Base(t *testing.T) {
	tid := TileID{Level: 1, Index: 42}
	base, err := tid.Base()
	require.NoError(t, err)
	assert.Equal(t, tid, base.Tile())
	assert.Equal(t, uint32(0), base.ID())
	assert.Equal(t, "1/42", tid.String())
}
