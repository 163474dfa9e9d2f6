package colorstore

import (
	"bytes"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tileconn/codec"
)

func mustLevel(t *testing.T, id uint8, colors []Color, readable *bitset.BitSet) *Level {
	t.Helper()
	l, err := NewLevel(id, colors, readable)
	require.NoError(t, err)
	return l
}

func TestSnapshot_With(t *testing.T) {
	l0 := mustLevel(t, 0, []Color{0, 0}, nil)
	l1 := mustLevel(t, 1, []Color{0, 1, 1}, nil)
	l1b := mustLevel(t, 1, []Color{0, 0, 0}, nil)

	s := NewSnapshot(l0, l1)
	n := s.With(l1b)

	assert.NotEqual(t, s.ID(), n.ID())
	got, ok := s.Level(1)
	require.True(t, ok)
	assert.Same(t, l1, got)
	got, ok = n.Level(1)
	require.True(t, ok)
	assert.Same(t, l1b, got)
	got, ok = n.Level(0)
	require.True(t, ok)
	assert.Same(t, l0, got)

	_, ok = n.Level(2)
	assert.False(t, ok)
	assert.Len(t, n.Levels(), 2)
}

func TestSnapshot_NilIsEmpty(t *testing.T) {
	var s *Snapshot
	_, ok := s.Level(0)
	assert.False(t, ok)
	assert.Nil(t, s.Levels())

	n := s.With(mustLevel(t, 3, []Color{0}, nil))
	assert.Len(t, n.Levels(), 1)
}

func TestSnapshot_SamePartition(t *testing.T) {
	a := NewSnapshot(mustLevel(t, 0, []Color{0, 1, 0}, nil))
	b := NewSnapshot(mustLevel(t, 0, []Color{1, 0, 1}, nil))
	c := NewSnapshot(mustLevel(t, 0, []Color{0, 0, 0}, nil))
	d := b.With(mustLevel(t, 1, []Color{0}, nil))

	assert.True(t, a.SamePartition(b))
	assert.False(t, a.SamePartition(c))
	assert.False(t, a.SamePartition(d))
	assert.Equal(t, a.Partition(), b.Partition())
}

func TestSnapshot_SamePartitionNil(t *testing.T) {
	a := NewSnapshot(mustLevel(t, 0, []Color{0, 1, 0}, nil))
	var none *Snapshot

	assert.False(t, a.SamePartition(nil))
	assert.False(t, none.SamePartition(a))
	assert.False(t, none.SamePartition(nil))

	l0, ok := a.Level(0)
	require.True(t, ok)
	var lvl *Level
	assert.False(t, l0.SamePartition(lvl))
	assert.False(t, lvl.SamePartition(l0))
}

func TestEncodeDecode(t *testing.T) {
	readable := bitset.New(6).Set(0).Set(1).Set(4)
	s := NewSnapshot(
		mustLevel(t, 0, []Color{0, 0, 1, 2, 1, 3}, readable),
		mustLevel(t, 3, []Color{0, 1}, nil),
	)

	for _, c := range []codec.Codec{codec.GoJSON{}, codec.JSON{}, nil} {
		data, err := Encode(s, c)
		require.NoError(t, err)

		got, err := Decode(data)
		require.NoError(t, err)

		assert.Equal(t, s.ID(), got.ID())
		assert.True(t, s.CreatedAt().Equal(got.CreatedAt()))
		assert.True(t, s.SamePartition(got))

		l, ok := got.Level(0)
		require.True(t, ok)
		assert.Equal(t, []Color{0, 0, 1, 2, 1, 3}, l.Colors())
		assert.True(t, l.Readable(4))
		assert.False(t, l.Readable(5))
		assert.Equal(t, 3, l.ReadableCount())
	}
}

func TestEncodeDecode_Empty(t *testing.T) {
	s := NewSnapshot()
	data, err := Encode(s, nil)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, got.Levels())
	assert.Equal(t, s.ID(), got.ID())
}

func TestDecode_Errors(t *testing.T) {
	s := NewSnapshot(mustLevel(t, 0, []Color{0, 1, 1, 0}, nil))
	data, err := Encode(s, nil)
	require.NoError(t, err)

	t.Run("checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-6] ^= 0xFF
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrChecksum)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Decode(data[:8])
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[0] = 'X'
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestFlatRoundTrip(t *testing.T) {
	colors := []Color{0, 1, 70000, 2}

	var buf bytes.Buffer
	require.NoError(t, WriteFlat(&buf, colors))
	assert.Equal(t, 16, buf.Len())
	assert.Equal(t, []byte{0x70, 0x11, 0x01, 0x00}, buf.Bytes()[8:12])

	got, err := ReadFlat(&buf)
	require.NoError(t, err)
	assert.Equal(t, colors, got)

	_, err = ReadFlat(bytes.NewReader([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrCorrupt)
}
