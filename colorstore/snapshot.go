package colorstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/tileconn/graphid"
)

// Snapshot is one published set of level colorings.
type Snapshot struct {
	id        uuid.UUID
	createdAt time.Time
	levels    [graphid.MaxLevel + 1]*Level
}

// NewSnapshot creates a snapshot with a fresh id. Later levels replace earlier
// ones with the same level id.
func NewSnapshot(levels ...*Level) *Snapshot {
	s := &Snapshot{id: uuid.New(), createdAt: time.Now().UTC()}
	for _, l := range levels {
		s.levels[l.id] = l
	}
	return s
}

// With returns a new snapshot holding the levels of s with the given levels
// replaced or added. s is unchanged. A nil s yields a snapshot of levels.
func (s *Snapshot) With(levels ...*Level) *Snapshot {
	n := NewSnapshot()
	if s != nil {
		n.levels = s.levels
	}
	for _, l := range levels {
		n.levels[l.id] = l
	}
	return n
}

// ID returns the unique snapshot id.
func (s *Snapshot) ID() uuid.UUID { return s.id }

// CreatedAt returns the creation time.
func (s *Snapshot) CreatedAt() time.Time { return s.createdAt }

// Level returns the coloring of a level, if built.
func (s *Snapshot) Level(id uint8) (*Level, bool) {
	if s == nil || int(id) >= len(s.levels) || s.levels[id] == nil {
		return nil, false
	}
	return s.levels[id], true
}

// Levels returns the built levels in ascending id order.
func (s *Snapshot) Levels() []*Level {
	if s == nil {
		return nil
	}
	var out []*Level
	for _, l := range s.levels {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// Partition returns the partition of every built level.
func (s *Snapshot) Partition() map[uint8][][]uint32 {
	out := make(map[uint8][][]uint32)
	for _, l := range s.Levels() {
		out[l.id] = l.Partition()
	}
	return out
}

// SamePartition reports whether s and o built the same levels with identical
// tile groupings. A nil snapshot matches nothing, not even another nil one.
func (s *Snapshot) SamePartition(o *Snapshot) bool {
	if s == nil || o == nil {
		return false
	}
	for i := range s.levels {
		a, b := s.levels[i], o.levels[i]
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && !a.SamePartition(b) {
			return false
		}
	}
	return true
}

// MemoryUsage estimates the bytes held by all levels.
func (s *Snapshot) MemoryUsage() int64 {
	var n int64
	for _, l := range s.Levels() {
		n += l.MemoryUsage()
	}
	return n
}
