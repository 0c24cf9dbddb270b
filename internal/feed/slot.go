package feed

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
)

// Snapshot is one complete publish of the feed. It is never mutated after Publish.
type Snapshot struct {
	Observations []biometric.Observation
	Seq          uint64
	At           time.Time
}

// Slot is a single-value mailbox holding the most recent detection result.
// Publishing replaces the whole snapshot, last writer wins; any number of
// readers may Load concurrently and always see a complete snapshot.
type Slot struct {
	current atomic.Pointer[Snapshot]
	seq     atomic.Uint64
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Publish replaces the slot contents with a copy of obs.
func (s *Slot) Publish(obs []biometric.Observation) Snapshot {
	snap := &Snapshot{
		Observations: slices.Clone(obs),
		Seq:          s.seq.Add(1),
		At:           time.Now(),
	}
	s.current.Store(snap)
	return *snap
}

// Load returns the latest snapshot, or an empty one if nothing was published yet.
func (s *Slot) Load() Snapshot {
	if snap := s.current.Load(); snap != nil {
		return *snap
	}
	return Snapshot{}
}
