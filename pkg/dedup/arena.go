package dedup

import (
	"github.com/Robogera/trackassign/pkg/cascade"
	"github.com/Robogera/trackassign/pkg/track"
)

// Track slot addressed by a stable handle
type slot struct {
	t      track.Track
	mapped cascade.Mapped
	// tombstone
	removed bool
}

type pairKey struct {
	a, b int
}

// Cascade outcome for two live handles, a < b
type pairEntry struct {
	details cascade.Details
	value   float64
}

// Tracks under deduplication. Removed handles are tombstoned
// so that the other handles and the cached pairs stay valid
type arena struct {
	slots []slot
	pairs map[pairKey]pairEntry
}

func newArena(tracks []track.Track) *arena {
	a := &arena{
		slots: make([]slot, len(tracks)),
		pairs: make(map[pairKey]pairEntry),
	}
	for ind, t := range tracks {
		a.slots[ind].t = t
	}
	return a
}

func (a *arena) live() []int {
	handles := make([]int, 0, len(a.slots))
	for handle, s := range a.slots {
		if !s.removed {
			handles = append(handles, handle)
		}
	}
	return handles
}

// Drops every cached pair involving handle
func (a *arena) invalidate(handle int) {
	for key := range a.pairs {
		if key.a == handle || key.b == handle {
			delete(a.pairs, key)
		}
	}
	a.slots[handle].mapped = nil
}

func (a *arena) replace(handle int, t track.Track) {
	a.slots[handle].t = t
	a.invalidate(handle)
}

func (a *arena) remove(handle int) {
	a.slots[handle].removed = true
	a.slots[handle].t = nil
	a.invalidate(handle)
}

// Live tracks in handle order
func (a *arena) compact() []track.Track {
	tracks := make([]track.Track, 0, len(a.slots))
	for _, s := range a.slots {
		if !s.removed {
			tracks = append(tracks, s.t)
		}
	}
	return tracks
}
