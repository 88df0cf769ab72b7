package track

import (
	"fmt"
	"slices"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
)

// A detection attached to a track plus one cached
// value per distance cache key. Never modified once built
type Item struct {
	Detection detection.Detection
	Cache     map[string]any
}

func NewItem(d detection.Detection, cache map[string]any) *Item {
	if cache == nil {
		cache = make(map[string]any)
	}
	return &Item{Detection: d, Cache: cache}
}

func (i *Item) Cached(key string) (any, bool) {
	if i == nil {
		return nil, false
	}
	value, ok := i.Cache[key]
	return value, ok
}

// One slot per iteration, nil when the track had no detection
type Track []*Item

// Returns a new track with item appended, the receiver's backing array is never reused
func (t Track) Append(item *Item) Track {
	return append(slices.Clip(t), item)
}

// n nil slots followed by item
func Padded(n int, item *Item) Track {
	t := make(Track, n, n+1)
	return append(t, item)
}

// Pads the track with nil slots up to length n
func (t Track) PadTo(n int) Track {
	if len(t) >= n {
		return t
	}
	padded := make(Track, n)
	copy(padded, t)
	return padded
}

// Returns the last non-nil item and its index, -1 if none
func (t Track) LastNonNull() (*Item, int) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i] != nil {
			return t[i], i
		}
	}
	return nil, -1
}

// Last non-nil item carrying the cache key
func (t Track) LastCached(key string) (*Item, int) {
	for i := len(t) - 1; i >= 0; i-- {
		if _, ok := t[i].Cached(key); ok {
			return t[i], i
		}
	}
	return nil, -1
}

func (t Track) FirstAndLastNonNull() (int, int) {
	first := slices.IndexFunc(t, func(i *Item) bool { return i != nil })
	_, last := t.LastNonNull()
	return first, last
}

func (t Track) AllNonNull() []int {
	indices := make([]int, 0, len(t))
	for i, item := range t {
		if item != nil {
			indices = append(indices, i)
		}
	}
	return indices
}

func (t Track) Count() int {
	count := 0
	for _, item := range t {
		if item != nil {
			count++
		}
	}
	return count
}

// Common length of all tracks, 0 for no tracks.
// Tracks of different lengths are an invariant violation
func Iteration(tracks []Track) (int, error) {
	if len(tracks) == 0 {
		return 0, nil
	}
	l := len(tracks[0])
	for ind, t := range tracks {
		if len(t) != l {
			return 0, fmt.Errorf(
				"Track %d has length %d, expected %d. Error: %w",
				ind, len(t), l, errs.ERR_INVARIANT)
		}
	}
	return l, nil
}
