package track

import "math"

// Maps an iteration index to a timestamp
type TimeFunc func(index int) float64

func Identity(index int) float64 {
	return float64(index)
}

type Stats struct {
	// time elapsed between the last non-nil slot and the end of the track
	Age   float64
	Count int
	// non-nil fraction of [first, last]
	Density float64
	// longest nil run inside [first, last] over the length of [first, last]
	GapDensity float64
	// non-nil fraction of [first, end of track]
	FullDensity float64
	FirstIndex  int
	LastIndex   int
}

func GetStats(t Track, get_time TimeFunc) Stats {
	if get_time == nil {
		get_time = Identity
	}
	first, last := t.FirstAndLastNonNull()
	if last < 0 {
		// aged from the first slot, as if it was the last one seen
		return Stats{
			Age:        get_time(max(len(t)-1, 0)) - get_time(0),
			FirstIndex: -1,
			LastIndex:  -1,
		}
	}

	count, longest_gap, gap := 0, 0, 0
	for _, item := range t[first : last+1] {
		if item != nil {
			count++
			gap = 0
			continue
		}
		gap++
		longest_gap = max(longest_gap, gap)
	}
	span := float64(last - first + 1)
	return Stats{
		Age:         get_time(len(t)-1) - get_time(last),
		Count:       count,
		Density:     float64(count) / span,
		GapDensity:  float64(longest_gap) / span,
		FullDensity: float64(count) / float64(len(t)-first),
		FirstIndex:  first,
		LastIndex:   last,
	}
}

// Age rounded down to whole iterations
func (s Stats) FloorAge() int {
	return int(math.Floor(s.Age))
}
