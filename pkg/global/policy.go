package global

import (
	"github.com/Robogera/trackassign/pkg/track"
)

// Death policy, false deactivates the track. master_index is
// the track's position in the master track list
type TrackFilter interface {
	Keep(t track.Track, master_index int, stats track.Stats) bool
}

type TrackFilterFunc func(t track.Track, master_index int, stats track.Stats) bool

func (f TrackFilterFunc) Keep(t track.Track, master_index int, stats track.Stats) bool {
	return f(t, master_index, stats)
}

// Age based death policy.
// Deactivates when age >= Min with at most MinCount detections or when age > Max
type AgePolicy struct {
	// nil means no lower limit
	Min *float64
	// nil means no upper limit
	Max *float64
	// 0 means 1
	MinCount            int
	DensityThreshold    *float64
	GapDensityThreshold *float64
}

func (p *AgePolicy) Keep(_ track.Track, _ int, stats track.Stats) bool {
	min_count := p.MinCount
	if min_count <= 0 {
		min_count = 1
	}
	if p.Min != nil && stats.Age >= *p.Min && stats.Count <= min_count {
		return false
	}
	if p.Max != nil && stats.Age > *p.Max {
		return false
	}
	if p.DensityThreshold != nil && stats.Density < *p.DensityThreshold {
		return false
	}
	if p.GapDensityThreshold != nil && stats.GapDensity > *p.GapDensityThreshold && stats.Count > min_count {
		return false
	}
	return true
}
