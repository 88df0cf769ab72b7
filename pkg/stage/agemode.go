package stage

import (
	"github.com/Robogera/trackassign/pkg/enums"
	"github.com/Robogera/trackassign/pkg/track"
)

const DefaultConfirmationCount = 2

// Track sort key built from the track age. Tracks older than MaxAge, younger
// than MinAge or sparser than DensityThreshold are removed from the stage
type AgeSortKey struct {
	Mode              enums.AgeMode
	MaxAge            *int
	MinAge            *int
	DensityThreshold  *float64
	ConfirmationCount int
	GetTime           track.TimeFunc
}

func NewAgeSortKey(mode enums.AgeMode, get_time track.TimeFunc) *AgeSortKey {
	return &AgeSortKey{
		Mode:              mode,
		ConfirmationCount: DefaultConfirmationCount,
		GetTime:           get_time,
	}
}

func (a *AgeSortKey) Key(t track.Track, _ int) (int, bool) {
	stats := track.GetStats(t, a.GetTime)
	age := stats.FloorAge()
	if a.MaxAge != nil && age > *a.MaxAge {
		return 0, false
	}
	if a.MinAge != nil && age < *a.MinAge {
		return 0, false
	}
	if a.DensityThreshold != nil && stats.Density < *a.DensityThreshold {
		return 0, false
	}
	confirmed := stats.Count > a.ConfirmationCount
	switch a.Mode {
	case enums.AgeModeAscendant:
		return age, true
	case enums.AgeModeConfirmedAscendant:
		return age, confirmed
	case enums.AgeModeConfirmedAll:
		return 1, confirmed
	default:
		return 1, true
	}
}

func (a *AgeSortKey) TrackSortKey() TrackSortKey {
	return a.Key
}
