package distance

import (
	"fmt"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/track"
)

// Track to track modules map both sides with MapTrack,
// they can only be used by track deduplication
type trackToTrack struct {
	name string
}

func (d trackToTrack) MapTrack(t track.Track, _ int, _ *track.Item, _ int) (any, error) {
	return t, nil
}

func (d trackToTrack) MapDetection(_ detection.Detection, _ int) (any, error) {
	return nil, fmt.Errorf("%s compares tracks, not detections. Error: %w", d.name, errs.ERR_CONFIGURATION)
}

func (d trackToTrack) CacheKey() string { return "" }

func (d trackToTrack) Cache(CacheContext) (any, error) { return nil, nil }

func asTracks(a, b any) (track.Track, track.Track, error) {
	t1, ok1 := a.(track.Track)
	t2, ok2 := b.(track.Track)
	if !ok1 || !ok2 {
		return nil, nil, fmt.Errorf("Expected two tracks, got %T and %T. Error: %w", a, b, errs.ERR_INVARIANT)
	}
	return t1, t2, nil
}

// Fraction of shared non-nil iterations, 0 for disjoint tracks
type exclusionDistance struct {
	trackToTrack
}

func newExclusion(Config, track.TimeFunc) (Module, error) {
	return &exclusionDistance{trackToTrack{name: "exclusion"}}, nil
}

func (d *exclusionDistance) Fn(a, b any) (float64, error) {
	t1, t2, err := asTracks(a, b)
	if err != nil {
		return 0, err
	}
	ids1, ids2 := t1.AllNonNull(), t2.AllNonNull()
	if len(ids1) == 0 || len(ids2) == 0 {
		return 0, nil
	}
	shared := 0
	for _, i := range ids1 {
		if i < len(t2) && t2[i] != nil {
			shared++
		}
	}
	return float64(shared) / float64(min(len(ids1), len(ids2))), nil
}

// Time between the end of the earliest track and the start of the other one,
// 0 when the supports interleave
type ageDistance struct {
	trackToTrack
	get_time track.TimeFunc
}

func newAge(_ Config, get_time track.TimeFunc) (Module, error) {
	return &ageDistance{trackToTrack: trackToTrack{name: "age"}, get_time: get_time}, nil
}

func (d *ageDistance) Fn(a, b any) (float64, error) {
	t1, t2, err := asTracks(a, b)
	if err != nil {
		return 0, err
	}
	first1, last1 := t1.FirstAndLastNonNull()
	first2, last2 := t2.FirstAndLastNonNull()
	if last1 < 0 || last2 < 0 {
		return Huge, nil
	}
	first, last := max(first1, first2), min(last1, last2)
	if first > last {
		return d.get_time(first) - d.get_time(last), nil
	}
	return 0, nil
}
