package dedup

import (
	"fmt"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/global"
	"github.com/Robogera/trackassign/pkg/stage"
	"github.com/Robogera/trackassign/pkg/track"
)

// Replays detections one iteration at a time, *global.Global implements it
type Iterator interface {
	IterTracks(tracks []track.Track, detections []detection.Detection, iteration int) ([]track.Track, []global.Status, error)
	IterTracksForced(tracks []track.Track, detections []detection.Detection, iteration int, forced []stage.Match) ([]track.Track, []global.Status, error)
}

// Rebuilds one track from the detections of t1 and t2 by replaying them through it.
// Detections the replay could not attach start tracks returned as inactive,
// padded with nil to the length of the inputs.
// With force_match every detection is attached, overlapping tracks are an error
func MergeTracks(it Iterator, t1, t2 track.Track, force_match bool) (track.Track, []track.Track, error) {
	if len(t1) != len(t2) {
		return nil, nil, fmt.Errorf(
			"Can't merge tracks of length %d and %d. Error: %w",
			len(t1), len(t2), errs.ERR_INVARIANT)
	}
	inactive := make([]track.Track, 0)
	var merged track.Track
	for index := range t1 {
		detections := make([]detection.Detection, 0, 2)
		for _, item := range []*track.Item{t1[index], t2[index]} {
			if item != nil {
				detections = append(detections, item.Detection)
			}
		}
		if len(detections) > 1 && force_match {
			return nil, nil, fmt.Errorf(
				"Forced merge of tracks overlapping at %d. Error: %w", index, errs.ERR_INVARIANT)
		}
		if len(detections) == 0 && merged == nil {
			continue
		}

		var iterated []track.Track
		var err error
		switch {
		case merged == nil:
			iterated, _, err = it.IterTracks(nil, detections, index)
		case force_match && len(detections) == 1:
			iterated, _, err = it.IterTracksForced(
				[]track.Track{merged}, detections, index,
				[]stage.Match{{TrackID: 0, DetectionID: 0}})
		default:
			iterated, _, err = it.IterTracks([]track.Track{merged}, detections, index)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("Can't replay iteration %d. Error: %w", index, err)
		}
		if len(iterated) == 0 {
			continue
		}
		merged = iterated[0]
		if len(iterated) > 1 {
			if force_match {
				return nil, nil, fmt.Errorf(
					"Forced merge produced %d tracks at %d. Error: %w",
					len(iterated), index, errs.ERR_INVARIANT)
			}
			inactive = append(inactive, iterated[1:]...)
		}
	}
	if merged == nil {
		merged = make(track.Track, len(t1))
	}
	for ind := range inactive {
		inactive[ind] = inactive[ind].PadTo(len(t1))
	}
	return merged.PadTo(len(t1)), inactive, nil
}
