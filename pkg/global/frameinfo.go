package global

import (
	"fmt"

	"github.com/Robogera/trackassign/pkg/cascade"
	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/seq"
	"github.com/Robogera/trackassign/pkg/stage"
	"github.com/Robogera/trackassign/pkg/track"
)

// Diagnostics of one stage for one iteration
type StageInfo struct {
	StageIndex int
	// ids of the caller's tracks and detections the stage received
	TrackIDs     []int
	DetectionIDs []int
	// indexed by position in TrackIDs and DetectionIDs
	ValueAndGate *cascade.ValueAndGate
	// ids of the caller's tracks and detections
	Matched []stage.Match
}

// Evaluates every stage on tracks and detections like Match does,
// keeping the full value and gate matrices of each stage
func (g *Global) FrameInfo(tracks []track.Track, detections []detection.Detection) ([]StageInfo, error) {
	infos := make([]StageInfo, 0, len(g.stages))
	track_ids, detection_ids := seq.SeqN(len(tracks)), seq.SeqN(len(detections))
	for stage_index, s := range g.stages {
		if len(track_ids) == 0 {
			break
		}
		local_tracks, local_detections := seq.Pick(tracks, track_ids), seq.Pick(detections, detection_ids)
		vg, err := s.BuildValueAndGate(local_tracks, local_detections)
		if err != nil {
			return nil, fmt.Errorf("Can't build frame info of stage %d. Error: %w", stage_index, err)
		}
		result, err := s.Match(local_tracks, local_detections)
		if err != nil {
			return nil, fmt.Errorf("Can't build frame info of stage %d. Error: %w", stage_index, err)
		}
		matched, unmatched_tracks, unmatched_detections := stage.TranslateMatchIDs(result.Matched, track_ids, detection_ids)
		for ind := range matched {
			matched[ind].StageIndex = stage_index
		}
		infos = append(infos, StageInfo{
			StageIndex:   stage_index,
			TrackIDs:     track_ids,
			DetectionIDs: detection_ids,
			ValueAndGate: vg,
			Matched:      matched,
		})
		track_ids, detection_ids = unmatched_tracks, unmatched_detections
	}
	return infos, nil
}
