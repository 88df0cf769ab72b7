package global

import (
	"fmt"

	"github.com/Robogera/trackassign/pkg/track"
)

// What happened to a track during the last iteration
type Status interface {
	String() string
}

type StatusNew struct {
	DetectionID int
}

func (s StatusNew) String() string {
	return fmt.Sprintf("New: started by detection %d", s.DetectionID)
}

type StatusMatched struct {
	DetectionID int
	StageIndex  int
	Value       float64
}

func (s StatusMatched) String() string {
	return fmt.Sprintf("Matched with %d at stage %d, value: %.6f", s.DetectionID, s.StageIndex, s.Value)
}

type StatusMissed struct{}

func (s StatusMissed) String() string {
	return "No match found"
}

type StatusDeactivated struct {
	Stats track.Stats
	// status of the iteration that deactivated the track
	Last Status
}

func (s StatusDeactivated) String() string {
	return fmt.Sprintf("Deactivated: age %.2f, %d detections. %s", s.Stats.Age, s.Stats.Count, s.Last)
}

type StatusInactive struct{}

func (s StatusInactive) String() string {
	return "Inactive"
}
