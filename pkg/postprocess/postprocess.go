// Passes run over the whole tracking output once the stream has ended
package postprocess

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/global"
	"github.com/Robogera/trackassign/pkg/track"
)

type PostProcess interface {
	Run(in *global.Output) (*global.Output, error)
}

// Runs the post processes in order, each on the output of the previous one
type Chain []PostProcess

func (c Chain) Run(in *global.Output) (*global.Output, error) {
	current := in
	for ind, p := range c {
		next, err := p.Run(current)
		if err != nil {
			return nil, fmt.Errorf("Post process %d failed. Error: %w", ind, err)
		}
		current = next
	}
	return current, nil
}

// Deactivates active tracks whose non-nil fraction since their
// first detection is below Threshold
type DensityFilter struct {
	threshold float64
	get_time  track.TimeFunc
	logger    *slog.Logger
}

type StatusFiltered struct {
	FullDensity float64
}

func (s StatusFiltered) String() string {
	return fmt.Sprintf("Filtered: density %.2f%%", s.FullDensity*100)
}

func NewDensityFilter(threshold float64, get_time track.TimeFunc, logger *slog.Logger) (*DensityFilter, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("Density filter threshold is mandatory, got %f. Error: %w", threshold, errs.ERR_CONFIGURATION)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DensityFilter{threshold: threshold, get_time: get_time, logger: logger}, nil
}

func (f *DensityFilter) Run(in *global.Output) (*global.Output, error) {
	out := &global.Output{
		Tracks:         in.Tracks,
		ActiveTrackIDs: make([]int, 0, len(in.ActiveTrackIDs)),
		Statuses:       slices.Clone(in.Statuses),
	}
	if out.Statuses == nil {
		out.Statuses = make([]global.Status, len(in.Tracks))
	}
	for _, id := range in.ActiveTrackIDs {
		if id < 0 || id >= len(in.Tracks) {
			return nil, fmt.Errorf("Invalid active track id %d. Error: %w", id, errs.ERR_INVARIANT)
		}
		stats := track.GetStats(in.Tracks[id], f.get_time)
		if stats.FullDensity < f.threshold {
			f.logger.Debug("Track filtered", "track", id, "density", stats.FullDensity)
			out.Statuses[id] = StatusFiltered{FullDensity: stats.FullDensity}
			continue
		}
		out.ActiveTrackIDs = append(out.ActiveTrackIDs, id)
	}
	return out, nil
}
