// Multi-stage matching and the online track lifecycle.
// Stages run in order on what the previous stages left unmatched,
// matched tracks get a new item, unmatched detections start new tracks
// and unmatched tracks get a nil slot.
package global

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/Robogera/trackassign/pkg/cascade"
	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/seq"
	"github.com/Robogera/trackassign/pkg/stage"
	"github.com/Robogera/trackassign/pkg/track"
)

type Options struct {
	// every module used by the stages and cached in new items
	Distances distance.Set
	Stages    []*stage.Stage
	// exactly one of Age and TrackFilter
	Age         *AgePolicy
	TrackFilter TrackFilter
	// defaults to CacheItemBuilder over Distances
	ItemBuilder ItemBuilder
	GetTime     track.TimeFunc
	Logger      *slog.Logger
}

type Global struct {
	distances    distance.Set
	keys         []string
	stages       []*stage.Stage
	track_filter TrackFilter
	item_builder ItemBuilder
	get_time     track.TimeFunc
	logger       *slog.Logger
}

type MatchResult struct {
	Matched               []stage.Match
	UnmatchedTrackIDs     []int
	UnmatchedDetectionIDs []int
	// merged over the stages, same length as the inputs
	MappedTracks     []cascade.Mapped
	MappedDetections []cascade.Mapped
}

type Output struct {
	Tracks         []track.Track
	ActiveTrackIDs []int
	// by master track index
	Statuses []Status
}

func New(o Options) (*Global, error) {
	if err := o.Distances.Validate(); err != nil {
		return nil, err
	}
	if len(o.Stages) == 0 {
		return nil, fmt.Errorf("At least one stage is required. Error: %w", errs.ERR_CONFIGURATION)
	}
	g := &Global{
		distances:    o.Distances,
		keys:         o.Distances.Keys(),
		stages:       o.Stages,
		item_builder: o.ItemBuilder,
		get_time:     o.GetTime,
		logger:       o.Logger,
	}
	switch {
	case o.Age != nil:
		g.track_filter = o.Age
	case o.TrackFilter != nil:
		g.track_filter = o.TrackFilter
	default:
		return nil, fmt.Errorf("age or track filter must be defined. Error: %w", errs.ERR_CONFIGURATION)
	}
	for ind, s := range o.Stages {
		for _, key := range s.Order() {
			if _, ok := o.Distances[key]; !ok {
				return nil, fmt.Errorf(
					"Stage %d uses %q which is not in distances %v. Error: %w",
					ind, key, g.keys, errs.ERR_CONFIGURATION)
			}
		}
	}
	if g.item_builder == nil {
		g.item_builder = CacheItemBuilder{Distances: o.Distances}
	}
	if g.get_time == nil {
		g.get_time = track.Identity
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g, nil
}

func (g *Global) Stages() []*stage.Stage {
	return g.stages
}

func (g *Global) Distances() distance.Set {
	return g.distances
}

func (g *Global) GetTime() track.TimeFunc {
	return g.get_time
}

func (g *Global) Logger() *slog.Logger {
	return g.logger
}

func mergeMapped(dst, src []cascade.Mapped, ids []int) {
	for local, mapped := range src {
		if mapped == nil {
			continue
		}
		if dst[ids[local]] == nil {
			dst[ids[local]] = make(cascade.Mapped, len(mapped))
		}
		maps.Copy(dst[ids[local]], mapped)
	}
}

func (g *Global) Match(tracks []track.Track, detections []detection.Detection) (*MatchResult, error) {
	result := &MatchResult{
		Matched:               make([]stage.Match, 0),
		UnmatchedTrackIDs:     seq.SeqN(len(tracks)),
		UnmatchedDetectionIDs: seq.SeqN(len(detections)),
		MappedTracks:          make([]cascade.Mapped, len(tracks)),
		MappedDetections:      make([]cascade.Mapped, len(detections)),
	}
	for stage_index, s := range g.stages {
		if len(result.UnmatchedTrackIDs) == 0 {
			break
		}
		local, err := s.Match(
			seq.Pick(tracks, result.UnmatchedTrackIDs),
			seq.Pick(detections, result.UnmatchedDetectionIDs))
		if err != nil {
			return nil, fmt.Errorf("Can't run stage %d. Error: %w", stage_index, err)
		}
		if len(local.MappedTracks) != len(result.UnmatchedTrackIDs) {
			return nil, fmt.Errorf(
				"Stage %d mapped %d tracks out of %d. Error: %w",
				stage_index, len(local.MappedTracks), len(result.UnmatchedTrackIDs), errs.ERR_INVARIANT)
		}
		mergeMapped(result.MappedTracks, local.MappedTracks, result.UnmatchedTrackIDs)
		mergeMapped(result.MappedDetections, local.MappedDetections, result.UnmatchedDetectionIDs)

		matched, unmatched_tracks, unmatched_detections := stage.TranslateMatchIDs(
			local.Matched, result.UnmatchedTrackIDs, result.UnmatchedDetectionIDs)
		for ind := range matched {
			matched[ind].StageIndex = stage_index
		}
		result.Matched = append(result.Matched, matched...)
		result.UnmatchedTrackIDs = unmatched_tracks
		result.UnmatchedDetectionIDs = unmatched_detections
	}
	return result, nil
}

// Maps the keys missing from the mapped value of a detection
func (g *Global) ensureDetection(mapped []cascade.Mapped, detections []detection.Detection, id int) error {
	missing := g.missingKeys(mapped[id])
	if len(missing) == 0 {
		return nil
	}
	value, err := cascade.MapDetection(detections[id], id, missing, g.distances)
	if err != nil {
		return err
	}
	if mapped[id] == nil {
		mapped[id] = make(cascade.Mapped, len(g.keys))
	}
	maps.Copy(mapped[id], value)
	return nil
}

func (g *Global) ensureTrack(mapped []cascade.Mapped, tracks []track.Track, id int) error {
	missing := g.missingKeys(mapped[id])
	if len(missing) == 0 {
		return nil
	}
	value, err := cascade.MapTrack(tracks[id], id, missing, g.distances)
	if err != nil {
		return err
	}
	if mapped[id] == nil {
		mapped[id] = make(cascade.Mapped, len(g.keys))
	}
	maps.Copy(mapped[id], value)
	return nil
}

func (g *Global) missingKeys(mapped cascade.Mapped) []string {
	missing := make([]string, 0)
	for _, key := range g.keys {
		if _, ok := mapped[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

func (g *Global) spawn(detections []detection.Detection, mapped []cascade.Mapped, id, iteration int) (track.Track, error) {
	if err := g.ensureDetection(mapped, detections, id); err != nil {
		return nil, err
	}
	item, err := g.item_builder.Build(ItemContext{
		Detection:       detections[id],
		MappedDetection: mapped[id],
		Index:           iteration,
		DetectionID:     id,
		TrackID:         -1,
	})
	if err != nil {
		return nil, err
	}
	return track.Padded(iteration, item), nil
}

// Runs one iteration. The returned tracks keep the input order,
// tracks started by unmatched detections are appended after them
func (g *Global) IterTracks(tracks []track.Track, detections []detection.Detection, iteration int) ([]track.Track, []Status, error) {
	return g.iterTracks(tracks, detections, iteration, nil)
}

// Same as IterTracks with the given pairs matched without running the stages
func (g *Global) IterTracksForced(tracks []track.Track, detections []detection.Detection, iteration int, forced []stage.Match) ([]track.Track, []Status, error) {
	if forced == nil {
		forced = make([]stage.Match, 0)
	}
	return g.iterTracks(tracks, detections, iteration, forced)
}

func (g *Global) forcedResult(tracks []track.Track, detections []detection.Detection, forced []stage.Match) (*MatchResult, error) {
	track_ids, detection_ids := make([]int, 0, len(forced)), make([]int, 0, len(forced))
	for _, m := range forced {
		if m.TrackID < 0 || m.TrackID >= len(tracks) || m.DetectionID < 0 || m.DetectionID >= len(detections) ||
			slices.Contains(track_ids, m.TrackID) || slices.Contains(detection_ids, m.DetectionID) {
			return nil, fmt.Errorf(
				"Invalid forced match (%d, %d) for %d tracks and %d detections. Error: %w",
				m.TrackID, m.DetectionID, len(tracks), len(detections), errs.ERR_INVARIANT)
		}
		track_ids = append(track_ids, m.TrackID)
		detection_ids = append(detection_ids, m.DetectionID)
	}
	return &MatchResult{
		Matched:               slices.Clone(forced),
		UnmatchedTrackIDs:     seq.Without(seq.SeqN(len(tracks)), track_ids),
		UnmatchedDetectionIDs: seq.Without(seq.SeqN(len(detections)), detection_ids),
		MappedTracks:          make([]cascade.Mapped, len(tracks)),
		MappedDetections:      make([]cascade.Mapped, len(detections)),
	}, nil
}

func (g *Global) iterTracks(
	tracks []track.Track,
	detections []detection.Detection,
	iteration int,
	forced []stage.Match,
) ([]track.Track, []Status, error) {
	out := slices.Clone(tracks)
	statuses := make([]Status, len(tracks), len(tracks)+len(detections))

	var result *MatchResult
	var err error
	switch {
	case forced != nil:
		result, err = g.forcedResult(tracks, detections, forced)
	case len(tracks) == 0:
		result = &MatchResult{
			UnmatchedDetectionIDs: seq.SeqN(len(detections)),
			MappedDetections:      make([]cascade.Mapped, len(detections)),
		}
	default:
		result, err = g.Match(tracks, detections)
	}
	if err != nil {
		return nil, nil, err
	}

	for _, m := range result.Matched {
		if err := g.ensureDetection(result.MappedDetections, detections, m.DetectionID); err != nil {
			return nil, nil, err
		}
		if err := g.ensureTrack(result.MappedTracks, tracks, m.TrackID); err != nil {
			return nil, nil, err
		}
		item, err := g.item_builder.Build(ItemContext{
			Track:           tracks[m.TrackID],
			MappedTrack:     result.MappedTracks[m.TrackID],
			Detection:       detections[m.DetectionID],
			MappedDetection: result.MappedDetections[m.DetectionID],
			Index:           iteration,
			DetectionID:     m.DetectionID,
			TrackID:         m.TrackID,
		})
		if err != nil {
			return nil, nil, err
		}
		out[m.TrackID] = tracks[m.TrackID].Append(item)
		statuses[m.TrackID] = StatusMatched{DetectionID: m.DetectionID, StageIndex: m.StageIndex, Value: m.Value}
	}
	for _, id := range result.UnmatchedTrackIDs {
		out[id] = tracks[id].Append(nil)
		statuses[id] = StatusMissed{}
	}
	for _, id := range result.UnmatchedDetectionIDs {
		t, err := g.spawn(detections, result.MappedDetections, id, iteration)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, t)
		statuses = append(statuses, StatusNew{DetectionID: id})
	}
	return out, statuses, nil
}

func checkActive(n_tracks int, active_ids []int) error {
	seen := make([]bool, n_tracks)
	for _, id := range active_ids {
		if id < 0 || id >= n_tracks || seen[id] {
			return fmt.Errorf(
				"Invalid active track id %d for %d tracks. Error: %w",
				id, n_tracks, errs.ERR_INVARIANT)
		}
		seen[id] = true
	}
	return nil
}

// Runs one iteration on the active tracks and applies the death policy.
// Inactive tracks keep their slot and receive nil
func (g *Global) OnlineTrack(tracks []track.Track, active_ids []int, detections []detection.Detection) (*Output, error) {
	iteration, err := track.Iteration(tracks)
	if err != nil {
		return nil, err
	}
	if err := checkActive(len(tracks), active_ids); err != nil {
		return nil, err
	}
	iterated, iter_statuses, err := g.IterTracks(seq.Pick(tracks, active_ids), detections, iteration)
	if err != nil {
		return nil, fmt.Errorf("Can't run iteration %d. Error: %w", iteration, err)
	}

	ids := slices.Clone(active_ids)
	master := slices.Clone(tracks)
	for ind := len(active_ids); ind < len(iterated); ind++ {
		ids = append(ids, len(master))
		master = append(master, nil)
	}
	position := make(map[int]int, len(ids))
	for pos, id := range ids {
		position[id] = pos
	}

	output := &Output{
		Tracks:         master,
		ActiveTrackIDs: make([]int, 0, len(ids)),
		Statuses:       make([]Status, len(master)),
	}
	for id := range master {
		pos, active := position[id]
		if !active {
			master[id] = tracks[id].Append(nil)
			output.Statuses[id] = StatusInactive{}
			continue
		}
		t := iterated[pos]
		master[id] = t
		stats := track.GetStats(t, g.get_time)
		if !g.track_filter.Keep(t, id, stats) {
			g.logger.Debug("Track deactivated", "track", id, "iteration", iteration, "age", stats.Age, "count", stats.Count)
			output.Statuses[id] = StatusDeactivated{Stats: stats, Last: iter_statuses[pos]}
			continue
		}
		if _, is_new := iter_statuses[pos].(StatusNew); is_new {
			g.logger.Debug("Track started", "track", id, "iteration", iteration)
		}
		output.Statuses[id] = iter_statuses[pos]
	}
	// active ids keep their previous order, new tracks last
	for _, id := range ids {
		if _, deactivated := output.Statuses[id].(StatusDeactivated); !deactivated {
			output.ActiveTrackIDs = append(output.ActiveTrackIDs, id)
		}
	}
	return output, nil
}

// Runs OnlineTrack over every iteration, every input track starts active
func (g *Global) Track(detections_by_iteration [][]detection.Detection, tracks []track.Track) (*Output, error) {
	output := &Output{
		Tracks:         tracks,
		ActiveTrackIDs: seq.SeqN(len(tracks)),
		Statuses:       make([]Status, len(tracks)),
	}
	if output.Tracks == nil {
		output.Tracks = make([]track.Track, 0)
	}
	for _, detections := range detections_by_iteration {
		next, err := g.OnlineTrack(output.Tracks, output.ActiveTrackIDs, detections)
		if err != nil {
			return nil, err
		}
		output = next
	}
	return output, nil
}
