// One round of gated assignment between tracks and detections.
// Tracks and detections are grouped in strata by their sort key and
// each (detection stratum, track stratum) pair is solved in ascending order.
package stage

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Robogera/trackassign/pkg/cascade"
	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/ghung"
	"github.com/Robogera/trackassign/pkg/gmat"
	"github.com/Robogera/trackassign/pkg/gset"
	"github.com/Robogera/trackassign/pkg/seq"
	"github.com/Robogera/trackassign/pkg/track"
)

// ok == false removes the entity from the stage
type TrackSortKey func(t track.Track, index int) (int, bool)
type DetectionSortKey func(d detection.Detection, index int) (int, bool)

func constantTrackKey(track.Track, int) (int, bool)             { return 1, true }
func constantDetectionKey(detection.Detection, int) (int, bool) { return 1, true }

type Match struct {
	TrackID     int
	DetectionID int
	// raw value per distance key
	Values map[string]float64
	// weighted sum over the mandatory keys
	Value          float64
	DetectionValue int
	TrackValue     int
	StageIndex     int
}

// Receives every solved stratum pair, ids are local to the pair
type Reporter interface {
	Report(r *OneValueResult)
}

type Options struct {
	Distances distance.Set
	// defaults to the sorted keys of Thresholds
	Order            []string
	Thresholds       map[string]float64
	Lambdas          map[string]float64
	TrackSortKey     TrackSortKey
	DetectionSortKey DetectionSortKey
	Solver           ghung.Solver
	Reporter         Reporter
	Logger           *slog.Logger
	SlowDistance     time.Duration
	Workers          int
}

type Stage struct {
	cascade            *cascade.Options
	track_sort_key     TrackSortKey
	detection_sort_key DetectionSortKey
	solver             ghung.Solver
	reporter           Reporter
	logger             *slog.Logger
}

type OneValueResult struct {
	Matched          []Match
	Blocked          []Match
	ValueAndGate     *cascade.ValueAndGate
	MappedTracks     []cascade.Mapped
	MappedDetections []cascade.Mapped
}

type Result struct {
	Matched               []Match
	UnmatchedTrackIDs     []int
	UnmatchedDetectionIDs []int
	RemovedTrackIDs       []int
	RemovedDetectionIDs   []int
	// same length as the inputs, nil for entities never mapped
	MappedTracks     []cascade.Mapped
	MappedDetections []cascade.Mapped
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Checks thresholds and lambdas only name configured distances
// and that order names exactly the keys of thresholds
func ValidateKeys(distances distance.Set, order []string, thresholds, lambdas map[string]float64) error {
	if err := distances.Validate(); err != nil {
		return err
	}
	for _, key := range sortedKeys(thresholds) {
		if _, ok := distances[key]; !ok {
			return fmt.Errorf(
				"thresholds key %q is not in distances %v. Error: %w",
				key, distances.Keys(), errs.ERR_CONFIGURATION)
		}
		if !slices.Contains(order, key) {
			return fmt.Errorf("thresholds key %q is not in order %v. Error: %w", key, order, errs.ERR_CONFIGURATION)
		}
	}
	for _, key := range order {
		if _, ok := thresholds[key]; !ok {
			return fmt.Errorf("order key %q is not in thresholds. Error: %w", key, errs.ERR_CONFIGURATION)
		}
	}
	if len(seq.Uniq(order)) != len(order) {
		return fmt.Errorf("order %v has duplicated keys. Error: %w", order, errs.ERR_CONFIGURATION)
	}
	for _, key := range sortedKeys(lambdas) {
		if _, ok := distances[key]; !ok {
			return fmt.Errorf(
				"lambdas key %q is not in distances %v. Error: %w",
				key, distances.Keys(), errs.ERR_CONFIGURATION)
		}
	}
	return nil
}

func New(o Options) (*Stage, error) {
	order := o.Order
	if order == nil {
		order = sortedKeys(o.Thresholds)
	}
	if err := ValidateKeys(o.Distances, order, o.Thresholds, o.Lambdas); err != nil {
		return nil, err
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stage{
		cascade: &cascade.Options{
			Distances:    o.Distances,
			Order:        slices.Clone(order),
			Thresholds:   o.Thresholds,
			Lambdas:      o.Lambdas,
			Logger:       logger,
			SlowDistance: o.SlowDistance,
			Workers:      o.Workers,
		},
		track_sort_key:     o.TrackSortKey,
		detection_sort_key: o.DetectionSortKey,
		solver:             o.Solver,
		reporter:           o.Reporter,
		logger:             logger,
	}
	if s.track_sort_key == nil {
		s.track_sort_key = constantTrackKey
	}
	if s.detection_sort_key == nil {
		s.detection_sort_key = constantDetectionKey
	}
	if s.solver == nil {
		s.solver = ghung.Munkres{}
	}
	return s, nil
}

func (s *Stage) Order() []string {
	return slices.Clone(s.cascade.Order)
}

func (s *Stage) Cascade() *cascade.Options {
	return s.cascade
}

func (s *Stage) BuildValueAndGate(tracks []track.Track, detections []detection.Detection) (*cascade.ValueAndGate, error) {
	return cascade.BuildValueAndGate(tracks, detections, s.cascade)
}

// Solves a single stratum pair, returned ids are indexes in tracks and detections
func (s *Stage) MatchOneValue(tracks []track.Track, detections []detection.Detection) (*OneValueResult, error) {
	vg, err := s.BuildValueAndGate(tracks, detections)
	if err != nil {
		return nil, err
	}
	if len(vg.MappedTracks) != len(tracks) || len(vg.MappedDetections) != len(detections) {
		return nil, fmt.Errorf(
			"Mapped %d tracks and %d detections for %d tracks and %d detections. Error: %w",
			len(vg.MappedTracks), len(vg.MappedDetections), len(tracks), len(detections), errs.ERR_INVARIANT)
	}
	result := &OneValueResult{
		Matched:          make([]Match, 0),
		Blocked:          make([]Match, 0),
		ValueAndGate:     vg,
		MappedTracks:     vg.MappedTracks,
		MappedDetections: vg.MappedDetections,
	}
	if err := s.buildMatched(result); err != nil {
		return nil, err
	}
	if s.reporter != nil {
		s.reporter.Report(result)
	}
	return result, nil
}

func identity(b bool) bool { return b }

func (s *Stage) buildMatched(result *OneValueResult) error {
	vg := result.ValueAndGate
	// rows without any passing gate, then columns without any passing gate in the kept rows
	gate := vg.Gate
	for ind_r, vec := range vg.Gate.Vectors(gmat.Horizontal) {
		if !vec.Any(identity) {
			gate = gate.Mask(gmat.Horizontal, ind_r)
		}
	}
	if len(gate.Indices(gmat.Horizontal)) == 0 {
		return nil
	}
	filtered_gate := gate
	for ind_c, vec := range gate.Vectors(gmat.Vertical) {
		if !vec.Any(identity) {
			filtered_gate = filtered_gate.Mask(gmat.Vertical, ind_c)
		}
	}

	cost, track_ids, detection_ids := vg.Value.MaskLike(filtered_gate).Compact()
	pairs, err := s.solver.Solve(cost)
	if err != nil {
		return fmt.Errorf("Can't solve assignment. Error: %w", err)
	}
	for _, pair := range pairs {
		track_id, detection_id := track_ids[pair.Row], detection_ids[pair.Col]
		details := vg.Details.At(track_id, detection_id)
		m := Match{
			TrackID:     track_id,
			DetectionID: detection_id,
			Values:      details.Values,
			Value:       vg.Value.At(track_id, detection_id),
		}
		if vg.Gate.At(track_id, detection_id) {
			result.Matched = append(result.Matched, m)
			continue
		}
		result.Blocked = append(result.Blocked, m)
		for _, key := range s.cascade.Order {
			value, computed := details.Values[key]
			threshold, ok := s.cascade.Thresholds[key]
			if computed && ok && value >= threshold {
				s.logger.Debug(
					"Gate is blocking matching",
					"track", track_id, "detection", detection_id,
					"key", key, "value", value, "threshold", threshold)
			}
		}
	}
	return nil
}

// Maps local match ids to ids in the caller's arrays.
// Returns the unmatched ids of both lists in their original order
func TranslateMatchIDs(local []Match, track_ids, detection_ids []int) ([]Match, []int, []int) {
	matched := make([]Match, 0, len(local))
	matched_tracks := make([]int, 0, len(local))
	matched_detections := make([]int, 0, len(local))
	for _, m := range local {
		m.TrackID = track_ids[m.TrackID]
		m.DetectionID = detection_ids[m.DetectionID]
		matched_tracks = append(matched_tracks, m.TrackID)
		matched_detections = append(matched_detections, m.DetectionID)
		matched = append(matched, m)
	}
	return matched,
		seq.Without(track_ids, matched_tracks),
		seq.Without(detection_ids, matched_detections)
}

func stratify[T any](els []T, key func(T, int) (int, bool)) (*gset.Groups[int, int], []int) {
	groups := new(gset.Groups[int, int])
	removed := make([]int, 0)
	for ind, el := range els {
		value, ok := key(el, ind)
		if !ok {
			removed = append(removed, ind)
			continue
		}
		groups.Add(value, ind)
	}
	return groups, removed
}

func (s *Stage) Match(tracks []track.Track, detections []detection.Detection) (*Result, error) {
	result := &Result{
		Matched:               make([]Match, 0),
		UnmatchedDetectionIDs: make([]int, 0),
		MappedTracks:          make([]cascade.Mapped, len(tracks)),
		MappedDetections:      make([]cascade.Mapped, len(detections)),
	}
	track_strata, removed_tracks := stratify(tracks, s.track_sort_key)
	detection_strata, removed_detections := stratify(detections, s.detection_sort_key)
	result.RemovedTrackIDs = removed_tracks
	result.RemovedDetectionIDs = removed_detections

	// track strata shrink as their tracks get matched, across all detection strata
	remaining := new(gset.Groups[int, int])
	for value, indexes := range track_strata.All() {
		remaining.Add(value, slices.Clone(indexes)...)
	}

	for detection_value, detection_ids := range detection_strata.All() {
		unmatched_detection_ids := slices.Clone(detection_ids)
		for _, track_value := range remaining.Keys() {
			track_ids, _ := remaining.Get(track_value)
			if len(track_ids) == 0 || len(unmatched_detection_ids) == 0 {
				continue
			}
			local, err := s.MatchOneValue(
				seq.Pick(tracks, track_ids),
				seq.Pick(detections, unmatched_detection_ids))
			if err != nil {
				return nil, err
			}
			for ind, mapped := range local.MappedTracks {
				if mapped != nil {
					result.MappedTracks[track_ids[ind]] = mapped
				}
			}
			for ind, mapped := range local.MappedDetections {
				if mapped != nil {
					result.MappedDetections[unmatched_detection_ids[ind]] = mapped
				}
			}
			matched, unmatched_tracks, unmatched_detections := TranslateMatchIDs(local.Matched, track_ids, unmatched_detection_ids)
			for ind := range matched {
				matched[ind].DetectionValue = detection_value
				matched[ind].TrackValue = track_value
			}
			result.Matched = append(result.Matched, matched...)
			// exhausted strata are dropped
			remaining.Replace(track_value, unmatched_tracks)
			unmatched_detection_ids = unmatched_detections
		}
		result.UnmatchedDetectionIDs = append(result.UnmatchedDetectionIDs, unmatched_detection_ids...)
	}

	result.UnmatchedTrackIDs = make([]int, 0)
	for _, indexes := range remaining.All() {
		result.UnmatchedTrackIDs = append(result.UnmatchedTrackIDs, indexes...)
	}
	slices.Sort(result.UnmatchedTrackIDs)
	slices.Sort(result.UnmatchedDetectionIDs)

	for _, m := range result.Matched {
		if result.MappedTracks[m.TrackID] == nil || result.MappedDetections[m.DetectionID] == nil {
			return nil, fmt.Errorf(
				"Match (%d, %d) has no mapped value. Error: %w",
				m.TrackID, m.DetectionID, errs.ERR_INVARIANT)
		}
	}
	return result, nil
}
