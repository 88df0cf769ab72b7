// Deduplication of tracks describing the same object.
// Pairs of tracks are compared with track to track distances and the
// closest gated pair is merged until no gated pair remains.
package dedup

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/Robogera/trackassign/pkg/cascade"
	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/global"
	"github.com/Robogera/trackassign/pkg/seq"
	"github.com/Robogera/trackassign/pkg/stage"
	"github.com/Robogera/trackassign/pkg/track"
)

type StageConfig struct {
	// defaults to the sorted keys of Thresholds
	Order      []string
	Thresholds map[string]float64
	Lambdas    map[string]float64
}

type Options struct {
	Iterator Iterator
	// track to track modules
	Distances  distance.Set
	Stages     []StageConfig
	ForceMatch bool
	Logger     *slog.Logger
}

type Dedup struct {
	iterator    Iterator
	distances   distance.Set
	stages      []*cascade.Options
	force_match bool
	logger      *slog.Logger
}

func New(o Options) (*Dedup, error) {
	if o.Iterator == nil {
		return nil, fmt.Errorf("Dedup needs an iterator to merge tracks. Error: %w", errs.ERR_CONFIGURATION)
	}
	if len(o.Stages) == 0 {
		return nil, fmt.Errorf("Dedup needs at least one stage. Error: %w", errs.ERR_CONFIGURATION)
	}
	d := &Dedup{
		iterator:    o.Iterator,
		distances:   o.Distances,
		stages:      make([]*cascade.Options, 0, len(o.Stages)),
		force_match: o.ForceMatch,
		logger:      o.Logger,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	for ind, cfg := range o.Stages {
		order := cfg.Order
		if order == nil {
			order = slices.Sorted(maps.Keys(cfg.Thresholds))
		}
		if err := stage.ValidateKeys(o.Distances, order, cfg.Thresholds, cfg.Lambdas); err != nil {
			return nil, fmt.Errorf("Invalid dedup stage %d. Error: %w", ind, err)
		}
		d.stages = append(d.stages, &cascade.Options{
			Distances:  o.Distances,
			Order:      slices.Clone(order),
			Thresholds: cfg.Thresholds,
			Lambdas:    cfg.Lambdas,
			Logger:     d.logger,
		})
	}
	return d, nil
}

func (d *Dedup) mapped(a *arena, handle int, keys []string) (cascade.Mapped, error) {
	s := &a.slots[handle]
	missing := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := s.mapped[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return s.mapped, nil
	}
	value, err := cascade.MapTrack(s.t, handle, missing, d.distances)
	if err != nil {
		return nil, err
	}
	if s.mapped == nil {
		s.mapped = make(cascade.Mapped, len(keys))
	}
	maps.Copy(s.mapped, value)
	return s.mapped, nil
}

// Fills the cache for every live pair and returns the gated pair
// of minimum value, lowest handles first on ties
func (d *Dedup) closest(a *arena, o *cascade.Options) (pairKey, pairEntry, bool, error) {
	mandatory := cascade.MandatoryKeys(o.Order, o.Thresholds)
	handles := a.live()
	var best_key pairKey
	var best pairEntry
	found := false
	for i, h1 := range handles {
		for _, h2 := range handles[i+1:] {
			key := pairKey{h1, h2}
			entry, ok := a.pairs[key]
			if !ok {
				m1, err := d.mapped(a, h1, o.Order)
				if err != nil {
					return key, entry, false, err
				}
				m2, err := d.mapped(a, h2, o.Order)
				if err != nil {
					return key, entry, false, err
				}
				details, err := cascade.GetDistances(m1, m2, o, mandatory)
				if err != nil {
					return key, entry, false, fmt.Errorf("Can't compare tracks %d and %d. Error: %w", h1, h2, err)
				}
				entry.details = details
				if details.Passed {
					entry.value, err = cascade.LambdaSum(o.Order, details.Values, o.Lambdas)
					if err != nil {
						return key, entry, false, err
					}
				}
				a.pairs[key] = entry
			}
			if entry.details.Passed && (!found || entry.value < best.value) {
				best_key, best, found = key, entry, true
			}
		}
	}
	return best_key, best, found, nil
}

// Returns the deduplicated tracks and the inactive tracks created by merges
func (d *Dedup) Dedup(tracks []track.Track) ([]track.Track, []track.Track, error) {
	a := newArena(tracks)
	inactive := make([]track.Track, 0)
	length, err := track.Iteration(tracks)
	if err != nil {
		return nil, nil, err
	}
	merges := 0
	for stage_index, o := range d.stages {
		// mapped values depend on the stage keys only, pairs depend on the whole stage
		clear(a.pairs)
		for len(a.live()) > 1 {
			key, entry, found, err := d.closest(a, o)
			if err != nil {
				return nil, nil, fmt.Errorf("Dedup stage %d failed. Error: %w", stage_index, err)
			}
			if !found {
				break
			}
			merged, local_inactive, err := MergeTracks(d.iterator, a.slots[key.a].t, a.slots[key.b].t, d.force_match)
			if err != nil {
				return nil, nil, fmt.Errorf("Can't merge tracks %d and %d. Error: %w", key.a, key.b, err)
			}
			d.logger.Info(
				"Tracks merged",
				"stage", stage_index, "track", key.a, "absorbed", key.b,
				"value", entry.value, "inactive", len(local_inactive))
			a.replace(key.a, merged)
			a.remove(key.b)
			for _, t := range local_inactive {
				inactive = append(inactive, t.PadTo(length))
			}
			merges++
		}
	}
	deduped := a.compact()
	d.logger.Debug("Dedup done", "tracks", len(tracks), "deduped", len(deduped), "merges", merges, "inactive", len(inactive))
	return deduped, inactive, nil
}

// Deduplicates the active tracks. Output holds the deduplicated tracks first,
// all active, then the inactive tracks created by merges and then the tracks
// that were already inactive
func (d *Dedup) Run(in *global.Output) (*global.Output, error) {
	active := seq.Pick(in.Tracks, in.ActiveTrackIDs)
	deduped, inactive, err := d.Dedup(active)
	if err != nil {
		return nil, err
	}
	previously_inactive := seq.Pick(in.Tracks, seq.Without(seq.SeqN(len(in.Tracks)), in.ActiveTrackIDs))
	out := &global.Output{
		Tracks:         slices.Concat(deduped, inactive, previously_inactive),
		ActiveTrackIDs: seq.SeqN(len(deduped)),
	}
	out.Statuses = make([]global.Status, len(out.Tracks))
	for ind := range out.Statuses {
		if ind < len(deduped) {
			out.Statuses[ind] = StatusDeduped{}
		} else {
			out.Statuses[ind] = global.StatusInactive{}
		}
	}
	return out, nil
}

type StatusDeduped struct{}

func (s StatusDeduped) String() string {
	return "Deduplicated"
}
