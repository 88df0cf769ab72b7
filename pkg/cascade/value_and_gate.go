package cascade

import (
	"fmt"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/gmat"
	"github.com/Robogera/trackassign/pkg/track"
	"golang.org/x/sync/errgroup"
)

type ValueAndGate struct {
	Gate             *gmat.Mat[bool]
	Value            *gmat.Mat[float64]
	Details          *gmat.Mat[Details]
	MappedTracks     []Mapped
	MappedDetections []Mapped
}

func newGroup(workers int) *errgroup.Group {
	eg := new(errgroup.Group)
	eg.SetLimit(max(workers, 1))
	return eg
}

// Maps one track for every key, index is the track index given to the modules
func MapTrack(t track.Track, index int, keys []string, distances distance.Set) (Mapped, error) {
	last, last_index := t.LastNonNull()
	mapped := make(Mapped, len(keys))
	for _, key := range keys {
		module, ok := distances[key]
		if !ok {
			return nil, fmt.Errorf("No distance module for %q. Error: %w", key, errs.ERR_CONFIGURATION)
		}
		value, err := module.MapTrack(t, index, last, last_index)
		if err != nil {
			return nil, fmt.Errorf("Can't map track %d with %q. Error: %w", index, key, err)
		}
		mapped[key] = value
	}
	return mapped, nil
}

func MapDetection(d detection.Detection, index int, keys []string, distances distance.Set) (Mapped, error) {
	mapped := make(Mapped, len(keys))
	for _, key := range keys {
		module, ok := distances[key]
		if !ok {
			return nil, fmt.Errorf("No distance module for %q. Error: %w", key, errs.ERR_CONFIGURATION)
		}
		value, err := module.MapDetection(d, index)
		if err != nil {
			return nil, fmt.Errorf("Can't map detection %d with %q. Error: %w", index, key, err)
		}
		mapped[key] = value
	}
	return mapped, nil
}

// Maps every track, results keep the input order
func MapTracks(tracks []track.Track, o *Options) ([]Mapped, error) {
	mapped := make([]Mapped, len(tracks))
	eg := newGroup(o.Workers)
	for ind, t := range tracks {
		eg.Go(func() error {
			m, err := MapTrack(t, ind, o.Order, o.Distances)
			mapped[ind] = m
			return err
		})
	}
	return mapped, eg.Wait()
}

func MapDetections(detections []detection.Detection, o *Options) ([]Mapped, error) {
	mapped := make([]Mapped, len(detections))
	eg := newGroup(o.Workers)
	for ind, d := range detections {
		eg.Go(func() error {
			m, err := MapDetection(d, ind, o.Order, o.Distances)
			mapped[ind] = m
			return err
		})
	}
	return mapped, eg.Wait()
}

func BuildValueAndGate(tracks []track.Track, detections []detection.Detection, o *Options) (*ValueAndGate, error) {
	mapped_tracks, err := MapTracks(tracks, o)
	if err != nil {
		return nil, err
	}
	mapped_detections, err := MapDetections(detections, o)
	if err != nil {
		return nil, err
	}
	return BuildFromMapped(mapped_tracks, mapped_detections, o)
}

// Evaluates the cascade on every pair of already mapped entities
func BuildFromMapped(mapped_tracks, mapped_detections []Mapped, o *Options) (*ValueAndGate, error) {
	rows, cols := len(mapped_tracks), len(mapped_detections)
	vg := &ValueAndGate{
		Gate:             gmat.NewMat[bool](rows, cols),
		Value:            gmat.NewMat[float64](rows, cols),
		Details:          gmat.NewMat[Details](rows, cols),
		MappedTracks:     mapped_tracks,
		MappedDetections: mapped_detections,
	}
	mandatory := MandatoryKeys(o.Order, o.Thresholds)
	eg := newGroup(o.Workers)
	for ind_r := range rows {
		eg.Go(func() error {
			for ind_c := range cols {
				details, err := GetDistances(mapped_tracks[ind_r], mapped_detections[ind_c], o, mandatory)
				if err != nil {
					return fmt.Errorf("Can't compare track %d and detection %d. Error: %w", ind_r, ind_c, err)
				}
				value, err := LambdaSum(mandatory, details.Values, o.Lambdas)
				if err != nil {
					return fmt.Errorf("Can't compare track %d and detection %d. Error: %w", ind_r, ind_c, err)
				}
				vg.Details.Set(ind_r, ind_c, details)
				vg.Value.Set(ind_r, ind_c, value)
				vg.Gate.Set(ind_r, ind_c, details.Passed)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return vg, nil
}
