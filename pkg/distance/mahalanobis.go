package distance

import (
	"fmt"
	"slices"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/kalman"
	"github.com/Robogera/trackassign/pkg/track"
)

// Mapped detection of the mahalanobis distance
type Observation struct {
	Values   []float64
	Observed []bool
	Variance []float64
	// false when the detection has no observation
	Present bool
}

type mahalanobisDistance struct {
	model           *kalman.Model
	observation_key string
	variance_key    string
	cache_key       string
	obs_indexes     []int
	squared         bool
	non_null_norm   bool
	get_time        track.TimeFunc
}

func newMahalanobis(squared bool) Constructor {
	return func(cfg Config, get_time track.TimeFunc) (Module, error) {
		kc := cfg.Kalman
		if kc.Dimension == 0 {
			return nil, fmt.Errorf("kalman.dimension is mandatory. Error: %w", errs.ERR_CONFIGURATION)
		}
		measurement_variance := kc.MeasurementVariance
		if measurement_variance == 0 {
			measurement_variance = 1
		}
		init_variance := kc.InitVariance
		if init_variance == 0 {
			init_variance = 1e4
		}
		model, err := kalman.NewModel(
			withDefault(kc.Dynamic, kalman.DynamicConstantPosition),
			kc.Dimension, kc.ProcessVariance, measurement_variance, init_variance)
		if err != nil {
			return nil, err
		}
		return &mahalanobisDistance{
			model:           model,
			observation_key: withDefault(cfg.ObservationKey, "box"),
			variance_key:    withDefault(cfg.VarianceKey, "variance"),
			cache_key:       withDefault(cfg.CacheKey, "state"),
			obs_indexes:     cfg.ObsIndexes,
			squared:         squared,
			non_null_norm:   cfg.NonNullNormalization,
			get_time:        get_time,
		}, nil
	}
}

// last state stored in the track, items without state are skipped
func (d *mahalanobisDistance) lastState(t track.Track) *kalman.State {
	for i := len(t) - 1; i >= 0; i-- {
		if state, ok := t[i].Cached(d.cache_key); ok {
			if s, _ := state.(*kalman.State); s != nil {
				return s
			}
		}
	}
	return nil
}

// State predicted at the next iteration, nil when the track holds no state
func (d *mahalanobisDistance) MapTrack(t track.Track, _ int, _ *track.Item, _ int) (any, error) {
	state := d.lastState(t)
	if state == nil {
		return (*kalman.State)(nil), nil
	}
	pred, err := d.model.Predict(state, len(t), d.get_time)
	if err != nil {
		return nil, fmt.Errorf("Can't predict track state. Error: %w", err)
	}
	return pred, nil
}

func (d *mahalanobisDistance) MapDetection(det detection.Detection, _ int) (any, error) {
	values, observed, ok := det.Floats(d.observation_key)
	if !ok {
		return &Observation{}, nil
	}
	obs := &Observation{Values: values, Observed: observed, Present: true}
	if det.Has(d.variance_key) {
		variance, _, ok := det.Floats(d.variance_key)
		if !ok || len(variance) != len(values) {
			return nil, fmt.Errorf(
				"%s (%d) and %s (%d) should be the same size. Error: %w",
				d.variance_key, len(variance), d.observation_key, len(values), errs.ERR_DATA)
		}
		obs.Variance = variance
	}
	return obs, nil
}

func (d *mahalanobisDistance) indexes(obs *Observation) []int {
	indexes := make([]int, 0, len(obs.Values))
	for ind, o := range obs.Observed {
		if o && (d.obs_indexes == nil || slices.Contains(d.obs_indexes, ind)) {
			indexes = append(indexes, ind)
		}
	}
	return indexes
}

func (d *mahalanobisDistance) Fn(mapped_track, mapped_detection any) (float64, error) {
	pred, _ := mapped_track.(*kalman.State)
	obs, _ := mapped_detection.(*Observation)
	if pred == nil || obs == nil || !obs.Present {
		return Huge, nil
	}
	indexes := d.indexes(obs)
	var value float64
	var err error
	if d.squared {
		value, err = d.model.SqMahalanobis(pred, obs.Values, indexes, obs.Variance)
	} else {
		value, err = d.model.Mahalanobis(pred, obs.Values, indexes, obs.Variance)
	}
	if err != nil {
		return 0, err
	}
	if d.non_null_norm && len(indexes) > 0 {
		value /= float64(len(indexes))
	}
	return value, nil
}

func (d *mahalanobisDistance) CacheKey() string { return d.cache_key }

// Corrected state, predicted from the prior when the detection starts a track
func (d *mahalanobisDistance) Cache(ctx CacheContext) (any, error) {
	obs, _ := ctx.MappedDetection.(*Observation)
	if obs == nil || !obs.Present {
		return (*kalman.State)(nil), nil
	}
	if len(obs.Observed) > 0 && !obs.Observed[0] && obs.Variance == nil {
		return nil, fmt.Errorf(
			"Expected %s when %s starts with null. Error: %w",
			d.variance_key, d.observation_key, errs.ERR_DATA)
	}
	predicted, _ := ctx.MappedTrack.(*kalman.State)
	if predicted == nil {
		predicted = d.model.Init(ctx.Index)
	}
	corrected, err := d.model.Correct(predicted, obs.Values, obs.Observed, obs.Variance)
	if err != nil {
		return nil, fmt.Errorf("Can't correct track state. Error: %w", err)
	}
	return corrected, nil
}
