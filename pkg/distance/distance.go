// Distance modules compare a track with a detection (or with another track).
// Each side is mapped once per entity, Fn is evaluated per pair and the
// optional cache builds the value stored in a new track item.
package distance

import (
	"fmt"
	"slices"
	"sort"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/track"
)

// Distance returned when one side can't be compared, large enough to fail any gate
const Huge = 1e10

type Module interface {
	// last is the last non-nil item of t and last_index its position, nil and -1 if none
	MapTrack(t track.Track, track_index int, last *track.Item, last_index int) (any, error)
	MapDetection(d detection.Detection, detection_index int) (any, error)
	// Must be >= 0 and never NaN
	Fn(mapped_track, mapped_detection any) (float64, error)
	// Key of the value stored in new track items, empty when the module caches nothing
	CacheKey() string
	Cache(ctx CacheContext) (any, error)
}

type CacheContext struct {
	// nil when the detection seeds a new track
	MappedTrack     any
	MappedDetection any
	Detection       detection.Detection
	Track           track.Track
	// iteration the new item is appended at
	Index int
}

// Module built from plain functions. Missing map functions are the identity,
// a missing cache function stores the mapped detection
type Funcs struct {
	MapTrackFunc     func(t track.Track, track_index int, last *track.Item, last_index int) (any, error)
	MapDetectionFunc func(d detection.Detection, detection_index int) (any, error)
	DistanceFunc     func(mapped_track, mapped_detection any) (float64, error)
	Key              string
	CacheFunc        func(ctx CacheContext) (any, error)
}

func (f Funcs) MapTrack(t track.Track, track_index int, last *track.Item, last_index int) (any, error) {
	if f.MapTrackFunc == nil {
		return t, nil
	}
	return f.MapTrackFunc(t, track_index, last, last_index)
}

func (f Funcs) MapDetection(d detection.Detection, detection_index int) (any, error) {
	if f.MapDetectionFunc == nil {
		return d, nil
	}
	return f.MapDetectionFunc(d, detection_index)
}

func (f Funcs) Fn(mapped_track, mapped_detection any) (float64, error) {
	return f.DistanceFunc(mapped_track, mapped_detection)
}

func (f Funcs) CacheKey() string {
	return f.Key
}

func (f Funcs) Cache(ctx CacheContext) (any, error) {
	if f.CacheFunc == nil {
		return ctx.MappedDetection, nil
	}
	return f.CacheFunc(ctx)
}

// Modules by distance key
type Set map[string]Module

// Sorted keys
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s Set) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("No distance configured. Error: %w", errs.ERR_CONFIGURATION)
	}
	for _, key := range s.Keys() {
		module := s[key]
		if module == nil {
			return fmt.Errorf("Distance %q is nil. Error: %w", key, errs.ERR_CONFIGURATION)
		}
		if f, ok := module.(Funcs); ok && f.DistanceFunc == nil {
			return fmt.Errorf("Distance %q has no distance function. Error: %w", key, errs.ERR_CONFIGURATION)
		}
	}
	return nil
}

// Subset restricted to keys, every key must exist
func (s Set) Pick(keys []string) (Set, error) {
	picked := make(Set, len(keys))
	for _, key := range keys {
		module, ok := s[key]
		if !ok {
			return nil, fmt.Errorf(
				"Unknown distance %q, configured: %v. Error: %w",
				key, s.Keys(), errs.ERR_CONFIGURATION)
		}
		picked[key] = module
	}
	return picked, nil
}

type KalmanConfig struct {
	Dynamic             string  `toml:"dynamic" yaml:"dynamic" validate:"omitempty,oneof=constant-position constant-velocity"`
	Dimension           int     `toml:"dimension" yaml:"dimension" validate:"gte=0"`
	ProcessVariance     float64 `toml:"process_variance" yaml:"process_variance" validate:"gte=0"`
	MeasurementVariance float64 `toml:"measurement_variance" yaml:"measurement_variance" validate:"gte=0"`
	InitVariance        float64 `toml:"init_variance" yaml:"init_variance" validate:"gte=0"`
}

// Parameters of a registered module, unused fields are ignored by the module
type Config struct {
	Name                 string       `toml:"name" yaml:"name" validate:"required"`
	BoxKey               string       `toml:"box_key" yaml:"box_key"`
	ObservationKey       string       `toml:"observation_key" yaml:"observation_key"`
	VarianceKey          string       `toml:"variance_key" yaml:"variance_key"`
	AppearanceKey        string       `toml:"appearance_key" yaml:"appearance_key"`
	CacheKey             string       `toml:"cache_key" yaml:"cache_key"`
	GallerySize          int          `toml:"gallery_size" yaml:"gallery_size" validate:"gte=0"`
	Metric               string       `toml:"metric" yaml:"metric" validate:"omitempty,oneof=euclidean cosine"`
	MissingDistance      float64      `toml:"missing_distance" yaml:"missing_distance" validate:"gte=0"`
	ObsIndexes           []int        `toml:"obs_indexes" yaml:"obs_indexes"`
	NonNullNormalization bool         `toml:"non_null_normalization" yaml:"non_null_normalization"`
	Kalman               KalmanConfig `toml:"kalman" yaml:"kalman"`
}

type Constructor func(cfg Config, get_time track.TimeFunc) (Module, error)

var registry = map[string]Constructor{
	"iou":            newIOU,
	"mahalanobis":    newMahalanobis(false),
	"sq-mahalanobis": newMahalanobis(true),
	"appearance":     newAppearance,
	"exclusion":      newExclusion,
	"age":            newAge,
}

// Registered module names
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func Build(cfg Config, get_time track.TimeFunc) (Module, error) {
	constructor, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf(
			"Unknown distance module %q, expected one of %v. Error: %w",
			cfg.Name, Names(), errs.ERR_CONFIGURATION)
	}
	if get_time == nil {
		get_time = track.Identity
	}
	return constructor(cfg, get_time)
}

func BuildSet(cfgs map[string]Config, get_time track.TimeFunc) (Set, error) {
	set := make(Set, len(cfgs))
	for key, cfg := range cfgs {
		module, err := Build(cfg, get_time)
		if err != nil {
			return nil, fmt.Errorf("Can't build distance %q. Error: %w", key, err)
		}
		set[key] = module
	}
	return set, set.Validate()
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
