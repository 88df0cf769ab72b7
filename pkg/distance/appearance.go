package distance

import (
	"fmt"
	"math"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/gring"
	"github.com/Robogera/trackassign/pkg/track"
	"gonum.org/v1/gonum/floats"
)

const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

// Compares the detection's appearance vector with the gallery of
// the last gallery_size vectors of the track
type appearanceDistance struct {
	appearance_key   string
	cache_key        string
	gallery_size     int
	metric           string
	missing_distance float64
	allow_missing    bool
}

func newAppearance(cfg Config, _ track.TimeFunc) (Module, error) {
	gallery_size := cfg.GallerySize
	if gallery_size == 0 {
		gallery_size = 1
	}
	missing_distance := cfg.MissingDistance
	if missing_distance == 0 {
		missing_distance = Huge
	}
	return &appearanceDistance{
		appearance_key:   withDefault(cfg.AppearanceKey, "appearance"),
		cache_key:        withDefault(cfg.CacheKey, "gallery"),
		gallery_size:     gallery_size,
		metric:           withDefault(cfg.Metric, MetricEuclidean),
		missing_distance: missing_distance,
		allow_missing:    cfg.MissingDistance > 0,
	}, nil
}

func (d *appearanceDistance) MapTrack(t track.Track, _ int, _ *track.Item, _ int) (any, error) {
	for i := len(t) - 1; i >= 0; i-- {
		if value, ok := t[i].Cached(d.cache_key); ok {
			if gallery, _ := value.(*gring.Ring[[]float64]); gallery != nil {
				return gallery, nil
			}
		}
	}
	return (*gring.Ring[[]float64])(nil), nil
}

func (d *appearanceDistance) MapDetection(det detection.Detection, detection_index int) (any, error) {
	values, observed, ok := det.Floats(d.appearance_key)
	if !ok {
		if d.allow_missing {
			return []float64(nil), nil
		}
		return nil, fmt.Errorf(
			"Detection %d has no valid %s. Error: %w",
			detection_index, d.appearance_key, errs.ERR_DATA)
	}
	for _, o := range observed {
		if !o {
			return nil, fmt.Errorf(
				"Detection %d has null entries in %s. Error: %w",
				detection_index, d.appearance_key, errs.ERR_DATA)
		}
	}
	return values, nil
}

func (d *appearanceDistance) Fn(mapped_track, mapped_detection any) (float64, error) {
	gallery, _ := mapped_track.(*gring.Ring[[]float64])
	vector, _ := mapped_detection.([]float64)
	if gallery == nil || gallery.Size() == 0 || vector == nil {
		return d.missing_distance, nil
	}
	for g := range gallery.All() {
		if len(g) != len(vector) {
			return 0, fmt.Errorf(
				"Appearance vectors have different lengths %d and %d. Error: %w",
				len(g), len(vector), errs.ERR_DATA)
		}
	}
	if d.metric == MetricCosine {
		mean := make([]float64, len(vector))
		for g := range gallery.All() {
			floats.Add(mean, g)
		}
		floats.Scale(1/float64(gallery.Size()), mean)
		return CosDistance(mean, vector), nil
	}
	dist := math.Inf(1)
	for g := range gallery.All() {
		dist = min(dist, floats.Distance(g, vector, 2))
	}
	return dist, nil
}

func (d *appearanceDistance) CacheKey() string { return d.cache_key }

// New gallery with the detection's vector pushed, the track's gallery is left untouched
func (d *appearanceDistance) Cache(ctx CacheContext) (any, error) {
	gallery, _ := ctx.MappedTrack.(*gring.Ring[[]float64])
	vector, _ := ctx.MappedDetection.([]float64)
	if vector == nil {
		return gallery, nil
	}
	if gallery == nil {
		gallery = gring.NewRing[[]float64](d.gallery_size)
	} else {
		gallery = gallery.Clone()
	}
	gallery.Push(vector)
	return gallery, nil
}

// 1 - cosine similarity, 1 when one of the vectors is null
func CosDistance(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}
