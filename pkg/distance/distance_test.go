package distance

import (
	"errors"
	"math"
	"testing"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/gring"
	"github.com/Robogera/trackassign/pkg/kalman"
	"github.com/Robogera/trackassign/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func det(raw string) detection.Detection {
	return detection.MustParse(raw)
}

func TestBuildUnknown(t *testing.T) {
	_, err := Build(Config{Name: "bhattacharyya"}, nil)
	assert.True(t, errors.Is(err, errs.ERR_CONFIGURATION))
	_, err = Build(Config{Name: "mahalanobis"}, nil)
	assert.True(t, errors.Is(err, errs.ERR_CONFIGURATION), "dimension is mandatory")
	assert.Contains(t, Names(), "iou")

	assert.True(t, errors.Is(Set{"a": Funcs{}}.Validate(), errs.ERR_CONFIGURATION))
}

func TestFuncsDefaults(t *testing.T) {
	f := Funcs{DistanceFunc: func(a, b any) (float64, error) { return 0, nil }, Key: "raw"}
	d := det(`{"x":1}`)
	mapped, err := f.MapDetection(d, 0)
	require.NoError(t, err)
	assert.Equal(t, d, mapped)
	tr := track.Track{nil}
	mapped, err = f.MapTrack(tr, 0, nil, -1)
	require.NoError(t, err)
	assert.Equal(t, tr, mapped)
	cached, err := f.Cache(CacheContext{MappedDetection: 42})
	require.NoError(t, err)
	assert.Equal(t, 42, cached)
}

func TestIOU(t *testing.T) {
	m, err := Build(Config{Name: "iou"}, nil)
	require.NoError(t, err)
	tr := track.Track{track.NewItem(det(`{"box":[0,0,190,190]}`), nil)}
	last, last_index := tr.LastNonNull()
	mt, err := m.MapTrack(tr, 0, last, last_index)
	require.NoError(t, err)

	md, err := m.MapDetection(det(`{"box":[0,0,200,200]}`), 0)
	require.NoError(t, err)
	value, err := m.Fn(mt, md)
	require.NoError(t, err)
	assert.InDelta(t, 0.0975, value, 1e-9)

	missing, err := m.MapDetection(det(`{"score":1}`), 1)
	require.NoError(t, err)
	value, err = m.Fn(mt, missing)
	require.NoError(t, err)
	assert.Equal(t, 1.0, value)

	_, err = m.MapDetection(det(`{"box":[0,0,1]}`), 2)
	assert.True(t, errors.Is(err, errs.ERR_DATA))
}

func TestMahalanobis(t *testing.T) {
	m, err := Build(Config{
		Name:           "mahalanobis",
		ObservationKey: "location",
		Kalman:         KalmanConfig{Dimension: 2, ProcessVariance: 1},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "state", m.CacheKey())

	first := det(`{"location":[22,33]}`)
	md, err := m.MapDetection(first, 0)
	require.NoError(t, err)
	state, err := m.Cache(CacheContext{MappedDetection: md, Detection: first, Index: 0})
	require.NoError(t, err)
	s := state.(*kalman.State)
	assert.InDelta(t, 22, s.Mean.AtVec(0), 0.01)

	tr := track.Track{track.NewItem(first, map[string]any{"state": s}), nil}
	mt, err := m.MapTrack(tr, 0, tr[0], 0)
	require.NoError(t, err)
	assert.Equal(t, 2, mt.(*kalman.State).Index)

	near, _ := m.MapDetection(det(`{"location":[23,33]}`), 0)
	far, _ := m.MapDetection(det(`{"location":[60,80]}`), 1)
	partial, _ := m.MapDetection(det(`{"location":[null,33],"variance":[1,1]}`), 2)
	d_near, err := m.Fn(mt, near)
	require.NoError(t, err)
	d_far, err := m.Fn(mt, far)
	require.NoError(t, err)
	d_partial, err := m.Fn(mt, partial)
	require.NoError(t, err)
	assert.Less(t, d_near, d_far)
	assert.Less(t, d_partial, d_near)

	none, _ := m.MapDetection(det(`{}`), 3)
	value, _ := m.Fn(mt, none)
	assert.Equal(t, Huge, value)
	value, _ = m.Fn((*kalman.State)(nil), near)
	assert.Equal(t, Huge, value)

	bad, _ := m.MapDetection(det(`{"location":[null,33]}`), 4)
	_, err = m.Cache(CacheContext{MappedTrack: mt, MappedDetection: bad, Index: 2})
	assert.True(t, errors.Is(err, errs.ERR_DATA))
}

func TestAppearance(t *testing.T) {
	m, err := Build(Config{Name: "appearance", GallerySize: 2}, nil)
	require.NoError(t, err)

	vectors := []string{`{"appearance":[1,0]}`, `{"appearance":[0,1]}`, `{"appearance":[3,0]}`}
	var gallery any = (*gring.Ring[[]float64])(nil)
	for _, raw := range vectors {
		md, err := m.MapDetection(det(raw), 0)
		require.NoError(t, err)
		next, err := m.Cache(CacheContext{MappedTrack: gallery, MappedDetection: md})
		require.NoError(t, err)
		if previous, _ := gallery.(*gring.Ring[[]float64]); previous != nil {
			assert.Less(t, previous.Size(), 3, "cache must not grow the previous gallery")
		}
		gallery = next
	}
	assert.Equal(t, 2, gallery.(*gring.Ring[[]float64]).Size())

	md, _ := m.MapDetection(det(`{"appearance":[1,0]}`), 0)
	value, err := m.Fn(gallery, md)
	require.NoError(t, err)
	// gallery keeps [3,0] and [0,1]
	assert.InDelta(t, math.Sqrt2, value, 1e-9)

	_, err = m.MapDetection(det(`{"box":[1,2,3,4]}`), 0)
	assert.True(t, errors.Is(err, errs.ERR_DATA))

	cos, err := Build(Config{Name: "appearance", Metric: MetricCosine, MissingDistance: 1}, nil)
	require.NoError(t, err)
	missing, err := cos.MapDetection(det(`{}`), 0)
	require.NoError(t, err)
	value, _ = cos.Fn(gallery, missing)
	assert.Equal(t, 1.0, value)
	assert.InDelta(t, 0, CosDistance([]float64{1, 1}, []float64{2, 2}), 1e-9)
}

func TestTrackToTrack(t *testing.T) {
	x := track.NewItem(det(`{}`), nil)
	a := track.Track{x, x, nil, nil, nil}
	b := track.Track{nil, nil, nil, x, x}
	c := track.Track{nil, x, x, nil, nil}

	exclusion, _ := Build(Config{Name: "exclusion"}, nil)
	value, err := exclusion.Fn(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, value)
	value, _ = exclusion.Fn(a, c)
	assert.Equal(t, 0.5, value)
	_, err = exclusion.MapDetection(det(`{}`), 0)
	assert.True(t, errors.Is(err, errs.ERR_CONFIGURATION))

	age, _ := Build(Config{Name: "age"}, nil)
	value, _ = age.Fn(a, b)
	assert.Equal(t, 2.0, value)
	value, _ = age.Fn(a, c)
	assert.Equal(t, 0.0, value)
}
