package tracker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Robogera/trackassign/pkg/config"
	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x, y int) detection.Detection {
	return detection.MustParse(fmt.Sprintf(`{"box":[%d,%d,100,100]}`, x, y))
}

func iouConfig() *config.TrackerConfig {
	min_age := 5.0
	return &config.TrackerConfig{
		Distances: map[string]distance.Config{"iou": {Name: "iou"}},
		Stages: []config.StageConfig{
			{Thresholds: map[string]float64{"iou": 0.5}, AgeMode: "ascendant"},
		},
		Age: &config.AgeConfig{Min: &min_age},
	}
}

func TestGetTime(t *testing.T) {
	assert.Equal(t, 3.0, GetTime(0)(3))
	assert.Equal(t, 1.5, GetTime(0.5)(3))
}

func TestDefaultBuilds(t *testing.T) {
	_, err := New(&config.Default().Tracker, nil)
	require.NoError(t, err)
}

func TestNewErrors(t *testing.T) {
	cfg := iouConfig()
	cfg.Age = nil
	_, err := New(cfg, nil)
	assert.True(t, errors.Is(err, errs.ERR_CONFIGURATION))

	cfg = iouConfig()
	cfg.Stages[0].AgeMode = "oldest"
	_, err = New(cfg, nil)
	assert.True(t, errors.Is(err, errs.ERR_CONFIGURATION))

	cfg = iouConfig()
	cfg.Stages[0].Thresholds = map[string]float64{"appearance": 1}
	_, err = New(cfg, nil)
	assert.True(t, errors.Is(err, errs.ERR_CONFIGURATION))
}

func TestTrackAndPostProcess(t *testing.T) {
	cfg := iouConfig()
	cfg.PostProcesses = []config.PostProcessConfig{
		{
			Name:      config.PostProcessDedup,
			Distances: map[string]distance.Config{"exclusion": {Name: "exclusion"}, "age": {Name: "age"}},
			Stages: []config.DedupStageConfig{
				{Thresholds: map[string]float64{"exclusion": 0.5, "age": 3}},
			},
			ForceMatch: true,
		},
		{Name: config.PostProcessDensityFilter, Threshold: 0.3},
	}
	tr, err := New(cfg, nil)
	require.NoError(t, err)

	// the object jumps away at iteration 2 and a second track picks it up
	frames := [][]detection.Detection{
		{box(0, 0), box(1000, 1000)},
		{box(5, 0)},
		{box(500, 0)},
		{box(505, 0)},
		{},
		{},
	}
	out, err := tr.Track(frames, nil)
	require.NoError(t, err)
	require.Len(t, out.Tracks, 3)
	for _, tk := range out.Tracks {
		assert.Len(t, tk, len(frames))
	}

	post, err := tr.PostProcess(out)
	require.NoError(t, err)
	require.Len(t, post.ActiveTrackIDs, 1)
	merged := post.Tracks[post.ActiveTrackIDs[0]]
	assert.Equal(t, []int{0, 1, 2, 3}, merged.AllNonNull())

	again, err := tr.TrackAndPostProcess(frames, nil)
	require.NoError(t, err)
	assert.Equal(t, post.ActiveTrackIDs, again.ActiveTrackIDs)

	infos, err := tr.FrameInfo(out.Tracks, frames[0])
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestEmptyAgeModeKeepsOneStratum(t *testing.T) {
	key, err := buildSortKey(config.StageConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, key)

	key, err = buildSortKey(config.StageConfig{AgeMode: "all"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, key)
}

func TestAgeWithoutMin(t *testing.T) {
	max_age := 30.0
	cfg := iouConfig()
	cfg.Age = &config.AgeConfig{Max: &max_age}
	tr, err := New(cfg, nil)
	require.NoError(t, err)

	out, err := tr.Track([][]detection.Detection{{box(0, 0)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, out.ActiveTrackIDs)
}
