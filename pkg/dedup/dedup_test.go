package dedup

import (
	"errors"
	"testing"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/global"
	"github.com/Robogera/trackassign/pkg/stage"
	"github.com/Robogera/trackassign/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(raw string) *track.Item {
	return track.NewItem(detection.MustParse(raw), nil)
}

func tracker(t *testing.T) *global.Global {
	iou, err := distance.Build(distance.Config{Name: "iou"}, nil)
	require.NoError(t, err)
	set := distance.Set{"iou": iou}
	s, err := stage.New(stage.Options{Distances: set, Thresholds: map[string]float64{"iou": 0.5}})
	require.NoError(t, err)
	min_age := 100.0
	g, err := global.New(global.Options{Distances: set, Stages: []*stage.Stage{s}, Age: &global.AgePolicy{Min: &min_age}})
	require.NoError(t, err)
	return g
}

func raws(t track.Track) []string {
	ret := make([]string, len(t))
	for ind, i := range t {
		if i != nil {
			ret[ind] = i.Detection.Raw()
		}
	}
	return ret
}

func TestMergeTracksRoundTrip(t *testing.T) {
	g := tracker(t)
	t1 := track.Track{item(`{"box":[0,0,10,10]}`), nil, nil, nil, nil}
	t2 := track.Track{nil, nil, item(`{"box":[500,500,10,10]}`), item(`{"box":[900,900,10,10]}`), nil}

	merged, inactive, err := MergeTracks(g, t1, t2, true)
	require.NoError(t, err)
	assert.Empty(t, inactive)
	require.Len(t, merged, 5)
	assert.Equal(t, []string{
		`{"box":[0,0,10,10]}`, "", `{"box":[500,500,10,10]}`, `{"box":[900,900,10,10]}`, "",
	}, raws(merged))

	// without forcing, far detections start tracks of their own
	merged, inactive, err = MergeTracks(g, t1, t2, false)
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Count())
	require.Len(t, inactive, 2)
	for _, tr := range inactive {
		assert.Len(t, tr, 5)
		assert.Equal(t, 1, tr.Count())
	}
}

func TestMergeTracksCloseDetections(t *testing.T) {
	g := tracker(t)
	t1 := track.Track{item(`{"box":[0,0,10,10]}`), item(`{"box":[1,0,10,10]}`), nil}
	t2 := track.Track{nil, nil, item(`{"box":[2,0,10,10]}`)}
	merged, inactive, err := MergeTracks(g, t1, t2, false)
	require.NoError(t, err)
	assert.Empty(t, inactive)
	assert.Equal(t, 3, merged.Count())
}

func TestMergeTracksInvariants(t *testing.T) {
	g := tracker(t)
	x := item(`{"box":[0,0,10,10]}`)
	_, _, err := MergeTracks(g, track.Track{x, nil}, track.Track{x, nil}, true)
	assert.True(t, errors.Is(err, errs.ERR_INVARIANT), "forced merge of overlapping tracks")
	_, _, err = MergeTracks(g, track.Track{x}, track.Track{x, nil}, false)
	assert.True(t, errors.Is(err, errs.ERR_INVARIANT))
}

func newDedup(t *testing.T) *Dedup {
	exclusion, err := distance.Build(distance.Config{Name: "exclusion"}, nil)
	require.NoError(t, err)
	age, err := distance.Build(distance.Config{Name: "age"}, nil)
	require.NoError(t, err)
	d, err := New(Options{
		Iterator:   tracker(t),
		Distances:  distance.Set{"exclusion": exclusion, "age": age},
		Stages:     []StageConfig{{Order: []string{"exclusion", "age"}, Thresholds: map[string]float64{"exclusion": 0.5, "age": 3}}},
		ForceMatch: true,
	})
	require.NoError(t, err)
	return d
}

func dedupScenario() []track.Track {
	a := item(`{"box":[0,0,10,10]}`)
	b := item(`{"box":[300,0,10,10]}`)
	c := item(`{"box":[600,0,10,10]}`)
	return []track.Track{
		{a, a, nil, nil, nil, nil},
		{nil, nil, nil, b, b, nil},
		{c, nil, nil, c, nil, nil},
	}
}

func TestDedup(t *testing.T) {
	tracks := dedupScenario()
	deduped, inactive, err := newDedup(t).Dedup(tracks)
	require.NoError(t, err)
	assert.Empty(t, inactive)
	require.Len(t, deduped, len(tracks)-1)
	assert.Equal(t, []int{0, 1, 3, 4}, deduped[0].AllNonNull())
	assert.Equal(t, raws(tracks[2]), raws(deduped[1]))
}

func TestRun(t *testing.T) {
	tracks := dedupScenario()
	stale := track.Track{nil, nil, nil, nil, item(`{"box":[0,0,1,1]}`), nil}
	out, err := newDedup(t).Run(&global.Output{
		Tracks:         append(tracks, stale),
		ActiveTrackIDs: []int{0, 1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, out.ActiveTrackIDs)
	require.Len(t, out.Tracks, 3)
	assert.Equal(t, raws(stale), raws(out.Tracks[2]))
	assert.Equal(t, global.StatusInactive{}, out.Statuses[2])
}

func TestNew(t *testing.T) {
	exclusion, _ := distance.Build(distance.Config{Name: "exclusion"}, nil)
	_, err := New(Options{
		Iterator:  tracker(t),
		Distances: distance.Set{"exclusion": exclusion},
		Stages:    []StageConfig{{Thresholds: map[string]float64{"appearance": 1}}},
	})
	assert.True(t, errors.Is(err, errs.ERR_CONFIGURATION))
	_, err = New(Options{Distances: distance.Set{"exclusion": exclusion}})
	assert.True(t, errors.Is(err, errs.ERR_CONFIGURATION))
}

func TestArena(t *testing.T) {
	a := newArena([]track.Track{{nil}, {nil}, {nil}})
	a.pairs[pairKey{0, 1}] = pairEntry{value: 1}
	a.pairs[pairKey{0, 2}] = pairEntry{value: 2}
	a.pairs[pairKey{1, 2}] = pairEntry{value: 3}
	a.remove(1)
	assert.Equal(t, []int{0, 2}, a.live())
	assert.Len(t, a.pairs, 1)
	assert.Len(t, a.compact(), 2)
}
