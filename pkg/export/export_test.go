package export

import (
	"testing"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/global"
	"github.com/Robogera/trackassign/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func output() *global.Output {
	x := track.NewItem(detection.MustParse(`{"box":[1,2,3,4]}`), nil)
	return &global.Output{
		Tracks:         []track.Track{{x, x}, {x, nil}, {x, nil}},
		ActiveTrackIDs: []int{0, 2},
		Statuses:       []global.Status{global.StatusMissed{}, global.StatusInactive{}, global.StatusMissed{}},
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	b := r.Get(1)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, b, r.Get(1))
	assert.NotEqual(t, r.Get(0).ID, b.ID)
	assert.NotEqual(t, r.Get(0).Color, b.Color)
	assert.Len(t, b.Hex(), 7)
}

func TestSnapshot(t *testing.T) {
	r := NewRegistry()
	doc, err := Snapshot(1, output(), r)
	require.NoError(t, err)
	parsed := gjson.ParseBytes(doc)
	assert.Equal(t, int64(1), parsed.Get("iteration").Int())
	assert.Equal(t, int64(2), parsed.Get("tracks.#").Int())
	assert.Equal(t, r.Get(0).ID, parsed.Get("tracks.0.id").String())
	assert.Equal(t, int64(4), parsed.Get("tracks.0.detection.box.3").Int())
	assert.False(t, parsed.Get("tracks.1.detection").Exists())
	assert.Equal(t, int64(2), parsed.Get("tracks.1.index").Int())
	assert.Equal(t, "No match found", parsed.Get("tracks.1.status").String())
}

func TestTracks(t *testing.T) {
	doc, err := Tracks(output(), NewRegistry())
	require.NoError(t, err)
	parsed := gjson.ParseBytes(doc)
	assert.Equal(t, int64(3), parsed.Get("tracks.#").Int())
	assert.False(t, parsed.Get("tracks.1.active").Bool())
	assert.Equal(t, gjson.Null, parsed.Get("tracks.1.items.1").Type)
	assert.Equal(t, int64(2), parsed.Get("tracks.1.items.#").Int())
}
