package postprocess

import (
	"errors"
	"testing"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/global"
	"github.com/Robogera/trackassign/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDensityFilter(t *testing.T) {
	x := track.NewItem(detection.MustParse(`{}`), nil)
	in := &global.Output{
		Tracks: []track.Track{
			{x, x, x, x},
			{nil, x, nil, nil},
			{x, nil, nil, nil},
		},
		ActiveTrackIDs: []int{0, 1},
	}
	f, err := NewDensityFilter(0.5, nil, nil)
	require.NoError(t, err)
	out, err := f.Run(in)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, out.ActiveTrackIDs)
	assert.Len(t, out.Tracks, 3)
	assert.IsType(t, StatusFiltered{}, out.Statuses[1])
	assert.Equal(t, []int{0, 1}, in.ActiveTrackIDs, "input is left untouched")

	_, err = NewDensityFilter(0, nil, nil)
	assert.True(t, errors.Is(err, errs.ERR_CONFIGURATION))
}

type failing struct{}

func (failing) Run(*global.Output) (*global.Output, error) {
	return nil, errs.ERR_INVARIANT
}

func TestChain(t *testing.T) {
	x := track.NewItem(detection.MustParse(`{}`), nil)
	in := &global.Output{Tracks: []track.Track{{x, nil, nil}, {x, x, x}}, ActiveTrackIDs: []int{0, 1}}
	strict, _ := NewDensityFilter(0.9, nil, nil)
	loose, _ := NewDensityFilter(0.2, nil, nil)
	out, err := Chain{loose, strict}.Run(in)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, out.ActiveTrackIDs)

	_, err = Chain{loose, failing{}}.Run(in)
	assert.True(t, errors.Is(err, errs.ERR_INVARIANT))
}
