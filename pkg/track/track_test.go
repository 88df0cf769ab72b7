package track

import (
	"errors"
	"testing"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(raw string) *Item {
	return NewItem(detection.MustParse(raw), nil)
}

func TestLastNonNull(t *testing.T) {
	tr := Track{nil, item(`{"a":1}`), item(`{"a":2}`), nil}
	last, ind := tr.LastNonNull()
	require.Equal(t, 2, ind)
	assert.Equal(t, int64(2), last.Detection.Get("a").Int())

	first, l := tr.FirstAndLastNonNull()
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, l)
	assert.Equal(t, []int{1, 2}, tr.AllNonNull())

	_, ind = Track{nil, nil}.LastNonNull()
	assert.Equal(t, -1, ind)
}

func TestAppendDoesNotAlias(t *testing.T) {
	base := make(Track, 1, 4)
	base[0] = item(`{}`)
	a := base.Append(item(`{"a":1}`))
	b := base.Append(nil)
	assert.NotNil(t, a[1])
	assert.Nil(t, b[1])
	assert.Len(t, base, 1)

	p := Padded(3, item(`{}`))
	assert.Len(t, p, 4)
	assert.Nil(t, p[2])
	assert.Len(t, p.PadTo(6), 6)
}

func TestIteration(t *testing.T) {
	n, err := Iteration([]Track{{nil, nil}, {nil, item(`{}`)}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = Iteration([]Track{{nil}, {nil, nil}})
	assert.True(t, errors.Is(err, errs.ERR_INVARIANT))
}

func TestGetStats(t *testing.T) {
	x := item(`{}`)
	stats := GetStats(Track{x, nil, nil, nil}, nil)
	assert.Equal(t, 3.0, stats.Age)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1.0, stats.Density)
	assert.Equal(t, 0.25, stats.FullDensity)

	stats = GetStats(Track{nil, x, nil, nil, x, x}, nil)
	assert.Equal(t, 0.0, stats.Age)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 1, stats.FirstIndex)
	assert.Equal(t, 5, stats.LastIndex)
	assert.InDelta(t, 3.0/5.0, stats.Density, 1e-9)
	assert.InDelta(t, 2.0/5.0, stats.GapDensity, 1e-9)
	assert.InDelta(t, 3.0/5.0, stats.FullDensity, 1e-9)

	stats = GetStats(Track{x, nil}, func(i int) float64 { return float64(i) * 0.5 })
	assert.Equal(t, 0.5, stats.Age)
	assert.Equal(t, 0, stats.FloorAge())

	// never seen tracks are no older than one seen at index 0
	empty := GetStats(Track{nil, nil, nil}, nil)
	assert.Equal(t, 2.0, empty.Age)
	assert.Equal(t, GetStats(Track{x, nil, nil}, nil).Age, empty.Age)
	assert.Equal(t, -1, empty.LastIndex)
	assert.Equal(t, 0.0, GetStats(Track{}, nil).Age)
}
