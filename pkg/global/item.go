package global

import (
	"fmt"

	"github.com/Robogera/trackassign/pkg/cascade"
	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/track"
)

type ItemContext struct {
	// nil when the detection starts a new track
	Track       track.Track
	MappedTrack cascade.Mapped
	Detection   detection.Detection
	// mapped for every configured distance key
	MappedDetection cascade.Mapped
	// iteration the item is appended at
	Index       int
	DetectionID int
	// -1 for a new track
	TrackID int
}

// Builds the item appended to a track for a matched or spawning detection
type ItemBuilder interface {
	Build(ctx ItemContext) (*track.Item, error)
}

type ItemBuilderFunc func(ctx ItemContext) (*track.Item, error)

func (f ItemBuilderFunc) Build(ctx ItemContext) (*track.Item, error) {
	return f(ctx)
}

// Stores the cache of every module with a cache key
type CacheItemBuilder struct {
	Distances distance.Set
}

func (b CacheItemBuilder) Build(ctx ItemContext) (*track.Item, error) {
	cache := make(map[string]any)
	for _, key := range b.Distances.Keys() {
		module := b.Distances[key]
		cache_key := module.CacheKey()
		if cache_key == "" {
			continue
		}
		var mapped_track any
		if ctx.MappedTrack != nil {
			mapped_track = ctx.MappedTrack[key]
		}
		value, err := module.Cache(distance.CacheContext{
			MappedTrack:     mapped_track,
			MappedDetection: ctx.MappedDetection[key],
			Detection:       ctx.Detection,
			Track:           ctx.Track,
			Index:           ctx.Index,
		})
		if err != nil {
			return nil, fmt.Errorf("Can't cache %q for detection %d. Error: %w", key, ctx.DetectionID, err)
		}
		cache[cache_key] = value
	}
	return track.NewItem(ctx.Detection, cache), nil
}
