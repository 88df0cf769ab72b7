package distance

import (
	"fmt"

	"github.com/Robogera/trackassign/pkg/detection"
	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/Robogera/trackassign/pkg/track"
)

// [x, y, w, h]
type Box struct {
	Left, Top, Right, Bottom float64
}

func BoxFromDetection(d detection.Detection, key string) (*Box, error) {
	values, observed, ok := d.Floats(key)
	if !ok {
		return nil, nil
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("Box %q has %d values, expected 4. Error: %w", key, len(values), errs.ERR_DATA)
	}
	for _, o := range observed {
		if !o {
			return nil, nil
		}
	}
	return &Box{
		Left:   values[0],
		Top:    values[1],
		Right:  values[0] + values[2],
		Bottom: values[1] + values[3],
	}, nil
}

func (b *Box) Area() float64 {
	return max(b.Right-b.Left, 0) * max(b.Bottom-b.Top, 0)
}

func IOU(a, b *Box) float64 {
	inter := (&Box{
		Left:   max(a.Left, b.Left),
		Top:    max(a.Top, b.Top),
		Right:  min(a.Right, b.Right),
		Bottom: min(a.Bottom, b.Bottom),
	}).Area()
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// 1 - IoU between the track's last box and the detection box
type iouDistance struct {
	box_key string
}

func newIOU(cfg Config, _ track.TimeFunc) (Module, error) {
	return &iouDistance{box_key: withDefault(cfg.BoxKey, "box")}, nil
}

func (d *iouDistance) MapTrack(_ track.Track, _ int, last *track.Item, _ int) (any, error) {
	if last == nil {
		return (*Box)(nil), nil
	}
	return BoxFromDetection(last.Detection, d.box_key)
}

func (d *iouDistance) MapDetection(det detection.Detection, _ int) (any, error) {
	return BoxFromDetection(det, d.box_key)
}

func (d *iouDistance) Fn(mapped_track, mapped_detection any) (float64, error) {
	a, _ := mapped_track.(*Box)
	b, _ := mapped_detection.(*Box)
	if a == nil || b == nil {
		return 1, nil
	}
	return 1 - IOU(a, b), nil
}

func (d *iouDistance) CacheKey() string { return "" }

func (d *iouDistance) Cache(CacheContext) (any, error) { return nil, nil }
