// Opaque detection records. A detection is kept as its raw JSON
// and fields are read lazily with gjson paths.
package detection

import (
	"fmt"

	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/tidwall/gjson"
)

type Detection struct {
	raw string
}

func Parse(raw []byte) (Detection, error) {
	if !gjson.ValidBytes(raw) {
		return Detection{}, fmt.Errorf("Can't parse detection %q. Error: %w", raw, errs.ERR_DATA)
	}
	return Detection{raw: string(raw)}, nil
}

// For literals in tests and defaults
func MustParse(raw string) Detection {
	d, err := Parse([]byte(raw))
	if err != nil {
		panic(err)
	}
	return d
}

// Parses a JSON array of detections (one frame)
func ParseFrame(raw []byte) ([]Detection, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("Can't parse frame. Error: %w", errs.ERR_DATA)
	}
	frame := gjson.ParseBytes(raw)
	if !frame.IsArray() {
		return nil, fmt.Errorf("Frame is not an array: %.40s. Error: %w", frame.Raw, errs.ERR_DATA)
	}
	detections := make([]Detection, 0)
	frame.ForEach(func(_, value gjson.Result) bool {
		detections = append(detections, Detection{raw: value.Raw})
		return true
	})
	return detections, nil
}

func (d Detection) Raw() string {
	return d.raw
}

func (d Detection) IsZero() bool {
	return d.raw == ""
}

func (d Detection) Get(path string) gjson.Result {
	return gjson.Get(d.raw, path)
}

func (d Detection) Has(path string) bool {
	return d.Get(path).Exists()
}

// Reads a numeric array at path. JSON nulls are reported through observed[i] == false.
// ok is false when the path is missing or is not an array
func (d Detection) Floats(path string) (values []float64, observed []bool, ok bool) {
	res := d.Get(path)
	if !res.IsArray() {
		return nil, nil, false
	}
	elems := res.Array()
	values = make([]float64, len(elems))
	observed = make([]bool, len(elems))
	for i, e := range elems {
		if e.Type == gjson.Null {
			continue
		}
		if e.Type != gjson.Number {
			return nil, nil, false
		}
		values[i] = e.Float()
		observed[i] = true
	}
	return values, observed, true
}

func (d Detection) String() string {
	return d.raw
}
