// JSON views of the tracking output with a stable public identity per track
package export

import (
	"fmt"
	"image/color"

	"github.com/Robogera/trackassign/pkg/global"
	"github.com/google/uuid"
	"github.com/muesli/gamut"
	"github.com/tidwall/sjson"
)

type Identity struct {
	ID    string
	Color color.RGBA
}

func (i Identity) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", i.Color.R, i.Color.G, i.Color.B)
}

// Identities by master track index, created on first use
type Registry struct {
	identities []Identity
	next_color color.Color
}

func NewRegistry() *Registry {
	return &Registry{
		identities: make([]Identity, 0),
		next_color: color.RGBA{255, 0, 0, 255},
	}
}

func (r *Registry) Get(master_index int) Identity {
	for len(r.identities) <= master_index {
		r.next_color = gamut.HueOffset(r.next_color, 153)
		red, green, blue, _ := r.next_color.RGBA()
		r.identities = append(r.identities, Identity{
			ID:    uuid.NewString(),
			Color: color.RGBA{uint8(red >> 8), uint8(green >> 8), uint8(blue >> 8), 255},
		})
	}
	return r.identities[master_index]
}

func (r *Registry) Len() int {
	return len(r.identities)
}

func status(out *global.Output, id int) string {
	if id < len(out.Statuses) && out.Statuses[id] != nil {
		return out.Statuses[id].String()
	}
	return ""
}

func trackHeader(r *Registry, out *global.Output, id int, active bool) (string, error) {
	identity := r.Get(id)
	obj := "{}"
	var err error
	for _, kv := range []struct {
		path  string
		value any
	}{
		{"id", identity.ID},
		{"index", id},
		{"color", identity.Hex()},
		{"active", active},
		{"status", status(out, id)},
	} {
		obj, err = sjson.Set(obj, kv.path, kv.value)
		if err != nil {
			return "", fmt.Errorf("Can't set %s of track %d. Error: %w", kv.path, id, err)
		}
	}
	return obj, nil
}

// Active tracks at the last iteration of out with the detection they got, if any
func Snapshot(iteration int, out *global.Output, r *Registry) ([]byte, error) {
	doc, err := sjson.SetBytes([]byte("{}"), "iteration", iteration)
	if err != nil {
		return nil, err
	}
	doc, err = sjson.SetRawBytes(doc, "tracks", []byte("[]"))
	if err != nil {
		return nil, err
	}
	for _, id := range out.ActiveTrackIDs {
		obj, err := trackHeader(r, out, id, true)
		if err != nil {
			return nil, err
		}
		t := out.Tracks[id]
		if len(t) > 0 && t[len(t)-1] != nil {
			obj, err = sjson.SetRaw(obj, "detection", t[len(t)-1].Detection.Raw())
			if err != nil {
				return nil, fmt.Errorf("Can't set detection of track %d. Error: %w", id, err)
			}
		}
		doc, err = sjson.SetRawBytes(doc, "tracks.-1", []byte(obj))
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Every track of out with all its slots, nil slots as null
func Tracks(out *global.Output, r *Registry) ([]byte, error) {
	active := make(map[int]bool, len(out.ActiveTrackIDs))
	for _, id := range out.ActiveTrackIDs {
		active[id] = true
	}
	doc := []byte(`{"tracks":[]}`)
	for id, t := range out.Tracks {
		obj, err := trackHeader(r, out, id, active[id])
		if err != nil {
			return nil, err
		}
		obj, err = sjson.SetRaw(obj, "items", "[]")
		if err != nil {
			return nil, err
		}
		for _, item := range t {
			raw := "null"
			if item != nil {
				raw = item.Detection.Raw()
			}
			obj, err = sjson.SetRaw(obj, "items.-1", raw)
			if err != nil {
				return nil, fmt.Errorf("Can't append item to track %d. Error: %w", id, err)
			}
		}
		doc, err = sjson.SetRawBytes(doc, "tracks.-1", []byte(obj))
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}
