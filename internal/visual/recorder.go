package visual

import (
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// Object is a rendered item tracked by Recorder
type Object struct {
	Preview   bool
	Kind      PreviewKind
	EntityID  int
	Start     geometry.Vector3
	End       geometry.Vector3
	Highlight Highlight
}

// Recorder is a headless Layer that only remembers what is alive. The
// command line clients and the tests use it where no window exists.
type Recorder struct {
	next     Handle
	Live     map[Handle]*Object
	Disposed int
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{Live: make(map[Handle]*Object)}
}

func (r *Recorder) add(o *Object) Handle {
	r.next++
	r.Live[r.next] = o
	return r.next
}

func (r *Recorder) RenderPreview(kind PreviewKind, start, end geometry.Vector3) Handle {
	return r.add(&Object{Preview: true, Kind: kind, EntityID: measurement.PlaceholderID, Start: start, End: end})
}

func (r *Recorder) RenderEntity(e *measurement.Entity) Handle {
	return r.add(&Object{EntityID: e.ID, Start: e.Start, End: e.End})
}

func (r *Recorder) SetHighlight(h Handle, level Highlight) {
	if o, ok := r.Live[h]; ok {
		o.Highlight = level
	}
}

func (r *Recorder) Dispose(h Handle) {
	if _, ok := r.Live[h]; ok {
		delete(r.Live, h)
		r.Disposed++
	}
}

// Previews returns the live preview objects
func (r *Recorder) Previews() []*Object {
	var out []*Object
	for _, o := range r.Live {
		if o.Preview {
			out = append(out, o)
		}
	}
	return out
}

// Entity returns the live object drawn for id
func (r *Recorder) Entity(id int) (*Object, bool) {
	for _, o := range r.Live {
		if !o.Preview && o.EntityID == id {
			return o, true
		}
	}
	return nil, false
}
