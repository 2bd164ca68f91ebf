package visual

import "github.com/philipparndt/gomeasure/internal/measurement"

type projected struct {
	handle    Handle
	hidden    bool
	highlight Highlight
	entity    *measurement.Entity
}

// Projection keeps exactly one rendered object per confirmed entity. The
// rendered objects are derived data: they are rebuilt whenever the entity
// changes and carry nothing the registry does not already know.
type Projection struct {
	layer   Layer
	visuals map[int]*projected
}

// NewProjection creates an empty projection drawing into layer
func NewProjection(layer Layer) *Projection {
	return &Projection{layer: layer, visuals: make(map[int]*projected)}
}

// Refresh rebuilds the visual of e. Hidden entities stay hidden and the
// current highlight is re-applied to the new handle.
func (p *Projection) Refresh(e *measurement.Entity) {
	v, ok := p.visuals[e.ID]
	if !ok {
		v = &projected{}
		p.visuals[e.ID] = v
	}
	v.entity = e
	p.dispose(v)
	if !v.hidden {
		p.render(v)
	}
}

// Remove disposes the visual of id, hidden or not
func (p *Projection) Remove(id int) {
	if v, ok := p.visuals[id]; ok {
		p.dispose(v)
		delete(p.visuals, id)
	}
}

// Hide clears the visual of id without forgetting it
func (p *Projection) Hide(id int) {
	v, ok := p.visuals[id]
	if !ok || v.hidden {
		return
	}
	v.hidden = true
	p.dispose(v)
}

// Show restores a hidden visual from the entity's current state
func (p *Projection) Show(id int) {
	v, ok := p.visuals[id]
	if !ok || !v.hidden {
		return
	}
	v.hidden = false
	p.render(v)
}

// Hidden reports whether id is currently hidden
func (p *Projection) Hidden(id int) bool {
	v, ok := p.visuals[id]
	return ok && v.hidden
}

// SetHighlight records the highlight of id and applies it when visible
func (p *Projection) SetHighlight(id int, level Highlight) {
	v, ok := p.visuals[id]
	if !ok {
		return
	}
	v.highlight = level
	if v.handle != 0 {
		p.layer.SetHighlight(v.handle, level)
	}
}

// Highlight returns the recorded highlight of id
func (p *Projection) Highlight(id int) Highlight {
	if v, ok := p.visuals[id]; ok {
		return v.highlight
	}
	return HighlightNone
}

// Handle returns the live handle of id, or zero when hidden or unknown
func (p *Projection) Handle(id int) Handle {
	if v, ok := p.visuals[id]; ok {
		return v.handle
	}
	return 0
}

// Len returns the number of tracked entities
func (p *Projection) Len() int {
	return len(p.visuals)
}

// Clear disposes everything
func (p *Projection) Clear() {
	for id, v := range p.visuals {
		p.dispose(v)
		delete(p.visuals, id)
	}
}

func (p *Projection) render(v *projected) {
	v.handle = p.layer.RenderEntity(v.entity)
	if v.highlight != HighlightNone {
		p.layer.SetHighlight(v.handle, v.highlight)
	}
}

func (p *Projection) dispose(v *projected) {
	if v.handle != 0 {
		p.layer.Dispose(v.handle)
		v.handle = 0
	}
}
