package interaction

import (
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/internal/pick"
	"github.com/philipparndt/gomeasure/internal/visual"
)

// Highlighter applies highlight levels to confirmed entities
type Highlighter interface {
	SetHighlight(id int, level visual.Highlight)
}

type hoverTarget struct {
	id    int
	role  measurement.Endpoint
	level visual.Highlight
}

// HoverResolver tracks the entity under the cursor and keeps exactly that
// entity highlighted.
type HoverResolver struct {
	highlighter Highlighter
	current     *hoverTarget
}

// NewHoverResolver creates a resolver with nothing hovered
func NewHoverResolver(h Highlighter) *HoverResolver {
	return &HoverResolver{highlighter: h}
}

// Update applies the pick result of this tick. In delete mode only the
// entity matters; otherwise the endpoint role is tracked as well.
func (h *HoverResolver) Update(mode Mode, r pick.Result) {
	var next *hoverTarget
	if ep, ok := r.EndpointTarget(); ok {
		next = &hoverTarget{id: ep.EntityID, role: ep.Role, level: visual.HighlightHover}
		if mode == ModeDelete {
			next.role = measurement.StartPoint
			next.level = visual.HighlightDelete
		}
	}

	if sameTarget(h.current, next) {
		return
	}
	if h.current != nil {
		h.highlighter.SetHighlight(h.current.id, visual.HighlightNone)
	}
	h.current = next
	if next != nil {
		h.highlighter.SetHighlight(next.id, next.level)
	}
}

// Hovered returns the hovered entity and endpoint role
func (h *HoverResolver) Hovered() (id int, role measurement.Endpoint, ok bool) {
	if h.current == nil {
		return 0, 0, false
	}
	return h.current.id, h.current.role, true
}

// Clear reverts the highlight of the hovered entity
func (h *HoverResolver) Clear() {
	if h.current != nil {
		h.highlighter.SetHighlight(h.current.id, visual.HighlightNone)
		h.current = nil
	}
}

// Forget drops the hover of a removed entity without touching its visual
func (h *HoverResolver) Forget(id int) {
	if h.current != nil && h.current.id == id {
		h.current = nil
	}
}

func sameTarget(a, b *hoverTarget) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
