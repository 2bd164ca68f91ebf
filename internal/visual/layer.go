// Package visual is the boundary to whatever draws measurements.
//
// The core never builds rendering primitives itself. It asks a Layer for
// handles and keeps a Projection of one handle per confirmed entity.
package visual

import (
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// Handle identifies a rendered object. The zero handle is "nothing".
type Handle uint64

// PreviewKind distinguishes the ephemeral lines drawn during interactions
type PreviewKind int

const (
	PreviewCreate PreviewKind = iota
	PreviewMove
)

// Highlight is the visual emphasis of a rendered entity. Levels above
// HighlightNone are also drawn in the priority rendering group.
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightHover
	HighlightDelete
)

func (h Highlight) String() string {
	switch h {
	case HighlightHover:
		return "hover"
	case HighlightDelete:
		return "delete"
	}
	return "none"
}

// Layer renders measurement visuals on behalf of the core
type Layer interface {
	RenderPreview(kind PreviewKind, start, end geometry.Vector3) Handle
	RenderEntity(e *measurement.Entity) Handle
	SetHighlight(h Handle, level Highlight)
	Dispose(h Handle)
}
